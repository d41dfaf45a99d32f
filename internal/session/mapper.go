package session

import (
	"fmt"
	"sort"

	"github.com/lherron/schoolmig/internal/domain"
)

// AddMapping registers oldID -> newID for kind. For dependent kinds schoolID
// must be the new id of a school already in the mapper, otherwise a
// *domain.PrerequisiteViolationError is returned and nothing is recorded.
// For schools schoolID is ignored and empty registry sets are created.
//
// The mapping, its registry entry and the migrated counter are updated
// together or not at all.
func (s *Session) AddMapping(kind domain.EntityKind, oldID string, newID int64, schoolID int64, meta Metadata) (Mapping, error) {
	idx, ok := s.mappings[kind]
	if !ok {
		return Mapping{}, fmt.Errorf("unknown entity kind %q", kind)
	}

	if kind.IsDependent() && !s.SchoolExists(schoolID) {
		err := &domain.PrerequisiteViolationError{Kind: kind, OldID: oldID, SchoolID: schoolID}
		s.errors = append(s.errors, err.Error())
		return Mapping{}, err
	}
	if _, dup := idx.byOld[oldID]; dup {
		return Mapping{}, &domain.DuplicateMappingError{Kind: kind, OldID: oldID, NewID: newID}
	}
	if _, dup := idx.byNew[newID]; dup {
		return Mapping{}, &domain.DuplicateMappingError{Kind: kind, OldID: oldID, NewID: newID}
	}

	m := &Mapping{
		Kind:      kind,
		OldID:     oldID,
		NewID:     newID,
		Metadata:  copyMetadata(meta),
		CreatedAt: s.now(),
	}
	if kind.IsDependent() {
		m.SchoolID = schoolID
		s.registry[kind][schoolID][newID] = struct{}{}
	} else {
		for _, dep := range domain.DependentKinds {
			s.registry[dep][newID] = make(map[int64]struct{})
		}
		s.schools = append(s.schools, newID)
	}

	idx.byOld[oldID] = m
	idx.byNew[newID] = m
	idx.ordered = append(idx.ordered, m)
	s.counter(kind).Migrated++

	return m.clone(), nil
}

// ResolveNewID returns the new id registered for oldID. It never fails; ok is
// false when no mapping exists.
func (s *Session) ResolveNewID(kind domain.EntityKind, oldID string) (int64, bool) {
	idx, found := s.mappings[kind]
	if !found {
		return 0, false
	}
	m, found := idx.byOld[oldID]
	if !found {
		return 0, false
	}
	return m.NewID, true
}

// Lookup returns the full mapping for oldID.
func (s *Session) Lookup(kind domain.EntityKind, oldID string) (Mapping, bool) {
	idx, found := s.mappings[kind]
	if !found {
		return Mapping{}, false
	}
	m, found := idx.byOld[oldID]
	if !found {
		return Mapping{}, false
	}
	return m.clone(), true
}

// LookupNew returns the mapping that produced newID.
func (s *Session) LookupNew(kind domain.EntityKind, newID int64) (Mapping, bool) {
	idx, found := s.mappings[kind]
	if !found {
		return Mapping{}, false
	}
	m, found := idx.byNew[newID]
	if !found {
		return Mapping{}, false
	}
	return m.clone(), true
}

// SchoolExists is the authoritative check that a V2 school id belongs to a
// school migrated in this session.
func (s *Session) SchoolExists(newID int64) bool {
	_, ok := s.mappings[domain.KindSchool].byNew[newID]
	return ok
}

// Mappings returns the mappings of a kind in registration order.
func (s *Session) Mappings(kind domain.EntityKind) []Mapping {
	idx, ok := s.mappings[kind]
	if !ok {
		return nil
	}
	out := make([]Mapping, 0, len(idx.ordered))
	for _, m := range idx.ordered {
		out = append(out, m.clone())
	}
	return out
}

// Count returns the number of mappings of a kind.
func (s *Session) Count(kind domain.EntityKind) int {
	idx, ok := s.mappings[kind]
	if !ok {
		return 0
	}
	return len(idx.ordered)
}

// SchoolIDs returns migrated school new ids in registration order.
func (s *Session) SchoolIDs() []int64 {
	return append([]int64(nil), s.schools...)
}

// Members returns the sorted new ids of kind registered under a school.
func (s *Session) Members(kind domain.EntityKind, schoolID int64) []int64 {
	byKind, ok := s.registry[kind]
	if !ok {
		return nil
	}
	set := byKind[schoolID]
	out := make([]int64, 0, len(set))
	for newID := range set {
		out = append(out, newID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AssignCurriculum stores the curriculum chosen for a school. The school must
// already be in the mapper.
func (s *Session) AssignCurriculum(a CurriculumAssignment) error {
	if !s.SchoolExists(a.SchoolID) {
		err := &domain.PrerequisiteViolationError{Kind: domain.KindSchool, OldID: "curriculum", SchoolID: a.SchoolID}
		s.errors = append(s.errors, err.Error())
		return err
	}
	a.ValidationErrors = append([]string(nil), a.ValidationErrors...)
	s.curricula[a.SchoolID] = a
	return nil
}

// Curriculum returns the assignment for a school.
func (s *Session) Curriculum(schoolID int64) (CurriculumAssignment, bool) {
	a, ok := s.curricula[schoolID]
	return a, ok
}

func (m *Mapping) clone() Mapping {
	out := *m
	out.Metadata = copyMetadata(m.Metadata)
	return out
}

func copyMetadata(meta Metadata) Metadata {
	if len(meta) == 0 {
		return nil
	}
	out := make(Metadata, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}
