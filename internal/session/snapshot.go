package session

import "github.com/lherron/schoolmig/internal/domain"

// Snapshot is a read-only copy of the session's mappings, registry and
// curriculum assignments. Post-flight validation works on a Snapshot so that
// it re-derives consistency from the recorded data alone.
type Snapshot struct {
	SessionID string
	Phase     domain.Phase
	Mappings  map[domain.EntityKind][]Mapping
	// Registry holds kind -> school new id -> member new ids.
	Registry  map[domain.EntityKind]map[int64][]int64
	Curricula map[int64]CurriculumAssignment
	Errors    int
	Warnings  int
}

// Snapshot copies the session state.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		SessionID: s.id,
		Phase:     s.phase,
		Mappings:  make(map[domain.EntityKind][]Mapping, len(domain.AllKinds)),
		Registry:  make(map[domain.EntityKind]map[int64][]int64, len(domain.DependentKinds)),
		Curricula: make(map[int64]CurriculumAssignment, len(s.curricula)),
		Errors:    len(s.errors),
		Warnings:  len(s.warnings),
	}
	for _, kind := range domain.AllKinds {
		snap.Mappings[kind] = s.Mappings(kind)
	}
	for _, kind := range domain.DependentKinds {
		bySchool := make(map[int64][]int64, len(s.registry[kind]))
		for schoolID := range s.registry[kind] {
			bySchool[schoolID] = s.Members(kind, schoolID)
		}
		snap.Registry[kind] = bySchool
	}
	for schoolID, a := range s.curricula {
		snap.Curricula[schoolID] = a
	}
	return snap
}

// SchoolSet returns the set of school new ids in the snapshot.
func (snap Snapshot) SchoolSet() map[int64]Mapping {
	out := make(map[int64]Mapping, len(snap.Mappings[domain.KindSchool]))
	for _, m := range snap.Mappings[domain.KindSchool] {
		out[m.NewID] = m
	}
	return out
}
