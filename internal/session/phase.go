package session

import "github.com/lherron/schoolmig/internal/domain"

// EnterPhase advances the phase controller. Phases only move forward; asking
// for the current or an earlier phase returns *domain.PhaseOrderError.
// TEACHERS, PARENTS and STUDENTS require at least one migrated school.
// Entering STUDENTS without any migrated parent only adds a warning.
func (s *Session) EnterPhase(p domain.Phase) error {
	if p <= s.phase {
		return &domain.PhaseOrderError{Current: s.phase, Requested: p}
	}

	switch p {
	case domain.PhaseTeachers, domain.PhaseParents, domain.PhaseStudents:
		if s.Count(domain.KindSchool) == 0 {
			kind, _ := domain.KindForPhase(p)
			err := &domain.PhasePrerequisiteError{Phase: p, Reason: "no schools migrated"}
			s.AddError("Cannot start %s migration: No schools migrated", kind)
			return err
		}
	}
	if p == domain.PhaseStudents && s.Count(domain.KindParent) == 0 {
		s.AddWarning("Starting student migration without parents: students will not have parent relationships")
	}

	s.phase = p
	return nil
}
