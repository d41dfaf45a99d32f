package domain

import (
	"errors"
	"fmt"
)

// ErrNoCurriculumAvailable is returned when curriculum resolution is asked to
// choose from an empty list.
var ErrNoCurriculumAvailable = errors.New("no curriculum available")

// PrerequisiteViolationError is returned when a dependent record (or a
// curriculum assignment) references a school that is not in the Identity Mapper.
type PrerequisiteViolationError struct {
	Kind     EntityKind
	OldID    string
	SchoolID int64
}

func (e *PrerequisiteViolationError) Error() string {
	return fmt.Sprintf("cannot register %s %s: school %d does not exist in migration session", e.Kind, e.OldID, e.SchoolID)
}

// PhasePrerequisiteError is returned when a phase is entered before the
// mappings it depends on exist.
type PhasePrerequisiteError struct {
	Phase  Phase
	Reason string
}

func (e *PhasePrerequisiteError) Error() string {
	return fmt.Sprintf("cannot start %s phase: %s", e.Phase, e.Reason)
}

// PhaseOrderError is returned when a phase is re-entered or entered out of order.
type PhaseOrderError struct {
	Current   Phase
	Requested Phase
}

func (e *PhaseOrderError) Error() string {
	return fmt.Sprintf("cannot enter %s phase from %s: phases only move forward", e.Requested, e.Current)
}

// MissingSchoolMappingError is returned when a dependent record's owning
// school was never migrated.
type MissingSchoolMappingError struct {
	Kind        EntityKind
	OldID       string
	SchoolOldID string
}

func (e *MissingSchoolMappingError) Error() string {
	if e.SchoolOldID == "" {
		return fmt.Sprintf("%s %s: no school mapping (no school assigned)", e.Kind, e.OldID)
	}
	return fmt.Sprintf("%s %s: no school mapping for V1 school %s", e.Kind, e.OldID, e.SchoolOldID)
}

// MissingRequiredFieldError is returned when a record lacks identity data the
// V2 schema requires.
type MissingRequiredFieldError struct {
	Kind  EntityKind
	OldID string
	Field string
}

func (e *MissingRequiredFieldError) Error() string {
	return fmt.Sprintf("%s %s: missing required field %s", e.Kind, e.OldID, e.Field)
}

// DuplicateMappingError is returned when an old or new id is registered twice
// for the same kind.
type DuplicateMappingError struct {
	Kind  EntityKind
	OldID string
	NewID int64
}

func (e *DuplicateMappingError) Error() string {
	return fmt.Sprintf("duplicate %s mapping: V1 %s -> V2 %d", e.Kind, e.OldID, e.NewID)
}

// UnknownIdentifierError is returned by the store when a table or column is
// not on the identifier whitelist.
type UnknownIdentifierError struct {
	Identifier string
}

func (e *UnknownIdentifierError) Error() string {
	return fmt.Sprintf("identifier %q is not permitted", e.Identifier)
}

// PreflightFailedError aborts a run before any target write.
type PreflightFailedError struct {
	Errors   []string
	Warnings int
}

func (e *PreflightFailedError) Error() string {
	if len(e.Errors) == 0 {
		return "pre-flight validation failed"
	}
	return fmt.Sprintf("pre-flight validation failed with %d error(s), first: %s", len(e.Errors), e.Errors[0])
}
