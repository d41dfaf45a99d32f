package migrator

import (
	"context"
	"fmt"

	"github.com/lherron/schoolmig/internal/domain"
	"github.com/lherron/schoolmig/internal/session"
	"github.com/lherron/schoolmig/internal/store"
)

// MigrateTeachers runs the TEACHERS phase.
func (m *Migrator) MigrateTeachers(ctx context.Context) (PhaseResult, error) {
	return runPhase(ctx, m, domain.PhaseTeachers, m.src.Teachers,
		func(t domain.V1Teacher) string { return t.ID }, m.migrateTeacher)
}

func (m *Migrator) migrateTeacher(ctx context.Context, in domain.V1Teacher) RecordOutcome {
	out := RecordOutcome{Kind: domain.KindTeacher, OldID: in.ID}

	schoolID, err := m.owningSchool(out.Kind, in.ID, in.SchoolID)
	if err != nil {
		out.Err = err
		return out
	}
	out.SchoolID = schoolID

	v := m.fields.Teacher(in)
	out.Warnings = append(out.Warnings, v.Warnings...)
	if !v.IsValid {
		out.Err = invalid(out.Kind, in.ID, v.Errors)
		return out
	}
	rec := v.Record
	if rec.Email == "" {
		out.Err = &domain.MissingRequiredFieldError{Kind: out.Kind, OldID: in.ID, Field: "email"}
		return out
	}

	active := !rec.IsLoginBarred && !rec.IsDeleted
	userID, w, err := m.createUser(ctx, newUser{
		Type:     domain.UserTypeTeacher,
		OldID:    in.ID,
		Person:   rec.V1Person,
		SchoolID: schoolID,
		Active:   active,
	})
	out.Warnings = append(out.Warnings, w...)
	if err != nil {
		out.Err = fmt.Errorf("teacher %s: %w", in.ID, err)
		return out
	}

	detailID, err := m.target.Insert(ctx, "teachers", store.Fields{
		"user_id":                userID,
		"school_id":              schoolID,
		"qualification":          null(rec.Qualification),
		"subject_specialization": null(rec.Subjects),
		"employment_date":        v.EmploymentDate,
		"is_active":              active,
		"is_deleted":             false,
	})
	if err != nil {
		out.NewID = userID
		out.Orphaned = true
		out.Err = fmt.Errorf("teacher %s: create teacher record for user %d: %w", in.ID, userID, err)
		return out
	}

	m.register(&out, userID, schoolID, session.Metadata{
		"name":       rec.FullName(),
		"email":      rec.Email,
		"teacher_id": fmt.Sprint(detailID),
	})
	return out
}
