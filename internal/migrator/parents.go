package migrator

import (
	"context"
	"fmt"

	"github.com/lherron/schoolmig/internal/domain"
	"github.com/lherron/schoolmig/internal/session"
	"github.com/lherron/schoolmig/internal/store"
)

// MigrateParents runs the PARENTS phase.
func (m *Migrator) MigrateParents(ctx context.Context) (PhaseResult, error) {
	return runPhase(ctx, m, domain.PhaseParents, m.src.Parents,
		func(p domain.V1Parent) string { return p.ID }, m.migrateParent)
}

func (m *Migrator) migrateParent(ctx context.Context, in domain.V1Parent) RecordOutcome {
	out := RecordOutcome{Kind: domain.KindParent, OldID: in.ID}

	schoolID, err := m.owningSchool(out.Kind, in.ID, in.SchoolID)
	if err != nil {
		out.Err = err
		return out
	}
	out.SchoolID = schoolID

	v := m.fields.Parent(in)
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

	userID, w, err := m.createUser(ctx, newUser{
		Type:     domain.UserTypeParent,
		OldID:    in.ID,
		Person:   rec.V1Person,
		SchoolID: schoolID,
		Active:   true,
	})
	out.Warnings = append(out.Warnings, w...)
	if err != nil {
		out.Err = fmt.Errorf("parent %s: %w", in.ID, err)
		return out
	}

	detailID, err := m.target.Insert(ctx, "parents", store.Fields{
		"user_id":    userID,
		"type":       string(v.Type),
		"occupation": null(rec.Occupation),
		"address":    null(rec.Address),
	})
	if err != nil {
		out.NewID = userID
		out.Orphaned = true
		out.Err = fmt.Errorf("parent %s: create parent record for user %d: %w", in.ID, userID, err)
		return out
	}

	if m.register(&out, userID, schoolID, session.Metadata{
		"name":      rec.FullName(),
		"email":     rec.Email,
		"type":      string(v.Type),
		"parent_id": fmt.Sprint(detailID),
	}) {
		m.parentDetails[in.ID] = detailID
	}
	return out
}
