package migrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lherron/schoolmig/internal/curriculum"
	"github.com/lherron/schoolmig/internal/domain"
	"github.com/lherron/schoolmig/internal/session"
	"github.com/lherron/schoolmig/internal/store"
	"github.com/lherron/schoolmig/internal/validate"
)

// MigrateSchools runs the SCHOOLS phase. Prerequisites are ensured first if
// EnsurePrerequisites has not been called.
func (m *Migrator) MigrateSchools(ctx context.Context) (PhaseResult, error) {
	if m.catalog == nil {
		if _, err := m.EnsurePrerequisites(ctx); err != nil {
			return PhaseResult{Phase: domain.PhaseSchools, Kind: domain.KindSchool}, fmt.Errorf("prerequisites: %w", err)
		}
	}
	return runPhase(ctx, m, domain.PhaseSchools, m.src.Schools,
		func(s domain.V1School) string { return s.ID }, m.migrateSchool)
}

func (m *Migrator) migrateSchool(ctx context.Context, in domain.V1School) RecordOutcome {
	out := RecordOutcome{Kind: domain.KindSchool, OldID: in.ID}

	v := m.fields.School(in)
	out.Warnings = append(out.Warnings, v.Warnings...)
	if !v.IsValid {
		out.Err = invalid(out.Kind, in.ID, v.Errors)
		return out
	}
	rec := v.Record

	levelID, ok := m.catalog.ClassLevels[v.ClassLevel]
	if !ok {
		out.Err = fmt.Errorf("school %s: class level %s missing from target", in.ID, v.ClassLevel)
		return out
	}

	school := curriculum.School{Name: rec.Name, Level: rec.Level}
	picked, err := m.resolver.Resolve(school, m.catalog.Curricula)
	if err != nil {
		out.Err = fmt.Errorf("school %s: %w", in.ID, err)
		return out
	}

	email, w, err := m.uniqueEmail(ctx, "schools", rec.Email, "school", in.ID)
	if err != nil {
		out.Err = fmt.Errorf("school %s: %w", in.ID, err)
		return out
	}
	out.Warnings = append(out.Warnings, w...)

	code, w, err := m.uniqueCode(ctx, rec.Code, in.ID)
	if err != nil {
		out.Err = fmt.Errorf("school %s: %w", in.ID, err)
		return out
	}
	out.Warnings = append(out.Warnings, w...)

	country := rec.Country
	if country == "" {
		country = m.country
	}
	gradeSystemID := picked.Curriculum.GradeSystemID
	if gradeSystemID == 0 {
		gradeSystemID = m.catalog.GradeSystemID
	}

	schoolID, err := m.target.Insert(ctx, "schools", store.Fields{
		"name":            rec.Name,
		"email":           null(email),
		"phone_number":    null(rec.Phone),
		"country":         country,
		"county":          null(rec.County),
		"address":         null(rec.Address),
		"type":            string(v.Type),
		"logo":            null(rec.Logo),
		"government_code": null(code),
		"motto":           null(rec.Motto),
		"vision":          null(rec.Vision),
		"curriculum_id":   picked.Curriculum.ID,
		"grade_system_id": gradeSystemID,
		"level_id":        levelID,
		"is_active":       rec.IsActive,
		"is_verified":     rec.IsVerified,
		"is_deleted":      false,
		"onboarded":       true,
	})
	if err != nil {
		out.Err = fmt.Errorf("school %s: create school: %w", in.ID, err)
		return out
	}

	meta := session.Metadata{
		"name":  rec.Name,
		"email": email,
		"code":  code,
		"level": v.ClassLevel,
	}
	if !m.register(&out, schoolID, 0, meta) {
		return out
	}

	if _, err := m.resolver.Assign(m.sess, schoolID, school, m.catalog.Curricula); err != nil {
		out.Warnings = append(out.Warnings, "Curriculum not recorded: "+err.Error())
	}

	if rec.Email != "" && rec.Password != "" {
		if w, err := m.createSchoolAdmin(ctx, schoolID, rec); err != nil {
			out.Warnings = append(out.Warnings, "Failed to create school admin: "+err.Error())
		} else {
			out.Warnings = append(out.Warnings, w...)
		}
	}
	return out
}

// uniqueCode returns a collision-free government code. An unresolvable code
// is dropped with a warning.
func (m *Migrator) uniqueCode(ctx context.Context, code, oldID string) (string, []string, error) {
	if code == "" {
		return "", nil, nil
	}
	free, changed, err := validate.FirstFree(ctx, m.exists("schools", "government_code"),
		validate.CodeCandidates(code, oldID, m.sess.Now()))
	switch {
	case errors.Is(err, validate.ErrUnresolvedCollision):
		return "", []string{fmt.Sprintf("Government code %s already taken, dropped", code)}, nil
	case err != nil:
		return "", nil, fmt.Errorf("check government code: %w", err)
	case changed:
		return free, []string{fmt.Sprintf("Duplicate government code %s, using %s", code, free)}, nil
	}
	return free, nil, nil
}

// createSchoolAdmin creates the SCHOOL_ADMIN user for a V1 school that
// carried its own login and links it as the main school admin.
func (m *Migrator) createSchoolAdmin(ctx context.Context, schoolID int64, rec domain.V1School) ([]string, error) {
	first := "School"
	if words := strings.Fields(rec.Name); len(words) > 0 {
		first = words[0]
	}
	userID, warnings, err := m.createUser(ctx, newUser{
		Type:  domain.UserTypeSchoolAdmin,
		OldID: rec.ID,
		Person: domain.V1Person{
			FirstName: first,
			LastName:  "Admin",
			Email:     rec.Email,
			Phone:     rec.Phone,
			Password:  rec.Password,
		},
		SchoolID: schoolID,
		Active:   rec.IsActive,
		Verified: rec.IsVerified,
	})
	if err != nil {
		return warnings, err
	}
	if _, err := m.target.Insert(ctx, "school_admins", store.Fields{
		"user_id":   userID,
		"school_id": schoolID,
		"is_main":   true,
		"position":  "Principal",
	}); err != nil {
		return warnings, fmt.Errorf("link admin user %d: %w", userID, err)
	}
	return warnings, nil
}
