package migrator

import (
	"context"
	"fmt"

	"github.com/lherron/schoolmig/internal/domain"
	"github.com/lherron/schoolmig/internal/session"
	"github.com/lherron/schoolmig/internal/store"
	"go.uber.org/zap"
)

// PendingLink is a student to parent relationship waiting for the link pass.
type PendingLink struct {
	StudentOldID string
	StudentID    int64
	ParentOldID  string
}

// LinkResult summarizes the student to parent link pass.
type LinkResult struct {
	Pending    int `json:"pending" yaml:"pending"`
	Linked     int `json:"linked" yaml:"linked"`
	Unresolved int `json:"unresolved" yaml:"unresolved"`
	Failed     int `json:"failed" yaml:"failed"`
}

// MigrateStudents runs the STUDENTS phase. Parent relationships are queued
// for LinkStudentParents.
func (m *Migrator) MigrateStudents(ctx context.Context) (PhaseResult, error) {
	return runPhase(ctx, m, domain.PhaseStudents, m.src.Students,
		func(s domain.V1Student) string { return s.ID }, m.migrateStudent)
}

func (m *Migrator) migrateStudent(ctx context.Context, in domain.V1Student) RecordOutcome {
	out := RecordOutcome{Kind: domain.KindStudent, OldID: in.ID}

	schoolID, err := m.owningSchool(out.Kind, in.ID, in.SchoolID)
	if err != nil {
		out.Err = err
		return out
	}
	out.SchoolID = schoolID

	v := m.fields.Student(in)
	out.Warnings = append(out.Warnings, v.Warnings...)
	if !v.IsValid {
		out.Err = invalid(out.Kind, in.ID, v.Errors)
		return out
	}
	rec := v.Record
	if rec.Email == "" && rec.AdmissionNumber == "" {
		out.Err = &domain.MissingRequiredFieldError{Kind: out.Kind, OldID: in.ID, Field: "email or admission number"}
		return out
	}

	classID, err := m.defaultClass(ctx, schoolID, rec.ClassID)
	if err != nil {
		out.Err = fmt.Errorf("student %s: default class: %w", in.ID, err)
		return out
	}

	userID, w, err := m.createUser(ctx, newUser{
		Type:     domain.UserTypeStudent,
		OldID:    in.ID,
		Person:   rec.V1Person,
		SchoolID: schoolID,
		Active:   true,
	})
	out.Warnings = append(out.Warnings, w...)
	if err != nil {
		out.Err = fmt.Errorf("student %s: %w", in.ID, err)
		return out
	}

	enrolled := rec.CreatedAt
	if enrolled.IsZero() {
		enrolled = m.sess.Now()
	}
	detailID, err := m.target.Insert(ctx, "students", store.Fields{
		"user_id":          userID,
		"school_id":        schoolID,
		"school_class_id":  nullID(classID),
		"admission_number": null(rec.AdmissionNumber),
		"gender":           string(v.Gender),
		"date_of_birth":    v.DateOfBirth,
		"is_enrolled":      true,
		"enrollment_date":  enrolled,
		"is_active":        true,
		"is_deleted":       false,
	})
	if err != nil {
		out.NewID = userID
		out.Orphaned = true
		out.Err = fmt.Errorf("student %s: create student record for user %d: %w", in.ID, userID, err)
		return out
	}

	if !m.register(&out, userID, schoolID, session.Metadata{
		"name":             rec.FullName(),
		"admission_number": rec.AdmissionNumber,
		"gender":           string(v.Gender),
		"student_id":       fmt.Sprint(detailID),
	}) {
		return out
	}
	if rec.ParentID != "" {
		m.pending = append(m.pending, PendingLink{StudentOldID: in.ID, StudentID: detailID, ParentOldID: rec.ParentID})
	}
	return out
}

// PendingLinks returns the queued student to parent relationships.
func (m *Migrator) PendingLinks() []PendingLink {
	return append([]PendingLink(nil), m.pending...)
}

// LinkStudentParents writes student_parents rows for every pending link
// whose parent was migrated. Links to unmigrated parents are counted and
// warned about.
func (m *Migrator) LinkStudentParents(ctx context.Context) (LinkResult, error) {
	res := LinkResult{Pending: len(m.pending)}
	for _, link := range m.pending {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		parentID, ok := m.parentDetails[link.ParentOldID]
		if !ok {
			res.Unresolved++
			m.sess.AddWarning("Student %s: parent %s was not migrated, relationship skipped", link.StudentOldID, link.ParentOldID)
			continue
		}
		if _, err := m.target.Insert(ctx, "student_parents", store.Fields{
			"student_id": link.StudentID,
			"parent_id":  parentID,
		}); err != nil {
			res.Failed++
			m.sess.AddError("Student %s: failed to link parent %s: %v", link.StudentOldID, link.ParentOldID, err)
			continue
		}
		res.Linked++
	}
	m.pending = nil

	m.log.Info("student parent links",
		zap.Int("linked", res.Linked),
		zap.Int("unresolved", res.Unresolved),
		zap.Int("failed", res.Failed))
	return res, nil
}
