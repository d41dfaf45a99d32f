package migrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lherron/schoolmig/internal/domain"
	"github.com/lherron/schoolmig/internal/id"
	"github.com/lherron/schoolmig/internal/store"
	"github.com/lherron/schoolmig/internal/validate"
)

// newUser is the input for one row of the unified V2 users table. Person
// holds already validated names and contact fields.
type newUser struct {
	Type     domain.UserType
	OldID    string
	Person   domain.V1Person
	SchoolID int64
	Active   bool
	Verified bool
}

// emailTag is the plus-address tag used when an email collides.
func emailTag(t domain.UserType) string {
	if t == domain.UserTypeSchoolAdmin {
		return "admin"
	}
	return strings.ToLower(string(t))
}

// createUser inserts a users row, repairing email and phone collisions, and
// returns its id together with any repair warnings.
func (m *Migrator) createUser(ctx context.Context, u newUser) (int64, []string, error) {
	if err := domain.ValidateUserType(u.Type); err != nil {
		return 0, nil, err
	}
	var warnings []string

	email, w, err := m.uniqueEmail(ctx, "users", u.Person.Email, emailTag(u.Type), u.OldID)
	if err != nil {
		return 0, nil, err
	}
	warnings = append(warnings, w...)

	phone := u.Person.Phone
	if phone != "" {
		taken, err := m.target.Exists(ctx, "users", "phone_number", phone)
		if err != nil {
			return 0, nil, fmt.Errorf("check phone: %w", err)
		}
		if taken {
			warnings = append(warnings, fmt.Sprintf("Phone number %s already registered, dropped", phone))
			phone = ""
		}
	}

	hash, set, err := m.fields.HashPassword(u.Person.Password)
	if err != nil {
		return 0, nil, err
	}

	userID, err := m.target.Insert(ctx, "users", store.Fields{
		"uuid":            id.NewUUID(),
		"first_name":      u.Person.FirstName,
		"middle_name":     null(u.Person.MiddleName),
		"last_name":       u.Person.LastName,
		"email":           null(email),
		"phone_number":    null(phone),
		"password":        null(hash),
		"is_password_set": set,
		"type":            string(u.Type),
		"school_id":       nullID(u.SchoolID),
		"is_active":       u.Active,
		"is_verified":     u.Verified,
		"country":         m.country,
	})
	if err != nil {
		return 0, warnings, fmt.Errorf("create %s user: %w", strings.ToLower(string(u.Type)), err)
	}
	return userID, warnings, nil
}

// uniqueEmail returns the first collision-free variant of email in
// table.email. When every variant is taken the email is dropped with a
// warning.
func (m *Migrator) uniqueEmail(ctx context.Context, table, email, tag, oldID string) (string, []string, error) {
	if email == "" {
		return "", nil, nil
	}
	free, changed, err := validate.FirstFree(ctx, m.exists(table, "email"),
		validate.EmailCandidates(email, tag, oldID, m.sess.Now()))
	switch {
	case errors.Is(err, validate.ErrUnresolvedCollision):
		return "", []string{fmt.Sprintf("Email %s already taken, dropped", email)}, nil
	case err != nil:
		return "", nil, fmt.Errorf("check email: %w", err)
	case changed:
		return free, []string{fmt.Sprintf("Duplicate email %s, using %s", email, free)}, nil
	}
	return free, nil, nil
}
