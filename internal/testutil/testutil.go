package testutil

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lherron/schoolmig/internal/db"
	"github.com/lherron/schoolmig/internal/domain"
)

// tempDB opens a SQLite database in a temp dir and applies schema.
func tempDB(t *testing.T, name string, schema db.Schema) *db.DB {
	t.Helper()

	database, err := db.Open(context.Background(), db.DriverSQLite3, filepath.Join(t.TempDir(), name))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	if _, err := database.Migrate(context.Background(), schema); err != nil {
		database.Close()
		t.Fatalf("Failed to run migrations: %v", err)
	}
	t.Cleanup(func() {
		database.Close()
	})
	return database
}

// TempTarget creates a migrated V2 target database for testing
func TempTarget(t *testing.T) *db.DB {
	t.Helper()
	return tempDB(t, "v2.db", db.SchemaTarget)
}

// TempSource creates a V1 source database for testing
func TempSource(t *testing.T) *db.DB {
	t.Helper()
	return tempDB(t, "v1.db", db.SchemaSource)
}

func exec(t *testing.T, database *db.DB, query string, args ...any) {
	t.Helper()
	if _, err := database.ExecContext(context.Background(), query, args...); err != nil {
		t.Fatalf("Failed to seed: %v\n%s", err, query)
	}
}

func nullTime(ts time.Time) any {
	if ts.IsZero() {
		return nil
	}
	return ts
}

// SeedSchool inserts a V1 school row
func SeedSchool(t *testing.T, src *db.DB, s domain.V1School) {
	t.Helper()
	exec(t, src, `INSERT INTO "School" ("id", "schoolName", "email", "phone", "schoolCode", "schoolLevel",
		"motto", "vision", "country", "county", "logo", "address", "type", "password",
		"isActive", "isVerified", "isDeleted", "createdAt", "updatedAt")
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Name, s.Email, s.Phone, s.Code, s.Level, s.Motto, s.Vision, s.Country, s.County,
		s.Logo, s.Address, s.Type, s.Password, s.IsActive, s.IsVerified, s.IsDeleted,
		nullTime(s.CreatedAt), nullTime(s.UpdatedAt))
}

func personArgs(p domain.V1Person) []any {
	return []any{p.ID, p.FirstName, p.MiddleName, p.LastName, p.Email, p.Phone, p.Password,
		p.Gender, p.SchoolID, p.IsDeleted, nullTime(p.CreatedAt)}
}

const personCols = `"id", "firstName", "middleName", "lastName", "email", "phoneNumber", "password",
	"gender", "schoolId", "isDeleted", "createdAt"`

// SeedTeacher inserts a V1 teacher row
func SeedTeacher(t *testing.T, src *db.DB, tr domain.V1Teacher) {
	t.Helper()
	args := append(personArgs(tr.V1Person), tr.Qualification, tr.Subjects, tr.IsLoginBarred, tr.ExperienceYears)
	exec(t, src, `INSERT INTO "Teacher" (`+personCols+`, "qualification", "subjects", "isLoginBarred", "experienceYears")
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
}

// SeedParent inserts a V1 parent row
func SeedParent(t *testing.T, src *db.DB, p domain.V1Parent) {
	t.Helper()
	args := append(personArgs(p.V1Person), p.Relationship, p.Occupation, p.Address)
	exec(t, src, `INSERT INTO "Parent" (`+personCols+`, "relationship", "occupation", "address")
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
}

// SeedStudent inserts a V1 student row
func SeedStudent(t *testing.T, src *db.DB, s domain.V1Student) {
	t.Helper()
	args := append(personArgs(s.V1Person), s.AdmissionNumber, s.ClassID, s.StreamID, s.ParentID, nullTime(s.DateOfBirth))
	exec(t, src, `INSERT INTO "Student" (`+personCols+`, "studentAdmissionNumber", "classId", "streamId", "parentId", "dateOfBirth")
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
}

// CountRows returns the number of rows in a target table
func CountRows(t *testing.T, database *db.DB, table string) int {
	t.Helper()
	var n int
	if err := database.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		t.Fatalf("Failed to count %s: %v", table, err)
	}
	return n
}

// WriteFile writes content to a file in a temporary directory
func WriteFile(t *testing.T, dir, filename, content string) string {
	t.Helper()
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
	return path
}

// ReadFile reads content from a file
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(data)
}

// AssertStringContains asserts that a string contains a substring
func AssertStringContains(t *testing.T, str, substr string) {
	t.Helper()
	if !strings.Contains(str, substr) {
		t.Fatalf("Expected string to contain %q, got %q", substr, str)
	}
}
