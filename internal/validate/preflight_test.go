package validate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lherron/schoolmig/internal/domain"
)

type fakeSource struct {
	data SourceData
	err  error
}

func (f fakeSource) Schools(context.Context) ([]domain.V1School, error)   { return f.data.Schools, f.err }
func (f fakeSource) Teachers(context.Context) ([]domain.V1Teacher, error) { return f.data.Teachers, nil }
func (f fakeSource) Parents(context.Context) ([]domain.V1Parent, error)   { return f.data.Parents, nil }
func (f fakeSource) Students(context.Context) ([]domain.V1Student, error) { return f.data.Students, nil }

func person(id, first, schoolID string) domain.V1Person {
	return domain.V1Person{ID: id, FirstName: first, LastName: "Test", Email: id + "@acme.com", SchoolID: schoolID}
}

func cleanSource() SourceData {
	return SourceData{
		Schools:  []domain.V1School{{ID: "1", Name: "Acme", Email: "a@acme.com", Code: "AC1"}},
		Teachers: []domain.V1Teacher{{V1Person: person("5", "Tom", "1")}},
		Parents:  []domain.V1Parent{{V1Person: person("3", "Ann", "1"), Occupation: "Nurse", Address: "Nairobi"}},
		Students: []domain.V1Student{{V1Person: person("7", "Mary", "1"), ParentID: "3"}},
	}
}

func TestPreflightClean(t *testing.T) {
	res, err := Preflight(context.Background(), fakeSource{data: cleanSource()})
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsValid || len(res.Errors) != 0 || len(res.Warnings) != 0 {
		t.Fatalf("Preflight() = %+v", res)
	}
	schools := res.Details["schools"].(map[string]any)
	if schools["total_schools"] != 1 {
		t.Errorf("details = %v", res.Details)
	}
}

func TestPreflightSchoolWithoutName(t *testing.T) {
	data := cleanSource()
	data.Schools = append(data.Schools, domain.V1School{ID: "2", Email: "b@x.com", Code: "B1"})

	res := CheckSource(data)
	if res.IsValid {
		t.Fatal("IsValid = true for nameless school")
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "School ID 2 has no name") {
		t.Errorf("Errors = %v", res.Errors)
	}
}

func TestPreflightClassification(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*SourceData)
		errText  string
		warnText string
	}{
		{
			name:    "teacher without school",
			mutate:  func(d *SourceData) { d.Teachers[0].SchoolID = "" },
			errText: "Teacher 'Tom Test' (ID: 5) has no school assigned",
		},
		{
			name:    "parent with deleted school",
			mutate:  func(d *SourceData) { d.Parents[0].SchoolID = "99" },
			errText: "references non-existent or deleted school ID: 99",
		},
		{
			name:    "student with missing parent",
			mutate:  func(d *SourceData) { d.Students[0].ParentID = "42" },
			errText: "non-existent or deleted parent ID: 42",
		},
		{
			name:    "missing primary key",
			mutate:  func(d *SourceData) { d.Students[0].ID = "" },
			errText: "has no primary key",
		},
		{
			name: "no name and no email",
			mutate: func(d *SourceData) {
				d.Teachers[0].FirstName, d.Teachers[0].LastName, d.Teachers[0].Email = "", "", ""
			},
			errText: "neither a name nor an email",
		},
		{
			name:     "school without code",
			mutate:   func(d *SourceData) { d.Schools[0].Code = "" },
			warnText: "has no school code",
		},
		{
			name:     "parent without occupation",
			mutate:   func(d *SourceData) { d.Parents[0].Occupation = "" },
			warnText: "has no occupation",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := cleanSource()
			tt.mutate(&data)
			res := CheckSource(data)

			if tt.errText != "" {
				if res.IsValid {
					t.Fatal("IsValid = true, want false")
				}
				if !strings.Contains(strings.Join(res.Errors, "\n"), tt.errText) {
					t.Errorf("Errors = %v, want one containing %q", res.Errors, tt.errText)
				}
			}
			if tt.warnText != "" {
				if !res.IsValid {
					t.Fatalf("warning-only source reported invalid: %v", res.Errors)
				}
				if !strings.Contains(strings.Join(res.Warnings, "\n"), tt.warnText) {
					t.Errorf("Warnings = %v, want one containing %q", res.Warnings, tt.warnText)
				}
			}
		})
	}
}

func TestPreflightLoadError(t *testing.T) {
	boom := errors.New("connection refused")
	_, err := Preflight(context.Background(), fakeSource{err: boom})
	if !errors.Is(err, boom) {
		t.Errorf("Preflight() error = %v, want wrapped %v", err, boom)
	}
}
