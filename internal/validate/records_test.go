package validate

import (
	"strings"
	"testing"

	"github.com/lherron/schoolmig/internal/domain"
)

func TestSchoolRecord(t *testing.T) {
	f := testFields()

	t.Run("clean school", func(t *testing.T) {
		got := f.School(domain.V1School{ID: "1", Name: "Acme", Level: "primary", Email: "a@acme.com", Code: "AC1", Type: "public"})
		if !got.IsValid {
			t.Fatalf("IsValid = false, errors %v", got.Errors)
		}
		if got.ClassLevel != "PRIMARY" || got.Type != domain.SchoolPublic || got.Record.Code != "AC1" {
			t.Errorf("School() = %+v", got)
		}
		if len(got.Warnings) != 0 {
			t.Errorf("unexpected warnings: %v", got.Warnings)
		}
	})

	t.Run("repairs and defaults", func(t *testing.T) {
		got := f.School(domain.V1School{ID: "2", Name: "Oak Hill", Level: "High School", Email: "bad email", Phone: "0712345678"})
		if !got.IsValid {
			t.Fatalf("IsValid = false, errors %v", got.Errors)
		}
		if got.Record.Email != "" {
			t.Errorf("unrepairable email kept: %q", got.Record.Email)
		}
		if got.Record.Phone != "+254712345678" {
			t.Errorf("phone = %q", got.Record.Phone)
		}
		if got.Type != domain.SchoolPrivate {
			t.Errorf("type = %s, want PRIVATE", got.Type)
		}
		if got.Record.Code != "OAKHIL0307" {
			t.Errorf("code = %q", got.Record.Code)
		}
		// email dropped, type defaulted, code generated
		if len(got.Warnings) != 3 {
			t.Errorf("warnings = %v", got.Warnings)
		}
	})

	t.Run("unmappable level is fatal", func(t *testing.T) {
		got := f.School(domain.V1School{ID: "3", Name: "Uni", Level: "university"})
		if got.IsValid {
			t.Fatal("IsValid = true for unmappable level")
		}
		if !strings.Contains(strings.Join(got.Errors, "; "), "Cannot map school level") {
			t.Errorf("errors = %v", got.Errors)
		}
	})
}

func TestStudentGenderInference(t *testing.T) {
	f := testFields()
	got := f.Student(domain.V1Student{
		V1Person:        domain.V1Person{ID: "7", FirstName: "Mary", LastName: "Wanjiku", SchoolID: "1"},
		AdmissionNumber: "ADM-7",
		ParentID:        "3",
	})
	if !got.IsValid {
		t.Fatalf("IsValid = false, errors %v", got.Errors)
	}
	if got.Gender != domain.GenderFemale {
		t.Errorf("Gender = %s, want FEMALE", got.Gender)
	}
	found := false
	for _, w := range got.Warnings {
		if strings.Contains(w, "Estimated gender as FEMALE") {
			found = true
		}
	}
	if !found {
		t.Errorf("missing gender warning in %v", got.Warnings)
	}
	if got.DateOfBirth.Year() != 2013 {
		t.Errorf("DateOfBirth = %v", got.DateOfBirth)
	}
}

func TestPersonRecord(t *testing.T) {
	f := testFields()

	got := f.Teacher(domain.V1Teacher{V1Person: domain.V1Person{ID: "5", Email: "T@Acme.com", SchoolID: "1"}})
	if !got.IsValid {
		t.Fatalf("IsValid = false, errors %v", got.Errors)
	}
	if got.Record.Email != "t@acme.com" || got.Record.FirstName != "Unknown" {
		t.Errorf("Teacher() record = %+v", got.Record)
	}
	if !got.EmploymentDate.Equal(testNow) {
		t.Errorf("EmploymentDate = %v, want run clock", got.EmploymentDate)
	}

	orphan := f.Parent(domain.V1Parent{V1Person: domain.V1Person{ID: "9", FirstName: "Ann", LastName: "Mumbi"}, Relationship: "Mother"})
	if orphan.IsValid {
		t.Error("parent without school should be invalid")
	}
	if orphan.Type != domain.ParentMother {
		t.Errorf("Type = %s, want MOTHER", orphan.Type)
	}
}
