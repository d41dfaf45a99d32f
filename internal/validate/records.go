package validate

import (
	"strings"
	"time"

	"github.com/lherron/schoolmig/internal/domain"
)

// School is a V1 school after field validation.
type School struct {
	Record     domain.V1School
	ClassLevel string
	Type       domain.SchoolType
	FieldResult
}

// School validates and normalizes a V1 school. A missing name or an
// unmappable level is fatal; everything else is repaired or dropped with a
// warning.
func (f *Fields) School(in domain.V1School) School {
	out := School{Record: in}
	rec := &out.Record

	rec.Name = strings.TrimSpace(in.Name)
	if rec.Name == "" {
		out.errorf("Missing school name")
	}

	var w []string
	rec.Email, w = f.Email(in.Email)
	out.warn(w...)
	rec.Phone, w = f.Phone(in.Phone)
	out.warn(w...)

	level := strings.TrimSpace(in.Level)
	if level == "" {
		out.errorf("Missing school level")
	} else if name, ok := MatchClassLevel(level); ok {
		out.ClassLevel = name
	} else {
		out.errorf("Cannot map school level: %s", level)
	}

	t, ok := domain.ParseSchoolType(in.Type)
	out.Type = t
	if !ok {
		if strings.TrimSpace(in.Type) == "" {
			out.warn("Missing school type, defaulting to PRIVATE")
		} else {
			out.warn("Unknown school type: " + strings.ToUpper(strings.TrimSpace(in.Type)) + ", defaulting to PRIVATE")
		}
	}

	code, generated := f.GovernmentCode(in.Code, rec.Name)
	rec.Code = code
	if generated {
		out.warn("Missing government code, generated " + code + " from school name")
	}

	out.IsValid = len(out.Errors) == 0
	return out
}

// Person is the shared user part of a teacher, parent or student after
// field validation.
type Person struct {
	Record domain.V1Person
	FieldResult
}

// Person validates the contact and name fields shared by all user kinds.
// Missing names are substituted with a warning.
func (f *Fields) Person(in domain.V1Person) Person {
	out := Person{Record: in}
	rec := &out.Record

	rec.FirstName = strings.TrimSpace(in.FirstName)
	rec.LastName = strings.TrimSpace(in.LastName)
	rec.MiddleName = strings.TrimSpace(in.MiddleName)
	if rec.FirstName == "" {
		rec.FirstName = "Unknown"
		out.warn("Missing first name, using Unknown")
	} else if len(rec.FirstName) < 2 {
		out.warn("Very short first name: " + rec.FirstName)
	}
	if rec.LastName == "" {
		rec.LastName = "Unknown"
		out.warn("Missing last name, using Unknown")
	} else if len(rec.LastName) < 2 {
		out.warn("Very short last name: " + rec.LastName)
	}

	var w []string
	rec.Email, w = f.Email(in.Email)
	out.warn(w...)
	rec.Phone, w = f.Phone(in.Phone)
	out.warn(w...)

	if strings.TrimSpace(in.SchoolID) == "" {
		out.errorf("Missing school ID")
	}

	out.IsValid = len(out.Errors) == 0
	return out
}

// Teacher is a V1 teacher after field validation.
type Teacher struct {
	Record         domain.V1Teacher
	EmploymentDate time.Time
	FieldResult
}

// Teacher validates a V1 teacher.
func (f *Fields) Teacher(in domain.V1Teacher) Teacher {
	p := f.Person(in.V1Person)
	out := Teacher{Record: in, FieldResult: p.FieldResult}
	out.Record.V1Person = p.Record
	out.Record.Qualification = strings.TrimSpace(in.Qualification)
	out.Record.Subjects = strings.TrimSpace(in.Subjects)

	if out.Record.Qualification == "" {
		out.warn("Missing teacher qualification")
	}
	out.EmploymentDate = in.CreatedAt
	if out.EmploymentDate.IsZero() {
		out.EmploymentDate = f.now()
		out.warn("Estimated employment date as " + out.EmploymentDate.Format(time.DateOnly))
	}
	return out
}

// Parent is a V1 parent after field validation.
type Parent struct {
	Record domain.V1Parent
	Type   domain.ParentType
	FieldResult
}

// Parent validates a V1 parent and maps its relationship text.
func (f *Fields) Parent(in domain.V1Parent) Parent {
	p := f.Person(in.V1Person)
	out := Parent{Record: in, FieldResult: p.FieldResult}
	out.Record.V1Person = p.Record
	out.Record.Relationship = strings.TrimSpace(in.Relationship)

	out.Type = domain.ParentTypeFromRelationship(out.Record.Relationship)
	if out.Record.Relationship == "" {
		out.warn("Missing parent relationship, defaulting to GUARDIAN")
	}
	return out
}

// Student is a V1 student after field validation.
type Student struct {
	Record      domain.V1Student
	Gender      domain.Gender
	DateOfBirth time.Time
	FieldResult
}

// Student validates a V1 student, inferring gender and estimating the date
// of birth when absent.
func (f *Fields) Student(in domain.V1Student) Student {
	p := f.Person(in.V1Person)
	out := Student{Record: in, FieldResult: p.FieldResult}
	out.Record.V1Person = p.Record
	out.Record.AdmissionNumber = strings.TrimSpace(in.AdmissionNumber)

	var w string
	out.Gender, w = Gender(in.Gender, in.FirstName)
	out.warn(w)

	out.DateOfBirth = in.DateOfBirth
	if out.DateOfBirth.IsZero() {
		out.DateOfBirth = f.EstimateDateOfBirth()
		out.warn("Estimated date of birth as " + out.DateOfBirth.Format(time.DateOnly))
	}
	if strings.TrimSpace(in.ParentID) == "" {
		out.warn("Student has no parent ID, parent must be assigned manually")
	}
	return out
}
