package domain

import (
	"strings"
	"time"
)

// EntityKind identifies the V1 table a migrated record came from
type EntityKind string

const (
	KindSchool  EntityKind = "school"
	KindTeacher EntityKind = "teacher"
	KindParent  EntityKind = "parent"
	KindStudent EntityKind = "student"
)

// AllKinds lists every entity kind in migration order.
var AllKinds = []EntityKind{KindSchool, KindTeacher, KindParent, KindStudent}

// DependentKinds lists the kinds that must belong to a migrated school.
var DependentKinds = []EntityKind{KindTeacher, KindParent, KindStudent}

// Plural returns the lower-case plural used in reports ("teachers").
func (k EntityKind) Plural() string {
	return string(k) + "s"
}

// Title returns the capitalized kind ("Teacher").
func (k EntityKind) Title() string {
	if k == "" {
		return ""
	}
	return strings.ToUpper(string(k[:1])) + string(k[1:])
}

// IsDependent reports whether records of this kind need an owning school.
func (k EntityKind) IsDependent() bool {
	return k == KindTeacher || k == KindParent || k == KindStudent
}

// UserType is the type tag written to the unified V2 users table
type UserType string

const (
	UserTypeTeacher     UserType = "TEACHER"
	UserTypeParent      UserType = "PARENT"
	UserTypeStudent     UserType = "STUDENT"
	UserTypeSchoolAdmin UserType = "SCHOOL_ADMIN"
)

// UserTypeFor returns the user type created for a dependent kind.
func UserTypeFor(kind EntityKind) UserType {
	switch kind {
	case KindTeacher:
		return UserTypeTeacher
	case KindParent:
		return UserTypeParent
	case KindStudent:
		return UserTypeStudent
	default:
		return UserTypeSchoolAdmin
	}
}

// Gender as stored on V2 students
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
)

// ParentType as stored on V2 parents
type ParentType string

const (
	ParentFather   ParentType = "FATHER"
	ParentMother   ParentType = "MOTHER"
	ParentGuardian ParentType = "GUARDIAN"
)

// SchoolType as stored on V2 schools
type SchoolType string

const (
	SchoolPrivate       SchoolType = "PRIVATE"
	SchoolPublic        SchoolType = "PUBLIC"
	SchoolInternational SchoolType = "INTERNATIONAL"
)

// V1School is a row of the legacy "School" table.
type V1School struct {
	ID         string
	Name       string
	Email      string
	Phone      string
	Code       string
	Level      string
	Motto      string
	Vision     string
	Country    string
	County     string
	Logo       string
	Address    string
	Type       string
	Password   string
	IsActive   bool
	IsVerified bool
	IsDeleted  bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// V1Person holds the columns shared by the legacy Teacher, Parent and Student tables.
type V1Person struct {
	ID         string
	FirstName  string
	MiddleName string
	LastName   string
	Email      string
	Phone      string
	Password   string
	Gender     string
	SchoolID   string
	IsDeleted  bool
	CreatedAt  time.Time
}

// FullName joins first and last name.
func (p V1Person) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
}

// V1Teacher is a row of the legacy "Teacher" table.
type V1Teacher struct {
	V1Person
	Qualification   string
	Subjects        string
	IsLoginBarred   bool
	ExperienceYears int
}

// V1Parent is a row of the legacy "Parent" table.
type V1Parent struct {
	V1Person
	Relationship string
	Occupation   string
	Address      string
}

// V1Student is a row of the legacy "Student" table.
type V1Student struct {
	V1Person
	AdmissionNumber string
	ClassID         string
	StreamID        string
	ParentID        string
	DateOfBirth     time.Time
}

// Curriculum is a V2 curriculum candidate for school assignment.
type Curriculum struct {
	ID            int64  `json:"id" yaml:"id"`
	Name          string `json:"name" yaml:"name"`
	Alias         string `json:"alias,omitempty" yaml:"alias,omitempty"`
	GradeSystemID int64  `json:"grade_system_id" yaml:"grade_system_id"`
}

// DisplayName prefers the alias when one is set.
func (c Curriculum) DisplayName() string {
	if c.Alias != "" {
		return c.Alias
	}
	return c.Name
}
