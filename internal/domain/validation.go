package domain

import (
	"fmt"
	"strings"
)

// ParseEntityKind accepts a singular or plural kind name.
func ParseEntityKind(s string) (EntityKind, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.TrimSuffix(v, "s")
	switch EntityKind(v) {
	case KindSchool, KindTeacher, KindParent, KindStudent:
		return EntityKind(v), nil
	default:
		return "", fmt.Errorf("invalid entity kind %q: must be one of: school, teacher, parent, student", s)
	}
}

// ValidateUserType validates a V2 user type
func ValidateUserType(t UserType) error {
	switch t {
	case UserTypeTeacher, UserTypeParent, UserTypeStudent, UserTypeSchoolAdmin:
		return nil
	default:
		return fmt.Errorf("invalid user type: must be one of: TEACHER, PARENT, STUDENT, SCHOOL_ADMIN")
	}
}

// ParseSchoolType normalizes a V1 school type. ok is false when the value was
// missing or unknown and PRIVATE was substituted.
func ParseSchoolType(s string) (SchoolType, bool) {
	switch SchoolType(strings.ToUpper(strings.TrimSpace(s))) {
	case SchoolPrivate:
		return SchoolPrivate, true
	case SchoolPublic:
		return SchoolPublic, true
	case SchoolInternational:
		return SchoolInternational, true
	default:
		return SchoolPrivate, false
	}
}

// ParentTypeFromRelationship maps free-text relationship to a parent type.
func ParentTypeFromRelationship(relationship string) ParentType {
	rel := strings.ToLower(strings.TrimSpace(relationship))
	switch {
	case rel == "":
		return ParentGuardian
	case strings.Contains(rel, "father") || strings.Contains(rel, "dad"):
		return ParentFather
	case strings.Contains(rel, "mother") || strings.Contains(rel, "mom") || strings.Contains(rel, "mum"):
		return ParentMother
	default:
		return ParentGuardian
	}
}
