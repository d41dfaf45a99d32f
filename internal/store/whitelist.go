package store

import "github.com/lherron/schoolmig/internal/domain"

// columns is the identifier whitelist: every table and column the store may
// interpolate into SQL text.
var columns = map[string][]string{
	"grade_systems":   {"id", "name", "description", "grade_type", "is_default", "is_predefined", "country", "created_at"},
	"grades":          {"id", "grade_system_id", "name", "min_score", "max_score", "remark"},
	"curriculums":     {"id", "name", "alias", "country", "grade_system_id", "is_active"},
	"class_levels":    {"id", "name", "min_age", "max_age", "curriculum_id"},
	"academic_years":  {"id", "name", "start_date", "end_date", "school_id", "is_active"},
	"school_classes":  {"id", "name", "school_id", "academic_year_id"},
	"school_admins":   {"id", "user_id", "school_id", "is_main", "position"},
	"parents":         {"id", "user_id", "type", "occupation", "address"},
	"student_parents": {"id", "student_id", "parent_id"},
	"schools": {
		"id", "name", "email", "phone_number", "country", "county", "address", "type", "logo",
		"government_code", "motto", "vision", "curriculum_id", "grade_system_id", "level_id",
		"is_active", "is_verified", "is_deleted", "onboarded", "created_at", "updated_at",
	},
	"users": {
		"id", "uuid", "first_name", "middle_name", "last_name", "email", "phone_number", "password",
		"is_password_set", "type", "school_id", "is_active", "is_verified", "country", "created_at",
	},
	"teachers": {
		"id", "user_id", "school_id", "qualification", "subject_specialization", "employment_date",
		"is_active", "is_deleted",
	},
	"students": {
		"id", "user_id", "school_id", "school_class_id", "admission_number", "gender", "date_of_birth",
		"is_enrolled", "enrollment_date", "is_active", "is_deleted",
	},
}

var whitelist = func() map[string]map[string]struct{} {
	out := make(map[string]map[string]struct{}, len(columns))
	for table, cols := range columns {
		set := make(map[string]struct{}, len(cols))
		for _, c := range cols {
			set[c] = struct{}{}
		}
		out[table] = set
	}
	return out
}()

func checkTable(table string) error {
	if _, ok := whitelist[table]; !ok {
		return &domain.UnknownIdentifierError{Identifier: table}
	}
	return nil
}

func checkColumn(table, column string) error {
	if err := checkTable(table); err != nil {
		return err
	}
	if _, ok := whitelist[table][column]; !ok {
		return &domain.UnknownIdentifierError{Identifier: table + "." + column}
	}
	return nil
}

// Allowed reports whether table.column is on the whitelist.
func Allowed(table, column string) bool {
	return checkColumn(table, column) == nil
}
