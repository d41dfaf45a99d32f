package validate

import (
	"context"
	"fmt"
	"strings"

	"github.com/lherron/schoolmig/internal/domain"
	"golang.org/x/sync/errgroup"
)

// SourceReader is the read side of the V1 database used by pre-flight. All
// methods return non-deleted rows only.
type SourceReader interface {
	Schools(ctx context.Context) ([]domain.V1School, error)
	Teachers(ctx context.Context) ([]domain.V1Teacher, error)
	Parents(ctx context.Context) ([]domain.V1Parent, error)
	Students(ctx context.Context) ([]domain.V1Student, error)
}

// SourceData is a full load of the V1 tables.
type SourceData struct {
	Schools  []domain.V1School
	Teachers []domain.V1Teacher
	Parents  []domain.V1Parent
	Students []domain.V1Student
}

// LoadSource reads the four V1 tables concurrently.
func LoadSource(ctx context.Context, src SourceReader) (SourceData, error) {
	var data SourceData
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		data.Schools, err = src.Schools(ctx)
		return wrapLoad("schools", err)
	})
	g.Go(func() (err error) {
		data.Teachers, err = src.Teachers(ctx)
		return wrapLoad("teachers", err)
	})
	g.Go(func() (err error) {
		data.Parents, err = src.Parents(ctx)
		return wrapLoad("parents", err)
	})
	g.Go(func() (err error) {
		data.Students, err = src.Students(ctx)
		return wrapLoad("students", err)
	})
	if err := g.Wait(); err != nil {
		return SourceData{}, err
	}
	return data, nil
}

func wrapLoad(what string, err error) error {
	if err != nil {
		return fmt.Errorf("load %s: %w", what, err)
	}
	return nil
}

// Preflight loads the source and checks it before any write.
func Preflight(ctx context.Context, src SourceReader) (Result, error) {
	data, err := LoadSource(ctx, src)
	if err != nil {
		return Result{}, err
	}
	return CheckSource(data), nil
}

// CheckSource classifies source problems. Missing primary keys, schools
// without a name, dependents without a valid school, nameless dependents
// without email, and students pointing at a missing parent are errors.
// Missing school email or code and missing parent occupation or address are
// warnings.
func CheckSource(data SourceData) Result {
	var res Result

	schools := make(map[string]struct{}, len(data.Schools))
	res.merge("schools", checkSchools(data.Schools, schools))

	teachers := make([]domain.V1Person, 0, len(data.Teachers))
	for _, t := range data.Teachers {
		teachers = append(teachers, t.V1Person)
	}
	res.merge("teachers", checkSchoolRefs(domain.KindTeacher, teachers, schools))

	parents := make(map[string]struct{}, len(data.Parents))
	people := make([]domain.V1Person, 0, len(data.Parents))
	withoutOccupation, withoutAddress := 0, 0
	for _, p := range data.Parents {
		people = append(people, p.V1Person)
		if p.ID != "" {
			parents[p.ID] = struct{}{}
		}
		if strings.TrimSpace(p.Occupation) == "" {
			withoutOccupation++
			res.warnf("Parent '%s' (ID: %s) has no occupation", p.FullName(), p.ID)
		}
		if strings.TrimSpace(p.Address) == "" {
			withoutAddress++
			res.warnf("Parent '%s' (ID: %s) has no address", p.FullName(), p.ID)
		}
	}
	parentRes := checkSchoolRefs(domain.KindParent, people, schools)
	parentRes.Details["parents_without_occupation"] = withoutOccupation
	parentRes.Details["parents_without_address"] = withoutAddress
	res.merge("parents", parentRes)

	people = people[:0]
	for _, s := range data.Students {
		people = append(people, s.V1Person)
	}
	res.merge("students", checkSchoolRefs(domain.KindStudent, people, schools))
	res.merge("student_parent_relationships", checkStudentParents(data.Students, parents))

	return res.finish()
}

func checkSchools(rows []domain.V1School, seen map[string]struct{}) Result {
	var res Result
	withoutName, withoutEmail, withoutCode, withoutID := 0, 0, 0, 0
	for _, s := range rows {
		if strings.TrimSpace(s.ID) == "" {
			withoutID++
			res.errorf("School '%s' has no primary key", s.Name)
			continue
		}
		seen[s.ID] = struct{}{}

		name := strings.TrimSpace(s.Name)
		if name == "" {
			withoutName++
			res.errorf("School ID %s has no name", s.ID)
			name = "Unknown"
		}
		if strings.TrimSpace(s.Email) == "" {
			withoutEmail++
			res.warnf("School '%s' (ID: %s) has no email", name, s.ID)
		}
		if strings.TrimSpace(s.Code) == "" {
			withoutCode++
			res.warnf("School '%s' (ID: %s) has no school code", name, s.ID)
		}
	}
	res.Details = map[string]any{
		"total_schools":         len(rows),
		"schools_without_id":    withoutID,
		"schools_without_name":  withoutName,
		"schools_without_email": withoutEmail,
		"schools_without_code":  withoutCode,
	}
	return res
}

func checkSchoolRefs(kind domain.EntityKind, rows []domain.V1Person, schools map[string]struct{}) Result {
	var res Result
	withoutID, withoutSchool, badSchool, unidentified := 0, 0, 0, 0
	for _, p := range rows {
		name := p.FullName()
		if strings.TrimSpace(p.ID) == "" {
			withoutID++
			res.errorf("%s '%s' has no primary key", kind.Title(), name)
			continue
		}
		if name == "" && strings.TrimSpace(p.Email) == "" {
			unidentified++
			res.errorf("%s (ID: %s) has neither a name nor an email", kind.Title(), p.ID)
		}
		sid := strings.TrimSpace(p.SchoolID)
		if sid == "" {
			withoutSchool++
			res.errorf("%s '%s' (ID: %s) has no school assigned", kind.Title(), name, p.ID)
			continue
		}
		if _, ok := schools[sid]; !ok {
			badSchool++
			res.errorf("%s '%s' (ID: %s) references non-existent or deleted school ID: %s", kind.Title(), name, p.ID, sid)
		}
	}
	plural := kind.Plural()
	res.Details = map[string]any{
		"total_" + plural:                 len(rows),
		plural + "_without_id":            withoutID,
		plural + "_without_school":        withoutSchool,
		plural + "_with_deleted_school":   badSchool,
		plural + "_without_name_or_email": unidentified,
	}
	return res
}

func checkStudentParents(students []domain.V1Student, parents map[string]struct{}) Result {
	var res Result
	total, invalid := 0, 0
	for _, s := range students {
		pid := strings.TrimSpace(s.ParentID)
		if pid == "" || s.ID == "" {
			continue
		}
		total++
		if _, ok := parents[pid]; !ok {
			invalid++
			res.errorf("Student '%s' (ID: %s) references non-existent or deleted parent ID: %s", s.FullName(), s.ID, pid)
		}
	}
	res.Details = map[string]any{
		"total_student_parent_relationships": total,
		"students_with_invalid_parent":       invalid,
	}
	return res
}
