package validate

import (
	"fmt"

	"github.com/lherron/schoolmig/internal/domain"
	"github.com/lherron/schoolmig/internal/session"
)

// Integrity re-derives from a session snapshot that every dependent mapping
// points at a migrated school. An orphan is an error because it means the
// Identity Mapper's own check was bypassed. Schools without a curriculum
// are warnings.
func Integrity(snap session.Snapshot) Result {
	var res Result
	schools := snap.SchoolSet()

	withoutCurriculum := 0
	for _, m := range snap.Mappings[domain.KindSchool] {
		if _, ok := snap.Curricula[m.NewID]; !ok {
			withoutCurriculum++
			res.warnf("School V2 ID %d has no curriculum assigned", m.NewID)
		}
	}

	res.Details = map[string]any{
		"session_id":                 snap.SessionID,
		"total_schools":              len(schools),
		"schools_without_curriculum": withoutCurriculum,
		"session_errors":             snap.Errors,
		"session_warnings":           snap.Warnings,
	}
	for _, kind := range domain.DependentKinds {
		orphaned := 0
		for _, m := range snap.Mappings[kind] {
			if _, ok := schools[m.SchoolID]; !ok {
				orphaned++
				res.errorf("%s V2 User ID %d has invalid school reference: %d", kind.Title(), m.NewID, m.SchoolID)
			}
		}
		res.Details["total_"+kind.Plural()] = len(snap.Mappings[kind])
		res.Details["orphaned_"+kind.Plural()] = orphaned
	}
	return res.finish()
}

// SchoolReport is one school's row in the consistency report.
type SchoolReport struct {
	SchoolID   int64  `json:"school_id" yaml:"school_id"`
	OldID      string `json:"old_id" yaml:"old_id"`
	Name       string `json:"name" yaml:"name"`
	Curriculum string `json:"curriculum" yaml:"curriculum"`
	Teachers   int    `json:"teachers" yaml:"teachers"`
	Parents    int    `json:"parents" yaml:"parents"`
	Students   int    `json:"students" yaml:"students"`
}

// Consistency is the per-school summary computed after migration.
type Consistency struct {
	TotalSchools   int            `json:"total_schools" yaml:"total_schools"`
	WithCurriculum int            `json:"schools_with_curriculum" yaml:"schools_with_curriculum"`
	Schools        []SchoolReport `json:"schools" yaml:"schools"`
	Warnings       []string       `json:"warnings" yaml:"warnings"`
}

// CheckConsistency counts dependents per school from the registry and warns
// about schools with no teachers, no students, or students but no parents.
func CheckConsistency(snap session.Snapshot) Consistency {
	out := Consistency{Warnings: []string{}}
	for _, m := range snap.Mappings[domain.KindSchool] {
		r := SchoolReport{
			SchoolID:   m.NewID,
			OldID:      m.OldID,
			Name:       m.Metadata["name"],
			Curriculum: "None",
			Teachers:   len(snap.Registry[domain.KindTeacher][m.NewID]),
			Parents:    len(snap.Registry[domain.KindParent][m.NewID]),
			Students:   len(snap.Registry[domain.KindStudent][m.NewID]),
		}
		if r.Name == "" {
			r.Name = fmt.Sprintf("School %d", m.NewID)
		}
		if a, ok := snap.Curricula[m.NewID]; ok {
			r.Curriculum = a.CurriculumName
			out.WithCurriculum++
		}
		if r.Teachers == 0 {
			out.Warnings = append(out.Warnings, fmt.Sprintf("School '%s' has no teachers", r.Name))
		}
		if r.Students == 0 {
			out.Warnings = append(out.Warnings, fmt.Sprintf("School '%s' has no students", r.Name))
		}
		if r.Students > 0 && r.Parents == 0 {
			out.Warnings = append(out.Warnings, fmt.Sprintf("School '%s' has students but no parents", r.Name))
		}
		out.Schools = append(out.Schools, r)
	}
	out.TotalSchools = len(out.Schools)
	return out
}

// Postflight runs the integrity check and folds the consistency warnings
// into its result.
func Postflight(snap session.Snapshot) (Result, Consistency) {
	res := Integrity(snap)
	cons := CheckConsistency(snap)
	res.Warnings = append(res.Warnings, cons.Warnings...)
	return res, cons
}
