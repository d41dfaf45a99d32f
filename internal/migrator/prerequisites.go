package migrator

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/lherron/schoolmig/internal/domain"
	"github.com/lherron/schoolmig/internal/store"
	"github.com/lherron/schoolmig/internal/validate"
	"go.uber.org/zap"
)

// Names of the catalog rows every target needs before schools are written.
const (
	DefaultGradeSystem     = "Kenya 8-4-4 Standard"
	DefaultCurriculum      = "kenya_8_4_4_system"
	DefaultCurriculumAlias = "Kenya 8-4-4 System"
)

type gradeBand struct {
	name     string
	min, max float64
	remark   string
}

var defaultGrades = []gradeBand{
	{"A", 80, 100, "Excellent"},
	{"B", 70, 79.9, "Good"},
	{"C", 60, 69.9, "Average"},
	{"D", 40, 59.9, "Below Average"},
	{"E", 0, 39.9, "Poor"},
}

// Catalog is the target reference data the builders point at.
type Catalog struct {
	GradeSystemID int64
	CurriculumID  int64
	// Curricula is the candidate list for the resolver, ordered by id.
	Curricula []domain.Curriculum
	// ClassLevels maps canonical level names to class_levels ids.
	ClassLevels map[string]int64
}

// EnsurePrerequisites makes sure the default grade system, curriculum and
// class levels exist in the target and loads the curriculum list.
func (m *Migrator) EnsurePrerequisites(ctx context.Context) (*Catalog, error) {
	start := time.Now()
	cat := &Catalog{ClassLevels: make(map[string]int64, len(validate.ClassLevels))}

	var err error
	if cat.GradeSystemID, err = m.ensureGradeSystem(ctx); err != nil {
		return nil, err
	}
	if cat.CurriculumID, err = m.ensureCurriculum(ctx, cat.GradeSystemID); err != nil {
		return nil, err
	}
	for _, lvl := range validate.ClassLevels {
		id, err := m.findOrInsert(ctx,
			`SELECT id FROM class_levels WHERE name = ? AND curriculum_id = ?`, []any{lvl.Name, cat.CurriculumID},
			"class_levels", store.Fields{
				"name":          lvl.Name,
				"min_age":       lvl.MinAge,
				"max_age":       lvl.MaxAge,
				"curriculum_id": cat.CurriculumID,
			})
		if err != nil {
			return nil, fmt.Errorf("class level %s: %w", lvl.Name, err)
		}
		cat.ClassLevels[lvl.Name] = id
	}

	rows, err := m.target.Query(ctx, `SELECT id, name, alias, grade_system_id FROM curriculums WHERE is_active = ? ORDER BY id`, true)
	if err != nil {
		return nil, fmt.Errorf("load curriculums: %w", err)
	}
	seen := false
	for _, row := range rows {
		c := domain.Curriculum{
			ID:            row.Int64("id"),
			Name:          row.String("name"),
			Alias:         row.String("alias"),
			GradeSystemID: row.Int64("grade_system_id"),
		}
		if c.GradeSystemID == 0 {
			c.GradeSystemID = cat.GradeSystemID
		}
		seen = seen || c.ID == cat.CurriculumID
		cat.Curricula = append(cat.Curricula, c)
	}
	if !seen {
		// Only planned, not yet written (dry run).
		cat.Curricula = append(cat.Curricula, domain.Curriculum{
			ID:            cat.CurriculumID,
			Name:          DefaultCurriculum,
			Alias:         DefaultCurriculumAlias,
			GradeSystemID: cat.GradeSystemID,
		})
	}

	m.catalog = cat
	m.log.Info("prerequisites ready",
		zap.Int64("grade_system_id", cat.GradeSystemID),
		zap.Int64("curriculum_id", cat.CurriculumID),
		zap.Int("curricula", len(cat.Curricula)),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()))
	return cat, nil
}

func (m *Migrator) ensureGradeSystem(ctx context.Context) (int64, error) {
	rows, err := m.target.Query(ctx, `SELECT id FROM grade_systems WHERE name = ?`, DefaultGradeSystem)
	if err != nil {
		return 0, fmt.Errorf("find grade system: %w", err)
	}
	if len(rows) > 0 {
		return rows[0].Int64("id"), nil
	}

	id, err := m.target.Insert(ctx, "grade_systems", store.Fields{
		"name":          DefaultGradeSystem,
		"description":   "Standard Kenya 8-4-4 grading system",
		"grade_type":    "LETTER",
		"is_default":    true,
		"is_predefined": true,
		"country":       m.country,
	})
	if err != nil {
		return 0, fmt.Errorf("create grade system: %w", err)
	}
	for _, g := range defaultGrades {
		if _, err := m.target.Insert(ctx, "grades", store.Fields{
			"grade_system_id": id,
			"name":            g.name,
			"min_score":       g.min,
			"max_score":       g.max,
			"remark":          g.remark,
		}); err != nil {
			return 0, fmt.Errorf("create grade %s: %w", g.name, err)
		}
	}
	m.log.Info("created grade system", zap.String("name", DefaultGradeSystem), zap.Int64("id", id))
	return id, nil
}

func (m *Migrator) ensureCurriculum(ctx context.Context, gradeSystemID int64) (int64, error) {
	id, err := m.findOrInsert(ctx, `SELECT id FROM curriculums WHERE name = ?`, []any{DefaultCurriculum},
		"curriculums", store.Fields{
			"name":            DefaultCurriculum,
			"alias":           DefaultCurriculumAlias,
			"country":         m.country,
			"grade_system_id": gradeSystemID,
			"is_active":       true,
		})
	if err != nil {
		return 0, fmt.Errorf("default curriculum: %w", err)
	}
	return id, nil
}

// findOrInsert returns the id of the first row matching query, inserting
// fields into table when there is none.
func (m *Migrator) findOrInsert(ctx context.Context, query string, args []any, table string, fields store.Fields) (int64, error) {
	rows, err := m.target.Query(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	if len(rows) > 0 {
		return rows[0].Int64("id"), nil
	}
	return m.target.Insert(ctx, table, fields)
}

// MigrateCurriculums runs the CURRICULUMS phase: every migrated school gets
// an active academic year, and schools left without a curriculum are
// reported.
func (m *Migrator) MigrateCurriculums(ctx context.Context) error {
	if err := m.sess.EnterPhase(domain.PhaseCurriculums); err != nil {
		return err
	}
	start := time.Now()
	for _, schoolID := range m.sess.SchoolIDs() {
		if _, err := m.academicYear(ctx, schoolID); err != nil {
			m.sess.AddError("Failed to create academic year for school %d: %v", schoolID, err)
		}
		if _, ok := m.sess.Curriculum(schoolID); !ok {
			name := strconv.FormatInt(schoolID, 10)
			if sm, ok := m.sess.LookupNew(domain.KindSchool, schoolID); ok && sm.Metadata["name"] != "" {
				name = sm.Metadata["name"]
			}
			m.sess.AddWarning("School %s has no curriculum assigned", name)
		}
	}
	elapsed := time.Since(start)
	m.metrics.ObservePhase(domain.PhaseCurriculums.String(), elapsed)
	m.log.Info("phase complete",
		zap.Stringer("phase", domain.PhaseCurriculums),
		zap.Int64("duration_ms", elapsed.Milliseconds()),
		zap.Int("schools", len(m.sess.SchoolIDs())))
	return ctx.Err()
}

// academicYear returns the school's active academic year for the session
// year, creating it when missing.
func (m *Migrator) academicYear(ctx context.Context, schoolID int64) (int64, error) {
	if id, ok := m.years[schoolID]; ok {
		return id, nil
	}
	y := m.sess.Now().Year()
	name := fmt.Sprintf("%d/%d", y, y+1)
	id, err := m.findOrInsert(ctx,
		`SELECT id FROM academic_years WHERE school_id = ? AND name = ?`, []any{schoolID, name},
		"academic_years", store.Fields{
			"name":       name,
			"start_date": time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC),
			"end_date":   time.Date(y, time.December, 31, 0, 0, 0, 0, time.UTC),
			"school_id":  schoolID,
			"is_active":  true,
		})
	if err != nil {
		return 0, err
	}
	m.years[schoolID] = id
	return id, nil
}

// defaultClass returns the placeholder class students of a school are
// enrolled in, one per distinct V1 class id.
func (m *Migrator) defaultClass(ctx context.Context, schoolID int64, classOldID string) (int64, error) {
	name := "Migrated Class - Default"
	if classOldID != "" {
		name = "Migrated Class - " + classOldID
	}
	key := strconv.FormatInt(schoolID, 10) + "/" + name
	if id, ok := m.classes[key]; ok {
		return id, nil
	}

	yearID, err := m.academicYear(ctx, schoolID)
	if err != nil {
		return 0, fmt.Errorf("academic year: %w", err)
	}
	id, err := m.findOrInsert(ctx,
		`SELECT id FROM school_classes WHERE school_id = ? AND name = ?`, []any{schoolID, name},
		"school_classes", store.Fields{
			"name":             name,
			"school_id":        schoolID,
			"academic_year_id": nullID(yearID),
		})
	if err != nil {
		return 0, err
	}
	m.classes[key] = id
	return id, nil
}
