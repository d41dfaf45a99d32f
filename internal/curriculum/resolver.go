// Package curriculum picks the V2 curriculum for a migrated school by
// scoring each available curriculum against the school's name and level.
package curriculum

import (
	"strings"
	"unicode"

	"github.com/lherron/schoolmig/internal/domain"
	"github.com/lherron/schoolmig/internal/session"
)

// Rule is a weighted keyword rule. Keywords are matched against the
// curriculum name and the school name; Levels are matched as substrings of
// the school level and score half the weight.
type Rule struct {
	Keywords []string
	Levels   []string
	Weight   int
}

// DefaultRules is the rule table applied in order.
var DefaultRules = []Rule{
	{Keywords: []string{"kenyan", "8-4-4"}, Weight: 100},
	{Keywords: []string{"cambridge", "igcse"}, Weight: 90},
	{Keywords: []string{"ib", "international baccalaureate"}, Weight: 85},
	{Keywords: []string{"american", "us"}, Weight: 80},
	{Keywords: []string{"primary", "elementary"}, Levels: []string{"primary", "elementary"}, Weight: 70},
	{Keywords: []string{"secondary", "high school"}, Levels: []string{"secondary", "high"}, Weight: 70},
	{Keywords: []string{"kindergarten", "pre-school"}, Levels: []string{"pre", "kg"}, Weight: 60},
}

// School carries the descriptive fields used for scoring.
type School struct {
	Name  string
	Level string
}

// Result is the outcome of a resolution.
type Result struct {
	Curriculum domain.Curriculum
	Score      int
	// Defaulted is set when no curriculum scored and the first was used.
	Defaulted bool
}

// Resolver scores curricula with a fixed rule table.
type Resolver struct {
	rules []Rule
}

// New returns a resolver using rules, or DefaultRules when none are given.
func New(rules ...Rule) *Resolver {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	return &Resolver{rules: rules}
}

// Score returns the total score of one curriculum for a school.
func (r *Resolver) Score(school School, c domain.Curriculum) int {
	curriculumName := strings.ToLower(c.Name + " " + c.Alias)
	schoolName := strings.ToLower(school.Name)
	schoolLevel := strings.ToLower(school.Level)

	score := 0
	for _, rule := range r.rules {
		for _, kw := range rule.Keywords {
			if matches(curriculumName, kw) || matches(schoolName, kw) {
				score += rule.Weight
			}
		}
		for _, lvl := range rule.Levels {
			if strings.Contains(schoolLevel, lvl) {
				score += rule.Weight / 2
			}
		}
	}
	return score
}

// Resolve returns the curriculum with the strictly highest score. Ties go to
// the curriculum listed first. When nothing scores the first curriculum is
// returned with Defaulted set.
func (r *Resolver) Resolve(school School, available []domain.Curriculum) (Result, error) {
	if len(available) == 0 {
		return Result{}, domain.ErrNoCurriculumAvailable
	}

	best := Result{Curriculum: available[0]}
	for _, c := range available {
		if s := r.Score(school, c); s > best.Score {
			best = Result{Curriculum: c, Score: s}
		}
	}
	if best.Score == 0 {
		best.Defaulted = true
	}
	return best, nil
}

// Assign resolves a curriculum for the school with new id schoolID and
// records the assignment on the session. A defaulted choice adds a session
// warning.
func (r *Resolver) Assign(sess *session.Session, schoolID int64, school School, available []domain.Curriculum) (session.CurriculumAssignment, error) {
	res, err := r.Resolve(school, available)
	if err != nil {
		sess.AddError("No curriculum available for school %s", school.Name)
		return session.CurriculumAssignment{}, err
	}
	if res.Defaulted {
		sess.AddWarning("Using default curriculum for school: %s", school.Name)
	}

	a := session.CurriculumAssignment{
		SchoolID:       schoolID,
		CurriculumID:   res.Curriculum.ID,
		CurriculumName: res.Curriculum.DisplayName(),
		GradeSystemID:  res.Curriculum.GradeSystemID,
		Validated:      true,
	}
	if err := sess.AssignCurriculum(a); err != nil {
		return session.CurriculumAssignment{}, err
	}
	return a, nil
}

// matches reports whether kw occurs in text. Keywords of three characters or
// fewer ("us", "ib") must match a whole word.
func matches(text, kw string) bool {
	if len(kw) > 3 {
		return strings.Contains(text, kw)
	}
	for _, word := range strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if word == kw {
			return true
		}
	}
	return false
}
