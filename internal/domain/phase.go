package domain

import "fmt"

// Phase is a stage of a migration run. Phases are strictly ordered.
type Phase int

const (
	PhaseInitialization Phase = iota
	PhaseSchools
	PhaseCurriculums
	PhaseTeachers
	PhaseParents
	PhaseStudents
	PhaseValidation
	PhaseCompletion
)

var phaseNames = [...]string{
	"initialization",
	"schools",
	"curriculums",
	"teachers",
	"parents",
	"students",
	"validation",
	"completion",
}

// Phases lists every phase in order.
var Phases = []Phase{
	PhaseInitialization,
	PhaseSchools,
	PhaseCurriculums,
	PhaseTeachers,
	PhaseParents,
	PhaseStudents,
	PhaseValidation,
	PhaseCompletion,
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

// MarshalText renders the phase name in JSON and YAML output.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses a phase name.
func (p *Phase) UnmarshalText(text []byte) error {
	for i, name := range phaseNames {
		if name == string(text) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}

// KindForPhase returns the entity kind migrated during an entity phase.
func KindForPhase(p Phase) (EntityKind, bool) {
	switch p {
	case PhaseSchools:
		return KindSchool, true
	case PhaseTeachers:
		return KindTeacher, true
	case PhaseParents:
		return KindParent, true
	case PhaseStudents:
		return KindStudent, true
	}
	return "", false
}
