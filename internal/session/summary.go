package session

import (
	"time"

	"github.com/lherron/schoolmig/internal/domain"
)

// Summary is the end-of-run view of a session.
type Summary struct {
	SessionID      string                         `json:"session_id" yaml:"session_id"`
	Phase          domain.Phase                   `json:"phase" yaml:"phase"`
	StartedAt      time.Time                      `json:"started_at" yaml:"started_at"`
	Elapsed        time.Duration                  `json:"-" yaml:"-"`
	ElapsedSeconds float64                        `json:"elapsed_seconds" yaml:"elapsed_seconds"`
	Counts         map[domain.EntityKind]Counters `json:"counts" yaml:"counts"`
	Mapped         map[domain.EntityKind]int      `json:"mapped" yaml:"mapped"`
	SchoolsWith    SchoolCoverage                 `json:"schools" yaml:"schools"`
	Errors         int                            `json:"errors" yaml:"errors"`
	Warnings       int                            `json:"warnings" yaml:"warnings"`
}

// SchoolCoverage counts schools by which associations they ended up with.
type SchoolCoverage struct {
	Total      int `json:"total" yaml:"total"`
	Curriculum int `json:"with_curriculum" yaml:"with_curriculum"`
	Teachers   int `json:"with_teachers" yaml:"with_teachers"`
	Parents    int `json:"with_parents" yaml:"with_parents"`
	Students   int `json:"with_students" yaml:"with_students"`
}

// Summary reports phase, counts per kind, error and warning totals and
// elapsed time.
func (s *Session) Summary() Summary {
	elapsed := s.now().Sub(s.started)
	sum := Summary{
		SessionID:      s.id,
		Phase:          s.phase,
		StartedAt:      s.started,
		Elapsed:        elapsed,
		ElapsedSeconds: elapsed.Seconds(),
		Counts:         make(map[domain.EntityKind]Counters, len(domain.AllKinds)),
		Mapped:         make(map[domain.EntityKind]int, len(domain.AllKinds)),
		Errors:         len(s.errors),
		Warnings:       len(s.warnings),
	}
	for _, kind := range domain.AllKinds {
		sum.Counts[kind] = s.Counters(kind)
		sum.Mapped[kind] = s.Count(kind)
	}

	sum.SchoolsWith.Total = len(s.schools)
	sum.SchoolsWith.Curriculum = len(s.curricula)
	for _, schoolID := range s.schools {
		if len(s.registry[domain.KindTeacher][schoolID]) > 0 {
			sum.SchoolsWith.Teachers++
		}
		if len(s.registry[domain.KindParent][schoolID]) > 0 {
			sum.SchoolsWith.Parents++
		}
		if len(s.registry[domain.KindStudent][schoolID]) > 0 {
			sum.SchoolsWith.Students++
		}
	}
	return sum
}
