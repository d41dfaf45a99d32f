// Package session holds the state of one migration attempt: the Identity
// Mapper, the School-Scoped Registry, curriculum assignments, the phase
// controller, per-kind counters and the accumulated errors and warnings.
//
// A Session is created at the start of a run, threaded explicitly through
// every builder and validator, and discarded once the summary is emitted.
// It is not safe for concurrent mutation.
package session

import (
	"fmt"
	"time"

	"github.com/lherron/schoolmig/internal/domain"
	"github.com/lherron/schoolmig/internal/id"
)

// Metadata is free-form descriptive data attached to a mapping.
type Metadata map[string]string

// Mapping associates a V1 primary key with the V2 key created for it.
type Mapping struct {
	Kind      domain.EntityKind `json:"kind" yaml:"kind"`
	OldID     string            `json:"old_id" yaml:"old_id"`
	NewID     int64             `json:"new_id" yaml:"new_id"`
	SchoolID  int64             `json:"school_id,omitempty" yaml:"school_id,omitempty"`
	Metadata  Metadata          `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at" yaml:"created_at"`
}

// CurriculumAssignment records the curriculum chosen for a migrated school.
type CurriculumAssignment struct {
	SchoolID         int64    `json:"school_id" yaml:"school_id"`
	CurriculumID     int64    `json:"curriculum_id" yaml:"curriculum_id"`
	CurriculumName   string   `json:"curriculum_name" yaml:"curriculum_name"`
	GradeSystemID    int64    `json:"grade_system_id" yaml:"grade_system_id"`
	Validated        bool     `json:"validated" yaml:"validated"`
	ValidationErrors []string `json:"validation_errors,omitempty" yaml:"validation_errors,omitempty"`
}

// Counters tracks record outcomes for one entity kind.
type Counters struct {
	Migrated int `json:"migrated" yaml:"migrated"`
	Failed   int `json:"failed" yaml:"failed"`
	Total    int `json:"total" yaml:"total"`
}

// Session is the in-memory aggregate for a single migration run.
type Session struct {
	id      string
	phase   domain.Phase
	started time.Time
	now     func() time.Time

	mappings  map[domain.EntityKind]*kindIndex
	registry  map[domain.EntityKind]map[int64]map[int64]struct{}
	schools   []int64
	curricula map[int64]CurriculumAssignment
	counters  map[domain.EntityKind]*Counters

	errors   []string
	warnings []string
}

type kindIndex struct {
	byOld   map[string]*Mapping
	byNew   map[int64]*Mapping
	ordered []*Mapping
}

// Option configures a Session at construction.
type Option func(*Session)

// WithID sets the session identifier. An empty id keeps the default.
func WithID(sessionID string) Option {
	return func(s *Session) {
		if sessionID != "" {
			s.id = sessionID
		}
	}
}

// WithClock replaces time.Now for timestamps and elapsed time.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a session in the INITIALIZATION phase.
func New(opts ...Option) *Session {
	s := &Session{
		phase:     domain.PhaseInitialization,
		now:       time.Now,
		mappings:  make(map[domain.EntityKind]*kindIndex, len(domain.AllKinds)),
		registry:  make(map[domain.EntityKind]map[int64]map[int64]struct{}, len(domain.DependentKinds)),
		curricula: make(map[int64]CurriculumAssignment),
		counters:  make(map[domain.EntityKind]*Counters, len(domain.AllKinds)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.started = s.now()
	if s.id == "" {
		s.id = id.FormatSession(s.started)
	}
	for _, kind := range domain.AllKinds {
		s.mappings[kind] = &kindIndex{
			byOld: make(map[string]*Mapping),
			byNew: make(map[int64]*Mapping),
		}
		s.counters[kind] = &Counters{}
	}
	for _, kind := range domain.DependentKinds {
		s.registry[kind] = make(map[int64]map[int64]struct{})
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Phase returns the current phase.
func (s *Session) Phase() domain.Phase { return s.phase }

// StartedAt returns the session creation time.
func (s *Session) StartedAt() time.Time { return s.started }

// Now returns the session clock's current time.
func (s *Session) Now() time.Time { return s.now() }

// AddWarning records a non-blocking issue.
func (s *Session) AddWarning(format string, args ...any) {
	s.warnings = append(s.warnings, fmt.Sprintf(format, args...))
}

// AddError records an error without changing any counter.
func (s *Session) AddError(format string, args ...any) {
	s.errors = append(s.errors, fmt.Sprintf(format, args...))
}

// Warnings returns a copy of the accumulated warnings.
func (s *Session) Warnings() []string {
	return append([]string(nil), s.warnings...)
}

// Errors returns a copy of the accumulated errors.
func (s *Session) Errors() []string {
	return append([]string(nil), s.errors...)
}

// SetTotal records how many source records of a kind were considered.
func (s *Session) SetTotal(kind domain.EntityKind, total int) {
	s.counter(kind).Total = total
}

// RecordFailure counts a rejected record and stores the reason as an error.
func (s *Session) RecordFailure(kind domain.EntityKind, reason string) {
	s.counter(kind).Failed++
	s.errors = append(s.errors, reason)
}

// Counters returns the outcome counters for a kind.
func (s *Session) Counters(kind domain.EntityKind) Counters {
	return *s.counter(kind)
}

func (s *Session) counter(kind domain.EntityKind) *Counters {
	c, ok := s.counters[kind]
	if !ok {
		c = &Counters{}
		s.counters[kind] = c
	}
	return c
}
