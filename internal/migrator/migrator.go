// Package migrator holds the Record Mapping Builders: for each V1 school,
// teacher, parent and student it validates and normalizes the row, writes the
// V2 user and detail records through the target store, and registers the
// mapping on the session.
//
// Phases are driven one record at a time. A record that fails is counted,
// audited and skipped; it never aborts the phase.
package migrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lherron/schoolmig/internal/bulk"
	"github.com/lherron/schoolmig/internal/curriculum"
	"github.com/lherron/schoolmig/internal/domain"
	"github.com/lherron/schoolmig/internal/events"
	"github.com/lherron/schoolmig/internal/metrics"
	"github.com/lherron/schoolmig/internal/session"
	"github.com/lherron/schoolmig/internal/store"
	"github.com/lherron/schoolmig/internal/validate"
	"go.uber.org/zap"
)

// Options configures a Migrator. Zero values are usable.
type Options struct {
	// Country is written on schools without one and on every user.
	Country  string
	Logger   *zap.Logger
	Audit    *events.Writer
	Metrics  *metrics.Collector
	Progress bool
}

// Migrator migrates V1 records into the V2 target for one session.
type Migrator struct {
	sess     *session.Session
	src      validate.SourceReader
	target   store.Store
	fields   *validate.Fields
	resolver *curriculum.Resolver
	log      *zap.Logger
	audit    *events.Writer
	metrics  *metrics.Collector
	country  string
	progress bool

	catalog       *Catalog
	years         map[int64]int64
	classes       map[string]int64
	parentDetails map[string]int64
	pending       []PendingLink
}

// New returns a Migrator. fields and resolver may be nil to use defaults.
func New(sess *session.Session, src validate.SourceReader, target store.Store, fields *validate.Fields, resolver *curriculum.Resolver, opts Options) *Migrator {
	if fields == nil {
		fields = validate.NewFields(validate.Options{Now: sess.Now})
	}
	if resolver == nil {
		resolver = curriculum.New()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	country := opts.Country
	if country == "" {
		country = "Kenya"
	}
	return &Migrator{
		sess:          sess,
		src:           src,
		target:        target,
		fields:        fields,
		resolver:      resolver,
		log:           logger.With(zap.String("session_id", sess.ID())),
		audit:         opts.Audit,
		metrics:       opts.Metrics,
		country:       country,
		progress:      opts.Progress,
		years:         make(map[int64]int64),
		classes:       make(map[string]int64),
		parentDetails: make(map[string]int64),
	}
}

// Session returns the session the migrator writes to.
func (m *Migrator) Session() *session.Session { return m.sess }

// RecordOutcome is the result of migrating one source record.
type RecordOutcome struct {
	Kind     domain.EntityKind
	OldID    string
	NewID    int64
	SchoolID int64
	Warnings []string
	// Orphaned is set when target rows were written but the mapping was
	// rejected, leaving rows no mapping points at.
	Orphaned bool
	Err      error
}

// Migrated reports whether the record now has a mapping.
func (o RecordOutcome) Migrated() bool { return o.Err == nil }

// PhaseResult summarizes one entity phase.
type PhaseResult struct {
	Phase    domain.Phase      `json:"phase" yaml:"phase"`
	Kind     domain.EntityKind `json:"kind" yaml:"kind"`
	Success  bool              `json:"success" yaml:"success"`
	Migrated int               `json:"migrated" yaml:"migrated"`
	Failed   int               `json:"failed" yaml:"failed"`
	Total    int               `json:"total" yaml:"total"`
	Duration time.Duration     `json:"duration" yaml:"duration"`
	Mappings []session.Mapping `json:"mappings,omitempty" yaml:"mappings,omitempty"`
	Errors   []bulk.ItemError  `json:"-" yaml:"-"`
}

// runPhase enters phase, loads the source rows and feeds them one by one to
// build.
func runPhase[T any](ctx context.Context, m *Migrator, phase domain.Phase,
	load func(context.Context) ([]T, error), oldID func(T) string,
	build func(context.Context, T) RecordOutcome) (PhaseResult, error) {

	kind, _ := domain.KindForPhase(phase)
	result := PhaseResult{Phase: phase, Kind: kind}
	if err := m.sess.EnterPhase(phase); err != nil {
		return result, err
	}

	start := time.Now()
	rows, err := load(ctx)
	if err != nil {
		return result, fmt.Errorf("read %s: %w", kind.Plural(), err)
	}
	m.sess.SetTotal(kind, len(rows))
	m.log.Info("phase started", zap.Stringer("phase", phase), zap.Int("records", len(rows)))

	op := bulk.Operation{ContinueOnError: true, ShowProgress: m.progress}
	res := bulk.Run(op, rows, oldID, func(row T) error {
		out := build(ctx, row)
		m.record(out)
		return out.Err
	})

	result.Duration = time.Since(start)
	result.Total = res.TotalItems
	result.Migrated = res.Succeeded
	result.Failed = res.Failed
	result.Success = res.Failed == 0
	result.Errors = res.Errors
	result.Mappings = m.sess.Mappings(kind)
	m.metrics.ObservePhase(phase.String(), result.Duration)

	m.log.Info("phase complete",
		zap.Stringer("phase", phase),
		zap.Int64("duration_ms", result.Duration.Milliseconds()),
		zap.Int("migrated", result.Migrated),
		zap.Int("failed", result.Failed),
		zap.Int("total", result.Total))

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// record copies an outcome into the session, audit trail, metrics and log.
func (m *Migrator) record(out RecordOutcome) {
	for _, w := range out.Warnings {
		m.sess.AddWarning("%s %s: %s", out.Kind.Title(), out.OldID, w)
	}

	ev := events.Event{
		SessionID: m.sess.ID(),
		Kind:      out.Kind,
		OldID:     out.OldID,
		NewID:     out.NewID,
		Outcome:   events.OutcomeMigrated,
	}
	if out.Err == nil {
		m.metrics.Record(string(out.Kind), string(ev.Outcome))
		m.logAudit(m.audit.LogEvent(ev))
		m.log.Debug("record migrated",
			zap.String("kind", string(out.Kind)),
			zap.String("old_id", out.OldID),
			zap.Int64("new_id", out.NewID))
		return
	}

	ev.Reason = out.Err.Error()
	ev.Outcome = events.OutcomeFailed
	if out.Orphaned {
		ev.Outcome = events.OutcomeOrphaned
	} else {
		ev.NewID = 0
	}
	m.sess.RecordFailure(out.Kind, ev.Reason)
	m.metrics.Record(string(out.Kind), string(ev.Outcome))
	m.logAudit(m.audit.LogEvent(ev))
	m.log.Warn("record failed",
		zap.String("kind", string(out.Kind)),
		zap.String("old_id", out.OldID),
		zap.String("outcome", string(ev.Outcome)),
		zap.Error(out.Err))
}

func (m *Migrator) logAudit(err error) {
	if err != nil {
		m.log.Error("audit write failed", zap.Error(err))
	}
}

// register adds the mapping for a record whose target rows are written. A
// rejected mapping marks the outcome orphaned.
func (m *Migrator) register(out *RecordOutcome, newID, schoolID int64, meta session.Metadata) bool {
	out.NewID = newID
	if _, err := m.sess.AddMapping(out.Kind, out.OldID, newID, schoolID, meta); err != nil {
		out.Orphaned = true
		out.Err = fmt.Errorf("%s %s: V2 rows written (id %d) but mapping rejected: %w", out.Kind, out.OldID, newID, err)
		return false
	}
	return true
}

// owningSchool resolves a dependent record's V1 school id to a registered
// school.
func (m *Migrator) owningSchool(kind domain.EntityKind, oldID, schoolOldID string) (int64, error) {
	schoolOldID = strings.TrimSpace(schoolOldID)
	if schoolOldID != "" {
		if newID, ok := m.sess.ResolveNewID(domain.KindSchool, schoolOldID); ok && m.sess.SchoolExists(newID) {
			return newID, nil
		}
	}
	return 0, &domain.MissingSchoolMappingError{Kind: kind, OldID: oldID, SchoolOldID: schoolOldID}
}

func invalid(kind domain.EntityKind, oldID string, errs []string) error {
	return fmt.Errorf("%s %s: validation failed: %s", kind, oldID, strings.Join(errs, "; "))
}

func (m *Migrator) exists(table, column string) validate.ExistsFunc {
	return func(ctx context.Context, value string) (bool, error) {
		return m.target.Exists(ctx, table, column, value)
	}
}

// null maps "" to SQL NULL.
func null(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
