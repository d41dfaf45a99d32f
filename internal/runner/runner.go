// Package runner orchestrates one migration run: session creation,
// pre-flight, prerequisites, the entity phases in order, the student to
// parent link pass, post-flight validation and the final summary.
package runner

import (
	"context"
	"errors"
	"time"

	"github.com/lherron/schoolmig/internal/curriculum"
	"github.com/lherron/schoolmig/internal/domain"
	"github.com/lherron/schoolmig/internal/events"
	"github.com/lherron/schoolmig/internal/metrics"
	"github.com/lherron/schoolmig/internal/migrator"
	"github.com/lherron/schoolmig/internal/session"
	"github.com/lherron/schoolmig/internal/store"
	"github.com/lherron/schoolmig/internal/validate"
	"go.uber.org/zap"
)

// Run statuses.
const (
	StatusCompleted           = "completed"
	StatusCompletedWithErrors = "completed_with_errors"
	StatusAborted             = "aborted"
)

// Options configures a run. Zero values are usable.
type Options struct {
	SessionID     string
	DryRun        bool
	SkipPreflight bool
	Country       string
	Fields        validate.Options
	Rules         []curriculum.Rule
	Logger        *zap.Logger
	Audit         *events.Writer
	Metrics       *metrics.Collector
	Progress      bool
	Clock         func() time.Time
}

// Report is everything a run produced.
type Report struct {
	SessionID   string                 `json:"session_id" yaml:"session_id"`
	Status      string                 `json:"status" yaml:"status"`
	DryRun      bool                   `json:"dry_run" yaml:"dry_run"`
	Summary     session.Summary        `json:"summary" yaml:"summary"`
	Preflight   *validate.Result       `json:"preflight,omitempty" yaml:"preflight,omitempty"`
	Phases      []migrator.PhaseResult `json:"phases" yaml:"phases"`
	Links       migrator.LinkResult    `json:"links" yaml:"links"`
	Integrity   *validate.Result       `json:"integrity,omitempty" yaml:"integrity,omitempty"`
	Consistency *validate.Consistency  `json:"consistency,omitempty" yaml:"consistency,omitempty"`
	Planned     []store.TableCount     `json:"planned_inserts,omitempty" yaml:"planned_inserts,omitempty"`
	Errors      []string               `json:"errors" yaml:"errors"`
	Warnings    []string               `json:"warnings" yaml:"warnings"`

	// State is the final session state, for mapping exports.
	State session.Snapshot `json:"-" yaml:"-"`
}

// Run migrates src into target. A failed pre-flight returns the report and a
// *domain.PreflightFailedError before anything is written. Phase and
// prerequisite errors abort the run and are returned with the partial
// report; per-record failures never do.
func Run(ctx context.Context, src validate.SourceReader, target store.Store, opts Options) (*Report, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	var sessOpts []session.Option
	if opts.Clock != nil {
		sessOpts = append(sessOpts, session.WithClock(opts.Clock))
	}
	if opts.SessionID != "" {
		sessOpts = append(sessOpts, session.WithID(opts.SessionID))
	}
	sess := session.New(sessOpts...)
	log = log.With(zap.String("session_id", sess.ID()))
	report := &Report{SessionID: sess.ID(), DryRun: opts.DryRun}
	log.Info("migration started", zap.Bool("dry_run", opts.DryRun))

	if !opts.SkipPreflight {
		start := time.Now()
		pre, err := validate.Preflight(ctx, src)
		if err != nil {
			return report.abort(sess), err
		}
		report.Preflight = &pre
		opts.Metrics.Issues("preflight", len(pre.Errors), len(pre.Warnings))
		log.Info("pre-flight complete",
			zap.Bool("valid", pre.IsValid),
			zap.Int("errors", len(pre.Errors)),
			zap.Int("warnings", len(pre.Warnings)),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()))
		if !pre.IsValid {
			for _, e := range pre.Errors {
				sess.AddError("Pre-flight: %s", e)
			}
			return report.abort(sess), &domain.PreflightFailedError{Errors: pre.Errors, Warnings: len(pre.Warnings)}
		}
	}

	var dry *store.DryRun
	if opts.DryRun {
		dry = store.NewDryRun(target)
		target = dry
	}

	fieldOpts := opts.Fields
	if fieldOpts.Now == nil {
		fieldOpts.Now = sess.Now
	}
	m := migrator.New(sess, src, target, validate.NewFields(fieldOpts), curriculum.New(opts.Rules...), migrator.Options{
		Country:  opts.Country,
		Logger:   log,
		Audit:    opts.Audit,
		Metrics:  opts.Metrics,
		Progress: opts.Progress,
	})

	if _, err := m.EnsurePrerequisites(ctx); err != nil {
		return report.abort(sess), err
	}

	phase := func(run func(context.Context) (migrator.PhaseResult, error)) error {
		res, err := run(ctx)
		report.Phases = append(report.Phases, res)
		return err
	}
	if err := phase(m.MigrateSchools); err != nil {
		return report.abort(sess), err
	}
	if err := m.MigrateCurriculums(ctx); err != nil {
		return report.abort(sess), err
	}
	for _, run := range []func(context.Context) (migrator.PhaseResult, error){m.MigrateTeachers, m.MigrateParents, m.MigrateStudents} {
		if err := phase(run); err != nil {
			return report.abort(sess), err
		}
	}
	links, err := m.LinkStudentParents(ctx)
	report.Links = links
	if err != nil {
		return report.abort(sess), err
	}

	if err := sess.EnterPhase(domain.PhaseValidation); err != nil {
		return report.abort(sess), err
	}
	integrity, consistency := postflight(sess, sess.Snapshot())
	report.Integrity = &integrity
	report.Consistency = &consistency
	opts.Metrics.Issues("postflight", len(integrity.Errors), len(integrity.Warnings)+len(consistency.Warnings))

	if err := sess.EnterPhase(domain.PhaseCompletion); err != nil {
		return report.abort(sess), err
	}

	if dry != nil {
		report.Planned = dry.Counts()
	}
	report.finish(sess)
	report.Status = StatusCompleted
	if !integrity.IsValid || len(report.Errors) > 0 {
		report.Status = StatusCompletedWithErrors
	}
	opts.Metrics.Issues("session", len(report.Errors), len(report.Warnings))

	log.Info("migration finished",
		zap.String("status", report.Status),
		zap.Float64("elapsed_seconds", report.Summary.ElapsedSeconds),
		zap.Int("errors", len(report.Errors)),
		zap.Int("warnings", len(report.Warnings)))
	return report, nil
}

// postflight checks snap and records every integrity error on sess.
func postflight(sess *session.Session, snap session.Snapshot) (validate.Result, validate.Consistency) {
	integrity, consistency := validate.Postflight(snap)
	for _, e := range integrity.Errors {
		sess.AddError("Post-flight: %s", e)
	}
	return integrity, consistency
}

func (r *Report) finish(sess *session.Session) {
	r.Summary = sess.Summary()
	r.State = sess.Snapshot()
	r.Errors = sess.Errors()
	r.Warnings = sess.Warnings()
	if r.Errors == nil {
		r.Errors = []string{}
	}
	if r.Warnings == nil {
		r.Warnings = []string{}
	}
}

func (r *Report) abort(sess *session.Session) *Report {
	r.finish(sess)
	r.Status = StatusAborted
	return r
}

// IsPreflightFailure reports whether err aborted a run at pre-flight.
func IsPreflightFailure(err error) bool {
	var pf *domain.PreflightFailedError
	return errors.As(err, &pf)
}
