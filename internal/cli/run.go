package cli

import (
	"fmt"
	"time"

	"github.com/lherron/schoolmig/internal/cli/appctx"
	"github.com/lherron/schoolmig/internal/events"
	"github.com/lherron/schoolmig/internal/metrics"
	"github.com/lherron/schoolmig/internal/render"
	"github.com/lherron/schoolmig/internal/runner"
	"github.com/lherron/schoolmig/internal/snapshot"
	"github.com/lherron/schoolmig/internal/source"
	"github.com/lherron/schoolmig/internal/store"
	"github.com/lherron/schoolmig/internal/webhooks"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a migration",
	Long: `Runs a full migration: pre-flight validation, prerequisites, then
schools, curriculums, teachers, parents and students in that order, the
student-parent link pass, and post-flight validation.

With --dry-run nothing is written to the target; the report lists the
inserts that would have been made.

Exit codes: 0 success, 1 error, 2 pre-flight failed, 5 completed with
record failures.`,
	RunE: appctx.WithApp(appctx.Both(), runRun),
}

var (
	runDryRun        bool
	runSessionID     string
	runSkipPreflight bool
	runAuditFile     string
	runMetricsFile   string
	runMappingsFile  string
	runNoProgress    bool
)

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Validate and plan without writing to the target")
	runCmd.Flags().StringVar(&runSessionID, "session-id", "", "Session id (default migration_YYYYMMDD_HHMMSS)")
	runCmd.Flags().BoolVar(&runSkipPreflight, "skip-preflight", false, "Skip pre-flight validation")
	runCmd.Flags().StringVar(&runAuditFile, "audit-file", "", "Append per-record outcomes to this NDJSON file")
	runCmd.Flags().StringVar(&runMetricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile")
	runCmd.Flags().StringVar(&runMappingsFile, "mappings-file", "", "Write the identity mapping snapshot to this JSON file")
	runCmd.Flags().BoolVar(&runNoProgress, "no-progress", false, "Disable progress output")
}

func runRun(app *appctx.App, cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := app.Config
	log := app.Logger

	r, err := newRenderer(app, cmd)
	if err != nil {
		return err
	}

	dryRun := cfg.DryRun || runDryRun
	auditFile := firstNonEmpty(runAuditFile, cfg.AuditFile)
	metricsFile := firstNonEmpty(runMetricsFile, cfg.MetricsFile)
	mappingsFile := firstNonEmpty(runMappingsFile, cfg.MappingsFile)

	var audit *events.Writer
	if auditFile != "" {
		audit, err = events.Open(auditFile, runSessionID)
		if err != nil {
			return err
		}
		defer audit.Close()
	}

	var collector *metrics.Collector
	if metricsFile != "" {
		collector = metrics.NewCollector()
	}

	src := source.New(store.For(app.Source), cfg.BatchSize, log)
	report, runErr := runner.Run(ctx, src, store.For(app.Target), runner.Options{
		SessionID:     runSessionID,
		DryRun:        dryRun,
		SkipPreflight: runSkipPreflight,
		Country:       cfg.Country,
		Fields:        fieldOptions(app),
		Logger:        log,
		Audit:         audit,
		Metrics:       collector,
		Progress:      !runNoProgress,
	})

	if report != nil {
		if err := r.Render(report, func(r *render.Renderer) error {
			renderReport(r, report)
			return nil
		}); err != nil {
			return err
		}
		notify(cmd, app, report)
		if mappingsFile != "" && runErr == nil {
			rev, err := snapshot.Write(mappingsFile, snapshot.FromSession(report.State, report.DryRun), time.Now())
			if err != nil {
				return err
			}
			log.Info("mapping snapshot written", zap.String("path", mappingsFile), zap.String("snapshot_rev", rev))
		}
	}

	if collector != nil {
		if err := collector.WriteTextfile(metricsFile); err != nil {
			log.Warn("failed to write metrics textfile", zap.String("path", metricsFile), zap.Error(err))
		}
	}

	switch {
	case runErr != nil && runner.IsPreflightFailure(runErr):
		return exitError(ExitPreflightFailed, runErr)
	case runErr != nil:
		return runErr
	case report.Status == runner.StatusCompletedWithErrors:
		return exitError(ExitPartial, fmt.Errorf("migration %s completed with %d error(s)", report.SessionID, len(report.Errors)))
	}
	return nil
}

// notify posts the run outcome to the configured webhooks. Delivery
// failures are logged only.
func notify(cmd *cobra.Command, app *appctx.App, report *runner.Report) {
	if len(app.Config.Webhooks) == 0 {
		return
	}
	res := webhooks.NewNotifier(app.Config.Webhooks, app.Logger).Notify(cmd.Context(), webhooks.Payload{
		SessionID: report.SessionID,
		Status:    report.Status,
		DryRun:    report.DryRun,
		Summary:   report.Summary,
	})
	app.Logger.Info("webhooks notified", zap.Int("sent", res.Sent), zap.Int("failed", res.Failed))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
