package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/lherron/schoolmig/internal/cli/appctx"
	"github.com/lherron/schoolmig/internal/config"
	"github.com/lherron/schoolmig/internal/db"
	"github.com/lherron/schoolmig/internal/render"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration and database health",
	Long: `Performs health checks on the configuration, source and target
connectivity, the target schema version, required tables, and SQLite
sequence drift. Exits with code 1 when any check fails.`,
	RunE: appctx.WithApp(appctx.ConfigOnly(), runDoctor),
}

var (
	doctorFix     bool
	doctorVerbose bool
)

type checkResult struct {
	Category string   `json:"category" yaml:"category"`
	Name     string   `json:"name" yaml:"name"`
	Status   string   `json:"status" yaml:"status"` // "ok", "warning", "error"
	Message  string   `json:"message,omitempty" yaml:"message,omitempty"`
	Details  []string `json:"details,omitempty" yaml:"details,omitempty"`
}

type doctorReport struct {
	Version       string        `json:"version" yaml:"version"`
	ConfigFile    string        `json:"config_file" yaml:"config_file"`
	Checks        []checkResult `json:"checks" yaml:"checks"`
	Warnings      int           `json:"warnings" yaml:"warnings"`
	Errors        int           `json:"errors" yaml:"errors"`
	OverallStatus string        `json:"overall_status" yaml:"overall_status"`
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "Repair SQLite sequence drift on the target")
	doctorCmd.Flags().BoolVar(&doctorVerbose, "verbose", false, "Verbose output")
}

func runDoctor(app *appctx.App, cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	r, err := newRenderer(app, cmd)
	if err != nil {
		return err
	}

	report := &doctorReport{
		Version:       Version,
		ConfigFile:    app.Config.File,
		OverallStatus: "ok",
	}
	report.Checks = append(report.Checks, checkConfig(app.Config)...)

	source, checks := openForDoctor(ctx, "Source", app.Config.Source)
	report.Checks = append(report.Checks, checks...)
	if source != nil {
		report.Checks = append(report.Checks, checkTables(ctx, source, "Source", db.SourceTables)...)
		source.Close()
	}

	target, checks := openForDoctor(ctx, "Target", app.Config.Target)
	report.Checks = append(report.Checks, checks...)
	if target != nil {
		report.Checks = append(report.Checks, checkTargetSchema(ctx, target)...)
		report.Checks = append(report.Checks, checkTables(ctx, target, "Target", db.TargetTables)...)
		if !target.IsPostgres() {
			report.Checks = append(report.Checks, checkForeignKeys(ctx, target)...)
			report.Checks = append(report.Checks, checkSequenceDrift(ctx, target, doctorFix)...)
		}
		report.Checks = append(report.Checks, checkTargetCounts(ctx, target)...)
		target.Close()
	}

	// Count warnings and errors
	for _, check := range report.Checks {
		if check.Status == "warning" {
			report.Warnings++
		} else if check.Status == "error" {
			report.Errors++
			report.OverallStatus = "error"
		}
	}

	if report.Warnings > 0 && report.OverallStatus == "ok" {
		report.OverallStatus = "warning"
	}

	if err := r.Render(report, func(r *render.Renderer) error {
		printHumanReport(r, report)
		return nil
	}); err != nil {
		return err
	}

	if report.Errors > 0 {
		return exitError(1, fmt.Errorf("doctor found %d error(s)", report.Errors))
	}
	return nil
}

func checkConfig(cfg *config.Config) []checkResult {
	file := cfg.File
	if file == "" {
		file = "defaults and environment"
	}
	results := []checkResult{{
		Category: "Configuration",
		Name:     "config_loaded",
		Status:   "ok",
		Message:  fmt.Sprintf("Configuration loaded from %s", file),
		Details: []string{
			fmt.Sprintf("batch_size=%d student_assumed_age=%d country=%s", cfg.BatchSize, cfg.StudentAssumedAge, cfg.Country),
		},
	}}

	if len(cfg.Webhooks) > 0 {
		results = append(results, checkResult{
			Category: "Configuration",
			Name:     "webhooks",
			Status:   "ok",
			Message:  fmt.Sprintf("%d webhook(s) configured", len(cfg.Webhooks)),
		})
	}
	return results
}

// openForDoctor opens and pings a database. The returned DB is nil when the
// check failed.
func openForDoctor(ctx context.Context, category string, conf config.Database) (*db.DB, []checkResult) {
	name := strings.ToLower(category) + "_connect"
	database, err := appctx.Open(ctx, conf)
	if err == nil {
		if err = database.PingContext(ctx); err != nil {
			database.Close()
		}
	}
	if err != nil {
		return nil, []checkResult{{
			Category: category,
			Name:     name,
			Status:   "error",
			Message:  fmt.Sprintf("Cannot connect (%s): %v", conf.Driver, err),
		}}
	}
	return database, []checkResult{{
		Category: category,
		Name:     name,
		Status:   "ok",
		Message:  fmt.Sprintf("Connected to %s (%s)", database.Path(), database.Driver()),
	}}
}

func checkTables(ctx context.Context, database *db.DB, category string, required []string) []checkResult {
	var missing []string
	for _, table := range required {
		ok, err := database.TableExists(ctx, table)
		if err != nil || !ok {
			missing = append(missing, table)
		}
	}

	name := strings.ToLower(category) + "_tables"
	if len(missing) == 0 {
		return []checkResult{{
			Category: category,
			Name:     name,
			Status:   "ok",
			Message:  fmt.Sprintf("All required tables present (%d/%d)", len(required), len(required)),
		}}
	}
	return []checkResult{{
		Category: category,
		Name:     name,
		Status:   "error",
		Message:  fmt.Sprintf("Missing tables: %v", missing),
		Details:  []string{fmt.Sprintf("Run 'schoolmig schema apply --%s' to create them", strings.ToLower(category))},
	}}
}

func checkTargetSchema(ctx context.Context, database *db.DB) []checkResult {
	st, err := database.MigrationStatus(ctx, db.SchemaTarget)
	if err != nil {
		return []checkResult{{Category: "Target", Name: "schema_version", Status: "error", Message: err.Error()}}
	}
	if st.Pending > 0 {
		return []checkResult{{
			Category: "Target",
			Name:     "schema_version",
			Status:   "error",
			Message:  fmt.Sprintf("Schema version %d, %d migration(s) pending", st.Version, st.Pending),
			Details:  []string{"Run 'schoolmig schema apply --target'"},
		}}
	}
	return []checkResult{{
		Category: "Target",
		Name:     "schema_version",
		Status:   "ok",
		Message:  fmt.Sprintf("Schema version %d is current", st.Version),
	}}
}

func checkForeignKeys(ctx context.Context, database *db.DB) []checkResult {
	var foreignKeys int
	database.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&foreignKeys)
	if foreignKeys == 1 {
		return []checkResult{{Category: "Target", Name: "foreign_keys", Status: "ok", Message: "Foreign keys enabled"}}
	}
	return []checkResult{{
		Category: "Target",
		Name:     "foreign_keys",
		Status:   "error",
		Message:  "Foreign keys not enabled",
		Details:  []string{"Critical: foreign key constraints are not enforced"},
	}}
}

func checkSequenceDrift(ctx context.Context, database *db.DB, fix bool) []checkResult {
	drifts, err := database.SequenceDrifts(ctx)
	if err != nil {
		return []checkResult{{Category: "Target", Name: "sequence_drift", Status: "warning", Message: err.Error()}}
	}
	if len(drifts) == 0 {
		return []checkResult{{Category: "Target", Name: "sequence_drift", Status: "ok", Message: "No sequence drift"}}
	}

	details := make([]string, 0, len(drifts))
	for _, d := range drifts {
		details = append(details, fmt.Sprintf("%s: max id %d, sequence %d", d.Table, d.MaxID, d.SeqValue))
	}
	if fix {
		if _, err := database.FixSequenceDrifts(ctx); err != nil {
			return []checkResult{{Category: "Target", Name: "sequence_drift", Status: "error", Message: err.Error(), Details: details}}
		}
		return []checkResult{{
			Category: "Target",
			Name:     "sequence_drift",
			Status:   "ok",
			Message:  fmt.Sprintf("Repaired sequence drift on %d table(s)", len(drifts)),
			Details:  details,
		}}
	}
	return []checkResult{{
		Category: "Target",
		Name:     "sequence_drift",
		Status:   "warning",
		Message:  fmt.Sprintf("Sequence drift on %d table(s)", len(drifts)),
		Details:  append(details, "Use --fix to repair"),
	}}
}

func checkTargetCounts(ctx context.Context, database *db.DB) []checkResult {
	stats, err := database.TableStats(ctx)
	if err != nil {
		// Missing tables are already reported.
		return nil
	}
	details := make([]string, 0, len(stats))
	var total int64
	for _, st := range stats {
		total += st.Rows
		details = append(details, fmt.Sprintf("%s: %d", st.Table, st.Rows))
	}
	return []checkResult{{
		Category: "Target",
		Name:     "row_counts",
		Status:   "ok",
		Message:  fmt.Sprintf("%d rows across %d tables", total, len(stats)),
		Details:  details,
	}}
}

func printHumanReport(r *render.Renderer, report *doctorReport) {
	w := r.Writer()
	fmt.Fprintf(w, "schoolmig doctor %s\n\n", report.Version)

	for _, category := range []string{"Configuration", "Source", "Target"} {
		var checks []checkResult
		for _, check := range report.Checks {
			if check.Category == category {
				checks = append(checks, check)
			}
		}
		if len(checks) == 0 {
			continue
		}

		fmt.Fprintf(w, "%s\n", category)
		for _, check := range checks {
			icon := "✓"
			if check.Status == "warning" {
				icon = "⚠"
			} else if check.Status == "error" {
				icon = "✗"
			}

			fmt.Fprintf(w, "  %s %s\n", icon, check.Message)

			if doctorVerbose && len(check.Details) > 0 {
				for _, detail := range check.Details {
					fmt.Fprintf(w, "      %s\n", detail)
				}
			}
		}
		fmt.Fprintln(w)
	}

	// Summary
	if report.Errors > 0 {
		fmt.Fprintf(w, "Summary: %d error(s), %d warning(s)\n", report.Errors, report.Warnings)
	} else if report.Warnings > 0 {
		fmt.Fprintf(w, "Summary: %d warning(s)\n", report.Warnings)
	} else {
		fmt.Fprintf(w, "Summary: All checks passed ✓\n")
	}

	if !doctorVerbose && (report.Warnings > 0 || report.Errors > 0) {
		fmt.Fprintf(w, "\nRun with --verbose for detailed information\n")
	}
}
