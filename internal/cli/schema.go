package cli

import (
	"fmt"

	"github.com/lherron/schoolmig/internal/cli/appctx"
	"github.com/lherron/schoolmig/internal/config"
	"github.com/lherron/schoolmig/internal/db"
	"github.com/lherron/schoolmig/internal/render"
	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Manage the embedded database schemas",
	Long: `Migrations for the V2 target schema (and for a local V1 source
fixture) are embedded in the schoolmig binary and tracked in the
schema_version table. Each migration is applied exactly once.`,
}

var schemaApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply pending migrations",
	Long: `Applies pending migrations to the target database (--target, the
default) or creates the V1 tables in a local source fixture (--source).
Safe to run multiple times.`,
	RunE: appctx.WithApp(appctx.ConfigOnly(), runSchemaApply),
}

var schemaStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status of the source and target databases",
	RunE:  appctx.WithApp(appctx.ConfigOnly(), runSchemaStatus),
}

var (
	schemaApplyTarget bool
	schemaApplySource bool
)

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.AddCommand(schemaApplyCmd, schemaStatusCmd)

	schemaApplyCmd.Flags().BoolVar(&schemaApplyTarget, "target", false, "Migrate the V2 target database")
	schemaApplyCmd.Flags().BoolVar(&schemaApplySource, "source", false, "Create the V1 tables in the source database (fixtures only)")
}

type schemaTarget struct {
	name   string
	schema db.Schema
	conf   config.Database
}

func runSchemaApply(app *appctx.App, cmd *cobra.Command, args []string) error {
	var targets []schemaTarget
	if schemaApplySource {
		targets = append(targets, schemaTarget{"source", db.SchemaSource, app.Config.Source})
	}
	if schemaApplyTarget || !schemaApplySource {
		targets = append(targets, schemaTarget{"target", db.SchemaTarget, app.Config.Target})
	}

	out := cmd.OutOrStdout()
	for _, t := range targets {
		database, err := appctx.Open(cmd.Context(), t.conf)
		if err != nil {
			return fmt.Errorf("failed to open %s database: %w", t.name, err)
		}
		n, err := database.Migrate(cmd.Context(), t.schema)
		database.Close()
		if err != nil {
			return err
		}
		if n == 0 {
			fmt.Fprintf(out, "%s: up to date, no migrations to apply\n", t.name)
		} else {
			fmt.Fprintf(out, "%s: applied %d migration(s)\n", t.name, n)
		}
	}
	return nil
}

func runSchemaStatus(app *appctx.App, cmd *cobra.Command, args []string) error {
	r, err := newRenderer(app, cmd)
	if err != nil {
		return err
	}

	targets := []schemaTarget{
		{"source", db.SchemaSource, app.Config.Source},
		{"target", db.SchemaTarget, app.Config.Target},
	}
	var statuses []db.MigrationStatus
	for _, t := range targets {
		database, err := appctx.Open(cmd.Context(), t.conf)
		if err != nil {
			return fmt.Errorf("failed to open %s database: %w", t.name, err)
		}
		st, err := database.MigrationStatus(cmd.Context(), t.schema)
		database.Close()
		if err != nil {
			return err
		}
		statuses = append(statuses, st)
	}

	return r.Render(statuses, func(r *render.Renderer) error {
		rows := make([][]string, 0, len(statuses))
		for _, st := range statuses {
			rows = append(rows, []string{string(st.Schema), itoa(st.Version), itoa(st.Available), itoa(st.Pending)})
		}
		return r.RenderTable([]string{"SCHEMA", "VERSION", "AVAILABLE", "PENDING"}, rows)
	})
}
