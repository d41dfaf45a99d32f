package cli

import (
	"fmt"

	"github.com/lherron/schoolmig/internal/cli/appctx"
	"github.com/lherron/schoolmig/internal/render"
	"github.com/lherron/schoolmig/internal/source"
	"github.com/lherron/schoolmig/internal/store"
	"github.com/lherron/schoolmig/internal/validate"
	"github.com/spf13/cobra"
)

var preflightCmd = &cobra.Command{
	Use:   "preflight",
	Short: "Validate the source database without migrating",
	Long: `Loads every source table and reports the problems that would abort a
run (errors) and the ones that would be repaired or skipped (warnings).
Exits with code 2 when the source is not valid.`,
	RunE: appctx.WithApp(appctx.SourceOnly(), runPreflight),
}

func init() {
	rootCmd.AddCommand(preflightCmd)
}

func runPreflight(app *appctx.App, cmd *cobra.Command, args []string) error {
	r, err := newRenderer(app, cmd)
	if err != nil {
		return err
	}

	src := source.New(store.For(app.Source), app.Config.BatchSize, app.Logger)
	res, err := validate.Preflight(cmd.Context(), src)
	if err != nil {
		return err
	}

	if err := r.Render(res, func(r *render.Renderer) error {
		renderResult(r, "Pre-flight", res)
		return nil
	}); err != nil {
		return err
	}

	if !res.IsValid {
		return exitError(ExitPreflightFailed, fmt.Errorf("pre-flight failed with %d error(s)", len(res.Errors)))
	}
	return nil
}
