package cli

import (
	"fmt"
	"time"

	"github.com/lherron/schoolmig/internal/cli/appctx"
	"github.com/lherron/schoolmig/internal/render"
	"github.com/lherron/schoolmig/internal/validate"
	"github.com/spf13/cobra"
)

// Exit codes beyond the generic 1.
const (
	ExitPreflightFailed = 2
	ExitPartial         = 5 // run completed with record failures
)

// ExitError carries a process exit code out of a command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

func exitError(code int, err error) error {
	return &ExitError{Code: code, Err: err}
}

func newRenderer(app *appctx.App, cmd *cobra.Command) (*render.Renderer, error) {
	format, err := render.ParseFormat(app.Config.Output)
	if err != nil {
		return nil, err
	}
	return render.NewRenderer(cmd.OutOrStdout(), render.Options{Format: format}), nil
}

func fieldOptions(app *appctx.App) validate.Options {
	return validate.Options{
		CallingCode:       app.Config.CountryCallingCode,
		StudentAssumedAge: app.Config.StudentAssumedAge,
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func itoa(n int) string { return fmt.Sprintf("%d", n) }
