// Package appctx provides a shared bootstrap helper for CLI commands.
// It centralizes config loading, logger construction, and opening the
// source and target databases to reduce boilerplate across commands.
package appctx

import (
	"context"
	"fmt"

	"github.com/lherron/schoolmig/internal/config"
	"github.com/lherron/schoolmig/internal/db"
	"github.com/lherron/schoolmig/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// App holds the shared application context for commands.
type App struct {
	// Config is the loaded configuration
	Config *config.Config

	// Logger writes to stderr at the configured level
	Logger *zap.Logger

	// Source is the V1 database (nil if NeedsSource is false)
	Source *db.DB

	// Target is the V2 database (nil if NeedsTarget is false)
	Target *db.DB
}

// Close releases resources held by the App.
// Safe to call multiple times.
func (a *App) Close() {
	if a.Source != nil {
		a.Source.Close()
		a.Source = nil
	}
	if a.Target != nil {
		a.Target.Close()
		a.Target = nil
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
}

// Options configures the bootstrap behavior.
type Options struct {
	// NeedsSource opens the V1 database.
	NeedsSource bool

	// NeedsTarget opens the V2 database and checks that its schema is
	// up to date.
	NeedsTarget bool
}

// ConfigOnly returns options that open no database.
func ConfigOnly() Options {
	return Options{}
}

// SourceOnly returns options that open the V1 database.
func SourceOnly() Options {
	return Options{NeedsSource: true}
}

// Both returns options that open both databases.
func Both() Options {
	return Options{NeedsSource: true, NeedsTarget: true}
}

// RunFunc is the signature for command run functions.
type RunFunc func(app *App, cmd *cobra.Command, args []string) error

// WithApp wraps a command's run function with shared bootstrap logic.
// The databases are closed automatically when the wrapped function returns.
func WithApp(opts Options, fn RunFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := Bootstrap(cmd, opts)
		if err != nil {
			return err
		}
		defer app.Close()

		return fn(app, cmd, args)
	}
}

// Bootstrap initializes the App according to the given options.
// Callers are responsible for calling App.Close() when done.
func Bootstrap(cmd *cobra.Command, opts Options) (*App, error) {
	cfg, err := config.Load(flagString(cmd, "config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if v := flagString(cmd, "log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v := flagString(cmd, "log-format"); v != "" {
		cfg.LogFormat = v
	}
	if v := flagString(cmd, "output"); v != "" {
		cfg.Output = v
	}

	logger, err := logging.NewWriter(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	app := &App{Config: cfg, Logger: logger}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.NeedsSource {
		app.Source, err = Open(ctx, cfg.Source)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to open source database: %w", err)
		}
	}

	if opts.NeedsTarget {
		app.Target, err = Open(ctx, cfg.Target)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to open target database: %w", err)
		}
		if err := app.Target.RequiresMigrationError(ctx, db.SchemaTarget); err != nil {
			app.Close()
			return nil, err
		}
	}

	return app, nil
}

// Open connects to the database described by d.
func Open(ctx context.Context, d config.Database) (*db.DB, error) {
	dsn, err := d.ConnString()
	if err != nil {
		return nil, err
	}
	return db.Open(ctx, d.Driver, dsn)
}

func flagString(cmd *cobra.Command, name string) string {
	if f := cmd.Flag(name); f != nil {
		return f.Value.String()
	}
	return ""
}
