package appctx

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lherron/schoolmig/internal/db"
	"github.com/spf13/cobra"
)

// newCommand returns a command carrying the root persistent flags, with HOME
// and cwd isolated from the developer's config.
func newCommand(t *testing.T) *cobra.Command {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	oldCwd, _ := os.Getwd()
	t.Cleanup(func() { os.Chdir(oldCwd) })
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cmd := &cobra.Command{}
	cmd.Flags().String("config", "", "Config file")
	cmd.Flags().String("log-level", "", "Log level")
	cmd.Flags().String("log-format", "", "Log format")
	cmd.Flags().StringP("output", "o", "", "Output format")
	cmd.SetErr(&bytes.Buffer{})
	return cmd
}

func migratedSQLite(t *testing.T, schema db.Schema) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), string(schema)+".db")
	database, err := db.Open(context.Background(), db.DriverSQLite3, path)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if _, err := database.Migrate(context.Background(), schema); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	database.Close()
	return path
}

func TestBootstrap_ConfigOnly(t *testing.T) {
	cmd := newCommand(t)
	cmd.Flags().Set("log-level", "debug")
	cmd.Flags().Set("output", "json")

	app, err := Bootstrap(cmd, ConfigOnly())
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	defer app.Close()

	if app.Config == nil || app.Logger == nil {
		t.Fatal("Config and Logger should be set")
	}
	if app.Source != nil || app.Target != nil {
		t.Error("databases should be nil for ConfigOnly")
	}
	if app.Config.LogLevel != "debug" || app.Config.Output != "json" {
		t.Errorf("flag overrides not applied: level=%s output=%s", app.Config.LogLevel, app.Config.Output)
	}
}

func TestBootstrap_WithDatabases(t *testing.T) {
	cmd := newCommand(t)
	t.Setenv("SCHOOLMIG_SOURCE_DRIVER", "sqlite3")
	t.Setenv("SCHOOLMIG_SOURCE_DSN", migratedSQLite(t, db.SchemaSource))
	t.Setenv("SCHOOLMIG_TARGET_DRIVER", "sqlite3")
	t.Setenv("SCHOOLMIG_TARGET_DSN", migratedSQLite(t, db.SchemaTarget))

	app, err := Bootstrap(cmd, Both())
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	defer app.Close()

	if app.Source == nil || app.Target == nil {
		t.Fatal("both databases should be open")
	}

	app.Close()
	app.Close()
}

func TestBootstrap_UnmigratedTarget(t *testing.T) {
	cmd := newCommand(t)
	t.Setenv("SCHOOLMIG_TARGET_DRIVER", "sqlite3")
	t.Setenv("SCHOOLMIG_TARGET_DSN", filepath.Join(t.TempDir(), "empty.db"))

	_, err := Bootstrap(cmd, Options{NeedsTarget: true})
	if err == nil {
		t.Fatal("expected error for unmigrated target")
	}
	if !strings.Contains(err.Error(), "schema apply --target") {
		t.Errorf("error should point at schema apply, got: %v", err)
	}
}

func TestBootstrap_MissingSourceLocation(t *testing.T) {
	cmd := newCommand(t)
	t.Setenv("SCHOOLMIG_SOURCE_DRIVER", "postgres")

	if _, err := Bootstrap(cmd, SourceOnly()); err == nil {
		t.Fatal("expected error when source has no dsn or host")
	}
}
