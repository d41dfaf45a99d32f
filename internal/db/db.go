package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/ladzaretti/migrate"
	"github.com/ladzaretti/migrate/types"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

//go:embed migrations
var migrationsFS embed.FS

// Supported drivers.
const (
	// DriverSQLite3 is the cgo SQLite driver (github.com/mattn/go-sqlite3).
	DriverSQLite3 = "sqlite3"
	// DriverSQLite is the pure Go SQLite driver (modernc.org/sqlite).
	DriverSQLite = "sqlite"
	// DriverPostgres is github.com/lib/pq.
	DriverPostgres = "postgres"
	// DriverPgx opens a pgxpool and exposes it through database/sql as well.
	DriverPgx = "pgx"
)

// Drivers lists the accepted driver names.
var Drivers = []string{DriverSQLite3, DriverSQLite, DriverPostgres, DriverPgx}

// Schema selects which embedded migration set applies to a database.
type Schema string

const (
	// SchemaTarget is the V2 schema written by a migration run.
	SchemaTarget Schema = "target"
	// SchemaSource is the V1 sandbox schema used for local fixtures.
	SchemaSource Schema = "source"
)

// DB wraps a database connection
type DB struct {
	*sql.DB
	driver string
	dsn    string
	pool   *pgxpool.Pool
}

// Open opens a database for driver. SQLite paths get their parent directory
// created and the usual pragmas applied.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty dsn for driver %s", driver)
	}

	switch driver {
	case DriverSQLite3, DriverSQLite:
		return openSQLite(ctx, driver, dsn)
	case DriverPostgres:
		conn, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		return &DB{DB: conn, driver: driver, dsn: dsn}, nil
	case DriverPgx:
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		return &DB{DB: stdlib.OpenDBFromPool(pool), driver: driver, dsn: dsn, pool: pool}, nil
	default:
		return nil, fmt.Errorf("unsupported driver %q: must be one of: %s", driver, strings.Join(Drivers, ", "))
	}
}

func openSQLite(ctx context.Context, driver, path string) (*DB, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to apply pragma %q: %w", pragma, err)
		}
	}

	return &DB{DB: conn, driver: driver, dsn: path}, nil
}

// Driver returns the driver name the database was opened with.
func (db *DB) Driver() string {
	return db.driver
}

// Path returns the SQLite file path, or the DSN with any password removed.
func (db *DB) Path() string {
	return Redact(db.dsn)
}

// Pool returns the pgx pool when opened with DriverPgx, otherwise nil.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// IsPostgres reports whether the database speaks PostgreSQL.
func (db *DB) IsPostgres() bool {
	return db.driver == DriverPostgres || db.driver == DriverPgx
}

// Close closes the connection and the pgx pool, if any.
func (db *DB) Close() error {
	err := db.DB.Close()
	if db.pool != nil {
		db.pool.Close()
	}
	return err
}

// Redact removes the password from a URL-style DSN.
func Redact(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}

func (db *DB) dialect() types.Dialect {
	if db.IsPostgres() {
		return migrate.PostgreSQLDialect{}
	}
	return migrate.SQLiteDialect{}
}

func (db *DB) migrations(schema Schema) migrate.EmbeddedMigrations {
	flavor := "sqlite"
	if db.IsPostgres() {
		flavor = "postgres"
	}
	return migrate.EmbeddedMigrations{
		FS:   migrationsFS,
		Path: "migrations/" + string(schema) + "/" + flavor,
	}
}

// Migrate applies pending migrations of schema and returns how many ran.
func (db *DB) Migrate(ctx context.Context, schema Schema) (int, error) {
	m := migrate.New(db.DB, db.dialect())
	n, err := m.ApplyContext(ctx, db.migrations(schema))
	if err != nil {
		return n, fmt.Errorf("failed to migrate %s schema: %w", schema, err)
	}
	return n, nil
}

// MigrationStatus describes the schema version of a database.
type MigrationStatus struct {
	Schema    Schema `json:"schema" yaml:"schema"`
	Version   int    `json:"version" yaml:"version"`
	Available int    `json:"available" yaml:"available"`
	Pending   int    `json:"pending" yaml:"pending"`
}

// MigrationStatus reports the applied and available migration counts.
func (db *DB) MigrationStatus(ctx context.Context, schema Schema) (MigrationStatus, error) {
	all, err := db.migrations(schema).List()
	if err != nil {
		return MigrationStatus{}, fmt.Errorf("failed to list migrations: %w", err)
	}

	st := MigrationStatus{Schema: schema, Available: len(all)}
	exists, err := db.tableExists(ctx, "schema_version")
	if err != nil {
		return MigrationStatus{}, err
	}
	if exists {
		v, err := migrate.New(db.DB, db.dialect()).CurrentSchemaVersion(ctx)
		if err != nil {
			return MigrationStatus{}, fmt.Errorf("failed to read schema version: %w", err)
		}
		st.Version = v.Version
	}
	if st.Available > st.Version {
		st.Pending = st.Available - st.Version
	}
	return st, nil
}

// RequiresMigrationError returns a descriptive error when schema has pending
// migrations, or nil when it is up to date.
func (db *DB) RequiresMigrationError(ctx context.Context, schema Schema) error {
	st, err := db.MigrationStatus(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to check migration status: %w", err)
	}
	if st.Pending == 0 {
		return nil
	}
	return fmt.Errorf("database at %s (version: %d) requires migration: %d pending migration(s). Run 'schoolmig schema apply --%s' to update",
		db.Path(), st.Version, st.Pending, schema)
}

// TableExists reports whether a table is present.
func (db *DB) TableExists(ctx context.Context, table string) (bool, error) {
	return db.tableExists(ctx, table)
}

func (db *DB) tableExists(ctx context.Context, table string) (bool, error) {
	var query string
	if db.IsPostgres() {
		query = `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1`
	} else {
		query = `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
	}
	var n int
	if err := db.QueryRowContext(ctx, query, table).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check for table %s: %w", table, err)
	}
	return n > 0, nil
}
