// Package store is the database-access collaborator used by the migration
// core: parameterized reads returning rows as field maps, single-row inserts
// returning the generated id, and existence checks for uniqueness repair.
// Table and column names are checked against a whitelist before they are
// placed in SQL text.
package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lherron/schoolmig/internal/db"
)

// Store is implemented by SQLStore, PgxStore and DryRun.
type Store interface {
	// Query runs a read query. Placeholders are written as "?" and rebound
	// for the backend. Row keys are lower-cased.
	Query(ctx context.Context, query string, args ...any) ([]Row, error)
	// Insert writes one row and returns its generated id.
	Insert(ctx context.Context, table string, fields Fields) (int64, error)
	// Exists reports whether any row of table has column = value.
	Exists(ctx context.Context, table, column string, value any) (bool, error)
}

// Fields is the column -> value map of one insert.
type Fields map[string]any

// Columns returns the field names in sorted order.
func (f Fields) Columns() []string {
	cols := make([]string, 0, len(f))
	for c := range f {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// Row is one result row keyed by lower-cased column name.
type Row map[string]any

// String returns the value of key as a string, "" when absent or NULL.
func (r Row) String(key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}

// Int64 returns the value of key as an int64, 0 when absent or not numeric.
func (r Row) Int64(key string) int64 {
	switch v := r[key].(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case []byte:
		n, _ := strconv.ParseInt(string(v), 10, 64)
		return n
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	default:
		return 0
	}
}

// Bool returns the value of key as a bool. SQLite integers and common string
// spellings are accepted.
func (r Row) Bool(key string) bool {
	switch v := r[key].(type) {
	case bool:
		return v
	case int64:
		return v != 0
	case []byte:
		b, _ := strconv.ParseBool(string(v))
		return b
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	default:
		return false
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	time.DateTime,
	time.DateOnly,
}

// Time returns the value of key as a time, zero when absent or unparseable.
func (r Row) Time(key string) time.Time {
	var s string
	switch v := r[key].(type) {
	case time.Time:
		return v
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// normalizeRow lower-cases keys and turns byte slices into strings.
func normalizeRow(cols []string, values []any) Row {
	row := make(Row, len(cols))
	for i, c := range cols {
		v := values[i]
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		row[strings.ToLower(c)] = v
	}
	return row
}

// rebind rewrites "?" placeholders as "$1", "$2", ... for PostgreSQL.
// Question marks inside single-quoted literals are left alone.
func rebind(query string) string {
	if !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	quoted := false
	for _, r := range query {
		switch {
		case r == '\'':
			quoted = !quoted
			b.WriteRune(r)
		case r == '?' && !quoted:
			n++
			b.WriteString("$" + strconv.Itoa(n))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// insertSQL builds the parameterized INSERT ... RETURNING id statement for
// a whitelisted table and columns.
func insertSQL(table string, fields Fields) (string, []any, error) {
	if err := checkTable(table); err != nil {
		return "", nil, err
	}
	cols := fields.Columns()
	if len(cols) == 0 {
		return "", nil, fmt.Errorf("insert into %s: no fields", table)
	}
	args := make([]any, 0, len(cols))
	marks := make([]string, 0, len(cols))
	for _, c := range cols {
		if err := checkColumn(table, c); err != nil {
			return "", nil, err
		}
		args = append(args, fields[c])
		marks = append(marks, "?")
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		table, strings.Join(cols, ", "), strings.Join(marks, ", "))
	return query, args, nil
}

func existsSQL(table, column string) (string, error) {
	if err := checkColumn(table, column); err != nil {
		return "", err
	}
	return fmt.Sprintf("SELECT 1 FROM %s WHERE %s = ? LIMIT 1", table, column), nil
}

// For returns the Store matching how database was opened: PgxStore for a
// pgx pool, SQLStore otherwise.
func For(database *db.DB) Store {
	if pool := database.Pool(); pool != nil {
		return NewPgx(pool)
	}
	return NewSQL(database.DB, database.IsPostgres())
}
