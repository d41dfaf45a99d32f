package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SQLStore implements Store over database/sql. It serves both SQLite
// drivers and lib/pq.
type SQLStore struct {
	db       *sql.DB
	postgres bool
}

// NewSQL wraps db. postgres selects "$n" placeholders.
func NewSQL(db *sql.DB, postgres bool) *SQLStore {
	return &SQLStore{db: db, postgres: postgres}
}

func (s *SQLStore) bind(query string) string {
	if s.postgres {
		return rebind(query)
	}
	return query
}

// Query implements Store.
func (s *SQLStore) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, s.bind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, normalizeRow(cols, values))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

// Insert implements Store.
func (s *SQLStore) Insert(ctx context.Context, table string, fields Fields) (int64, error) {
	query, args, err := insertSQL(table, fields)
	if err != nil {
		return 0, err
	}
	var id int64
	if err := s.db.QueryRowContext(ctx, s.bind(query), args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	return id, nil
}

// Exists implements Store.
func (s *SQLStore) Exists(ctx context.Context, table, column string, value any) (bool, error) {
	query, err := existsSQL(table, column)
	if err != nil {
		return false, err
	}
	var one int
	err = s.db.QueryRowContext(ctx, s.bind(query), value).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check %s.%s: %w", table, column, err)
	}
	return true, nil
}
