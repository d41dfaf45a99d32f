package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxStore implements Store over a native pgx pool.
type PgxStore struct {
	pool *pgxpool.Pool
}

// NewPgx wraps pool.
func NewPgx(pool *pgxpool.Pool) *PgxStore {
	return &PgxStore{pool: pool}
}

// Query implements Store.
func (s *PgxStore) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	rows, err := s.pool.Query(ctx, rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.Name
	}

	var out []Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		out = append(out, normalizeRow(cols, values))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

// Insert implements Store.
func (s *PgxStore) Insert(ctx context.Context, table string, fields Fields) (int64, error) {
	query, args, err := insertSQL(table, fields)
	if err != nil {
		return 0, err
	}
	var id int64
	if err := s.pool.QueryRow(ctx, rebind(query), args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	return id, nil
}

// Exists implements Store.
func (s *PgxStore) Exists(ctx context.Context, table, column string, value any) (bool, error) {
	query, err := existsSQL(table, column)
	if err != nil {
		return false, err
	}
	var one int
	err = s.pool.QueryRow(ctx, rebind(query), value).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check %s.%s: %w", table, column, err)
	}
	return true, nil
}
