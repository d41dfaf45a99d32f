package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// TargetTables lists the V2 tables in dependency order.
var TargetTables = []string{
	"grade_systems", "grades", "curriculums", "class_levels",
	"schools", "academic_years", "school_classes",
	"users", "school_admins", "teachers", "parents", "students", "student_parents",
}

// SourceTables lists the V1 tables.
var SourceTables = []string{"School", "Teacher", "Parent", "Student"}

// TableStat is the row count and id high-water mark of one table.
type TableStat struct {
	Table string `json:"table" yaml:"table"`
	Rows  int64  `json:"rows" yaml:"rows"`
	MaxID int64  `json:"max_id" yaml:"max_id"`
}

// TableStats returns row counts for the target tables. Table names come from
// TargetTables only.
func (db *DB) TableStats(ctx context.Context) ([]TableStat, error) {
	stats := make([]TableStat, 0, len(TargetTables))
	for _, table := range TargetTables {
		var st TableStat
		st.Table = table
		query := fmt.Sprintf("SELECT COUNT(*), COALESCE(MAX(id), 0) FROM %s", table)
		if err := db.QueryRowContext(ctx, query).Scan(&st.Rows, &st.MaxID); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		stats = append(stats, st)
	}
	return stats, nil
}

// SequenceDrift is a SQLite AUTOINCREMENT sequence that is behind the
// highest existing id, which makes the next insert collide.
type SequenceDrift struct {
	Table    string `json:"table" yaml:"table"`
	MaxID    int64  `json:"max_id" yaml:"max_id"`
	SeqValue int64  `json:"seq_value" yaml:"seq_value"`
}

// SequenceDrifts returns target tables whose sqlite_sequence value is below
// the max existing id. It returns nothing for PostgreSQL.
func (db *DB) SequenceDrifts(ctx context.Context) ([]SequenceDrift, error) {
	drifts := []SequenceDrift{}
	if db.IsPostgres() {
		return drifts, nil
	}

	stats, err := db.TableStats(ctx)
	if err != nil {
		return nil, err
	}
	for _, st := range stats {
		seq, err := db.currentSequence(ctx, st.Table)
		if err != nil {
			return nil, fmt.Errorf("failed to read sqlite_sequence for %s: %w", st.Table, err)
		}
		if seq < st.MaxID {
			drifts = append(drifts, SequenceDrift{Table: st.Table, MaxID: st.MaxID, SeqValue: seq})
		}
	}
	return drifts, nil
}

// FixSequenceDrifts raises drifted sequences to the max existing id.
func (db *DB) FixSequenceDrifts(ctx context.Context) ([]SequenceDrift, error) {
	drifts, err := db.SequenceDrifts(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range drifts {
		res, err := db.ExecContext(ctx, "UPDATE sqlite_sequence SET seq = ? WHERE name = ?", d.MaxID, d.Table)
		if err != nil {
			return nil, fmt.Errorf("failed to update sqlite_sequence for %s: %w", d.Table, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			continue
		}
		if _, err := db.ExecContext(ctx, "INSERT INTO sqlite_sequence (name, seq) VALUES (?, ?)", d.Table, d.MaxID); err != nil {
			return nil, fmt.Errorf("failed to insert sqlite_sequence for %s: %w", d.Table, err)
		}
	}
	return drifts, nil
}

func (db *DB) currentSequence(ctx context.Context, table string) (int64, error) {
	var seq sql.NullInt64
	err := db.QueryRowContext(ctx, "SELECT seq FROM sqlite_sequence WHERE name = ?", table).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return seq.Int64, nil
}
