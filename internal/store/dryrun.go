package store

import (
	"context"
	"fmt"
	"sort"
)

// PlannedInsert is an insert recorded by DryRun instead of being executed.
type PlannedInsert struct {
	Table  string `json:"table" yaml:"table"`
	ID     int64  `json:"id" yaml:"id"`
	Fields Fields `json:"fields" yaml:"fields"`
}

// DryRun records inserts instead of writing them. Reads go to the wrapped
// store. Exists also consults the recorded values so uniqueness repair
// behaves as it would in a real run. Recorded ids are negative so they can
// never be mistaken for real rows.
type DryRun struct {
	inner   Store
	planned []PlannedInsert
	counts  map[string]int64
	values  map[string]map[string]struct{}
}

// NewDryRun wraps inner.
func NewDryRun(inner Store) *DryRun {
	return &DryRun{
		inner:  inner,
		counts: make(map[string]int64),
		values: make(map[string]map[string]struct{}),
	}
}

// Query implements Store by delegating to the wrapped store.
func (d *DryRun) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	return d.inner.Query(ctx, query, args...)
}

// Insert implements Store by recording the row.
func (d *DryRun) Insert(_ context.Context, table string, fields Fields) (int64, error) {
	if _, _, err := insertSQL(table, fields); err != nil {
		return 0, err
	}
	d.counts[table]++
	id := -d.counts[table]

	copied := make(Fields, len(fields))
	for c, v := range fields {
		copied[c] = v
		if v != nil {
			d.mark(table, c, v)
		}
	}
	d.planned = append(d.planned, PlannedInsert{Table: table, ID: id, Fields: copied})
	return id, nil
}

// Exists implements Store.
func (d *DryRun) Exists(ctx context.Context, table, column string, value any) (bool, error) {
	if err := checkColumn(table, column); err != nil {
		return false, err
	}
	if _, ok := d.values[valueKey(table, column)][fmt.Sprint(value)]; ok {
		return true, nil
	}
	return d.inner.Exists(ctx, table, column, value)
}

// Planned returns the recorded inserts in order.
func (d *DryRun) Planned() []PlannedInsert {
	return append([]PlannedInsert(nil), d.planned...)
}

// TableCount is the number of planned inserts for one table.
type TableCount struct {
	Table string `json:"table" yaml:"table"`
	Rows  int64  `json:"rows" yaml:"rows"`
}

// Counts returns planned insert counts per table, sorted by table name.
func (d *DryRun) Counts() []TableCount {
	out := make([]TableCount, 0, len(d.counts))
	for t, n := range d.counts {
		out = append(out, TableCount{Table: t, Rows: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Table < out[j].Table })
	return out
}

func (d *DryRun) mark(table, column string, v any) {
	key := valueKey(table, column)
	set, ok := d.values[key]
	if !ok {
		set = make(map[string]struct{})
		d.values[key] = set
	}
	set[fmt.Sprint(v)] = struct{}{}
}

func valueKey(table, column string) string {
	return table + "." + column
}
