package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorCounts(t *testing.T) {
	c := NewCollector()
	c.Record("teacher", "migrated")
	c.Record("teacher", "migrated")
	c.Record("teacher", "failed")
	c.Issues("preflight", 0, 3)

	if got := testutil.ToFloat64(c.records.WithLabelValues("teacher", "migrated")); got != 2 {
		t.Errorf("migrated teachers = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.records.WithLabelValues("teacher", "failed")); got != 1 {
		t.Errorf("failed teachers = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.validationIssues.WithLabelValues("preflight", "warning")); got != 3 {
		t.Errorf("preflight warnings = %v, want 3", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	c := NewCollector()
	c.Record("school", "migrated")
	c.ObservePhase("schools", 1500*time.Millisecond)

	path := filepath.Join(t.TempDir(), "schoolmig.prom")
	if err := c.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	for _, want := range []string{
		`schoolmig_records_total{kind="school",outcome="migrated"} 1`,
		`schoolmig_phase_duration_seconds_count{phase="schools"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("textfile missing %q:\n%s", want, out)
		}
	}
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	c.Record("school", "migrated")
	c.ObservePhase("schools", time.Second)
	c.Issues("postflight", 1, 1)
	if err := c.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")); err != nil {
		t.Errorf("nil collector WriteTextfile() error: %v", err)
	}
}
