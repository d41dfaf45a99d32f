package snapshot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/lherron/schoolmig/internal/domain"
	"github.com/lherron/schoolmig/internal/session"
)

var created = time.Date(2025, 1, 15, 9, 30, 0, 0, time.UTC)

func testSession(t *testing.T) session.Snapshot {
	t.Helper()
	sess := session.New(session.WithID("migration_20250115_093000"), session.WithClock(func() time.Time { return created }))
	if err := sess.EnterPhase(domain.PhaseSchools); err != nil {
		t.Fatal(err)
	}
	if _, err := sess.AddMapping(domain.KindSchool, "2", 11, 0, session.Metadata{"name": "Hill School"}); err != nil {
		t.Fatal(err)
	}
	if _, err := sess.AddMapping(domain.KindSchool, "1", 10, 0, session.Metadata{"name": "Acme <Academy>"}); err != nil {
		t.Fatal(err)
	}
	if err := sess.AssignCurriculum(session.CurriculumAssignment{SchoolID: 10, CurriculumID: 1, CurriculumName: "Kenya 8-4-4 System", GradeSystemID: 1}); err != nil {
		t.Fatal(err)
	}
	return sess.Snapshot()
}

func TestFromSession(t *testing.T) {
	s := FromSession(testSession(t), true)

	if s.Meta.SessionID != "migration_20250115_093000" || !s.Meta.DryRun || s.Meta.Phase != "schools" {
		t.Errorf("unexpected meta: %+v", s.Meta)
	}
	want := Entry{NewID: 10, Metadata: map[string]string{"name": "Acme <Academy>"}, CreatedAt: "2025-01-15T09:30:00Z"}
	got, ok := s.Lookup("school", "1")
	if !ok {
		t.Fatal("school 1 not in snapshot")
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Lookup mismatch (-want +got):\n%s", diff)
	}
	if s.Count("school") != 2 || s.Count("student") != 0 {
		t.Errorf("counts: school=%d student=%d", s.Count("school"), s.Count("student"))
	}
	if s.Curricula["10"].CurriculumName != "Kenya 8-4-4 System" {
		t.Errorf("curricula = %+v", s.Curricula)
	}
}

func TestCanonicalJSON(t *testing.T) {
	s := FromSession(testSession(t), false)

	data1, err := CanonicalJSON(s)
	if err != nil {
		t.Fatalf("failed to generate canonical JSON: %v", err)
	}
	s.Meta.GeneratedAt = "2030-01-01T00:00:00Z"
	data2, err := CanonicalJSON(s)
	if err != nil {
		t.Fatalf("failed to generate canonical JSON second time: %v", err)
	}
	if string(data1) != string(data2) {
		t.Errorf("canonical JSON depends on generated_at:\n%s\nvs\n%s", data1, data2)
	}

	str := string(data1)
	if strings.Index(str, `"1":`) > strings.Index(str, `"2":`) {
		t.Error("old ids not sorted lexicographically")
	}
	if strings.Contains(str, "\n") {
		t.Error("canonical JSON contains newlines")
	}
	if !strings.Contains(str, "Acme <Academy>") {
		t.Error("canonical JSON should not escape HTML")
	}
}

func TestComputeSnapshotRev(t *testing.T) {
	rev := ComputeSnapshotRev([]byte(`{"test":"data"}`))
	if !strings.HasPrefix(rev, "sha256:") {
		t.Errorf("snapshot_rev should start with 'sha256:', got: %s", rev)
	}
	if rev != ComputeSnapshotRev([]byte(`{"test":"data"}`)) {
		t.Error("same data should produce same rev")
	}
	if rev == ComputeSnapshotRev([]byte(`{"test":"other"}`)) {
		t.Error("different data should produce different rev")
	}
}

func TestWriteLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "mappings.json")
	s := FromSession(testSession(t), false)

	rev, err := Write(path, s, created)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Meta.SnapshotRev != rev || loaded.Meta.GeneratedAt != "2025-01-15T09:30:00Z" {
		t.Errorf("meta = %+v, rev = %s", loaded.Meta, rev)
	}
	if diff := cmp.Diff(s.Mappings, loaded.Mappings); diff != "" {
		t.Errorf("mappings mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadDetectsTampering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mappings.json")
	if _, err := Write(path, FromSession(testSession(t), false), created); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(path)
	tampered := strings.Replace(string(data), `"new_id": 10`, `"new_id": 99`, 1)
	if err := os.WriteFile(path, []byte(tampered), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "snapshot_rev mismatch") {
		t.Errorf("expected rev mismatch, got %v", err)
	}
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name string
		meta Meta
		want string
	}{
		{"zero version", Meta{SnapshotRev: "sha256:x"}, "schema_version"},
		{"future version", Meta{SchemaVersion: SchemaVersion + 1, SnapshotRev: "sha256:x"}, "schema_version"},
		{"no rev", Meta{SchemaVersion: 1}, "no snapshot_rev"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Verify(&Snapshot{Meta: tt.meta})
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Verify() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}
