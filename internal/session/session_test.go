package session

import (
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/lherron/schoolmig/internal/domain"
)

func fixedClock(start time.Time) func() time.Time {
	now := start
	return func() time.Time {
		t := now
		now = now.Add(time.Second)
		return t
	}
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	return New(WithClock(fixedClock(time.Date(2025, 1, 15, 9, 30, 0, 0, time.Local))))
}

func TestNewDefaultID(t *testing.T) {
	s := newTestSession(t)
	if s.ID() != "migration_20250115_093000" {
		t.Errorf("ID() = %q", s.ID())
	}
	if s.Phase() != domain.PhaseInitialization {
		t.Errorf("Phase() = %s, want initialization", s.Phase())
	}

	custom := New(WithID("nightly-7"))
	if custom.ID() != "nightly-7" {
		t.Errorf("ID() = %q, want nightly-7", custom.ID())
	}
}

func TestAddMappingSchoolThenTeacher(t *testing.T) {
	s := newTestSession(t)

	if _, err := s.AddMapping(domain.KindSchool, "1", 100, 0, Metadata{"name": "Acme"}); err != nil {
		t.Fatalf("AddMapping(school) error: %v", err)
	}
	if !s.SchoolExists(100) {
		t.Fatal("SchoolExists(100) = false after school mapping")
	}
	if got := s.Members(domain.KindTeacher, 100); len(got) != 0 {
		t.Fatalf("new school should start with empty teacher set, got %v", got)
	}

	m, err := s.AddMapping(domain.KindTeacher, "5", 501, 100, Metadata{"email": "t@acme.com"})
	if err != nil {
		t.Fatalf("AddMapping(teacher) error: %v", err)
	}
	if m.SchoolID != 100 {
		t.Errorf("teacher SchoolID = %d, want 100", m.SchoolID)
	}

	if diff := cmp.Diff([]int64{501}, s.Members(domain.KindTeacher, 100)); diff != "" {
		t.Errorf("teacher registry mismatch (-want +got):\n%s", diff)
	}
	if newID, ok := s.ResolveNewID(domain.KindTeacher, "5"); !ok || newID != 501 {
		t.Errorf("ResolveNewID(teacher, 5) = %d, %v", newID, ok)
	}
	if got := s.Counters(domain.KindTeacher).Migrated; got != 1 {
		t.Errorf("teacher migrated counter = %d, want 1", got)
	}
}

func TestAddMappingRejectsUnknownSchool(t *testing.T) {
	s := newTestSession(t)
	if _, err := s.AddMapping(domain.KindSchool, "1", 100, 0, nil); err != nil {
		t.Fatal(err)
	}

	_, err := s.AddMapping(domain.KindStudent, "9", 900, 999, nil)
	var violation *domain.PrerequisiteViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected PrerequisiteViolationError, got %v", err)
	}
	if violation.SchoolID != 999 {
		t.Errorf("violation.SchoolID = %d, want 999", violation.SchoolID)
	}

	if s.Count(domain.KindStudent) != 0 {
		t.Error("rejected mapping must not be recorded")
	}
	if _, ok := s.ResolveNewID(domain.KindStudent, "9"); ok {
		t.Error("rejected mapping must not resolve")
	}
	if got := s.Counters(domain.KindStudent).Migrated; got != 0 {
		t.Errorf("migrated counter = %d, want 0", got)
	}
	if len(s.Errors()) != 1 {
		t.Errorf("expected violation to be recorded as a session error, got %v", s.Errors())
	}
}

func TestAddMappingRejectsDuplicates(t *testing.T) {
	s := newTestSession(t)
	if _, err := s.AddMapping(domain.KindSchool, "1", 100, 0, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddMapping(domain.KindParent, "p1", 10, 100, nil); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		oldID string
		newID int64
	}{
		{name: "same new id", oldID: "p2", newID: 10},
		{name: "same old id", oldID: "p1", newID: 11},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.AddMapping(domain.KindParent, tt.oldID, tt.newID, 100, nil)
			var dup *domain.DuplicateMappingError
			if !errors.As(err, &dup) {
				t.Fatalf("expected DuplicateMappingError, got %v", err)
			}
		})
	}

	// The same new id is fine across kinds.
	if _, err := s.AddMapping(domain.KindTeacher, "t1", 10, 100, nil); err != nil {
		t.Errorf("new id reuse across kinds rejected: %v", err)
	}
	if got := s.Members(domain.KindParent, 100); len(got) != 1 {
		t.Errorf("parent registry = %v, want one member", got)
	}
}

func TestResolveNewIDAbsent(t *testing.T) {
	s := newTestSession(t)
	if _, ok := s.ResolveNewID(domain.KindSchool, "missing"); ok {
		t.Error("ResolveNewID on empty session returned ok")
	}
	if _, ok := s.ResolveNewID(domain.EntityKind("course"), "1"); ok {
		t.Error("ResolveNewID on unknown kind returned ok")
	}
}

func TestRegistryRoundTrip(t *testing.T) {
	s := newTestSession(t)
	for i, school := range []int64{100, 200} {
		if _, err := s.AddMapping(domain.KindSchool, strconv.Itoa(i+1), school, 0, nil); err != nil {
			t.Fatal(err)
		}
	}

	const n = 25
	for i := 0; i < n; i++ {
		school := int64(100)
		if i%5 == 0 {
			school = 200
		}
		if _, err := s.AddMapping(domain.KindStudent, "s"+strconv.Itoa(i), int64(1000+i), school, nil); err != nil {
			t.Fatal(err)
		}
	}

	total := 0
	for _, school := range s.SchoolIDs() {
		members := s.Members(domain.KindStudent, school)
		total += len(members)
		for _, newID := range members {
			m, ok := s.LookupNew(domain.KindStudent, newID)
			if !ok {
				t.Fatalf("registry member %d missing from mapper", newID)
			}
			if m.SchoolID != school {
				t.Errorf("member %d registered under %d but mapped to %d", newID, school, m.SchoolID)
			}
		}
	}
	if total != n {
		t.Errorf("registry holds %d students, want %d", total, n)
	}
	if got := len(s.Members(domain.KindStudent, 200)); got != 5 {
		t.Errorf("school 200 has %d students, want 5", got)
	}
}

func TestEnterPhase(t *testing.T) {
	t.Run("dependent phase without schools", func(t *testing.T) {
		s := newTestSession(t)
		if err := s.EnterPhase(domain.PhaseSchools); err != nil {
			t.Fatal(err)
		}
		err := s.EnterPhase(domain.PhaseTeachers)
		var prereq *domain.PhasePrerequisiteError
		if !errors.As(err, &prereq) {
			t.Fatalf("expected PhasePrerequisiteError, got %v", err)
		}
		if s.Phase() != domain.PhaseSchools {
			t.Errorf("failed transition moved phase to %s", s.Phase())
		}
		if errs := s.Errors(); len(errs) != 1 || !strings.Contains(errs[0], "No schools migrated") {
			t.Errorf("Errors() = %v", errs)
		}
	})

	t.Run("students without parents warns", func(t *testing.T) {
		s := newTestSession(t)
		if _, err := s.AddMapping(domain.KindSchool, "1", 100, 0, nil); err != nil {
			t.Fatal(err)
		}
		if err := s.EnterPhase(domain.PhaseStudents); err != nil {
			t.Fatalf("EnterPhase(students) error: %v", err)
		}
		if len(s.Warnings()) != 1 {
			t.Errorf("expected one warning, got %v", s.Warnings())
		}
	})

	t.Run("phases only move forward", func(t *testing.T) {
		s := newTestSession(t)
		if _, err := s.AddMapping(domain.KindSchool, "1", 100, 0, nil); err != nil {
			t.Fatal(err)
		}
		for _, p := range []domain.Phase{domain.PhaseSchools, domain.PhaseCurriculums, domain.PhaseTeachers} {
			if err := s.EnterPhase(p); err != nil {
				t.Fatalf("EnterPhase(%s) error: %v", p, err)
			}
		}
		for _, p := range []domain.Phase{domain.PhaseTeachers, domain.PhaseSchools} {
			var order *domain.PhaseOrderError
			if err := s.EnterPhase(p); !errors.As(err, &order) {
				t.Errorf("EnterPhase(%s) = %v, want PhaseOrderError", p, err)
			}
		}
	})
}

func TestAssignCurriculumRequiresSchool(t *testing.T) {
	s := newTestSession(t)
	err := s.AssignCurriculum(CurriculumAssignment{SchoolID: 7, CurriculumID: 1, Validated: true})
	var violation *domain.PrerequisiteViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected PrerequisiteViolationError, got %v", err)
	}

	if _, err := s.AddMapping(domain.KindSchool, "1", 7, 0, nil); err != nil {
		t.Fatal(err)
	}
	want := CurriculumAssignment{SchoolID: 7, CurriculumID: 1, CurriculumName: "cambridge", GradeSystemID: 3, Validated: true}
	if err := s.AssignCurriculum(want); err != nil {
		t.Fatalf("AssignCurriculum() error: %v", err)
	}
	got, ok := s.Curriculum(7)
	if !ok {
		t.Fatal("Curriculum(7) not found")
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("assignment mismatch (-want +got):\n%s", diff)
	}
}

func TestSummary(t *testing.T) {
	s := newTestSession(t)
	if _, err := s.AddMapping(domain.KindSchool, "1", 100, 0, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddMapping(domain.KindSchool, "2", 200, 0, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddMapping(domain.KindTeacher, "t", 1, 100, nil); err != nil {
		t.Fatal(err)
	}
	s.SetTotal(domain.KindTeacher, 2)
	s.RecordFailure(domain.KindTeacher, "teacher x: no school mapping")
	s.AddWarning("something odd")

	sum := s.Summary()
	if sum.Counts[domain.KindTeacher] != (Counters{Migrated: 1, Failed: 1, Total: 2}) {
		t.Errorf("teacher counters = %+v", sum.Counts[domain.KindTeacher])
	}
	if sum.Mapped[domain.KindSchool] != 2 {
		t.Errorf("mapped schools = %d", sum.Mapped[domain.KindSchool])
	}
	if sum.SchoolsWith != (SchoolCoverage{Total: 2, Teachers: 1}) {
		t.Errorf("coverage = %+v", sum.SchoolsWith)
	}
	if sum.Errors != 1 || sum.Warnings != 1 {
		t.Errorf("errors/warnings = %d/%d", sum.Errors, sum.Warnings)
	}
	if sum.Elapsed <= 0 {
		t.Errorf("elapsed = %v, want > 0", sum.Elapsed)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s := newTestSession(t)
	if _, err := s.AddMapping(domain.KindSchool, "1", 100, 0, Metadata{"name": "Acme"}); err != nil {
		t.Fatal(err)
	}
	snap := s.Snapshot()
	snap.Mappings[domain.KindSchool][0].Metadata["name"] = "changed"

	m, _ := s.Lookup(domain.KindSchool, "1")
	if m.Metadata["name"] != "Acme" {
		t.Errorf("snapshot mutation leaked into session: %q", m.Metadata["name"])
	}
	if _, ok := snap.SchoolSet()[100]; !ok {
		t.Error("SchoolSet() missing school 100")
	}
}
