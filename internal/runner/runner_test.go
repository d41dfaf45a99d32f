package runner_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lherron/schoolmig/internal/domain"
	"github.com/lherron/schoolmig/internal/events"
	"github.com/lherron/schoolmig/internal/metrics"
	"github.com/lherron/schoolmig/internal/runner"
	"github.com/lherron/schoolmig/internal/source"
	"github.com/lherron/schoolmig/internal/store"
	"github.com/lherron/schoolmig/internal/testutil"
	"github.com/lherron/schoolmig/internal/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func clock() func() time.Time {
	now := time.Date(2025, 1, 15, 9, 30, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func options() runner.Options {
	return runner.Options{
		Clock:   clock(),
		Fields:  validate.Options{PasswordCost: bcrypt.MinCost},
		Metrics: metrics.NewCollector(),
	}
}

func seed(t *testing.T, namelessSchool bool) (*source.Reader, store.Store, func(string) int) {
	t.Helper()
	src := testutil.TempSource(t)
	target := testutil.TempTarget(t)

	testutil.SeedSchool(t, src, domain.V1School{ID: "1", Name: "Acme Academy", Level: "primary", Email: "a@acme.com", Code: "AC1"})
	testutil.SeedSchool(t, src, domain.V1School{ID: "2", Name: "Hill Cambridge School", Level: "secondary", Type: "international"})
	testutil.SeedTeacher(t, src, domain.V1Teacher{V1Person: domain.V1Person{ID: "5", FirstName: "Tom", LastName: "K", SchoolID: "1", Email: "t@acme.com"}})
	testutil.SeedParent(t, src, domain.V1Parent{V1Person: domain.V1Person{ID: "3", FirstName: "Ann", LastName: "W", SchoolID: "1", Email: "ann@mail.com"}, Relationship: "mother", Occupation: "Nurse", Address: "Nairobi"})
	testutil.SeedStudent(t, src, domain.V1Student{V1Person: domain.V1Person{ID: "8", FirstName: "Mary", LastName: "W", SchoolID: "1"}, AdmissionNumber: "A8", ParentID: "3"})
	if namelessSchool {
		testutil.SeedSchool(t, src, domain.V1School{ID: "9", Level: "primary"})
	}

	count := func(table string) int { return testutil.CountRows(t, target, table) }
	return source.New(store.For(src), 100, nil), store.For(target), count
}

func TestRunMigratesEverything(t *testing.T) {
	src, target, count := seed(t, false)
	var audit bytes.Buffer
	opts := options()
	opts.Audit = events.NewWriter(&audit, "")
	opts.SessionID = "nightly"

	report, err := runner.Run(context.Background(), src, target, opts)
	require.NoError(t, err)

	assert.Equal(t, "nightly", report.SessionID)
	assert.Equal(t, runner.StatusCompleted, report.Status, report.Errors)
	assert.Equal(t, domain.PhaseCompletion, report.Summary.Phase)
	require.Len(t, report.Phases, 4)
	for _, p := range report.Phases {
		assert.True(t, p.Success, "phase %s", p.Phase)
	}
	assert.Equal(t, 2, report.Summary.Counts[domain.KindSchool].Migrated)
	assert.Equal(t, 1, report.Summary.Counts[domain.KindStudent].Migrated)
	assert.Equal(t, 1, report.Links.Linked)
	require.NotNil(t, report.Preflight)
	assert.True(t, report.Preflight.IsValid)
	require.NotNil(t, report.Integrity)
	assert.True(t, report.Integrity.IsValid)
	assert.Equal(t, 2, report.Consistency.TotalSchools)
	assert.Contains(t, report.Consistency.Warnings, "School 'Hill Cambridge School' has no teachers")
	assert.Empty(t, report.Planned)

	assert.Equal(t, 2, count("schools"))
	assert.Equal(t, 3, count("users"))
	assert.Equal(t, 1, count("student_parents"))

	evs, err := events.Read(&audit)
	require.NoError(t, err)
	assert.Len(t, evs, 5)
	for _, e := range evs {
		assert.Equal(t, "nightly", e.SessionID)
		assert.Equal(t, events.OutcomeMigrated, e.Outcome)
	}
}

func TestRunAbortsOnPreflightFailure(t *testing.T) {
	src, target, count := seed(t, true)

	report, err := runner.Run(context.Background(), src, target, options())
	require.Error(t, err)

	var pf *domain.PreflightFailedError
	require.True(t, errors.As(err, &pf))
	assert.True(t, runner.IsPreflightFailure(err))
	assert.Contains(t, pf.Errors, "School ID 9 has no name")
	assert.Equal(t, runner.StatusAborted, report.Status)
	assert.False(t, report.Preflight.IsValid)
	assert.Empty(t, report.Phases)

	for _, table := range []string{"grade_systems", "schools", "users"} {
		assert.Equal(t, 0, count(table), table)
	}
}

func TestRunDryRunWritesNothing(t *testing.T) {
	src, target, count := seed(t, false)
	opts := options()
	opts.DryRun = true

	report, err := runner.Run(context.Background(), src, target, opts)
	require.NoError(t, err)

	assert.True(t, report.DryRun)
	assert.Equal(t, 2, report.Summary.Counts[domain.KindSchool].Migrated)
	planned := map[string]int64{}
	for _, c := range report.Planned {
		planned[c.Table] = c.Rows
	}
	assert.Equal(t, int64(2), planned["schools"])
	assert.Equal(t, int64(3), planned["users"])
	assert.Equal(t, int64(1), planned["student_parents"])

	for _, table := range []string{"grade_systems", "schools", "users", "students"} {
		assert.Equal(t, 0, count(table), table)
	}
}

func TestRunSkipPreflight(t *testing.T) {
	src, target, _ := seed(t, true)
	opts := options()
	opts.SkipPreflight = true

	report, err := runner.Run(context.Background(), src, target, opts)
	require.NoError(t, err)

	assert.Nil(t, report.Preflight)
	assert.Equal(t, runner.StatusCompletedWithErrors, report.Status)
	assert.Equal(t, 1, report.Summary.Counts[domain.KindSchool].Failed)
}
