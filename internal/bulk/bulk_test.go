package bulk

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
	"testing"
)

type record struct {
	id   int
	name string
}

func recordKey(r record) string { return strconv.Itoa(r.id) }

func TestRunPreservesOrder(t *testing.T) {
	items := []record{{1, "a"}, {2, "b"}, {3, "c"}, {4, "d"}, {5, "e"}}
	var executed []string

	result := Run(Operation{}, items, recordKey, func(r record) error {
		executed = append(executed, r.name)
		return nil
	})

	if result.TotalItems != 5 {
		t.Errorf("Expected 5 total items, got %d", result.TotalItems)
	}
	if result.Succeeded != 5 {
		t.Errorf("Expected 5 successes, got %d", result.Succeeded)
	}
	if result.Failed != 0 {
		t.Errorf("Expected 0 failures, got %d", result.Failed)
	}
	if got := strings.Join(executed, ""); got != "abcde" {
		t.Errorf("Order not preserved: got %s", got)
	}
}

func TestContinueOnError(t *testing.T) {
	items := []record{{1, "a"}, {2, "b"}, {3, "c"}, {4, "d"}, {5, "e"}}

	result := Run(Operation{ContinueOnError: true}, items, recordKey, func(r record) error {
		if r.name == "c" {
			return errors.New("simulated error")
		}
		return nil
	})

	if result.Succeeded != 4 {
		t.Errorf("Expected 4 successes, got %d", result.Succeeded)
	}
	if result.Failed != 1 {
		t.Errorf("Expected 1 failure, got %d", result.Failed)
	}
	if len(result.Errors) != 1 || result.Errors[0].Item != "3" {
		t.Fatalf("Expected one error keyed '3', got %+v", result.Errors)
	}
}

func TestStopOnError(t *testing.T) {
	items := []record{{1, "a"}, {2, "b"}, {3, "c"}, {4, "d"}, {5, "e"}}
	executed := 0

	result := Run(Operation{}, items, recordKey, func(r record) error {
		executed++
		if r.name == "c" {
			return errors.New("simulated error")
		}
		return nil
	})

	if result.Succeeded != 2 {
		t.Errorf("Expected 2 successes, got %d", result.Succeeded)
	}
	if result.Failed != 1 {
		t.Errorf("Expected 1 failure, got %d", result.Failed)
	}
	if executed != 3 {
		t.Errorf("Expected execution to stop after 3 items, got %d", executed)
	}
}

func TestProgressSkippedWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	op := Operation{ShowProgress: true, Progress: &buf}

	Run(op, []record{{1, "a"}}, recordKey, func(record) error { return nil })

	if buf.Len() != 0 {
		t.Errorf("Expected no progress output on a non-terminal, got %q", buf.String())
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name     string
		result   *Result
		expected int
	}{
		{
			name:     "all succeeded",
			result:   &Result{TotalItems: 10, Succeeded: 10},
			expected: 0,
		},
		{
			name:     "partial success",
			result:   &Result{TotalItems: 10, Succeeded: 7, Failed: 3},
			expected: 5,
		},
		{
			name:     "all failed",
			result:   &Result{TotalItems: 10, Failed: 10},
			expected: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := tt.result.ExitCode()
			if code != tt.expected {
				t.Errorf("Expected exit code %d, got %d", tt.expected, code)
			}
		})
	}
}

func TestEmptyItems(t *testing.T) {
	result := Run(Operation{}, []record{}, recordKey, func(record) error {
		t.Fatal("fn called for empty input")
		return nil
	})

	if result.TotalItems != 0 || result.Succeeded != 0 {
		t.Errorf("Expected empty result, got %+v", result)
	}
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	r := &Result{TotalItems: 3, Succeeded: 2, Failed: 1, Errors: []ItemError{{Item: "7", Error: errors.New("no school mapping")}}}
	r.PrintSummary(&buf, "teachers")

	out := buf.String()
	if !strings.Contains(out, "2 teachers migrated, 1 failed (out of 3)") {
		t.Errorf("summary missing counts: %q", out)
	}
	if !strings.Contains(out, "7: no school mapping") {
		t.Errorf("summary missing error line: %q", out)
	}
}
