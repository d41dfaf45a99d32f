// Package bulk drives a per-record function over a batch of source records,
// one at a time and in order, capturing per-item errors and optionally
// drawing a progress bar on a terminal.
package bulk

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// Operation represents a bulk operation configuration
type Operation struct {
	ContinueOnError bool
	ShowProgress    bool
	// Progress receives the progress bar. Defaults to os.Stderr.
	Progress io.Writer
}

// Result represents the result of a bulk operation
type Result struct {
	TotalItems int
	Succeeded  int
	Failed     int
	Errors     []ItemError
}

// ItemError represents an error for a specific item
type ItemError struct {
	Item  string
	Error error
}

// Run applies fn to every item in order. Items are never processed
// concurrently: fn may mutate state shared between records.
func Run[T any](op Operation, items []T, key func(T) string, fn func(T) error) *Result {
	result := &Result{
		TotalItems: len(items),
	}
	if len(items) == 0 {
		return result
	}

	out := op.Progress
	if out == nil {
		out = os.Stderr
	}
	progress := op.ShowProgress && isTerminal(out)

	for i, item := range items {
		if progress {
			pct := (i + 1) * 100 / len(items)
			fmt.Fprintf(out, "\rProcessing [%s] %d/%d (✓ %d ✗ %d)",
				progressBar(pct, 20), i+1, len(items), result.Succeeded, result.Failed)
		}

		if err := fn(item); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, ItemError{
				Item:  key(item),
				Error: err,
			})
			if !op.ContinueOnError {
				break
			}
			continue
		}
		result.Succeeded++
	}

	// Clear progress line
	if progress {
		fmt.Fprintf(out, "\r\033[K")
	}

	return result
}

// ExitCode returns the appropriate exit code for the result
func (r *Result) ExitCode() int {
	if r.Failed == 0 {
		return 0 // All succeeded
	}
	if r.Succeeded > 0 {
		return 5 // Partial success
	}
	return 1 // All failed
}

// PrintSummary prints a human-readable summary of the result
func (r *Result) PrintSummary(w io.Writer, label string) {
	if r.Failed == 0 {
		fmt.Fprintf(w, "✓ All %d %s migrated\n", r.TotalItems, label)
	} else if r.Succeeded == 0 {
		fmt.Fprintf(w, "✗ All %d %s failed\n", r.TotalItems, label)
	} else {
		fmt.Fprintf(w, "⚠ Partial success: %d %s migrated, %d failed (out of %d)\n",
			r.Succeeded, label, r.Failed, r.TotalItems)
	}

	if len(r.Errors) > 0 && len(r.Errors) <= 10 {
		fmt.Fprintf(w, "Errors:\n")
		for _, e := range r.Errors {
			fmt.Fprintf(w, "  %s: %v\n", e.Item, e.Error)
		}
	} else if len(r.Errors) > 10 {
		fmt.Fprintf(w, "Showing first 10 errors (of %d):\n", len(r.Errors))
		for _, e := range r.Errors[:10] {
			fmt.Fprintf(w, "  %s: %v\n", e.Item, e.Error)
		}
	}
}

// progressBar creates a simple ASCII progress bar
func progressBar(percent, width int) string {
	filled := percent * width / 100
	if filled > width {
		filled = width
	}
	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return bar
}

// isTerminal checks if the writer is a terminal
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
