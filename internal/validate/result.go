// Package validate holds the field-level validators used by the record
// builders, duplicate-value repair, and the pre-flight and post-flight
// validators that bracket a migration run.
package validate

import "fmt"

// Result is the aggregate outcome of a validation pass.
type Result struct {
	IsValid  bool           `json:"is_valid" yaml:"is_valid"`
	Errors   []string       `json:"errors" yaml:"errors"`
	Warnings []string       `json:"warnings" yaml:"warnings"`
	Details  map[string]any `json:"details,omitempty" yaml:"details,omitempty"`
}

// merge appends another result's issues and stores its details under key.
func (r *Result) merge(key string, other Result) {
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
	if key != "" {
		if r.Details == nil {
			r.Details = make(map[string]any)
		}
		r.Details[key] = other.Details
	}
}

func (r *Result) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Result) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *Result) finish() Result {
	r.IsValid = len(r.Errors) == 0
	if r.Errors == nil {
		r.Errors = []string{}
	}
	if r.Warnings == nil {
		r.Warnings = []string{}
	}
	return *r
}

// FieldResult is the per-record outcome of field validation. Errors make the
// record unusable; warnings describe repairs and substitutions.
type FieldResult struct {
	IsValid  bool
	Errors   []string
	Warnings []string
}

func (r *FieldResult) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *FieldResult) warn(msgs ...string) {
	for _, m := range msgs {
		if m != "" {
			r.Warnings = append(r.Warnings, m)
		}
	}
}
