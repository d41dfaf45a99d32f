package id

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const sessionLayout = "20060102_150405"

var (
	sessionIDPattern = regexp.MustCompile(`^migration_\d{8}_\d{6}$`)
	uuidPattern      = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
)

// FormatSession formats the default session identifier for a run started at t.
func FormatSession(t time.Time) string {
	return "migration_" + t.Format(sessionLayout)
}

// ParseSession extracts the start time from a default session identifier.
// Custom identifiers supplied by the operator do not parse.
func ParseSession(id string) (time.Time, error) {
	id = strings.TrimSpace(id)
	if !sessionIDPattern.MatchString(id) {
		return time.Time{}, fmt.Errorf("invalid session ID format: %s", id)
	}
	return time.ParseInLocation(sessionLayout, strings.TrimPrefix(id, "migration_"), time.Local)
}

// NewUUID returns a lowercase random UUID for V2 rows that carry one.
func NewUUID() string {
	return uuid.New().String()
}

// IsUUID checks if a string is a valid lowercase UUID
func IsUUID(s string) bool {
	return uuidPattern.MatchString(s)
}
