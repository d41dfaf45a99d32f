// Package snapshot provides canonical JSON snapshots of the identity
// mappings produced by a migration run.
//
// A snapshot lists, per entity kind, every V1 id and the V2 id it was
// mapped to, plus the curriculum chosen for each school. Downstream jobs
// load it to translate legacy ids without access to the session.
package snapshot

import (
	"time"
)

// SchemaVersion is the current snapshot format version.
const SchemaVersion = 1

// Snapshot is the canonical state of a run's identity mappings.
type Snapshot struct {
	Meta Meta `json:"meta"`
	// Mappings is kind -> V1 id -> entry.
	Mappings map[string]map[string]Entry `json:"mappings"`
	// Curricula is keyed by the school's V2 id.
	Curricula map[string]CurriculumEntry `json:"curricula,omitempty"`
}

// Meta contains snapshot metadata.
type Meta struct {
	SchemaVersion int    `json:"schema_version"`
	SessionID     string `json:"session_id"`
	Phase         string `json:"phase"`
	DryRun        bool   `json:"dry_run"`
	SnapshotRev   string `json:"snapshot_rev,omitempty"`
	GeneratedAt   string `json:"generated_at,omitempty"`
}

// Entry is one identity mapping.
type Entry struct {
	NewID     int64             `json:"new_id"`
	SchoolID  int64             `json:"school_id,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt string            `json:"created_at"`
}

// CurriculumEntry is the curriculum assigned to a school.
type CurriculumEntry struct {
	CurriculumID   int64  `json:"curriculum_id"`
	CurriculumName string `json:"curriculum_name"`
	GradeSystemID  int64  `json:"grade_system_id"`
}

// Lookup returns the mapping of a V1 id.
func (s *Snapshot) Lookup(kind, oldID string) (Entry, bool) {
	e, ok := s.Mappings[kind][oldID]
	return e, ok
}

// Count returns the number of mappings of a kind.
func (s *Snapshot) Count(kind string) int {
	return len(s.Mappings[kind])
}

// FormatTimestamp formats a time.Time as ISO-8601 with Z suffix.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

// ParseTimestamp parses an ISO-8601 timestamp.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse("2006-01-02T15:04:05Z", s)
}
