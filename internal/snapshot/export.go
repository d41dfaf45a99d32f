package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/lherron/schoolmig/internal/session"
)

// FromSession builds a snapshot from session state.
func FromSession(snap session.Snapshot, dryRun bool) *Snapshot {
	s := &Snapshot{
		Meta: Meta{
			SchemaVersion: SchemaVersion,
			SessionID:     snap.SessionID,
			Phase:         snap.Phase.String(),
			DryRun:        dryRun,
		},
		Mappings: make(map[string]map[string]Entry, len(snap.Mappings)),
	}

	for kind, mappings := range snap.Mappings {
		entries := make(map[string]Entry, len(mappings))
		for _, m := range mappings {
			entries[m.OldID] = Entry{
				NewID:     m.NewID,
				SchoolID:  m.SchoolID,
				Metadata:  m.Metadata,
				CreatedAt: FormatTimestamp(m.CreatedAt),
			}
		}
		s.Mappings[string(kind)] = entries
	}

	if len(snap.Curricula) > 0 {
		s.Curricula = make(map[string]CurriculumEntry, len(snap.Curricula))
		for schoolID, a := range snap.Curricula {
			s.Curricula[strconv.FormatInt(schoolID, 10)] = CurriculumEntry{
				CurriculumID:   a.CurriculumID,
				CurriculumName: a.CurriculumName,
				GradeSystemID:  a.GradeSystemID,
			}
		}
	}
	return s
}

// Write stamps s with its revision and generation time and writes it to
// path as indented JSON. The file is replaced atomically.
func Write(path string, s *Snapshot, now time.Time) (string, error) {
	canonical, err := CanonicalJSON(s)
	if err != nil {
		return "", err
	}
	s.Meta.SnapshotRev = ComputeSnapshotRev(canonical)
	s.Meta.GeneratedAt = FormatTimestamp(now)

	data, err := PrettyJSON(s)
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*")
	if err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}
	return s.Meta.SnapshotRev, nil
}

// Load reads a snapshot file and verifies its revision.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	if err := Verify(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Verify checks the schema version and that snapshot_rev matches the
// content.
func Verify(s *Snapshot) error {
	if s.Meta.SchemaVersion < 1 || s.Meta.SchemaVersion > SchemaVersion {
		return fmt.Errorf("unsupported schema_version: %d", s.Meta.SchemaVersion)
	}
	if s.Meta.SnapshotRev == "" {
		return fmt.Errorf("snapshot has no snapshot_rev")
	}
	canonical, err := CanonicalJSON(s)
	if err != nil {
		return err
	}
	if rev := ComputeSnapshotRev(canonical); rev != s.Meta.SnapshotRev {
		return fmt.Errorf("snapshot_rev mismatch: file says %s, content is %s", s.Meta.SnapshotRev, rev)
	}
	return nil
}
