// Package events writes the audit trail of a migration run: one JSON object
// per line for every record outcome.
package events

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/lherron/schoolmig/internal/domain"
)

// Outcome of a single source record.
type Outcome string

const (
	OutcomeMigrated Outcome = "migrated"
	OutcomeFailed   Outcome = "failed"
	// OutcomeOrphaned marks target rows that were written but whose mapping
	// was rejected. They need manual cleanup.
	OutcomeOrphaned Outcome = "orphaned"
)

// Event is one line of the audit trail.
type Event struct {
	Timestamp time.Time         `json:"ts"`
	SessionID string            `json:"session_id"`
	Kind      domain.EntityKind `json:"kind"`
	OldID     string            `json:"old_id"`
	NewID     int64             `json:"new_id,omitempty"`
	Outcome   Outcome           `json:"outcome"`
	Reason    string            `json:"reason,omitempty"`
}

// Writer handles writing events to the audit trail. A nil *Writer discards
// everything.
type Writer struct {
	mu        sync.Mutex
	enc       *json.Encoder
	closer    io.Closer
	sessionID string
	now       func() time.Time
}

// NewWriter creates a new event writer
func NewWriter(w io.Writer, sessionID string) *Writer {
	return &Writer{enc: json.NewEncoder(w), sessionID: sessionID, now: time.Now}
}

// Open appends to the audit file at path, creating it if needed.
func Open(path, sessionID string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit file: %w", err)
	}
	w := NewWriter(f, sessionID)
	w.closer = f
	return w, nil
}

// WithClock replaces the timestamp source.
func (w *Writer) WithClock(now func() time.Time) *Writer {
	if w != nil && now != nil {
		w.now = now
	}
	return w
}

// LogEvent writes an event to the audit trail. Timestamp and session id are
// filled in when empty.
func (w *Writer) LogEvent(event Event) error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = w.now().UTC()
	}
	if event.SessionID == "" {
		event.SessionID = w.sessionID
	}
	if err := w.enc.Encode(event); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return nil
}

// Close closes the underlying file when the writer was opened with Open.
func (w *Writer) Close() error {
	if w == nil || w.closer == nil {
		return nil
	}
	return w.closer.Close()
}

// Read decodes an audit trail.
func Read(r io.Reader) ([]Event, error) {
	dec := json.NewDecoder(r)
	var out []Event
	for dec.More() {
		var e Event
		if err := dec.Decode(&e); err != nil {
			return nil, fmt.Errorf("failed to decode event %d: %w", len(out)+1, err)
		}
		out = append(out, e)
	}
	return out, nil
}
