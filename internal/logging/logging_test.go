package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"go.uber.org/zap"
)

func TestNewWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWriter(&buf, "info", "")
	if err != nil {
		t.Fatalf("NewWriter() error: %v", err)
	}
	log.Debug("hidden")
	log.Info("phase complete", zap.String("phase", "schools"), zap.Int("migrated", 3))
	_ = log.Sync()

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected a single JSON line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "phase complete" || entry["phase"] != "schools" || entry["migrated"] != float64(3) {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestNewWriterRejectsBadInput(t *testing.T) {
	tests := []struct {
		name   string
		level  string
		format string
	}{
		{"bad level", "loud", "json"},
		{"bad format", "info", "xml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewWriter(&bytes.Buffer{}, tt.level, tt.format); err == nil {
				t.Error("expected error")
			}
		})
	}
}
