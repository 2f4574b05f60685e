package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestEntryWritesFieldsAndError(t *testing.T) {
	var buf bytes.Buffer
	InitLogger(&buf, zerolog.DebugLevel, false)
	defer InitLogger(nil, zerolog.InfoLevel, false)

	WithError(errors.New("boom")).WithFields(map[string]interface{}{
		"session_id": "abc",
		"call":       "chain_start",
	}).Error("bridge call failed")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log line %q: %v", buf.String(), err)
	}

	if entry["message"] != "bridge call failed" {
		t.Errorf("Expected message 'bridge call failed', got %v", entry["message"])
	}
	if entry["level"] != "error" {
		t.Errorf("Expected level error, got %v", entry["level"])
	}
	if entry["error"] != "boom" {
		t.Errorf("Expected error field 'boom', got %v", entry["error"])
	}
	if entry["session_id"] != "abc" || entry["call"] != "chain_start" {
		t.Errorf("Expected session_id and call fields, got %v", entry)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitLogger(&buf, zerolog.WarnLevel, false)
	defer InitLogger(nil, zerolog.InfoLevel, false)

	Info("hidden")
	WithField("k", "v").Debug("also hidden")
	Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Expected info/debug entries to be filtered, got %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("Expected warn entry in output, got %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"", zerolog.InfoLevel},
		{"nonsense", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.name); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
