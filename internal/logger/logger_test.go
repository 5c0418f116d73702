package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    Level
		wantErr bool
	}{
		{"trace", LevelTrace, false},
		{"debug", LevelDebug, false},
		{"info", LevelInfo, false},
		{"warn", LevelWarn, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"", LevelInfo, false},       // empty defaults to info
		{"TRACE", LevelTrace, false}, // case-insensitive
		{"Debug", LevelDebug, false},
		{"invalid", 0, true},
		{"fatal", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseLevel(%q) should return error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseLevel(%q) unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

// capture redirects output to a buffer with colors off and restores the
// global state when the test ends.
func capture(t *testing.T, level Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevOut := SetOutput(&buf)
	prevLevel := GlobalLevel()
	SetColored(false)
	SetGlobalLevel(level)
	t.Cleanup(func() {
		SetOutput(prevOut)
		SetGlobalLevel(prevLevel)
		SetColored(true)
	})
	return &buf
}

func TestLoggerFormat(t *testing.T) {
	buf := capture(t, LevelInfo)

	New("fileutil").Error("could not create %q", "/tmp/x")

	line := buf.String()
	if !strings.Contains(line, "[ERROR] [fileutil] could not create \"/tmp/x\"") {
		t.Fatalf("unexpected log line: %q", line)
	}
	if !strings.HasSuffix(line, "\n") {
		t.Fatalf("log line should end with newline: %q", line)
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	buf := capture(t, LevelWarn)
	log := New("test")

	log.Debug("hidden")
	log.Info("hidden")
	log.Warn("shown warn")
	log.Error("shown error")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("messages below the global level were written: %q", out)
	}
	if !strings.Contains(out, "shown warn") || !strings.Contains(out, "shown error") {
		t.Errorf("messages at or above the global level are missing: %q", out)
	}
}

func TestSetOutputNilRestoresStderr(t *testing.T) {
	prev := SetOutput(nil)
	defer SetOutput(prev)

	if got := SetOutput(nil); got == nil {
		t.Fatal("SetOutput(nil) should install stderr, not nil")
	}
}
