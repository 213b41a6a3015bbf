package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{" info ", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"ERROR", LevelError},
		{"invalid", LevelInfo}, // defaults to info
		{"", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSetLevelFromString(t *testing.T) {
	defer SetLevel(LevelInfo)

	SetLevelFromString("error")
	if Default().GetLevel() != LevelError {
		t.Errorf("SetLevelFromString(error) = %v", Default().GetLevel())
	}
	if GetLevelString() != "ERROR" {
		t.Errorf("GetLevelString() = %q, want ERROR", GetLevelString())
	}
}

func TestTextOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelDebug, FormatText)

	l.Debug("palette count %d reset", 1000)
	if !strings.Contains(buf.String(), "[DEBUG]") || !strings.Contains(buf.String(), "palette count 1000 reset") {
		t.Errorf("Debug() output = %q", buf.String())
	}

	l.SetLevel(LevelWarn)
	buf.Reset()
	l.Info("suppressed")
	if buf.Len() != 0 {
		t.Errorf("Info() at Warn level should produce no output, got %q", buf.String())
	}

	l.Warn("kept")
	if !strings.Contains(buf.String(), "[WARN] kept") {
		t.Errorf("Warn() output = %q", buf.String())
	}

	buf.Reset()
	l.Error("failed")
	if !strings.Contains(buf.String(), "[ERROR] failed") {
		t.Errorf("Error() output = %q", buf.String())
	}
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelInfo, FormatJSON)
	l.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	l.Info("decoded %dx%d", 4, 2)

	var line jsonLine
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("output is not a JSON line: %q (%v)", buf.String(), err)
	}
	if line.Level != "INFO" || line.Msg != "decoded 4x2" || line.Time != "2024-01-02T03:04:05Z" {
		t.Errorf("unexpected JSON line: %+v", line)
	}
}

func TestEnabled(t *testing.T) {
	l := New(&bytes.Buffer{}, LevelWarn, FormatText)
	if l.Enabled(LevelDebug) {
		t.Error("Debug should be disabled at Warn level")
	}
	if !l.Enabled(LevelError) {
		t.Error("Error should be enabled at Warn level")
	}
}

func TestSetup(t *testing.T) {
	var buf bytes.Buffer
	defer Setup("info", "text", &bytes.Buffer{})

	Setup("debug", "json", &buf)
	Debug("hello")
	if !strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
		t.Errorf("expected JSON output after Setup, got %q", buf.String())
	}
}
