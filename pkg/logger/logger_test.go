package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLevelString(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{TraceLevel, "TRACE"},
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
		{Level(999), "UNKNOWN"},
	}

	for _, test := range tests {
		if result := test.level.String(); result != test.expected {
			t.Errorf("Level.String() = %v, expected %v", result, test.expected)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"trace":   TraceLevel,
		"DEBUG":   DebugLevel,
		"info":    InfoLevel,
		"warning": WarnLevel,
		"error":   ErrorLevel,
		"bogus":   InfoLevel,
		"":        InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInitialize(t *testing.T) {
	var buf bytes.Buffer
	if err := Initialize(Config{Level: InfoLevel, Component: "test", Output: &buf}); err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}
	if defaultLogger == nil {
		t.Fatal("Initialize() did not set defaultLogger")
	}

	Info("hello", String("file", "FR.cup"))
	Debug("filtered out")

	out := buf.String()
	if !strings.Contains(out, "[INFO] test: hello {file=FR.cup}") {
		t.Errorf("unexpected output: %q", out)
	}
	if strings.Contains(out, "filtered out") {
		t.Errorf("debug line should be below threshold: %q", out)
	}
}

func TestPrettyFieldsSorted(t *testing.T) {
	l := New(Config{Level: InfoLevel, Output: &bytes.Buffer{}})
	entry := LogEntry{
		Time:    time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
		Level:   "WARN",
		Message: "bbox unavailable",
		Fields:  map[string]interface{}{"zeta": 1, "alpha": "a", "mid": true},
	}

	got := l.formatPretty(entry)
	want := "2025-01-01 12:00:00 [WARN] bbox unavailable {alpha=a, mid=true, zeta=1}"
	if got != want {
		t.Errorf("formatPretty() = %q, want %q", got, want)
	}
}

func TestPrettyColor(t *testing.T) {
	l := New(Config{UseColor: true, Output: &bytes.Buffer{}})
	got := l.formatPretty(LogEntry{Time: time.Now(), Level: "ERROR", Message: "x"})
	if !strings.Contains(got, "\033[31mERROR\033[0m") {
		t.Errorf("expected red ERROR, got %q", got)
	}
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: InfoLevel, JSON: true, Component: "aerorepo", Output: &buf})
	l.Log(WarnLevel, "unknown country", String("name", "GLB-foo.txt"), Err(errors.New("no match")))

	var entry LogEntry
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("invalid JSON log line %q: %v", buf.String(), err)
	}
	if entry.Level != "WARN" || entry.Message != "unknown country" || entry.Component != "aerorepo" {
		t.Errorf("unexpected entry: %+v", entry)
	}
	if entry.Fields["name"] != "GLB-foo.txt" || entry.Fields["error"] != "no match" {
		t.Errorf("unexpected fields: %+v", entry.Fields)
	}
}

func TestFieldHelpers(t *testing.T) {
	if f := Int64("size", 384); f.Value != int64(384) {
		t.Errorf("Int64 = %v", f.Value)
	}
	if f := Strings("tried", []string{"alpha2", "name"}); f.Value != "alpha2,name" {
		t.Errorf("Strings = %v", f.Value)
	}
	if f := Duration("pause", 2*time.Second); f.Value != "2s" {
		t.Errorf("Duration = %v", f.Value)
	}
	if f := Err(nil); f.Value != "<nil>" {
		t.Errorf("Err(nil) = %v", f.Value)
	}
}
