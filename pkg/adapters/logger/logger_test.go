package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/user/vidloop/pkg/ports"
)

// Test messages are not in the lexicon so they print untranslated in any locale.
func TestConsoleLogger_LevelsAndStreams(t *testing.T) {
	var out, errOut bytes.Buffer
	l := NewConsoleWriters(ports.LevelInfo, &out, &errOut, false)

	l.Debug("hidden %d", 1)
	l.Info("info line")
	l.Warn("warn line: %v", "busy")
	l.Error("error line: %v", "boom")

	if strings.Contains(out.String(), "hidden") {
		t.Error("debug message written at info level")
	}
	if !strings.Contains(out.String(), "info line") {
		t.Errorf("stdout = %q", out.String())
	}
	if !strings.Contains(errOut.String(), "warn line: busy") {
		t.Errorf("stderr missing warning: %q", errOut.String())
	}
	if !strings.Contains(errOut.String(), "error line: boom") {
		t.Errorf("stderr missing error: %q", errOut.String())
	}
}

func TestConsoleLogger_WithComponent(t *testing.T) {
	var out bytes.Buffer
	root := NewConsoleWriters(ports.LevelDebug, &out, &out, false)
	l := root.WithComponent("playback")

	l.Debug("component line %s", "abc")

	if got := out.String(); got != "[playback] component line abc\n" {
		t.Errorf("output = %q", got)
	}

	out.Reset()
	root.Info("plain")
	if got := out.String(); got != "plain\n" {
		t.Errorf("root logger gained a component: %q", got)
	}
}

func TestConsoleLogger_Quiet(t *testing.T) {
	var out bytes.Buffer
	l := NewConsoleWriters(ports.LevelQuiet, &out, &out, false)
	l.Error("nothing")
	if out.Len() != 0 {
		t.Errorf("quiet logger wrote %q", out.String())
	}
}

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewJSONWriter(ports.LevelInfo, &buf).WithComponent("playback")

	l.Debug("dropped")
	l.Info("Loaded %s", "clip.mp4")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v", entry["level"])
	}
	if entry["message"] != "Loaded clip.mp4" {
		t.Errorf("message = %v", entry["message"])
	}
	if entry["component"] != "playback" {
		t.Errorf("component = %v", entry["component"])
	}
	if _, ok := entry["time"]; !ok {
		t.Error("missing time field")
	}
}

func TestNoopLogger(t *testing.T) {
	l := NewNoop()
	l.Info("x")
	if l.WithComponent("c") != l {
		t.Error("WithComponent should return the same no-op logger")
	}
}
