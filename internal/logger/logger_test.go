package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestLogLevelFiltering verifies that messages are filtered based on log level
func TestLogLevelFiltering(t *testing.T) {
	tests := []struct {
		name         string
		logLevel     string
		messageLevel string
		shouldAppear bool
	}{
		{name: "trace sees trace", logLevel: "trace", messageLevel: "trace", shouldAppear: true},
		{name: "debug blocks trace", logLevel: "debug", messageLevel: "trace", shouldAppear: false},
		{name: "debug sees debug", logLevel: "debug", messageLevel: "debug", shouldAppear: true},
		{name: "info blocks debug", logLevel: "info", messageLevel: "debug", shouldAppear: false},
		{name: "info sees info", logLevel: "info", messageLevel: "info", shouldAppear: true},
		{name: "info sees error", logLevel: "info", messageLevel: "error", shouldAppear: true},
		{name: "warn blocks info", logLevel: "warn", messageLevel: "info", shouldAppear: false},
		{name: "warn sees warn", logLevel: "warn", messageLevel: "warn", shouldAppear: true},
		{name: "error blocks warn", logLevel: "error", messageLevel: "warn", shouldAppear: false},
		{name: "error sees error", logLevel: "error", messageLevel: "error", shouldAppear: true},
		{name: "invalid level defaults to info", logLevel: "loud", messageLevel: "debug", shouldAppear: false},
		{name: "level is case-insensitive", logLevel: "DEBUG", messageLevel: "debug", shouldAppear: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			l := NewConsoleLogger(buf, tt.logLevel)

			switch tt.messageLevel {
			case "trace":
				l.Tracef("msg %d", 1)
			case "debug":
				l.Debugf("msg %d", 1)
			case "info":
				l.Infof("msg %d", 1)
			case "warn":
				l.Warnf("msg %d", 1)
			case "error":
				l.Errorf("msg %d", 1)
			}

			got := strings.Contains(buf.String(), "msg 1")
			if got != tt.shouldAppear {
				t.Errorf("message appeared = %v, want %v (output %q)", got, tt.shouldAppear, buf.String())
			}
		})
	}
}

func TestConsoleLogger_Format(t *testing.T) {
	buf := &bytes.Buffer{}
	l := NewConsoleLogger(buf, "info")

	l.Errorf("The '%s' parameter is missing from '%s'", "design", "t1")

	out := buf.String()
	if !strings.HasPrefix(out, "[") || !strings.Contains(out, "] [ERROR] The 'design' parameter is missing from 't1'\n") {
		t.Errorf("unexpected format: %q", out)
	}
}

func TestConsoleLogger_NoColorForBuffers(t *testing.T) {
	l := NewConsoleLogger(&bytes.Buffer{}, "info")
	if l.colorOutput {
		t.Error("color output must be disabled for non-terminal writers")
	}
}

func TestConsoleLogger_NilWriter(t *testing.T) {
	l := NewConsoleLogger(nil, "trace")
	l.Errorf("discarded") // must not panic
}

func TestRecorder(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewRecorder(NewConsoleLogger(buf, "error"))

	r.Warnf("w %s", "one")
	r.Errorf("e %s", "one")
	r.Errorf("e %s", "two")
	r.Infof("not recorded")

	if got := r.Count("error"); got != 2 {
		t.Errorf("Count(error) = %d, want 2", got)
	}
	if got := r.Count("warn"); got != 1 {
		t.Errorf("Count(warn) = %d, want 1", got)
	}
	entries := r.Entries()
	if len(entries) != 3 || entries[1].Message != "e one" {
		t.Errorf("Entries() = %+v", entries)
	}
	if strings.Contains(buf.String(), "w one") {
		t.Error("warning should be filtered by the wrapped logger's level")
	}
	if !strings.Contains(buf.String(), "e two") {
		t.Error("errors should be forwarded")
	}

	r.Reset()
	if len(r.Entries()) != 0 {
		t.Error("Reset() should clear entries")
	}
}

func TestMulti(t *testing.T) {
	a, b := &bytes.Buffer{}, &bytes.Buffer{}
	m := Multi(NewConsoleLogger(a, "info"), nil, NewConsoleLogger(b, "warn"))

	m.Infof("hello")
	m.Warnf("careful")

	if !strings.Contains(a.String(), "hello") || !strings.Contains(a.String(), "careful") {
		t.Errorf("first logger output = %q", a.String())
	}
	if strings.Contains(b.String(), "hello") || !strings.Contains(b.String(), "careful") {
		t.Errorf("second logger output = %q", b.String())
	}
}

func TestFileLogger(t *testing.T) {
	logDir := filepath.Join(t.TempDir(), "logs")

	fl, err := NewFileLogger(logDir, "debug")
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}
	fl.Debugf("scanning %s", "modules")
	fl.Tracef("hidden")
	fl.Errorf("broken %s", "tests")
	if err := fl.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	// Writes after close are dropped
	fl.Errorf("late")

	data, err := os.ReadFile(fl.Path())
	if err != nil {
		t.Fatalf("read run log: %v", err)
	}
	content := string(data)
	for _, want := range []string{"=== reqtrace run log ===", "[DEBUG] scanning modules", "[ERROR] broken tests", "Finished at:"} {
		if !strings.Contains(content, want) {
			t.Errorf("run log missing %q:\n%s", want, content)
		}
	}
	if strings.Contains(content, "hidden") || strings.Contains(content, "late") {
		t.Errorf("run log contains filtered or late messages:\n%s", content)
	}

	target, err := os.Readlink(filepath.Join(logDir, "latest.log"))
	if err != nil {
		t.Fatalf("readlink latest.log: %v", err)
	}
	if target != filepath.Base(fl.Path()) {
		t.Errorf("latest.log -> %s, want %s", target, filepath.Base(fl.Path()))
	}
}
