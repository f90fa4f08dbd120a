package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestInit_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	if err := Init(path); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	Info("visiting %s", "/todo")
	Debug("step %d", 3)
	Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	for _, want := range []string{"visiting /todo", "step 3", "level=info", "level=debug"} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
}

func TestInit_BadPath(t *testing.T) {
	if err := Init(filepath.Join(t.TempDir(), "missing", "run.log")); err == nil {
		t.Error("Init() expected error for missing directory")
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, logrus.DebugLevel)
	defer Close()

	SetLevel(logrus.WarnLevel)
	Info("hidden")
	Warn("shown")
	Error("also shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message written at warn level:\n%s", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "also shown") {
		t.Errorf("warn/error messages missing:\n%s", out)
	}
}

func TestUninitialized(t *testing.T) {
	Close()
	Info("dropped")
	if w := GetWriter(); w == nil {
		t.Error("GetWriter() = nil, want io.Discard")
	}
	if e := WithFields(logrus.Fields{"a": 1}); e != nil {
		t.Error("WithFields() on closed logger should be nil")
	}
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, logrus.InfoLevel)
	defer Close()

	WithFields(logrus.Fields{"test": "adds todo"}).Info("start")
	if !strings.Contains(buf.String(), `test="adds todo"`) {
		t.Errorf("fields missing:\n%s", buf.String())
	}
}
