package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNew_Level(t *testing.T) {
	t.Setenv("DEBUG", "")
	var buf bytes.Buffer
	l, err := New("warn", &buf)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Info("hidden")
	l.WithField("task", "t1").Warn("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "task=t1") {
		t.Fatalf("unexpected output: %q", out)
	}

	if _, err := New("loud", &buf); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestNew_DebugEnv(t *testing.T) {
	t.Setenv("DEBUG", "1")
	l, err := New("error", &bytes.Buffer{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if l.GetLevel() != logrus.DebugLevel {
		t.Fatalf("expected debug level, got %s", l.GetLevel())
	}
}

func TestNewFile(t *testing.T) {
	t.Setenv("DEBUG", "")
	path := filepath.Join(t.TempDir(), "logs", "board.log")
	l, closer, err := NewFile("info", path)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	l.WithField("seq", 3).Info("move recorded")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(b), `"seq":3`) {
		t.Fatalf("expected json log line, got %q", string(b))
	}
}
