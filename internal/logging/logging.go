// Package logging builds the logrus loggers used by the board and the server.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// New returns a logger at level writing to w. The DEBUG environment variable,
// when true, forces debug level.
func New(level string, w io.Writer) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		lvl = logrus.DebugLevel
	}
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(lvl)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	return l, nil
}

// NewFile opens (appending) path and logs there. The alt-screen TUI owns the
// terminal, so board diagnostics go to a file. An empty path discards output.
func NewFile(level, path string) (*logrus.Logger, io.Closer, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		l, err := New(level, io.Discard)
		return l, io.NopCloser(nil), err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	l, err := New(level, f)
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	l.SetFormatter(&logrus.JSONFormatter{})
	return l, f, nil
}
