package testhelpers

import (
	"io"
	"log/slog"
	"testing"

	"github.com/myrjola/fitplan/internal/logging"
)

// NewLogger creates a debug level logger writing to logSink such as testhelpers.NewWriter.
func NewLogger(logSink io.Writer) *slog.Logger {
	return logging.NewTextLogger(logSink, slog.LevelDebug, nil)
}

// NewTestLogger is shorthand for NewLogger(NewWriter(t)).
func NewTestLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return NewLogger(NewWriter(t))
}
