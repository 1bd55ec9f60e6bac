package testhelpers

import (
	"io"
	"strings"
	"sync/atomic"
	"testing"
)

// Writer is an io.Writer that forwards to t.Log so that logs are only shown for failing tests.
type Writer struct {
	t    *testing.T
	done atomic.Bool
}

// NewWriter creates a Writer for t. Writing after the test has finished panics, which catches goroutines such as
// servers that outlive the test.
func NewWriter(t *testing.T) io.Writer {
	w := &Writer{t: t, done: atomic.Bool{}}
	t.Cleanup(func() {
		w.done.Store(true)
	})
	return w
}

func (w *Writer) Write(p []byte) (int, error) {
	if w.done.Load() {
		panic("testwriter: write after test completion, is the server shut down in t.Cleanup?")
	}
	if output := strings.TrimSuffix(string(p), "\n"); output != "" {
		w.t.Log(output)
	}
	return len(p), nil
}
