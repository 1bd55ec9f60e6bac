package flightrecorder_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/myrjola/fitplan/internal/flightrecorder"
	"github.com/myrjola/fitplan/internal/testhelpers"
)

func newRecorder(t *testing.T, dir string, now func() time.Time) *flightrecorder.Recorder {
	t.Helper()
	recorder, err := flightrecorder.New(testhelpers.NewTestLogger(t), flightrecorder.Config{
		Directory: dir,
		MinAge:    0,
		MaxBytes:  0,
		Cooldown:  time.Minute,
		Now:       now,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err = recorder.Start(t.Context()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { recorder.Stop(t.Context()) })
	return recorder
}

func TestRecorder_Capture(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "traces")
	recorder := newRecorder(t, dir, time.Now)

	path := recorder.Capture(t.Context(), "timeout")
	if path == "" {
		t.Fatal("Expected a trace to be written")
	}
	name := filepath.Base(path)
	if !strings.HasPrefix(name, "timeout-") || !strings.HasSuffix(name, ".trace") {
		t.Errorf("Unexpected trace file name %s", name)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Failed to stat trace: %v", err)
	}
	if info.Size() == 0 {
		t.Error("Expected a non-empty trace")
	}
}

func TestRecorder_Cooldown(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	dir := t.TempDir()
	recorder := newRecorder(t, dir, clock)

	if recorder.Capture(t.Context(), "timeout") == "" {
		t.Fatal("Expected the first capture to be written")
	}
	now = now.Add(30 * time.Second)
	if recorder.Capture(t.Context(), "timeout") != "" {
		t.Error("Expected the cooldown to skip the second capture")
	}
	now = now.Add(time.Minute)
	if recorder.Capture(t.Context(), "timeout") == "" {
		t.Error("Expected a capture after the cooldown")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to read trace directory: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("Expected 2 traces, got %d", len(entries))
	}
}

func TestNew_rejectsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(file, nil, 0o600); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	if _, err := flightrecorder.New(testhelpers.NewTestLogger(t), flightrecorder.Config{
		Directory: file,
		MinAge:    0,
		MaxBytes:  0,
		Cooldown:  0,
		Now:       nil,
	}); err == nil {
		t.Error("Expected an error for a file path")
	}
}
