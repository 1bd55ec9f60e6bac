// Package flightrecorder keeps a rolling execution trace in memory and writes it to disk when a request is too slow.
package flightrecorder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/trace"
	"sync/atomic"
	"time"

	"github.com/myrjola/fitplan/internal/errors"
)

const (
	defaultMinAge   = 5 * time.Minute
	defaultMaxBytes = 64 * 1024 * 1024
	defaultCooldown = 30 * time.Minute
)

// Recorder captures execution traces of timed out requests.
type Recorder struct {
	logger    *slog.Logger
	recorder  *trace.FlightRecorder
	directory string
	cooldown  time.Duration
	now       func() time.Time
	// lastCapture holds the unix time of the latest capture.
	lastCapture atomic.Int64
}

// Config configures the Recorder. Zero values fall back to defaults.
type Config struct {
	Directory string
	MinAge    time.Duration
	MaxBytes  uint64
	Cooldown  time.Duration
	Now       func() time.Time
}

// New creates a Recorder writing traces to cfg.Directory, creating the directory when missing.
func New(logger *slog.Logger, cfg Config) (*Recorder, error) {
	if cfg.Directory == "" {
		return nil, errors.New("traces directory is required")
	}
	stat, err := os.Stat(cfg.Directory)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err = os.MkdirAll(cfg.Directory, 0o700); err != nil { //nolint:mnd // owner only.
			return nil, errors.Wrap(err, "create traces directory", slog.String("directory", cfg.Directory))
		}
	case err != nil:
		return nil, errors.Wrap(err, "stat traces directory", slog.String("directory", cfg.Directory))
	case !stat.IsDir():
		return nil, errors.New("traces path is not a directory", slog.String("directory", cfg.Directory))
	}

	if cfg.MinAge == 0 {
		cfg.MinAge = defaultMinAge
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = defaultMaxBytes
	}
	if cfg.Cooldown == 0 {
		cfg.Cooldown = defaultCooldown
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Recorder{
		logger: logger,
		recorder: trace.NewFlightRecorder(trace.FlightRecorderConfig{
			MinAge:   cfg.MinAge,
			MaxBytes: cfg.MaxBytes,
		}),
		directory:   cfg.Directory,
		cooldown:    cfg.Cooldown,
		now:         cfg.Now,
		lastCapture: atomic.Int64{},
	}, nil
}

// Start begins recording.
func (r *Recorder) Start(ctx context.Context) error {
	if err := r.recorder.Start(); err != nil {
		return errors.Wrap(err, "start flight recorder")
	}
	r.logger.LogAttrs(ctx, slog.LevelInfo, "flight recorder started",
		slog.String("directory", r.directory),
		slog.Duration("cooldown", r.cooldown))
	return nil
}

// Stop ends recording.
func (r *Recorder) Stop(ctx context.Context) {
	r.recorder.Stop()
	r.logger.LogAttrs(ctx, slog.LevelInfo, "flight recorder stopped")
}

// Capture writes the buffered trace to a file named after reason. At most one trace is written per cooldown period
// and the path of the written file is returned. An empty path means the capture was skipped.
func (r *Recorder) Capture(ctx context.Context, reason string) string {
	now := r.now()
	last := r.lastCapture.Load()
	if last != 0 && now.Sub(time.Unix(last, 0)) < r.cooldown {
		r.logger.LogAttrs(ctx, slog.LevelDebug, "skipping trace capture due to cooldown",
			slog.Time("last_capture", time.Unix(last, 0)))
		return ""
	}
	if !r.lastCapture.CompareAndSwap(last, now.Unix()) {
		return ""
	}

	path := filepath.Join(r.directory, fmt.Sprintf("%s-%s.trace", reason, now.UTC().Format("20060102-150405")))
	if err := r.writeTrace(path); err != nil {
		r.logger.LogAttrs(ctx, slog.LevelError, "failed to capture trace", errors.SlogError(err))
		return ""
	}
	r.logger.LogAttrs(ctx, slog.LevelWarn, "captured trace", slog.String("file", path), slog.String("reason", reason))
	return path
}

func (r *Recorder) writeTrace(path string) (err error) {
	file, err := os.Create(path) //nolint:gosec // path is built from the configured directory.
	if err != nil {
		return errors.Wrap(err, "create trace file", slog.String("file", path))
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = errors.Wrap(closeErr, "close trace file", slog.String("file", path))
		}
	}()
	if _, err = r.recorder.WriteTo(file); err != nil {
		return errors.Wrap(err, "write trace", slog.String("file", path))
	}
	return nil
}
