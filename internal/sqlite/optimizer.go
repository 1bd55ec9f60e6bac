package sqlite

import (
	"context"
	"log/slog"
	"time"
)

const optimizeInterval = time.Hour

// startOptimizer runs PRAGMA optimize in the background until ctx is done or the database is closed.
// See https://www.sqlite.org/pragma.html#pragma_optimize.
func (db *Database) startOptimizer(ctx context.Context) {
	ctx, db.stopOptimizer = context.WithCancel(ctx)
	db.optimizerDone = make(chan struct{})
	go func() {
		defer close(db.optimizerDone)
		// 0x10002 also analyzes tables that have never been analyzed, which suits long-lived connections.
		db.optimize(ctx, "PRAGMA optimize = 0x10002")
		ticker := time.NewTicker(optimizeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				db.optimize(ctx, "PRAGMA optimize")
			}
		}
	}()
}

func (db *Database) optimize(ctx context.Context, pragma string) {
	start := time.Now()
	if _, err := db.ReadWrite.ExecContext(ctx, pragma); err != nil {
		if ctx.Err() != nil {
			return
		}
		db.logger.LogAttrs(ctx, slog.LevelError, "failed to optimize database", slog.Any("error", err))
		return
	}
	db.logger.LogAttrs(ctx, slog.LevelDebug, "optimized database", slog.Duration("duration", time.Since(start)))
}

// stopOptimizerAndWait is safe to call when the optimizer never started.
func (db *Database) stopOptimizerAndWait() {
	if db.stopOptimizer == nil {
		return
	}
	db.stopOptimizer()
	<-db.optimizerDone
}
