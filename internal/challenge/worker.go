package challenge

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmelnyk/voicegate/internal/store"
)

const sweepRetryDelay = 100 * time.Millisecond

// StartSweepWorker runs a background goroutine that periodically removes
// expired challenges. The adapters already sweep opportunistically on every
// request; the worker bounds memory growth when no requests arrive.
func StartSweepWorker(ctx context.Context, engine *Engine, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Sweep worker started", "interval", interval)

		for {
			select {
			case <-ticker.C:
				sweepOnce(ctx, engine)
			case <-ctx.Done():
				slog.Info("Sweep worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func sweepOnce(ctx context.Context, engine *Engine) {
	removed, err := engine.Sweep(ctx)
	if store.IsSQLiteConflictError(err) {
		// SQLite backend can report busy under write load; one retry after
		// a short delay is enough at this cadence.
		time.Sleep(sweepRetryDelay)
		removed, err = engine.Sweep(ctx)
	}
	if err != nil {
		slog.Error("Sweep worker failed to clear expired challenges", "error", err)
		return
	}
	if removed > 0 {
		slog.Info("Sweep worker cleared expired challenges", "count", removed)
	}
}
