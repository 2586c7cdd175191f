// Package maintenance runs periodic background tasks as Go tickers.
// Replaces external cron — the API server is already a persistent,
// long-running process, so queue hygiene is driven from here.
package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/albapepper/prekick-data/internal/queue"
)

// Config controls maintenance task intervals. Zero duration disables a task.
type Config struct {
	SweepInterval   time.Duration // requeue running jobs with expired leases
	CleanupInterval time.Duration // purge terminal jobs past retention
	CleanupDays     int           // terminal row retention
}

// DefaultConfig returns sensible production defaults.
func DefaultConfig(cleanupDays int) Config {
	if cleanupDays <= 0 {
		cleanupDays = 30
	}
	return Config{
		SweepInterval:   15 * time.Minute,
		CleanupInterval: 6 * time.Hour,
		CleanupDays:     cleanupDays,
	}
}

// Start launches all configured maintenance tickers. Blocks until ctx is
// cancelled. Intended to be called with `go`.
func Start(ctx context.Context, jobs queue.Store, cfg Config, logger *slog.Logger) {
	logger.Info("Maintenance tickers started",
		"sweep", cfg.SweepInterval,
		"cleanup", cfg.CleanupInterval,
		"cleanup_days", cfg.CleanupDays)

	tickers := make([]*time.Ticker, 0, 2)
	defer func() {
		for _, t := range tickers {
			t.Stop()
		}
	}()

	// Sweep: requeue jobs whose executor died mid-run
	if cfg.SweepInterval > 0 {
		t := time.NewTicker(cfg.SweepInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { sweep(ctx, jobs, logger) })
	}

	// Cleanup: purge old terminal job rows
	if cfg.CleanupInterval > 0 {
		t := time.NewTicker(cfg.CleanupInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { cleanup(ctx, jobs, cfg.CleanupDays, logger) })
	}

	<-ctx.Done()
	logger.Info("Maintenance tickers stopped")
}

func runLoop(ctx context.Context, ch <-chan time.Time, fn func()) {
	for {
		select {
		case <-ch:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// --------------------------------------------------------------------------
// Task implementations
// --------------------------------------------------------------------------

func sweep(ctx context.Context, jobs queue.Store, logger *slog.Logger) {
	n, err := jobs.ReclaimExpired(ctx)
	if err != nil {
		logger.Warn("Sweep: failed to reclaim expired leases", "error", err)
		return
	}
	if n > 0 {
		logger.Info("Sweep: requeued jobs with expired leases", "count", n)
	}
}

func cleanup(ctx context.Context, jobs queue.Store, days int, logger *slog.Logger) {
	n, err := jobs.CleanupOlderThan(ctx, days)
	if err != nil {
		logger.Warn("Cleanup: failed to purge old jobs", "error", err)
		return
	}
	if n > 0 {
		logger.Info("Cleanup: purged old terminal jobs", "count", n, "days", days)
	}
}
