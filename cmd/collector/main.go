// Command collector is the Prekick odds collection CLI.
//
// Usage:
//
//	prekick-collector run
//	prekick-collector run --interval 5m
//	prekick-collector discover
//	prekick-collector execute
//	prekick-collector index rebuild
//	prekick-collector index build --league soccer_epl --season 2025-2026
//	prekick-collector queue summary
//	prekick-collector queue cleanup --days 30
//	prekick-collector queue retry --id abc123_closing --at 2026-08-23T15:00:00Z
//	prekick-collector queue sweep
//	prekick-collector repair --dry-run --fetch-missing
//	prekick-collector backfill --league soccer_epl --from 2025-08-01 --to 2025-09-01 --dry-run
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/albapepper/prekick-data/internal/backfill"
	"github.com/albapepper/prekick-data/internal/blob"
	"github.com/albapepper/prekick-data/internal/config"
	"github.com/albapepper/prekick-data/internal/db"
	"github.com/albapepper/prekick-data/internal/index"
	"github.com/albapepper/prekick-data/internal/pipeline"
	"github.com/albapepper/prekick-data/internal/provider/oddsapi"
	"github.com/albapepper/prekick-data/internal/queue"
	"github.com/albapepper/prekick-data/internal/repair"
	"github.com/albapepper/prekick-data/internal/snapshot"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "prekick-collector",
		Short: "Prekick odds collection CLI",
	}

	root.AddCommand(runCmd())
	root.AddCommand(discoverCmd())
	root.AddCommand(executeCmd())
	root.AddCommand(indexCmd())
	root.AddCommand(queueCmd())
	root.AddCommand(repairCmd())
	root.AddCommand(backfillCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// deps bundles everything a collection command needs.
type deps struct {
	cfg     *config.Config
	pool    *db.Pool
	jobs    queue.Store
	store   *snapshot.Store
	indexer *index.Builder
}

// oddsfeed constructs the provider client. Commands that talk to the
// provider require an API key; read-only commands never call this.
func (d *deps) oddsfeed() (*oddsapi.Client, error) {
	if d.cfg.OddsAPIKey == "" {
		return nil, fmt.Errorf("ODDS_API_KEY is required")
	}
	return oddsapi.New(d.cfg.OddsAPIBaseURL, d.cfg.OddsAPIKey, d.cfg.ProviderRPM, d.cfg.ProviderTimeout, logger), nil
}

// runWith handles config loading, DB and storage connection, and context
// cancellation.
func runWith(fn func(ctx context.Context, d *deps) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pool, err := db.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	blobs, err := blob.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open snapshot storage: %w", err)
	}
	defer blobs.Close()

	store := snapshot.NewStore(blobs, logger)
	return fn(ctx, &deps{
		cfg:     cfg,
		pool:    pool,
		jobs:    queue.NewPostgres(pool.Pool),
		store:   store,
		indexer: index.NewBuilder(store, logger),
	})
}

// --------------------------------------------------------------------------
// run command
// --------------------------------------------------------------------------

func runCmd() *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a full collection cycle (discover + execute + index)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWith(func(ctx context.Context, d *deps) error {
				oddsfeed, err := d.oddsfeed()
				if err != nil {
					return err
				}
				orch := pipeline.New(d.cfg, d.jobs, d.store, d.indexer, oddsfeed, nil, logger)

				cycle := func() error {
					start := time.Now()
					result, err := orch.Run(ctx)
					if err != nil {
						return err
					}
					logger.Info("Collection cycle finished",
						"duration", time.Since(start).Round(time.Second),
						"summary", result.Summary())
					return nil
				}

				if interval <= 0 {
					return cycle()
				}

				logger.Info("Collector loop started", "interval", interval)
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for {
					if err := cycle(); err != nil {
						logger.Error("Collection cycle failed", "error", err)
					}
					select {
					case <-ticker.C:
					case <-ctx.Done():
						logger.Info("Collector loop stopped")
						return nil
					}
				}
			})
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "Loop forever with this pause between cycles (0 = run once)")
	return cmd
}

// --------------------------------------------------------------------------
// discover / execute commands
// --------------------------------------------------------------------------

func discoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "Discover upcoming fixtures and schedule collection jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWith(func(ctx context.Context, d *deps) error {
				oddsfeed, err := d.oddsfeed()
				if err != nil {
					return err
				}
				orch := pipeline.New(d.cfg, d.jobs, d.store, d.indexer, oddsfeed, nil, logger)
				result, err := orch.RunDiscovery(ctx)
				if err != nil {
					return err
				}
				logger.Info("Discovery finished", "summary", result.Summary())
				return nil
			})
		},
	}
}

func executeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "execute",
		Short: "Execute due collection jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWith(func(ctx context.Context, d *deps) error {
				oddsfeed, err := d.oddsfeed()
				if err != nil {
					return err
				}
				orch := pipeline.New(d.cfg, d.jobs, d.store, d.indexer, oddsfeed, nil, logger)
				result, err := orch.RunExecution(ctx)
				if err != nil {
					return err
				}
				logger.Info("Execution finished", "summary", result.Summary())
				return nil
			})
		},
	}
}

// --------------------------------------------------------------------------
// index command
// --------------------------------------------------------------------------

func indexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Maintain derived index artifacts",
	}
	cmd.AddCommand(indexBuildCmd())
	cmd.AddCommand(indexRebuildCmd())
	return cmd
}

func indexBuildCmd() *cobra.Command {
	var league, season string
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Rebuild the derived views for one league season from its match index",
		RunE: func(cmd *cobra.Command, args []string) error {
			if league == "" || season == "" {
				return fmt.Errorf("--league and --season are required")
			}
			return runWith(func(ctx context.Context, d *deps) error {
				return d.indexer.BuildAllIndexes(ctx, league, season)
			})
		},
	}
	cmd.Flags().StringVar(&league, "league", "", "League key (e.g. soccer_epl)")
	cmd.Flags().StringVar(&season, "season", "", "Season label (e.g. 2025-2026)")
	return cmd
}

func indexRebuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild every match index from completed job records, then the derived views",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWith(func(ctx context.Context, d *deps) error {
				tool := repair.New(d.cfg, d.jobs, d.store, d.indexer, nil, logger)
				return tool.RebuildIndexes(ctx)
			})
		},
	}
}

// --------------------------------------------------------------------------
// queue command
// --------------------------------------------------------------------------

func queueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and maintain the job queue",
	}
	cmd.AddCommand(queueSummaryCmd())
	cmd.AddCommand(queueCleanupCmd())
	cmd.AddCommand(queueRetryCmd())
	cmd.AddCommand(queueSweepCmd())
	return cmd
}

func queueSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show job counts by status and the next scheduled job",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWith(func(ctx context.Context, d *deps) error {
				summary, err := d.jobs.Summary(ctx)
				if err != nil {
					return err
				}
				logger.Info("Queue summary",
					"total", summary.Total,
					"pending", summary.ByStatus[queue.StatusPending],
					"running", summary.ByStatus[queue.StatusRunning],
					"completed", summary.ByStatus[queue.StatusCompleted],
					"failed", summary.ByStatus[queue.StatusFailed])
				if summary.NextPending != nil {
					logger.Info("Next pending job", "scheduled_time", summary.NextPending.Format(time.RFC3339))
				}
				return nil
			})
		},
	}
}

func queueCleanupCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete terminal jobs older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWith(func(ctx context.Context, d *deps) error {
				if days <= 0 {
					days = d.cfg.CleanupDays
				}
				removed, err := d.jobs.CleanupOlderThan(ctx, days)
				if err != nil {
					return err
				}
				logger.Info("Queue cleanup finished", "days", days, "removed", removed)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "Retention in days (0 = configured default)")
	return cmd
}

func queueRetryCmd() *cobra.Command {
	var id, at string
	cmd := &cobra.Command{
		Use:   "retry",
		Short: "Requeue a failed job",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" {
				return fmt.Errorf("--id is required")
			}
			when := time.Now().UTC()
			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("parse --at: %w", err)
				}
				when = t
			}
			return runWith(func(ctx context.Context, d *deps) error {
				if err := d.jobs.RetryJob(ctx, id, when); err != nil {
					return err
				}
				logger.Info("Job requeued", "job", id, "scheduled_time", when.Format(time.RFC3339))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Job ID ({fixtureID}_{offset})")
	cmd.Flags().StringVar(&at, "at", "", "New scheduled time, RFC 3339 (default: now)")
	return cmd
}

func queueSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Requeue running jobs whose lease expired",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWith(func(ctx context.Context, d *deps) error {
				reclaimed, err := d.jobs.ReclaimExpired(ctx)
				if err != nil {
					return err
				}
				logger.Info("Lease sweep finished", "reclaimed", reclaimed)
				return nil
			})
		},
	}
}

// --------------------------------------------------------------------------
// repair command
// --------------------------------------------------------------------------

func repairCmd() *cobra.Command {
	var (
		dryRun       bool
		fetchMissing bool
		deepScan     bool
		deleteOrphan bool
	)
	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Audit queue records against stored snapshots and heal drift",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWith(func(ctx context.Context, d *deps) error {
				var tool *repair.Tool
				if fetchMissing {
					oddsfeed, err := d.oddsfeed()
					if err != nil {
						return err
					}
					tool = repair.New(d.cfg, d.jobs, d.store, d.indexer, oddsfeed, logger)
				} else {
					tool = repair.New(d.cfg, d.jobs, d.store, d.indexer, nil, logger)
				}

				start := time.Now()
				report, err := tool.Audit(ctx, repair.Options{DeepScan: deepScan})
				if err != nil {
					return err
				}
				logger.Info("Audit report", "summary", report.Summary())

				if fetchMissing {
					recovered, err := tool.Refetch(ctx, report, dryRun)
					if err != nil {
						return err
					}
					logger.Info("Refetch finished", "recovered", recovered, "dry_run", dryRun)
				}

				if err := tool.Repair(ctx, report, dryRun); err != nil {
					return err
				}

				if deleteOrphan {
					removed, err := tool.DeleteOrphans(ctx, report, dryRun)
					if err != nil {
						return err
					}
					logger.Info("Orphan cleanup finished", "removed", removed, "dry_run", dryRun)
				}

				logger.Info("Repair finished",
					"duration", time.Since(start).Round(time.Second), "dry_run", dryRun)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report planned changes without applying them")
	cmd.Flags().BoolVar(&fetchMissing, "fetch-missing", false, "Refetch missing snapshots whose kickoff is still in the future")
	cmd.Flags().BoolVar(&deepScan, "deep-scan", false, "Scan season listings for snapshots stored under stale keys")
	cmd.Flags().BoolVar(&deleteOrphan, "delete-orphans", false, "Delete blobs no job references")
	return cmd
}

// --------------------------------------------------------------------------
// backfill command
// --------------------------------------------------------------------------

func backfillCmd() *cobra.Command {
	var (
		league       string
		from, to     string
		dryRun       bool
		clearIndexes bool
	)
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Reconstruct snapshots for past fixtures from the historical API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if league == "" || from == "" || to == "" {
				return fmt.Errorf("--league, --from, and --to are required")
			}
			fromT, err := time.Parse("2006-01-02", from)
			if err != nil {
				return fmt.Errorf("parse --from: %w", err)
			}
			toT, err := time.Parse("2006-01-02", to)
			if err != nil {
				return fmt.Errorf("parse --to: %w", err)
			}
			if toT.Before(fromT) {
				return fmt.Errorf("--to must not precede --from")
			}
			return runWith(func(ctx context.Context, d *deps) error {
				oddsfeed, err := d.oddsfeed()
				if err != nil {
					return err
				}
				tool := backfill.New(d.cfg, d.jobs, d.store, d.indexer, oddsfeed, logger)
				start := time.Now()
				result, err := tool.Run(ctx, league, fromT, toT, dryRun)
				if err != nil {
					return err
				}
				logger.Info("Backfill finished",
					"duration", time.Since(start).Round(time.Second),
					"summary", result.Summary(), "dry_run", dryRun)
				for _, e := range result.Errors {
					logger.Error("backfill error", "error", e)
				}
				if clearIndexes && !dryRun {
					// Discard the incremental merge and rebuild every index
					// from re-queried completed job state.
					fixer := repair.New(d.cfg, d.jobs, d.store, d.indexer, nil, logger)
					if err := fixer.RebuildIndexes(ctx); err != nil {
						return err
					}
					logger.Info("Indexes rebuilt from job state")
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&league, "league", "", "League key (e.g. soccer_epl)")
	cmd.Flags().StringVar(&from, "from", "", "Window start date, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "Window end date, YYYY-MM-DD")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report the plan and estimated cost without fetching")
	cmd.Flags().BoolVar(&clearIndexes, "clear-indexes", false, "Rebuild all indexes from job state after the backfill")
	return cmd
}
