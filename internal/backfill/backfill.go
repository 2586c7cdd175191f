// Package backfill reconstructs snapshots for past fixtures from the
// provider's historical API. Historical fetches cost roughly ten times a
// live fetch, so this is a deliberate offline tool, never part of
// steady-state execution. Dry-run reports the plan and estimated cost
// without spending anything.
package backfill

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/albapepper/prekick-data/internal/config"
	"github.com/albapepper/prekick-data/internal/index"
	"github.com/albapepper/prekick-data/internal/provider"
	"github.com/albapepper/prekick-data/internal/queue"
	"github.com/albapepper/prekick-data/internal/snapshot"
	"github.com/albapepper/prekick-data/internal/team"
)

// Result tracks one backfill run.
type Result struct {
	FixturesFound int
	Captured      int
	Skipped       int // offset instant outside the historical window
	Failed        int
	EstimatedCost int
	Errors        []string
}

// Summary returns a human-readable summary.
func (r *Result) Summary() string {
	return fmt.Sprintf("fixtures=%d captured=%d skipped=%d failed=%d cost=%d",
		r.FixturesFound, r.Captured, r.Skipped, r.Failed, r.EstimatedCost)
}

// Tool runs historical backfills.
type Tool struct {
	cfg       *config.Config
	jobs      queue.Store
	store     *snapshot.Store
	indexer   *index.Builder
	oddsfeed  provider.Client
	normalize func(string) string
	owner     string
	jobDelay  time.Duration
	logger    *slog.Logger
}

// New creates a backfill tool.
func New(cfg *config.Config, jobs queue.Store, store *snapshot.Store, indexer *index.Builder, oddsfeed provider.Client, logger *slog.Logger) *Tool {
	if logger == nil {
		logger = slog.Default()
	}
	rpm := cfg.ProviderRPM
	if rpm < 1 {
		rpm = 1
	}
	return &Tool{
		cfg:       cfg,
		jobs:      jobs,
		store:     store,
		indexer:   indexer,
		oddsfeed:  oddsfeed,
		normalize: team.Normalize,
		owner:     uuid.NewString(),
		jobDelay:  time.Minute / time.Duration(rpm),
		logger:    logger,
	}
}

// Run backfills one league over [from, to]. For every fixture in the window
// and every configured offset whose capture instant already passed, it
// fetches historical odds as of that instant, stores the snapshot, and
// records a completed job row so reconciliation and index rebuilds see the
// artifact.
func (t *Tool) Run(ctx context.Context, league string, from, to time.Time, dryRun bool) (*Result, error) {
	result := &Result{}
	now := time.Now().UTC()

	fixtures, err := t.oddsfeed.FetchHistoricalFixtures(ctx, league, to, from, to)
	if err != nil {
		return nil, fmt.Errorf("fetch historical fixtures: %w", err)
	}
	result.FixturesFound = len(fixtures)
	t.logger.Info("Backfill window resolved",
		"league", league, "from", from, "to", to, "fixtures", len(fixtures))

	refsBySeason := make(map[string][]index.SnapshotRef)

	for _, fx := range fixtures {
		home := t.normalize(fx.HomeTeam)
		away := t.normalize(fx.AwayTeam)

		for _, offset := range t.cfg.Offsets {
			captureAt := offset.ScheduledTime(fx.Kickoff)
			if captureAt.After(now) {
				result.Skipped++ // still capturable live, leave to the pipeline
				continue
			}

			cost := t.oddsfeed.EstimateCost(provider.CostHistoricalOdds, len(offset.Markets), 1)
			result.EstimatedCost += cost

			if dryRun {
				result.Captured++
				continue
			}

			key, err := t.capture(ctx, fx, home, away, offset, captureAt)
			if err != nil {
				result.Failed++
				result.Errors = append(result.Errors, fmt.Sprintf("%s/%s: %s", fx.ID, offset.Name, err))
			} else {
				result.Captured++
				season := snapshot.SeasonForDate(fx.Kickoff)
				refsBySeason[season] = append(refsBySeason[season], index.SnapshotRef{
					HomeTeam:   home,
					AwayTeam:   away,
					MatchDate:  fx.Kickoff.UTC().Format("2006-01-02"),
					OffsetName: offset.Name,
					Location:   key,
				})
			}

			select {
			case <-time.After(t.jobDelay):
			case <-ctx.Done():
				return result, ctx.Err()
			}
		}
	}

	if dryRun {
		t.logger.Info("[dry-run] Backfill plan", "summary", result.Summary())
		return result, nil
	}

	for season, refs := range refsBySeason {
		if _, err := t.indexer.UpdateMatchIndex(ctx, league, season, refs); err != nil {
			t.logger.Error("Match index update failed", "league", league, "season", season, "error", err)
		} else if err := t.indexer.BuildAllIndexes(ctx, league, season); err != nil {
			t.logger.Error("Derived index rebuild failed", "league", league, "season", season, "error", err)
		}
	}

	t.logger.Info("Backfill complete", "summary", result.Summary())
	return result, nil
}

// capture fetches and stores one historical snapshot and records its
// completed job row.
func (t *Tool) capture(ctx context.Context, fx provider.Fixture, home, away string, offset config.Offset, captureAt time.Time) (string, error) {
	payload, err := t.oddsfeed.FetchHistoricalOdds(ctx, fx.League, fx.ID, captureAt, offset.Markets, t.cfg.OddsRegion)
	if err != nil {
		return "", fmt.Errorf("fetch historical odds: %w", err)
	}

	snap := &snapshot.Snapshot{
		Metadata: snapshot.Metadata{
			FixtureID:        fx.ID,
			League:           fx.League,
			Season:           snapshot.SeasonForDate(fx.Kickoff),
			OffsetName:       offset.Name,
			MatchDate:        fx.Kickoff.UTC().Format("2006-01-02"),
			KickoffTime:      fx.Kickoff.UTC(),
			CapturedAt:       captureAt,
			CollectionMethod: "historical",
		},
		Odds: *payload,
	}
	key, err := t.store.Save(ctx, snap)
	if err != nil {
		return "", fmt.Errorf("save snapshot: %w", err)
	}

	// Bookkeep a completed job so audits and index rebuilds account for the
	// artifact. ScheduleJob is a noop when the pipeline already created one.
	job := queue.NewJob(fx.ID, fx.League, home, away, fx.Kickoff, offset.Name, captureAt)
	if _, err := t.jobs.ScheduleJob(ctx, job); err != nil {
		t.logger.Warn("Backfill job bookkeeping failed", "job", job.ID, "error", err)
		return key, nil
	}
	if err := t.jobs.MarkRunning(ctx, job.ID, t.owner, t.cfg.LeaseTTL); err != nil {
		t.logger.Warn("Backfill job claim failed", "job", job.ID, "error", err)
		return key, nil
	}
	if err := t.jobs.UpdateJobStatus(ctx, job.ID, queue.StatusCompleted,
		queue.StatusUpdate{SnapshotLocation: &key}); err != nil {
		t.logger.Warn("Backfill job completion failed", "job", job.ID, "error", err)
	}
	return key, nil
}
