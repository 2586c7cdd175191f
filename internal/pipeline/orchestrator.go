package pipeline

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

// Normalizer canonicalizes provider team names before they are denormalized
// onto job rows and index keys.
type Normalizer func(string) string

// Orchestrator composes the job queue, snapshot store, index builder, and an
// odds provider into the discovery -> scheduling -> execution pipeline.
type Orchestrator struct {
	cfg       *config.Config
	jobs      queue.Store
	store     *snapshot.Store
	indexer   *index.Builder
	oddsfeed  provider.Client
	normalize Normalizer
	owner     string // lease owner id for this executor
	jobDelay  time.Duration
	logger    *slog.Logger
}

// New creates an orchestrator. Pass nil normalize to use team.Normalize.
func New(cfg *config.Config, jobs queue.Store, store *snapshot.Store, indexer *index.Builder, oddsfeed provider.Client, normalize Normalizer, logger *slog.Logger) *Orchestrator {
	if normalize == nil {
		normalize = team.Normalize
	}
	if logger == nil {
		logger = slog.Default()
	}
	rpm := cfg.ProviderRPM
	if rpm < 1 {
		rpm = 1
	}
	return &Orchestrator{
		cfg:       cfg,
		jobs:      jobs,
		store:     store,
		indexer:   indexer,
		oddsfeed:  oddsfeed,
		normalize: normalize,
		owner:     uuid.NewString(),
		jobDelay:  time.Minute / time.Duration(rpm),
		logger:    logger,
	}
}

// Run executes one full pipeline invocation: lease sweep, discovery,
// execution, index maintenance, metrics flush — in that fixed order.
// It returns an error only when the queue itself is unreachable.
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	start := time.Now()
	result := &RunResult{}
	metrics := newMetricSet()

	reclaimed, err := o.jobs.ReclaimExpired(ctx)
	if err != nil {
		return nil, fmt.Errorf("reclaim expired leases: %w", err)
	}
	result.Reclaimed = reclaimed
	if reclaimed > 0 {
		o.logger.Warn("Requeued jobs with expired leases", "count", reclaimed)
	}

	result.Discovery = o.discover(ctx, metrics)

	exec, refs, err := o.execute(ctx, metrics)
	if err != nil {
		return nil, err
	}
	result.Execution = *exec

	o.updateIndexes(ctx, refs)

	if err := o.jobs.RecordMetrics(ctx, metrics.rows()); err != nil {
		o.logger.Error("Failed to record run metrics", "error", err)
	}

	result.Duration = time.Since(start)
	o.logger.Info("Pipeline run complete", "summary", result.Summary())
	return result, nil
}

// --------------------------------------------------------------------------
// Discovery
// --------------------------------------------------------------------------

// RunDiscovery performs a standalone discovery pass and flushes its metrics.
func (o *Orchestrator) RunDiscovery(ctx context.Context) (DiscoveryResult, error) {
	metrics := newMetricSet()
	result := o.discover(ctx, metrics)
	if err := o.jobs.RecordMetrics(ctx, metrics.rows()); err != nil {
		o.logger.Error("Failed to record discovery metrics", "error", err)
	}
	return result, nil
}

// RunExecution performs a standalone execution pass (lease sweep included),
// maintains indexes for completed snapshots, and flushes metrics.
func (o *Orchestrator) RunExecution(ctx context.Context) (*ExecutionResult, error) {
	metrics := newMetricSet()
	if _, err := o.jobs.ReclaimExpired(ctx); err != nil {
		return nil, fmt.Errorf("reclaim expired leases: %w", err)
	}
	result, refs, err := o.execute(ctx, metrics)
	if err != nil {
		return nil, err
	}
	o.updateIndexes(ctx, refs)
	if err := o.jobs.RecordMetrics(ctx, metrics.rows()); err != nil {
		o.logger.Error("Failed to record execution metrics", "error", err)
	}
	return result, nil
}

// discover lists upcoming fixtures for every configured league and schedules
// one pending job per (fixture, offset) whose capture instant is still in
// the future. A discovery failure in one league never blocks the others.
func (o *Orchestrator) discover(ctx context.Context, metrics *metricSet) DiscoveryResult {
	var result DiscoveryResult
	now := time.Now().UTC()

	for _, league := range o.cfg.Leagues {
		result.LeaguesChecked++

		fixtures, err := o.oddsfeed.ListFixtures(ctx, league)
		if err != nil {
			o.logger.Error("Fixture discovery failed", "league", league, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("league %s: %s", league, err))
			continue
		}
		result.FixturesSeen += len(fixtures)

		for _, fx := range fixtures {
			home := o.normalize(fx.HomeTeam)
			away := o.normalize(fx.AwayTeam)

			for _, offset := range o.cfg.Offsets {
				scheduledAt := offset.ScheduledTime(fx.Kickoff)
				if !scheduledAt.After(now) {
					result.JobsSkipped++ // no retroactive scheduling
					continue
				}

				job := queue.NewJob(fx.ID, league, home, away, fx.Kickoff, offset.Name, scheduledAt)
				inserted, err := o.jobs.ScheduleJob(ctx, job)
				if err != nil {
					o.logger.Error("Failed to schedule job", "job", job.ID, "error", err)
					result.Errors = append(result.Errors, fmt.Sprintf("job %s: %s", job.ID, err))
					continue
				}
				if inserted {
					result.JobsScheduled++
					metrics.add(league, now, func(m *queue.MetricRow) { m.Scheduled++ })
				} else {
					result.JobsSkipped++
				}
			}
		}
	}

	o.logger.Info("Discovery complete", "summary", result.Summary())
	return result
}

// --------------------------------------------------------------------------
// Execution
// --------------------------------------------------------------------------

// execute fetches and stores odds for every job due within the slack window,
// strictly one at a time to respect the provider rate limit. Job failures
// are isolated: the job is marked failed and the batch continues. The
// returned refs describe completed snapshots for index maintenance.
func (o *Orchestrator) execute(ctx context.Context, metrics *metricSet) (*ExecutionResult, map[leagueSeason][]index.SnapshotRef, error) {
	result := &ExecutionResult{}
	refs := make(map[leagueSeason][]index.SnapshotRef)

	due, err := o.jobs.GetJobsDueWithin(ctx, o.cfg.SlackWindow, o.cfg.MaxBatchSize)
	if err != nil {
		return nil, nil, fmt.Errorf("get due jobs: %w", err)
	}
	result.JobsDue = len(due)
	if len(due) == 0 {
		return result, refs, nil
	}
	o.logger.Info("Executing due jobs", "count", len(due))

	now := time.Now().UTC()
	for _, job := range due {
		if ctx.Err() != nil {
			// Cooperative cancellation: unattempted jobs stay pending.
			break
		}

		key, cost, err := o.executeJob(ctx, &job, metrics)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("job %s: %s", job.ID, err))
			metrics.add(job.League, now, func(m *queue.MetricRow) { m.Failed++ })
		} else {
			result.Completed++
			metrics.add(job.League, now, func(m *queue.MetricRow) { m.Completed++ })

			season := snapshot.SeasonForDate(job.KickoffTime)
			ls := leagueSeason{league: job.League, season: season}
			refs[ls] = append(refs[ls], index.SnapshotRef{
				HomeTeam:   job.HomeTeam,
				AwayTeam:   job.AwayTeam,
				MatchDate:  job.MatchDate,
				OffsetName: job.OffsetName,
				Location:   key,
			})
		}
		if cost > 0 {
			result.Requests++
			result.CostUnits += cost
		}

		o.pause(ctx) // hard provider rate limit, success or failure
	}

	o.logger.Info("Execution complete", "summary", result.Summary())
	return result, refs, nil
}

// executeJob runs one job end to end: claim, fetch, store, complete. Any
// error marks the job failed with the error text.
func (o *Orchestrator) executeJob(ctx context.Context, job *queue.Job, metrics *metricSet) (string, int, error) {
	if err := o.jobs.MarkRunning(ctx, job.ID, o.owner, o.cfg.LeaseTTL); err != nil {
		// Another executor may have claimed it; not a job failure.
		o.logger.Warn("Could not claim job", "job", job.ID, "error", err)
		return "", 0, fmt.Errorf("claim: %w", err)
	}

	key, cost, err := o.collect(ctx, job, metrics)
	if err != nil {
		o.failJob(ctx, job.ID, err)
		return "", cost, err
	}

	if updErr := o.jobs.UpdateJobStatus(ctx, job.ID, queue.StatusCompleted,
		queue.StatusUpdate{SnapshotLocation: &key}); updErr != nil {
		// Snapshot is stored; only the bookkeeping failed. Log and move on —
		// the repair tool reconciles this drift.
		o.logger.Error("Failed to mark job completed", "job", job.ID, "error", updErr)
	}
	return key, cost, nil
}

// collect resolves the job's configuration, fetches live odds, and writes
// the snapshot. Missing league or offset configuration is fatal to the job,
// not to the run.
func (o *Orchestrator) collect(ctx context.Context, job *queue.Job, metrics *metricSet) (string, int, error) {
	if !o.cfg.HasLeague(job.League) {
		return "", 0, fmt.Errorf("league %s not configured", job.League)
	}
	offset, ok := o.cfg.OffsetByName(job.OffsetName)
	if !ok {
		return "", 0, fmt.Errorf("timing offset %s not configured", job.OffsetName)
	}

	cost := o.oddsfeed.EstimateCost(provider.CostLiveOdds, len(offset.Markets), 1)
	metrics.add(job.League, time.Now().UTC(), func(m *queue.MetricRow) {
		m.Requests++
		m.CostUnits += cost
	})

	payload, err := o.oddsfeed.FetchLiveOdds(ctx, job.League, job.FixtureID, offset.Markets, o.cfg.OddsRegion)
	if err != nil {
		return "", cost, fmt.Errorf("fetch live odds: %w", err)
	}

	snap := &snapshot.Snapshot{
		Metadata: snapshot.Metadata{
			FixtureID:        job.FixtureID,
			League:           job.League,
			Season:           snapshot.SeasonForDate(job.KickoffTime),
			OffsetName:       job.OffsetName,
			MatchDate:        job.MatchDate,
			KickoffTime:      job.KickoffTime,
			CapturedAt:       time.Now().UTC(),
			CollectionMethod: "live",
		},
		Odds: *payload,
	}
	key, err := o.store.Save(ctx, snap)
	if err != nil {
		return "", cost, fmt.Errorf("save snapshot: %w", err)
	}
	return key, cost, nil
}

// failJob records the failure on the row. A failed update is logged, never
// propagated — one broken write must not take down the batch.
func (o *Orchestrator) failJob(ctx context.Context, id string, cause error) {
	msg := cause.Error()
	if err := o.jobs.UpdateJobStatus(ctx, id, queue.StatusFailed,
		queue.StatusUpdate{Error: &msg}); err != nil {
		o.logger.Error("Failed to mark job failed", "job", id, "error", err)
	}
}

// updateIndexes merges completed snapshot refs into each league season's
// match index and rebuilds the derived views.
func (o *Orchestrator) updateIndexes(ctx context.Context, refs map[leagueSeason][]index.SnapshotRef) {
	for ls, batch := range refs {
		if _, err := o.indexer.UpdateMatchIndex(ctx, ls.league, ls.season, batch); err != nil {
			o.logger.Error("Match index update failed",
				"league", ls.league, "season", ls.season, "error", err)
			continue
		}
		if err := o.indexer.BuildAllIndexes(ctx, ls.league, ls.season); err != nil {
			o.logger.Error("Derived index rebuild failed",
				"league", ls.league, "season", ls.season, "error", err)
		}
	}
}

// pause waits the fixed inter-job delay, returning early on cancellation.
func (o *Orchestrator) pause(ctx context.Context) {
	select {
	case <-time.After(o.jobDelay):
	case <-ctx.Done():
	}
}

type leagueSeason struct {
	league string
	season string
}
