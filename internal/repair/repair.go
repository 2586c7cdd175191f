// Package repair is the offline reconciliation tool. It audits job queue
// records against actual snapshot store contents and heals drift: stale
// recorded paths, missing snapshots (refetchable while kickoff is still in
// the future), and orphaned blobs nothing references.
//
// Three phases — audit (read-only), refetch, repair — each honoring dry-run.
package repair

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/albapepper/prekick-data/internal/blob"
	"github.com/albapepper/prekick-data/internal/config"
	"github.com/albapepper/prekick-data/internal/index"
	"github.com/albapepper/prekick-data/internal/provider"
	"github.com/albapepper/prekick-data/internal/queue"
	"github.com/albapepper/prekick-data/internal/snapshot"
)

const auditBatchLimit = 10000

// PathMismatch is a job whose snapshot exists but whose recorded location is
// stale.
type PathMismatch struct {
	Job          queue.Job
	RecordedPath string
	ActualPath   string
}

// MissingSnapshot is a terminal job with no recoverable artifact.
type MissingSnapshot struct {
	Job         queue.Job
	Refetchable bool // kickoff still in the future
}

// Report is the audit outcome.
type Report struct {
	JobsAudited    int
	Healthy        int
	PathMismatches []PathMismatch
	Missing        []MissingSnapshot
	Orphans        []string // snapshot keys no job references
}

// Summary returns a human-readable summary.
func (r *Report) Summary() string {
	return fmt.Sprintf("audited=%d healthy=%d mismatched=%d missing=%d orphans=%d",
		r.JobsAudited, r.Healthy, len(r.PathMismatches), len(r.Missing), len(r.Orphans))
}

// Options configures an audit pass.
type Options struct {
	// DeepScan enables the substring scan over all season keys when the
	// expected path is absent. O(n) per job — a one-time migration aid for
	// artifacts written under an older naming scheme, not a steady-state
	// mechanism.
	DeepScan bool
}

// Tool runs the reconciliation phases.
type Tool struct {
	cfg      *config.Config
	jobs     queue.Store
	store    *snapshot.Store
	indexer  *index.Builder
	oddsfeed provider.Client
	owner    string
	jobDelay time.Duration
	logger   *slog.Logger
}

// New creates a repair tool. The provider may be nil if refetch is never
// invoked.
func New(cfg *config.Config, jobs queue.Store, store *snapshot.Store, indexer *index.Builder, oddsfeed provider.Client, logger *slog.Logger) *Tool {
	if logger == nil {
		logger = slog.Default()
	}
	rpm := cfg.ProviderRPM
	if rpm < 1 {
		rpm = 1
	}
	return &Tool{
		cfg:      cfg,
		jobs:     jobs,
		store:    store,
		indexer:  indexer,
		oddsfeed: oddsfeed,
		owner:    uuid.NewString(),
		jobDelay: time.Minute / time.Duration(rpm),
		logger:   logger,
	}
}

// --------------------------------------------------------------------------
// Phase 1: audit (read-only)
// --------------------------------------------------------------------------

// Audit diffs queue records against store contents. Never mutates anything.
func (t *Tool) Audit(ctx context.Context, opts Options) (*Report, error) {
	report := &Report{}

	completed, err := t.jobs.ListByStatus(ctx, queue.StatusCompleted, auditBatchLimit)
	if err != nil {
		return nil, fmt.Errorf("list completed jobs: %w", err)
	}
	failed, err := t.jobs.ListByStatus(ctx, queue.StatusFailed, auditBatchLimit)
	if err != nil {
		return nil, fmt.Errorf("list failed jobs: %w", err)
	}
	terminal := append(completed, failed...)

	// Every key a job accounts for, per season, for orphan detection.
	referenced := make(map[string]map[string]bool) // seasonPrefix -> key set
	seasonKeys := make(map[string][]string)        // seasonPrefix -> full listing

	for _, job := range terminal {
		report.JobsAudited++

		season := snapshot.SeasonForDate(job.KickoffTime)
		prefix := snapshot.SeasonPrefix(job.League, season)
		if _, ok := seasonKeys[prefix]; !ok {
			keys, err := t.store.ListSeason(ctx, job.League, season)
			if err != nil {
				return nil, fmt.Errorf("list season %s: %w", prefix, err)
			}
			seasonKeys[prefix] = keys
			referenced[prefix] = make(map[string]bool)
		}

		expected := snapshot.Key(job.League, season, job.FixtureID, job.OffsetName, job.MatchDate)
		actual, err := t.locate(ctx, &job, expected, seasonKeys[prefix], opts.DeepScan)
		if err != nil {
			return nil, err
		}

		switch {
		case actual == "":
			report.Missing = append(report.Missing, MissingSnapshot{
				Job:         job,
				Refetchable: job.KickoffTime.After(time.Now().UTC()),
			})
		case job.SnapshotLocation == nil || *job.SnapshotLocation != actual:
			recorded := ""
			if job.SnapshotLocation != nil {
				recorded = *job.SnapshotLocation
			}
			report.PathMismatches = append(report.PathMismatches, PathMismatch{
				Job:          job,
				RecordedPath: recorded,
				ActualPath:   actual,
			})
			referenced[prefix][actual] = true
		default:
			report.Healthy++
			referenced[prefix][actual] = true
		}
	}

	for prefix, keys := range seasonKeys {
		for _, key := range keys {
			if !referenced[prefix][key] {
				report.Orphans = append(report.Orphans, key)
			}
		}
	}

	t.logger.Info("Audit complete", "summary", report.Summary())
	return report, nil
}

// locate probes the expected key, then optionally falls back to a substring
// scan over the season listing. Returns "" when no artifact is recoverable.
func (t *Tool) locate(ctx context.Context, job *queue.Job, expected string, keys []string, deepScan bool) (string, error) {
	ok, err := t.store.Exists(ctx, expected)
	if err != nil {
		return "", fmt.Errorf("probe %s: %w", expected, err)
	}
	if ok {
		return expected, nil
	}
	if !deepScan {
		return "", nil
	}
	for _, key := range keys {
		if strings.Contains(key, job.FixtureID) &&
			strings.Contains(key, job.OffsetName) &&
			strings.Contains(key, job.MatchDate) {
			return key, nil
		}
	}
	return "", nil
}

// --------------------------------------------------------------------------
// Phase 2: refetch (optional)
// --------------------------------------------------------------------------

// Refetch re-collects recoverable missing snapshots — jobs whose kickoff is
// still in the future — under the same rate limit as normal execution.
// Returns the number of snapshots recovered.
func (t *Tool) Refetch(ctx context.Context, report *Report, dryRun bool) (int, error) {
	if t.oddsfeed == nil {
		return 0, fmt.Errorf("refetch requires a provider client")
	}

	recovered := 0
	for _, m := range report.Missing {
		if !m.Refetchable {
			continue
		}
		job := m.Job
		if dryRun {
			t.logger.Info("[dry-run] Would refetch snapshot", "job", job.ID)
			recovered++
			continue
		}

		if err := t.refetchJob(ctx, &job); err != nil {
			t.logger.Error("Refetch failed", "job", job.ID, "error", err)
		} else {
			recovered++
		}

		select {
		case <-time.After(t.jobDelay):
		case <-ctx.Done():
			return recovered, ctx.Err()
		}
	}
	return recovered, nil
}

func (t *Tool) refetchJob(ctx context.Context, job *queue.Job) error {
	offset, ok := t.cfg.OffsetByName(job.OffsetName)
	if !ok {
		return fmt.Errorf("timing offset %s not configured", job.OffsetName)
	}

	// The job is terminal but its artifact is gone, so it is not really
	// done: requeue it first, then claim it like normal execution would.
	if err := t.jobs.RetryJob(ctx, job.ID, time.Now().UTC()); err != nil {
		return fmt.Errorf("requeue: %w", err)
	}
	if err := t.jobs.MarkRunning(ctx, job.ID, t.owner, t.cfg.LeaseTTL); err != nil {
		return fmt.Errorf("claim: %w", err)
	}

	payload, err := t.oddsfeed.FetchLiveOdds(ctx, job.League, job.FixtureID, offset.Markets, t.cfg.OddsRegion)
	if err != nil {
		msg := err.Error()
		if updErr := t.jobs.UpdateJobStatus(ctx, job.ID, queue.StatusFailed,
			queue.StatusUpdate{Error: &msg}); updErr != nil {
			t.logger.Error("Failed to mark refetch failed", "job", job.ID, "error", updErr)
		}
		return err
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
			CollectionMethod: "refetch",
		},
		Odds: *payload,
	}
	key, err := t.store.Save(ctx, snap)
	if err != nil {
		msg := err.Error()
		if updErr := t.jobs.UpdateJobStatus(ctx, job.ID, queue.StatusFailed,
			queue.StatusUpdate{Error: &msg}); updErr != nil {
			t.logger.Error("Failed to mark refetch failed", "job", job.ID, "error", updErr)
		}
		return err
	}
	return t.jobs.UpdateJobStatus(ctx, job.ID, queue.StatusCompleted,
		queue.StatusUpdate{SnapshotLocation: &key})
}

// --------------------------------------------------------------------------
// Phase 3: repair
// --------------------------------------------------------------------------

// Repair corrects stale recorded paths, then forces a full index rebuild
// from freshly re-queried completed-job state.
func (t *Tool) Repair(ctx context.Context, report *Report, dryRun bool) error {
	for _, pm := range report.PathMismatches {
		if dryRun {
			t.logger.Info("[dry-run] Would correct snapshot location",
				"job", pm.Job.ID, "from", pm.RecordedPath, "to", pm.ActualPath)
			continue
		}
		if err := t.jobs.UpdateSnapshotLocation(ctx, pm.Job.ID, pm.ActualPath); err != nil {
			t.logger.Error("Failed to correct snapshot location", "job", pm.Job.ID, "error", err)
		}
	}

	if dryRun {
		t.logger.Info("[dry-run] Would rebuild all indexes from job state")
		return nil
	}
	return t.RebuildIndexes(ctx)
}

// RebuildIndexes replaces every league season's match index from completed
// job rows, then rebuilds the derived views.
func (t *Tool) RebuildIndexes(ctx context.Context) error {
	completed, err := t.jobs.ListByStatus(ctx, queue.StatusCompleted, auditBatchLimit)
	if err != nil {
		return fmt.Errorf("list completed jobs: %w", err)
	}

	type ls struct{ league, season string }
	refs := make(map[ls][]index.SnapshotRef)
	for _, job := range completed {
		if job.SnapshotLocation == nil {
			continue
		}
		season := snapshot.SeasonForDate(job.KickoffTime)
		key := ls{job.League, season}
		refs[key] = append(refs[key], index.SnapshotRef{
			HomeTeam:   job.HomeTeam,
			AwayTeam:   job.AwayTeam,
			MatchDate:  job.MatchDate,
			OffsetName: job.OffsetName,
			Location:   *job.SnapshotLocation,
		})
	}

	for key, batch := range refs {
		if _, err := t.indexer.ReplaceMatchIndex(ctx, key.league, key.season, batch); err != nil {
			return fmt.Errorf("rebuild match index %s/%s: %w", key.league, key.season, err)
		}
		if err := t.indexer.BuildAllIndexes(ctx, key.league, key.season); err != nil {
			return fmt.Errorf("rebuild derived indexes %s/%s: %w", key.league, key.season, err)
		}
	}
	t.logger.Info("Index rebuild complete", "seasons", len(refs))
	return nil
}

// DeleteOrphans removes blobs no job references. Destructive — only run
// after reviewing an audit report.
func (t *Tool) DeleteOrphans(ctx context.Context, report *Report, dryRun bool) (int, error) {
	removed := 0
	for _, key := range report.Orphans {
		if dryRun {
			t.logger.Info("[dry-run] Would delete orphaned blob", "key", key)
			removed++
			continue
		}
		if err := t.store.Delete(ctx, key); err != nil {
			if blob.IsNotFound(err) {
				continue
			}
			return removed, fmt.Errorf("delete orphan %s: %w", key, err)
		}
		removed++
	}
	return removed, nil
}
