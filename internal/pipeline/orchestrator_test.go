package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/albapepper/prekick-data/internal/blob"
	"github.com/albapepper/prekick-data/internal/config"
	"github.com/albapepper/prekick-data/internal/index"
	"github.com/albapepper/prekick-data/internal/provider"
	"github.com/albapepper/prekick-data/internal/queue"
	"github.com/albapepper/prekick-data/internal/snapshot"
)

// testConfig uses a huge provider RPM so the inter-job pause is negligible.
func testConfig(leagues ...string) *config.Config {
	offsets, _ := config.ResolveOffsets("open_close")
	return &config.Config{
		Leagues:      leagues,
		Offsets:      offsets,
		OddsRegion:   "eu",
		ProviderRPM:  600000,
		SlackWindow:  5 * time.Minute,
		MaxBatchSize: 25,
		LeaseTTL:     10 * time.Minute,
	}
}

type fixtureEnv struct {
	cfg      *config.Config
	jobs     *queue.Memory
	blobs    *blob.Memory
	store    *snapshot.Store
	indexer  *index.Builder
	oddsfeed *provider.Fake
	orch     *Orchestrator
}

func newEnv(t *testing.T, leagues ...string) *fixtureEnv {
	t.Helper()
	cfg := testConfig(leagues...)
	jobs := queue.NewMemory()
	blobs := blob.NewMemory()
	store := snapshot.NewStore(blobs, nil)
	indexer := index.NewBuilder(store, nil)
	oddsfeed := provider.NewFake()
	return &fixtureEnv{
		cfg:      cfg,
		jobs:     jobs,
		blobs:    blobs,
		store:    store,
		indexer:  indexer,
		oddsfeed: oddsfeed,
		orch:     New(cfg, jobs, store, indexer, oddsfeed, nil, nil),
	}
}

func TestDiscoverySchedulesFutureOffsetsOnly(t *testing.T) {
	env := newEnv(t, "soccer_epl")
	ctx := context.Background()

	// Kickoff in 48h: the opening offset (168h before) already passed, only
	// closing (1.5h before) is schedulable.
	env.oddsfeed.AddFixture(provider.Fixture{
		ID: "fx1", League: "soccer_epl",
		HomeTeam: "Arsenal FC", AwayTeam: "Chelsea FC",
		Kickoff: time.Now().UTC().Add(48 * time.Hour),
	})

	result, err := env.orch.RunDiscovery(ctx)
	if err != nil {
		t.Fatalf("RunDiscovery: %v", err)
	}
	if result.JobsScheduled != 1 {
		t.Errorf("scheduled = %d, want 1", result.JobsScheduled)
	}
	if result.JobsSkipped != 1 {
		t.Errorf("skipped = %d, want 1 (past capture instant)", result.JobsSkipped)
	}

	job, err := env.jobs.GetJob(ctx, queue.JobID("fx1", "closing"))
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != queue.StatusPending {
		t.Errorf("status = %s, want pending", job.Status)
	}
}

func TestDiscoveryScheduledTimeIsKickoffMinusOffset(t *testing.T) {
	env := newEnv(t, "soccer_epl")
	ctx := context.Background()

	kickoff := time.Date(2026, 12, 1, 15, 0, 0, 0, time.UTC)
	env.oddsfeed.AddFixture(provider.Fixture{
		ID: "fx1", League: "soccer_epl",
		HomeTeam: "Arsenal FC", AwayTeam: "Chelsea FC",
		Kickoff: kickoff,
	})

	if _, err := env.orch.RunDiscovery(ctx); err != nil {
		t.Fatalf("RunDiscovery: %v", err)
	}

	job, err := env.jobs.GetJob(ctx, queue.JobID("fx1", "opening"))
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	want := kickoff.Add(-168 * time.Hour)
	if !job.ScheduledTime.Equal(want) {
		t.Errorf("scheduled time = %v, want %v", job.ScheduledTime, want)
	}
	if job.MatchDate != "2026-12-01" {
		t.Errorf("match date = %s, want 2026-12-01", job.MatchDate)
	}
}

func TestDiscoveryIdempotent(t *testing.T) {
	env := newEnv(t, "soccer_epl")
	ctx := context.Background()

	env.oddsfeed.AddFixture(provider.Fixture{
		ID: "fx1", League: "soccer_epl",
		HomeTeam: "Arsenal FC", AwayTeam: "Chelsea FC",
		Kickoff: time.Now().UTC().Add(300 * time.Hour),
	})

	first, err := env.orch.RunDiscovery(ctx)
	if err != nil {
		t.Fatalf("first RunDiscovery: %v", err)
	}
	if first.JobsScheduled != 2 {
		t.Fatalf("first scheduled = %d, want 2 (opening + closing)", first.JobsScheduled)
	}

	second, err := env.orch.RunDiscovery(ctx)
	if err != nil {
		t.Fatalf("second RunDiscovery: %v", err)
	}
	if second.JobsScheduled != 0 {
		t.Errorf("second scheduled = %d, want 0", second.JobsScheduled)
	}
	if second.JobsSkipped != 2 {
		t.Errorf("second skipped = %d, want 2", second.JobsSkipped)
	}
}

func TestDiscoveryIsolatesLeagueFailures(t *testing.T) {
	env := newEnv(t, "soccer_epl", "soccer_laliga")
	ctx := context.Background()

	env.oddsfeed.ListErr["soccer_epl"] = errors.New("provider down")
	env.oddsfeed.AddFixture(provider.Fixture{
		ID: "fx2", League: "soccer_laliga",
		HomeTeam: "Real Madrid", AwayTeam: "Sevilla",
		Kickoff: time.Now().UTC().Add(300 * time.Hour),
	})

	result, err := env.orch.RunDiscovery(ctx)
	if err != nil {
		t.Fatalf("RunDiscovery: %v", err)
	}
	if result.LeaguesChecked != 2 {
		t.Errorf("leagues checked = %d, want 2", result.LeaguesChecked)
	}
	if len(result.Errors) != 1 {
		t.Errorf("errors = %v, want exactly one", result.Errors)
	}
	if result.JobsScheduled != 2 {
		t.Errorf("scheduled = %d, want 2 from the healthy league", result.JobsScheduled)
	}
}

func TestDiscoveryNormalizesTeamNames(t *testing.T) {
	env := newEnv(t, "soccer_epl")
	ctx := context.Background()

	env.oddsfeed.AddFixture(provider.Fixture{
		ID: "fx1", League: "soccer_epl",
		HomeTeam: "  Arsenal   FC ", AwayTeam: "Chelsea\tFC",
		Kickoff: time.Now().UTC().Add(300 * time.Hour),
	})

	if _, err := env.orch.RunDiscovery(ctx); err != nil {
		t.Fatalf("RunDiscovery: %v", err)
	}
	job, err := env.jobs.GetJob(ctx, queue.JobID("fx1", "closing"))
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.HomeTeam != "Arsenal FC" || job.AwayTeam != "Chelsea FC" {
		t.Errorf("teams = (%q, %q), want normalized", job.HomeTeam, job.AwayTeam)
	}
}

func TestExecutionCompletesDueJobs(t *testing.T) {
	env := newEnv(t, "soccer_epl")
	ctx := context.Background()

	kickoff := time.Now().UTC().Add(time.Hour)
	env.oddsfeed.AddFixture(provider.Fixture{
		ID: "fx1", League: "soccer_epl",
		HomeTeam: "Arsenal FC", AwayTeam: "Chelsea FC",
		Kickoff: kickoff,
	})
	// Due now.
	job := queue.NewJob("fx1", "soccer_epl", "Arsenal FC", "Chelsea FC", kickoff, "closing", time.Now().UTC().Add(-time.Minute))
	if _, err := env.jobs.ScheduleJob(ctx, job); err != nil {
		t.Fatalf("ScheduleJob: %v", err)
	}

	result, err := env.orch.RunExecution(ctx)
	if err != nil {
		t.Fatalf("RunExecution: %v", err)
	}
	if result.Completed != 1 || result.Failed != 0 {
		t.Fatalf("result = %s", result.Summary())
	}
	if result.Requests != 1 {
		t.Errorf("requests = %d, want 1", result.Requests)
	}
	// closing carries 3 default markets, one region.
	if result.CostUnits != 3 {
		t.Errorf("cost = %d, want 3", result.CostUnits)
	}

	got, err := env.jobs.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != queue.StatusCompleted {
		t.Fatalf("status = %s, want completed", got.Status)
	}
	if got.SnapshotLocation == nil {
		t.Fatal("completed job has no snapshot location")
	}
	ok, err := env.store.Exists(ctx, *got.SnapshotLocation)
	if err != nil || !ok {
		t.Errorf("snapshot %s missing (ok=%v err=%v)", *got.SnapshotLocation, ok, err)
	}
}

func TestExecutionIsolatesJobFailures(t *testing.T) {
	env := newEnv(t, "soccer_epl")
	ctx := context.Background()

	kickoff := time.Now().UTC().Add(time.Hour)
	for _, id := range []string{"fxgood", "fxbad"} {
		env.oddsfeed.AddFixture(provider.Fixture{
			ID: id, League: "soccer_epl",
			HomeTeam: "Arsenal FC", AwayTeam: "Chelsea FC",
			Kickoff: kickoff,
		})
		job := queue.NewJob(id, "soccer_epl", "Arsenal FC", "Chelsea FC", kickoff, "closing", time.Now().UTC().Add(-time.Minute))
		if _, err := env.jobs.ScheduleJob(ctx, job); err != nil {
			t.Fatalf("ScheduleJob: %v", err)
		}
	}
	env.oddsfeed.OddsErr["fxbad"] = errors.New("status 500")

	result, err := env.orch.RunExecution(ctx)
	if err != nil {
		t.Fatalf("RunExecution: %v", err)
	}
	if result.Completed != 1 || result.Failed != 1 {
		t.Fatalf("result = %s", result.Summary())
	}

	bad, _ := env.jobs.GetJob(ctx, queue.JobID("fxbad", "closing"))
	if bad.Status != queue.StatusFailed {
		t.Errorf("bad job status = %s, want failed", bad.Status)
	}
	if bad.LastError == nil {
		t.Error("failed job has no recorded error")
	}
	good, _ := env.jobs.GetJob(ctx, queue.JobID("fxgood", "closing"))
	if good.Status != queue.StatusCompleted {
		t.Errorf("good job status = %s, want completed", good.Status)
	}
}

func TestExecutionQueueUnavailableIsFatal(t *testing.T) {
	env := newEnv(t, "soccer_epl")
	env.jobs.Fail = errors.New("connection refused")

	if _, err := env.orch.RunExecution(context.Background()); err == nil {
		t.Fatal("expected error when the queue is unreachable")
	}
}

func TestFullRunBuildsIndexes(t *testing.T) {
	env := newEnv(t, "soccer_epl")
	ctx := context.Background()

	kickoff := time.Date(2026, 11, 30, 15, 0, 0, 0, time.UTC)
	env.oddsfeed.AddFixture(provider.Fixture{
		ID: "fx1", League: "soccer_epl",
		HomeTeam: "Arsenal FC", AwayTeam: "Chelsea FC",
		Kickoff: kickoff,
	})

	// Seed two due jobs directly (discovery only schedules future instants).
	for _, offset := range []string{"opening", "closing"} {
		job := queue.NewJob("fx1", "soccer_epl", "Arsenal FC", "Chelsea FC", kickoff, offset, time.Now().UTC().Add(-time.Minute))
		if _, err := env.jobs.ScheduleJob(ctx, job); err != nil {
			t.Fatalf("ScheduleJob: %v", err)
		}
	}

	result, err := env.orch.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Execution.Completed != 2 {
		t.Fatalf("completed = %d, want 2", result.Execution.Completed)
	}

	season := snapshot.SeasonForDate(kickoff)
	entry, err := env.indexer.LookupMatch(ctx, "soccer_epl", season, "Arsenal FC", "Chelsea FC", "2026-11-30")
	if err != nil {
		t.Fatalf("LookupMatch: %v", err)
	}
	if entry == nil {
		t.Fatal("completed run left no match index entry")
	}
	if len(entry.Snapshots) != 2 {
		t.Errorf("snapshots indexed = %v, want opening and closing", entry.Snapshots)
	}

	for _, team := range []string{"Arsenal FC", "Chelsea FC"} {
		keys, err := env.indexer.MatchesForTeam(ctx, "soccer_epl", season, team)
		if err != nil {
			t.Fatalf("MatchesForTeam(%s): %v", team, err)
		}
		if len(keys) != 1 {
			t.Errorf("team index for %s = %v, want 1 match", team, keys)
		}
	}

	rows, err := env.jobs.GetMetrics(ctx, "2000-01-01", "2100-01-01")
	if err != nil {
		t.Fatalf("GetMetrics: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("metric rows = %d, want 1", len(rows))
	}
	if rows[0].Completed != 2 || rows[0].Requests != 2 {
		t.Errorf("metrics = %+v", rows[0])
	}
}

func TestRunReclaimsExpiredLeases(t *testing.T) {
	env := newEnv(t, "soccer_epl")
	ctx := context.Background()

	kickoff := time.Now().UTC().Add(time.Hour)
	env.oddsfeed.AddFixture(provider.Fixture{
		ID: "fx1", League: "soccer_epl",
		HomeTeam: "Arsenal FC", AwayTeam: "Chelsea FC",
		Kickoff: kickoff,
	})
	job := queue.NewJob("fx1", "soccer_epl", "Arsenal FC", "Chelsea FC", kickoff, "closing", time.Now().UTC().Add(-time.Minute))
	if _, err := env.jobs.ScheduleJob(ctx, job); err != nil {
		t.Fatalf("ScheduleJob: %v", err)
	}
	// Simulate a crashed executor: claimed with an already-expired lease.
	if err := env.jobs.MarkRunning(ctx, job.ID, "crashed", -time.Minute); err != nil {
		t.Fatalf("MarkRunning: %v", err)
	}

	result, err := env.orch.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Reclaimed != 1 {
		t.Errorf("reclaimed = %d, want 1", result.Reclaimed)
	}
	if result.Execution.Completed != 1 {
		t.Errorf("completed = %d, want 1 (reclaimed job re-executed)", result.Execution.Completed)
	}
}

func TestExecutionStopsOnCancellation(t *testing.T) {
	env := newEnv(t, "soccer_epl")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	kickoff := time.Now().UTC().Add(time.Hour)
	job := queue.NewJob("fx1", "soccer_epl", "Arsenal FC", "Chelsea FC", kickoff, "closing", time.Now().UTC().Add(-time.Minute))
	if _, err := env.jobs.ScheduleJob(context.Background(), job); err != nil {
		t.Fatalf("ScheduleJob: %v", err)
	}

	result, err := env.orch.RunExecution(ctx)
	if err != nil {
		t.Fatalf("RunExecution: %v", err)
	}
	if result.Completed != 0 || result.Failed != 0 {
		t.Errorf("cancelled run attempted work: %s", result.Summary())
	}

	got, _ := env.jobs.GetJob(context.Background(), job.ID)
	if got.Status != queue.StatusPending {
		t.Errorf("unattempted job status = %s, want pending", got.Status)
	}
}
