package queue

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testJob(fixtureID, offsetName string, scheduled time.Time) *Job {
	kickoff := scheduled.Add(24 * time.Hour)
	return NewJob(fixtureID, "soccer_epl", "Arsenal FC", "Chelsea FC", kickoff, offsetName, scheduled)
}

func mustSchedule(t *testing.T, q Store, job *Job) {
	t.Helper()
	inserted, err := q.ScheduleJob(context.Background(), job)
	if err != nil {
		t.Fatalf("ScheduleJob(%s): %v", job.ID, err)
	}
	if !inserted {
		t.Fatalf("ScheduleJob(%s): expected insert, got noop", job.ID)
	}
}

func TestJobID(t *testing.T) {
	if got := JobID("fx1", "closing"); got != "fx1_closing" {
		t.Errorf("JobID = %q, want %q", got, "fx1_closing")
	}
}

func TestScheduleJobIdempotent(t *testing.T) {
	q := NewMemory()
	ctx := context.Background()
	job := testJob("fx1", "closing", time.Now().UTC())

	mustSchedule(t, q, job)

	inserted, err := q.ScheduleJob(ctx, testJob("fx1", "closing", time.Now().UTC().Add(time.Hour)))
	if err != nil {
		t.Fatalf("second ScheduleJob: %v", err)
	}
	if inserted {
		t.Error("second ScheduleJob for same (fixture, offset) inserted a duplicate")
	}

	got, err := q.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if !got.ScheduledTime.Equal(job.ScheduledTime) {
		t.Errorf("re-schedule mutated scheduled time: got %v, want %v", got.ScheduledTime, job.ScheduledTime)
	}
}

func TestGetJobsDueWithinOrderAndWindow(t *testing.T) {
	q := NewMemory()
	ctx := context.Background()
	now := time.Now().UTC()

	// Insert out of order; expect due jobs sorted by scheduled time.
	mustSchedule(t, q, testJob("fx2", "closing", now.Add(-time.Minute)))
	mustSchedule(t, q, testJob("fx1", "closing", now.Add(-time.Hour)))
	mustSchedule(t, q, testJob("fx3", "closing", now.Add(2*time.Minute)))
	mustSchedule(t, q, testJob("fx4", "closing", now.Add(48*time.Hour))) // far future

	due, err := q.GetJobsDueWithin(ctx, 5*time.Minute, 0)
	if err != nil {
		t.Fatalf("GetJobsDueWithin: %v", err)
	}
	if len(due) != 3 {
		t.Fatalf("due jobs = %d, want 3", len(due))
	}
	for i, want := range []string{"fx1_closing", "fx2_closing", "fx3_closing"} {
		if due[i].ID != want {
			t.Errorf("due[%d] = %s, want %s", i, due[i].ID, want)
		}
	}

	limited, err := q.GetJobsDueWithin(ctx, 5*time.Minute, 2)
	if err != nil {
		t.Fatalf("GetJobsDueWithin limited: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("limited due jobs = %d, want 2", len(limited))
	}
}

func TestTransitionRules(t *testing.T) {
	ctx := context.Background()
	ttl := 10 * time.Minute

	t.Run("terminal requires running", func(t *testing.T) {
		q := NewMemory()
		job := testJob("fx1", "closing", time.Now().UTC())
		mustSchedule(t, q, job)

		err := q.UpdateJobStatus(ctx, job.ID, StatusCompleted, StatusUpdate{})
		if !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("pending -> completed: got %v, want ErrInvalidTransition", err)
		}
	})

	t.Run("running to completed", func(t *testing.T) {
		q := NewMemory()
		job := testJob("fx1", "closing", time.Now().UTC())
		mustSchedule(t, q, job)

		if err := q.MarkRunning(ctx, job.ID, "owner-1", ttl); err != nil {
			t.Fatalf("MarkRunning: %v", err)
		}
		loc := "leagues/soccer_epl/2025-2026/fx1_closing_2025-11-30.json"
		if err := q.UpdateJobStatus(ctx, job.ID, StatusCompleted, StatusUpdate{SnapshotLocation: &loc}); err != nil {
			t.Fatalf("running -> completed: %v", err)
		}

		got, err := q.GetJob(ctx, job.ID)
		if err != nil {
			t.Fatalf("GetJob: %v", err)
		}
		if got.Status != StatusCompleted {
			t.Errorf("status = %s, want completed", got.Status)
		}
		if got.SnapshotLocation == nil || *got.SnapshotLocation != loc {
			t.Errorf("snapshot location not recorded: %v", got.SnapshotLocation)
		}
		if got.CompletedAt == nil {
			t.Error("completed job missing completed_at")
		}
		if got.LeaseOwner != nil || got.LeaseExpiresAt != nil {
			t.Error("terminal transition did not clear the lease")
		}
	})

	t.Run("completed is final", func(t *testing.T) {
		q := NewMemory()
		job := testJob("fx1", "closing", time.Now().UTC())
		mustSchedule(t, q, job)
		if err := q.MarkRunning(ctx, job.ID, "owner-1", ttl); err != nil {
			t.Fatalf("MarkRunning: %v", err)
		}
		if err := q.UpdateJobStatus(ctx, job.ID, StatusCompleted, StatusUpdate{}); err != nil {
			t.Fatalf("complete: %v", err)
		}
		if err := q.MarkRunning(ctx, job.ID, "owner-2", ttl); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("completed -> running: got %v, want ErrInvalidTransition", err)
		}
	})

	t.Run("failed can run again", func(t *testing.T) {
		q := NewMemory()
		job := testJob("fx1", "closing", time.Now().UTC())
		mustSchedule(t, q, job)
		if err := q.MarkRunning(ctx, job.ID, "owner-1", ttl); err != nil {
			t.Fatalf("MarkRunning: %v", err)
		}
		msg := "provider timeout"
		if err := q.UpdateJobStatus(ctx, job.ID, StatusFailed, StatusUpdate{Error: &msg}); err != nil {
			t.Fatalf("fail: %v", err)
		}
		if err := q.MarkRunning(ctx, job.ID, "owner-2", ttl); err != nil {
			t.Errorf("failed -> running: %v", err)
		}
	})

	t.Run("unknown job", func(t *testing.T) {
		q := NewMemory()
		if err := q.MarkRunning(ctx, "nope", "owner", ttl); !errors.Is(err, ErrNotFound) {
			t.Errorf("MarkRunning unknown: got %v, want ErrNotFound", err)
		}
		if err := q.UpdateJobStatus(ctx, "nope", StatusCompleted, StatusUpdate{}); !errors.Is(err, ErrNotFound) {
			t.Errorf("UpdateJobStatus unknown: got %v, want ErrNotFound", err)
		}
	})
}

func TestAttemptsIncreaseEachUpdate(t *testing.T) {
	q := NewMemory()
	ctx := context.Background()
	job := testJob("fx1", "closing", time.Now().UTC())
	mustSchedule(t, q, job)

	msg := "boom"
	for i := 1; i <= 3; i++ {
		if err := q.MarkRunning(ctx, job.ID, "owner", time.Minute); err != nil {
			t.Fatalf("MarkRunning %d: %v", i, err)
		}
		if err := q.UpdateJobStatus(ctx, job.ID, StatusFailed, StatusUpdate{Error: &msg}); err != nil {
			t.Fatalf("fail %d: %v", i, err)
		}
		got, err := q.GetJob(ctx, job.ID)
		if err != nil {
			t.Fatalf("GetJob: %v", err)
		}
		if got.Attempts != i {
			t.Errorf("after %d failures attempts = %d", i, got.Attempts)
		}
		if got.LastAttempt == nil {
			t.Error("last attempt not stamped")
		}
	}
}

func TestFailurePreservesSnapshotLocation(t *testing.T) {
	q := NewMemory()
	ctx := context.Background()
	job := testJob("fx1", "closing", time.Now().UTC())
	mustSchedule(t, q, job)

	if err := q.MarkRunning(ctx, job.ID, "owner", time.Minute); err != nil {
		t.Fatalf("MarkRunning: %v", err)
	}
	loc := "leagues/soccer_epl/2025-2026/fx1_closing_2025-11-30.json"
	if err := q.UpdateJobStatus(ctx, job.ID, StatusCompleted, StatusUpdate{SnapshotLocation: &loc}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	// A later retry cycle that fails must not erase the recorded location.
	if err := q.RetryJob(ctx, job.ID, time.Now().UTC()); err != nil {
		t.Fatalf("RetryJob: %v", err)
	}
	if err := q.MarkRunning(ctx, job.ID, "owner", time.Minute); err != nil {
		t.Fatalf("MarkRunning: %v", err)
	}
	msg := "boom"
	if err := q.UpdateJobStatus(ctx, job.ID, StatusFailed, StatusUpdate{Error: &msg}); err != nil {
		t.Fatalf("fail: %v", err)
	}

	got, err := q.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.SnapshotLocation == nil || *got.SnapshotLocation != loc {
		t.Errorf("failure erased snapshot location: %v", got.SnapshotLocation)
	}
	if got.LastError == nil || *got.LastError != msg {
		t.Errorf("last error not recorded: %v", got.LastError)
	}
}

func TestRetryJobResetsState(t *testing.T) {
	q := NewMemory()
	ctx := context.Background()
	job := testJob("fx1", "closing", time.Now().UTC().Add(-time.Hour))
	mustSchedule(t, q, job)

	if err := q.MarkRunning(ctx, job.ID, "owner", time.Minute); err != nil {
		t.Fatalf("MarkRunning: %v", err)
	}
	msg := "boom"
	if err := q.UpdateJobStatus(ctx, job.ID, StatusFailed, StatusUpdate{Error: &msg}); err != nil {
		t.Fatalf("fail: %v", err)
	}

	when := time.Now().UTC().Add(30 * time.Minute)
	if err := q.RetryJob(ctx, job.ID, when); err != nil {
		t.Fatalf("RetryJob: %v", err)
	}

	got, err := q.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != StatusPending {
		t.Errorf("status = %s, want pending", got.Status)
	}
	if !got.ScheduledTime.Equal(when) {
		t.Errorf("scheduled time = %v, want %v", got.ScheduledTime, when)
	}
	if got.LastError != nil || got.CompletedAt != nil {
		t.Error("retry did not clear error and completion state")
	}
	if got.Attempts != 1 {
		t.Errorf("retry reset attempts: got %d, want 1", got.Attempts)
	}
}

func TestReclaimExpired(t *testing.T) {
	q := NewMemory()
	ctx := context.Background()

	expired := testJob("fx1", "closing", time.Now().UTC())
	live := testJob("fx2", "closing", time.Now().UTC())
	mustSchedule(t, q, expired)
	mustSchedule(t, q, live)

	if err := q.MarkRunning(ctx, expired.ID, "crashed-owner", -time.Minute); err != nil {
		t.Fatalf("MarkRunning expired: %v", err)
	}
	if err := q.MarkRunning(ctx, live.ID, "live-owner", time.Hour); err != nil {
		t.Fatalf("MarkRunning live: %v", err)
	}

	n, err := q.ReclaimExpired(ctx)
	if err != nil {
		t.Fatalf("ReclaimExpired: %v", err)
	}
	if n != 1 {
		t.Fatalf("reclaimed = %d, want 1", n)
	}

	got, _ := q.GetJob(ctx, expired.ID)
	if got.Status != StatusPending || got.LeaseOwner != nil {
		t.Errorf("expired job not requeued: status=%s owner=%v", got.Status, got.LeaseOwner)
	}
	still, _ := q.GetJob(ctx, live.ID)
	if still.Status != StatusRunning {
		t.Errorf("live lease was reclaimed: status=%s", still.Status)
	}
}

func TestCleanupOlderThan(t *testing.T) {
	q := NewMemory()
	ctx := context.Background()

	old := testJob("fx1", "closing", time.Now().UTC())
	fresh := testJob("fx2", "closing", time.Now().UTC())
	pending := testJob("fx3", "closing", time.Now().UTC().Add(-90*24*time.Hour))
	mustSchedule(t, q, old)
	mustSchedule(t, q, fresh)
	mustSchedule(t, q, pending)

	for _, id := range []string{old.ID, fresh.ID} {
		if err := q.MarkRunning(ctx, id, "owner", time.Minute); err != nil {
			t.Fatalf("MarkRunning: %v", err)
		}
		if err := q.UpdateJobStatus(ctx, id, StatusCompleted, StatusUpdate{}); err != nil {
			t.Fatalf("complete: %v", err)
		}
	}
	// Backdate one completion past the retention window.
	q.mu.Lock()
	backdated := time.Now().UTC().AddDate(0, 0, -40)
	q.jobs[old.ID].CompletedAt = &backdated
	q.mu.Unlock()

	removed, err := q.CleanupOlderThan(ctx, 30)
	if err != nil {
		t.Fatalf("CleanupOlderThan: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := q.GetJob(ctx, old.ID); !errors.Is(err, ErrNotFound) {
		t.Error("old terminal job survived cleanup")
	}
	if _, err := q.GetJob(ctx, fresh.ID); err != nil {
		t.Error("fresh terminal job was removed")
	}
	// Pending jobs are never cleaned up, no matter how old.
	if _, err := q.GetJob(ctx, pending.ID); err != nil {
		t.Error("pending job was removed")
	}
}

func TestSummary(t *testing.T) {
	q := NewMemory()
	ctx := context.Background()
	now := time.Now().UTC()

	first := testJob("fx1", "closing", now.Add(time.Hour))
	second := testJob("fx2", "closing", now.Add(30*time.Minute))
	done := testJob("fx3", "closing", now.Add(-time.Hour))
	mustSchedule(t, q, first)
	mustSchedule(t, q, second)
	mustSchedule(t, q, done)
	if err := q.MarkRunning(ctx, done.ID, "owner", time.Minute); err != nil {
		t.Fatalf("MarkRunning: %v", err)
	}
	if err := q.UpdateJobStatus(ctx, done.ID, StatusCompleted, StatusUpdate{}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	s, err := q.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if s.Total != 3 {
		t.Errorf("total = %d, want 3", s.Total)
	}
	if s.ByStatus[StatusPending] != 2 || s.ByStatus[StatusCompleted] != 1 {
		t.Errorf("by status = %v", s.ByStatus)
	}
	if s.NextPending == nil || !s.NextPending.Equal(second.ScheduledTime) {
		t.Errorf("next pending = %v, want %v", s.NextPending, second.ScheduledTime)
	}
}

func TestMetricsAccumulate(t *testing.T) {
	q := NewMemory()
	ctx := context.Background()

	row := MetricRow{Date: "2026-08-23", League: "soccer_epl", Scheduled: 2, Completed: 1, Failed: 1, Requests: 2, CostUnits: 6}
	if err := q.RecordMetrics(ctx, []MetricRow{row}); err != nil {
		t.Fatalf("RecordMetrics: %v", err)
	}
	// Same day, same league: counters add up instead of overwriting.
	if err := q.RecordMetrics(ctx, []MetricRow{{Date: "2026-08-23", League: "soccer_epl", Completed: 3, Requests: 3, CostUnits: 9}}); err != nil {
		t.Fatalf("RecordMetrics second run: %v", err)
	}
	if err := q.RecordMetrics(ctx, []MetricRow{{Date: "2026-08-24", League: "soccer_epl", Scheduled: 5}}); err != nil {
		t.Fatalf("RecordMetrics next day: %v", err)
	}

	rows, err := q.GetMetrics(ctx, "2026-08-23", "2026-08-23")
	if err != nil {
		t.Fatalf("GetMetrics: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	got := rows[0]
	if got.Scheduled != 2 || got.Completed != 4 || got.Failed != 1 || got.Requests != 5 || got.CostUnits != 15 {
		t.Errorf("accumulated row = %+v", got)
	}

	all, err := q.GetMetrics(ctx, "2026-08-01", "2026-08-31")
	if err != nil {
		t.Fatalf("GetMetrics range: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("range rows = %d, want 2", len(all))
	}
}

func TestMemoryFailInjection(t *testing.T) {
	q := NewMemory()
	q.Fail = errors.New("queue unavailable")
	if _, err := q.ScheduleJob(context.Background(), testJob("fx1", "closing", time.Now())); err == nil {
		t.Error("expected injected failure")
	}
}
