package queue

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound reports that no job exists with the requested id.
var ErrNotFound = errors.New("queue: job not found")

// ErrInvalidTransition reports a status change the lifecycle forbids.
var ErrInvalidTransition = errors.New("queue: invalid status transition")

// Store is the persistence contract for the job queue. Any relational store
// reachable with simple predicate queries can back it; the production
// implementation is Postgres.
type Store interface {
	// ScheduleJob inserts the job if its id is not already present.
	// Returns true when a row was inserted, false on the idempotent noop.
	ScheduleJob(ctx context.Context, job *Job) (bool, error)

	// GetJob returns the job or ErrNotFound.
	GetJob(ctx context.Context, id string) (*Job, error)

	// GetJobsDueWithin returns pending jobs with scheduledTime <= now+window,
	// strictly ascending by scheduled time, at most limit rows.
	GetJobsDueWithin(ctx context.Context, window time.Duration, limit int) ([]Job, error)

	// MarkRunning transitions a pending (or failed, for repair refetches)
	// job to running and records the executor's lease.
	MarkRunning(ctx context.Context, id, owner string, leaseTTL time.Duration) error

	// UpdateJobStatus applies a transition, increments attempts, stamps
	// lastAttempt, and stamps completedAt on terminal statuses. Terminal
	// statuses are only reachable from running.
	UpdateJobStatus(ctx context.Context, id string, status Status, upd StatusUpdate) error

	// UpdateSnapshotLocation corrects a stale recorded location without
	// touching status or attempt bookkeeping. Used by the repair tool only.
	UpdateSnapshotLocation(ctx context.Context, id, location string) error

	// RetryJob resets a job to pending at a new scheduled time and clears
	// its error.
	RetryJob(ctx context.Context, id string, newScheduledTime time.Time) error

	// ReclaimExpired requeues running jobs whose lease has expired.
	// Returns the number of jobs reset to pending.
	ReclaimExpired(ctx context.Context) (int, error)

	// GetJobsForFixture returns all jobs for a fixture, optionally filtered
	// to one offset name ("" = all).
	GetJobsForFixture(ctx context.Context, fixtureID, offsetName string) ([]Job, error)

	// ListByStatus returns jobs in the given status, oldest scheduled first.
	ListByStatus(ctx context.Context, status Status, limit int) ([]Job, error)

	// CleanupOlderThan deletes terminal jobs completed more than the given
	// number of days ago. Returns the count removed.
	CleanupOlderThan(ctx context.Context, days int) (int, error)

	// Summary returns counts by status and the next pending scheduled time.
	Summary(ctx context.Context) (*Summary, error)

	// RecordMetrics additively upserts run counters per (date, league).
	RecordMetrics(ctx context.Context, rows []MetricRow) error

	// GetMetrics returns metric rows with date in [from, to] inclusive.
	GetMetrics(ctx context.Context, from, to string) ([]MetricRow, error)
}
