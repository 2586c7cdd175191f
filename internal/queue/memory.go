package queue

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Memory is an in-process Store with the same transition semantics as
// Postgres. It backs the package tests and the pipeline tests.
type Memory struct {
	mu      sync.Mutex
	jobs    map[string]*Job
	metrics map[string]*MetricRow // key: date|league

	// Fail makes every operation return this error. Lets tests exercise
	// queue-unavailable handling in the orchestrator.
	Fail error
}

// NewMemory creates an empty in-memory queue.
func NewMemory() *Memory {
	return &Memory{
		jobs:    make(map[string]*Job),
		metrics: make(map[string]*MetricRow),
	}
}

func (q *Memory) ScheduleJob(ctx context.Context, job *Job) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Fail != nil {
		return false, q.Fail
	}
	if _, exists := q.jobs[job.ID]; exists {
		return false, nil
	}
	cp := *job
	cp.CreatedAt = time.Now().UTC()
	q.jobs[job.ID] = &cp
	return true, nil
}

func (q *Memory) GetJob(ctx context.Context, id string) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Fail != nil {
		return nil, q.Fail
	}
	j, ok := q.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (q *Memory) GetJobsDueWithin(ctx context.Context, window time.Duration, limit int) ([]Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Fail != nil {
		return nil, q.Fail
	}
	cutoff := time.Now().UTC().Add(window)
	var due []Job
	for _, j := range q.jobs {
		if j.Status == StatusPending && !j.ScheduledTime.After(cutoff) {
			due = append(due, *j)
		}
	}
	sort.Slice(due, func(i, k int) bool {
		return due[i].ScheduledTime.Before(due[k].ScheduledTime)
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (q *Memory) MarkRunning(ctx context.Context, id, owner string, leaseTTL time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Fail != nil {
		return q.Fail
	}
	j, ok := q.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if j.Status != StatusPending && j.Status != StatusFailed {
		return fmt.Errorf("job %s in status %s: %w", id, j.Status, ErrInvalidTransition)
	}
	expires := time.Now().UTC().Add(leaseTTL)
	j.Status = StatusRunning
	j.LeaseOwner = &owner
	j.LeaseExpiresAt = &expires
	return nil
}

func (q *Memory) UpdateJobStatus(ctx context.Context, id string, status Status, upd StatusUpdate) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Fail != nil {
		return q.Fail
	}
	if !status.Valid() {
		return fmt.Errorf("update job %s: unknown status %q", id, status)
	}
	j, ok := q.jobs[id]
	if !ok {
		return ErrNotFound
	}
	switch {
	case status.Terminal() && j.Status != StatusRunning:
		return fmt.Errorf("job %s in status %s: %w", id, j.Status, ErrInvalidTransition)
	case status == StatusRunning && j.Status != StatusPending && j.Status != StatusFailed:
		return fmt.Errorf("job %s in status %s: %w", id, j.Status, ErrInvalidTransition)
	}

	now := time.Now().UTC()
	j.Status = status
	j.Attempts++
	j.LastAttempt = &now
	if upd.SnapshotLocation != nil {
		loc := *upd.SnapshotLocation
		j.SnapshotLocation = &loc
	}
	j.LastError = upd.Error
	if status.Terminal() {
		j.CompletedAt = &now
		j.LeaseOwner = nil
		j.LeaseExpiresAt = nil
	}
	return nil
}

func (q *Memory) UpdateSnapshotLocation(ctx context.Context, id, location string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Fail != nil {
		return q.Fail
	}
	j, ok := q.jobs[id]
	if !ok {
		return ErrNotFound
	}
	j.SnapshotLocation = &location
	return nil
}

func (q *Memory) RetryJob(ctx context.Context, id string, newScheduledTime time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Fail != nil {
		return q.Fail
	}
	j, ok := q.jobs[id]
	if !ok {
		return ErrNotFound
	}
	j.Status = StatusPending
	j.ScheduledTime = newScheduledTime.UTC()
	j.LastError = nil
	j.LeaseOwner = nil
	j.LeaseExpiresAt = nil
	j.CompletedAt = nil
	return nil
}

func (q *Memory) ReclaimExpired(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Fail != nil {
		return 0, q.Fail
	}
	now := time.Now().UTC()
	n := 0
	for _, j := range q.jobs {
		if j.Status == StatusRunning && j.LeaseExpiresAt != nil && j.LeaseExpiresAt.Before(now) {
			j.Status = StatusPending
			j.LeaseOwner = nil
			j.LeaseExpiresAt = nil
			n++
		}
	}
	return n, nil
}

func (q *Memory) GetJobsForFixture(ctx context.Context, fixtureID, offsetName string) ([]Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Fail != nil {
		return nil, q.Fail
	}
	var out []Job
	for _, j := range q.jobs {
		if j.FixtureID == fixtureID && (offsetName == "" || j.OffsetName == offsetName) {
			out = append(out, *j)
		}
	}
	sort.Slice(out, func(i, k int) bool {
		return out[i].ScheduledTime.Before(out[k].ScheduledTime)
	})
	return out, nil
}

func (q *Memory) ListByStatus(ctx context.Context, status Status, limit int) ([]Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Fail != nil {
		return nil, q.Fail
	}
	var out []Job
	for _, j := range q.jobs {
		if j.Status == status {
			out = append(out, *j)
		}
	}
	sort.Slice(out, func(i, k int) bool {
		return out[i].ScheduledTime.Before(out[k].ScheduledTime)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (q *Memory) CleanupOlderThan(ctx context.Context, days int) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Fail != nil {
		return 0, q.Fail
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	n := 0
	for id, j := range q.jobs {
		if j.Status.Terminal() && j.CompletedAt != nil && j.CompletedAt.Before(cutoff) {
			delete(q.jobs, id)
			n++
		}
	}
	return n, nil
}

func (q *Memory) Summary(ctx context.Context) (*Summary, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Fail != nil {
		return nil, q.Fail
	}
	s := &Summary{ByStatus: make(map[Status]int)}
	for _, j := range q.jobs {
		s.ByStatus[j.Status]++
		s.Total++
		if j.Status == StatusPending {
			if s.NextPending == nil || j.ScheduledTime.Before(*s.NextPending) {
				t := j.ScheduledTime
				s.NextPending = &t
			}
		}
	}
	return s, nil
}

func (q *Memory) RecordMetrics(ctx context.Context, rows []MetricRow) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Fail != nil {
		return q.Fail
	}
	for _, m := range rows {
		key := m.Date + "|" + m.League
		cur, ok := q.metrics[key]
		if !ok {
			cp := m
			q.metrics[key] = &cp
			continue
		}
		cur.Scheduled += m.Scheduled
		cur.Completed += m.Completed
		cur.Failed += m.Failed
		cur.Requests += m.Requests
		cur.CostUnits += m.CostUnits
	}
	return nil
}

func (q *Memory) GetMetrics(ctx context.Context, from, to string) ([]MetricRow, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Fail != nil {
		return nil, q.Fail
	}
	var out []MetricRow
	for _, m := range q.metrics {
		if m.Date >= from && m.Date <= to {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, k int) bool {
		if out[i].Date != out[k].Date {
			return out[i].Date < out[k].Date
		}
		return out[i].League < out[k].League
	})
	return out, nil
}
