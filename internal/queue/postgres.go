package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const jobColumns = `id, fixture_id, league, home_team, away_team, match_date,
	kickoff_time, offset_name, scheduled_time, status, attempts, last_attempt,
	snapshot_location, last_error, lease_owner, lease_expires_at, created_at, completed_at`

// Postgres is the production Store backed by the collection_jobs and
// collection_metrics tables (see schema.sql). Hot-path statements are
// prepared on every connection by internal/db.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps a connection pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func scanJob(row pgx.Row) (*Job, error) {
	var j Job
	err := row.Scan(
		&j.ID, &j.FixtureID, &j.League, &j.HomeTeam, &j.AwayTeam, &j.MatchDate,
		&j.KickoffTime, &j.OffsetName, &j.ScheduledTime, &j.Status, &j.Attempts,
		&j.LastAttempt, &j.SnapshotLocation, &j.LastError,
		&j.LeaseOwner, &j.LeaseExpiresAt, &j.CreatedAt, &j.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func collectJobs(rows pgx.Rows) ([]Job, error) {
	defer rows.Close()
	var jobs []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

func (q *Postgres) ScheduleJob(ctx context.Context, job *Job) (bool, error) {
	tag, err := q.pool.Exec(ctx, "job_insert",
		job.ID, job.FixtureID, job.League, job.HomeTeam, job.AwayTeam,
		job.MatchDate, job.KickoffTime, job.OffsetName, job.ScheduledTime,
	)
	if err != nil {
		return false, fmt.Errorf("schedule job %s: %w", job.ID, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (q *Postgres) GetJob(ctx context.Context, id string) (*Job, error) {
	j, err := scanJob(q.pool.QueryRow(ctx, "job_get", id))
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return j, nil
}

func (q *Postgres) GetJobsDueWithin(ctx context.Context, window time.Duration, limit int) ([]Job, error) {
	cutoff := time.Now().UTC().Add(window)
	rows, err := q.pool.Query(ctx, "jobs_due", cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("get due jobs: %w", err)
	}
	return collectJobs(rows)
}

func (q *Postgres) MarkRunning(ctx context.Context, id, owner string, leaseTTL time.Duration) error {
	tag, err := q.pool.Exec(ctx, "job_mark_running",
		id, owner, time.Now().UTC().Add(leaseTTL))
	if err != nil {
		return fmt.Errorf("mark running %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return q.transitionError(ctx, id)
	}
	return nil
}

func (q *Postgres) UpdateJobStatus(ctx context.Context, id string, status Status, upd StatusUpdate) error {
	if !status.Valid() {
		return fmt.Errorf("update job %s: unknown status %q", id, status)
	}
	tag, err := q.pool.Exec(ctx, "job_update_status",
		id, string(status), upd.SnapshotLocation, upd.Error)
	if err != nil {
		return fmt.Errorf("update job %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return q.transitionError(ctx, id)
	}
	return nil
}

// transitionError distinguishes a missing row from a forbidden transition
// after a guarded UPDATE matched nothing.
func (q *Postgres) transitionError(ctx context.Context, id string) error {
	var status string
	err := q.pool.QueryRow(ctx, "SELECT status FROM collection_jobs WHERE id = $1", id).Scan(&status)
	if err == pgx.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check job %s: %w", id, err)
	}
	return fmt.Errorf("job %s in status %s: %w", id, status, ErrInvalidTransition)
}

func (q *Postgres) UpdateSnapshotLocation(ctx context.Context, id, location string) error {
	tag, err := q.pool.Exec(ctx,
		"UPDATE collection_jobs SET snapshot_location = $2 WHERE id = $1", id, location)
	if err != nil {
		return fmt.Errorf("update location %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (q *Postgres) RetryJob(ctx context.Context, id string, newScheduledTime time.Time) error {
	tag, err := q.pool.Exec(ctx, `
		UPDATE collection_jobs
		SET status = 'pending', scheduled_time = $2, last_error = NULL,
		    lease_owner = NULL, lease_expires_at = NULL, completed_at = NULL
		WHERE id = $1`, id, newScheduledTime.UTC())
	if err != nil {
		return fmt.Errorf("retry job %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (q *Postgres) ReclaimExpired(ctx context.Context) (int, error) {
	tag, err := q.pool.Exec(ctx, `
		UPDATE collection_jobs
		SET status = 'pending', lease_owner = NULL, lease_expires_at = NULL
		WHERE status = 'running' AND lease_expires_at < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("reclaim expired leases: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (q *Postgres) GetJobsForFixture(ctx context.Context, fixtureID, offsetName string) ([]Job, error) {
	rows, err := q.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM collection_jobs
		WHERE fixture_id = $1 AND ($2 = '' OR offset_name = $2)
		ORDER BY scheduled_time`, jobColumns), fixtureID, offsetName)
	if err != nil {
		return nil, fmt.Errorf("get jobs for fixture %s: %w", fixtureID, err)
	}
	return collectJobs(rows)
}

func (q *Postgres) ListByStatus(ctx context.Context, status Status, limit int) ([]Job, error) {
	rows, err := q.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM collection_jobs
		WHERE status = $1
		ORDER BY scheduled_time
		LIMIT $2`, jobColumns), string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("list %s jobs: %w", status, err)
	}
	return collectJobs(rows)
}

func (q *Postgres) CleanupOlderThan(ctx context.Context, days int) (int, error) {
	tag, err := q.pool.Exec(ctx, `
		DELETE FROM collection_jobs
		WHERE status IN ('completed', 'failed')
		  AND completed_at < NOW() - ($1 * INTERVAL '1 day')`, days)
	if err != nil {
		return 0, fmt.Errorf("cleanup jobs: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (q *Postgres) Summary(ctx context.Context) (*Summary, error) {
	s := &Summary{ByStatus: make(map[Status]int)}

	rows, err := q.pool.Query(ctx,
		"SELECT status, COUNT(*) FROM collection_jobs GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("queue summary: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		s.ByStatus[Status(status)] = count
		s.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var next *time.Time
	err = q.pool.QueryRow(ctx,
		"SELECT MIN(scheduled_time) FROM collection_jobs WHERE status = 'pending'").Scan(&next)
	if err != nil {
		return nil, fmt.Errorf("next pending: %w", err)
	}
	s.NextPending = next
	return s, nil
}

func (q *Postgres) RecordMetrics(ctx context.Context, rows []MetricRow) error {
	for _, m := range rows {
		_, err := q.pool.Exec(ctx, "metrics_upsert",
			m.Date, m.League, m.Scheduled, m.Completed, m.Failed, m.Requests, m.CostUnits)
		if err != nil {
			return fmt.Errorf("record metrics %s/%s: %w", m.Date, m.League, err)
		}
	}
	return nil
}

func (q *Postgres) GetMetrics(ctx context.Context, from, to string) ([]MetricRow, error) {
	rows, err := q.pool.Query(ctx, `
		SELECT metric_date, league, jobs_scheduled, jobs_completed, jobs_failed, requests, cost_units
		FROM collection_metrics
		WHERE metric_date >= $1 AND metric_date <= $2
		ORDER BY metric_date, league`, from, to)
	if err != nil {
		return nil, fmt.Errorf("get metrics: %w", err)
	}
	defer rows.Close()

	var out []MetricRow
	for rows.Next() {
		var m MetricRow
		if err := rows.Scan(&m.Date, &m.League, &m.Scheduled, &m.Completed,
			&m.Failed, &m.Requests, &m.CostUnits); err != nil {
			return nil, fmt.Errorf("scan metrics: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
