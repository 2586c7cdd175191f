// Package db provides a pgxpool-based connection pool with prepared statement
// registration and health checking.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albapepper/prekick-data/internal/config"
)

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// registerPreparedStatements registers the hot-path queue statements.
// Admin queries (retry, cleanup, summary) run rarely and stay inline in
// internal/queue.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	stmts := map[string]string{
		// Health
		"health_check": "SELECT 1",

		// Discovery: insert-or-noop keyed by the deterministic job id
		"job_insert": `
			INSERT INTO collection_jobs (
				id, fixture_id, league, home_team, away_team, match_date,
				kickoff_time, offset_name, scheduled_time, status
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,'pending')
			ON CONFLICT (id) DO NOTHING`,

		// Lookup
		"job_get": `
			SELECT id, fixture_id, league, home_team, away_team, match_date,
				kickoff_time, offset_name, scheduled_time, status, attempts, last_attempt,
				snapshot_location, last_error, lease_owner, lease_expires_at, created_at, completed_at
			FROM collection_jobs WHERE id = $1`,

		// Execution: due pending jobs, earliest first
		"jobs_due": `
			SELECT id, fixture_id, league, home_team, away_team, match_date,
				kickoff_time, offset_name, scheduled_time, status, attempts, last_attempt,
				snapshot_location, last_error, lease_owner, lease_expires_at, created_at, completed_at
			FROM collection_jobs
			WHERE status = 'pending' AND scheduled_time <= $1
			ORDER BY scheduled_time
			LIMIT $2`,

		// Execution: claim with lease
		"job_mark_running": `
			UPDATE collection_jobs
			SET status = 'running', lease_owner = $2, lease_expires_at = $3
			WHERE id = $1 AND status IN ('pending', 'failed')`,

		// Execution: guarded status transition. Terminal statuses require
		// the row to currently be running; attempts always increment.
		"job_update_status": `
			UPDATE collection_jobs
			SET status = $2,
				attempts = attempts + 1,
				last_attempt = NOW(),
				snapshot_location = COALESCE($3, snapshot_location),
				last_error = $4,
				completed_at = CASE WHEN $2 IN ('completed','failed') THEN NOW() ELSE completed_at END,
				lease_owner = CASE WHEN $2 IN ('completed','failed') THEN NULL ELSE lease_owner END,
				lease_expires_at = CASE WHEN $2 IN ('completed','failed') THEN NULL ELSE lease_expires_at END
			WHERE id = $1 AND (
				($2 IN ('completed','failed') AND status = 'running') OR
				($2 = 'running' AND status IN ('pending','failed')) OR
				($2 = 'pending')
			)`,

		// Metrics: additive upsert per (date, league)
		"metrics_upsert": `
			INSERT INTO collection_metrics (
				metric_date, league, jobs_scheduled, jobs_completed, jobs_failed, requests, cost_units
			) VALUES ($1,$2,$3,$4,$5,$6,$7)
			ON CONFLICT (metric_date, league) DO UPDATE SET
				jobs_scheduled = collection_metrics.jobs_scheduled + EXCLUDED.jobs_scheduled,
				jobs_completed = collection_metrics.jobs_completed + EXCLUDED.jobs_completed,
				jobs_failed    = collection_metrics.jobs_failed + EXCLUDED.jobs_failed,
				requests       = collection_metrics.requests + EXCLUDED.requests,
				cost_units     = collection_metrics.cost_units + EXCLUDED.cost_units,
				updated_at     = NOW()`,
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
