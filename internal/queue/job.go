// Package queue is the durable table of scheduled collection jobs. One job
// is one (fixture, timing offset) pair; its id is deterministic so
// re-discovery is an insert-or-noop instead of a duplicate.
//
// Two implementations of Store exist: Postgres (production, pgx) and Memory
// (tests). Both enforce the same transition rules: a job reaches a terminal
// status only from running, and attempts increase on every status update.
package queue

import (
	"fmt"
	"time"
)

// Status is the job lifecycle state. Values are persisted in the
// collection_jobs table and are part of the stable schema.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status ends the job lifecycle.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// JobID derives the deterministic job id for a (fixture, offset) pair.
func JobID(fixtureID, offsetName string) string {
	return fmt.Sprintf("%s_%s", fixtureID, offsetName)
}

// Job is one scheduled unit of collection work. Fixture fields are
// denormalized onto the row (teams already normalized at discovery time) so
// reporting needs no join; they are treated as immutable per fixture id.
type Job struct {
	ID            string
	FixtureID     string
	League        string
	HomeTeam      string
	AwayTeam      string
	MatchDate     string // YYYY-MM-DD
	KickoffTime   time.Time
	OffsetName    string
	ScheduledTime time.Time

	Status           Status
	Attempts         int
	LastAttempt      *time.Time
	SnapshotLocation *string
	LastError        *string
	LeaseOwner       *string
	LeaseExpiresAt   *time.Time
	CreatedAt        time.Time
	CompletedAt      *time.Time
}

// NewJob builds a pending job for a fixture and offset. scheduledTime is
// kickoff minus the offset's hours-before.
func NewJob(fixtureID, league, homeTeam, awayTeam string, kickoff time.Time, offsetName string, scheduledTime time.Time) *Job {
	kickoff = kickoff.UTC()
	return &Job{
		ID:            JobID(fixtureID, offsetName),
		FixtureID:     fixtureID,
		League:        league,
		HomeTeam:      homeTeam,
		AwayTeam:      awayTeam,
		MatchDate:     kickoff.Format("2006-01-02"),
		KickoffTime:   kickoff,
		OffsetName:    offsetName,
		ScheduledTime: scheduledTime.UTC(),
		Status:        StatusPending,
	}
}

// StatusUpdate carries the optional fields of a status transition. A nil
// SnapshotLocation preserves whatever location the row already has.
type StatusUpdate struct {
	SnapshotLocation *string
	Error            *string
}

// Summary is the queue-wide status breakdown.
type Summary struct {
	Total       int            `json:"total"`
	ByStatus    map[Status]int `json:"by_status"`
	NextPending *time.Time     `json:"next_pending,omitempty"`
}

// MetricRow is one (date, league) bucket of run counters. RecordMetrics is
// additive: counters accumulate across runs on the same day.
type MetricRow struct {
	Date      string `json:"date"` // YYYY-MM-DD
	League    string `json:"league"`
	Scheduled int    `json:"scheduled"`
	Completed int    `json:"completed"`
	Failed    int    `json:"failed"`
	Requests  int    `json:"requests"`
	CostUnits int    `json:"cost_units"`
}
