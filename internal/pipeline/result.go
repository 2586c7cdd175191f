// Package pipeline is the collection control loop: discover fixtures,
// schedule jobs, execute due jobs, emit metrics. One Run is one invocation;
// the caller (cron trigger, CLI loop, or API endpoint) controls cadence.
package pipeline

import (
	"fmt"
	"time"
)

// DiscoveryResult tracks the outcome of one discovery pass.
type DiscoveryResult struct {
	LeaguesChecked int
	FixturesSeen   int
	JobsScheduled  int
	JobsSkipped    int // already present or scheduled instant in the past
	Errors         []string
}

// Summary returns a human-readable summary.
func (r *DiscoveryResult) Summary() string {
	return fmt.Sprintf("leagues=%d fixtures=%d scheduled=%d skipped=%d errors=%d",
		r.LeaguesChecked, r.FixturesSeen, r.JobsScheduled, r.JobsSkipped, len(r.Errors))
}

// ExecutionResult tracks the outcome of one execution pass.
type ExecutionResult struct {
	JobsDue   int
	Completed int
	Failed    int
	Requests  int
	CostUnits int
	Errors    []string
}

// Summary returns a human-readable summary.
func (r *ExecutionResult) Summary() string {
	return fmt.Sprintf("due=%d completed=%d failed=%d requests=%d cost=%d",
		r.JobsDue, r.Completed, r.Failed, r.Requests, r.CostUnits)
}

// RunResult is the full outcome of one pipeline invocation.
type RunResult struct {
	Reclaimed int // expired running leases requeued before execution
	Discovery DiscoveryResult
	Execution ExecutionResult
	Duration  time.Duration
}

// Summary returns a human-readable summary.
func (r *RunResult) Summary() string {
	return fmt.Sprintf("reclaimed=%d discovery[%s] execution[%s] dur=%s",
		r.Reclaimed, r.Discovery.Summary(), r.Execution.Summary(),
		r.Duration.Round(time.Second))
}
