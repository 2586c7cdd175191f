// Package provider defines the odds provider capability consumed by the
// pipeline. Discovery is free; live odds fetches are cheap; historical
// fetches cost roughly ten times a live fetch — the cost model below is what
// the orchestrator uses for run accounting.
package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/albapepper/prekick-data/internal/odds"
)

// Fixture is an upcoming match as reported by the provider. Immutable once
// observed; the provider stays the source of truth and fixtures are
// re-fetched on every discovery pass.
type Fixture struct {
	ID       string
	League   string
	HomeTeam string
	AwayTeam string
	Kickoff  time.Time // UTC
}

// CostKind selects a row of the request cost model.
type CostKind string

const (
	CostDiscovery      CostKind = "discovery"
	CostLiveOdds       CostKind = "live"
	CostHistoricalOdds CostKind = "historical"
)

const historicalCostMultiplier = 10

// Client is the provider capability. All errors surface as *Error; callers
// treat them as retryable-by-rescheduling, never fatal to a run.
type Client interface {
	ListFixtures(ctx context.Context, league string) ([]Fixture, error)
	FetchLiveOdds(ctx context.Context, league, fixtureID string, markets []string, region string) (*odds.Payload, error)
	FetchHistoricalFixtures(ctx context.Context, league string, asOf, from, to time.Time) ([]Fixture, error)
	FetchHistoricalOdds(ctx context.Context, league, fixtureID string, asOf time.Time, markets []string, region string) (*odds.Payload, error)
	EstimateCost(kind CostKind, marketCount, regionCount int) int
}

// EstimateCost implements the shared cost model: discovery is free, live
// odds cost markets x regions units, historical ten times that.
func EstimateCost(kind CostKind, marketCount, regionCount int) int {
	switch kind {
	case CostDiscovery:
		return 0
	case CostLiveOdds:
		return marketCount * regionCount
	case CostHistoricalOdds:
		return historicalCostMultiplier * marketCount * regionCount
	}
	return 0
}

// Error is the single failure type for network, timeout, and non-2xx
// conditions.
type Error struct {
	Op         string // list_fixtures, live_odds, ...
	StatusCode int    // zero for transport errors
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s: status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider %s: %s", e.Op, e.Message)
}
