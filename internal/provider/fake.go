package provider

import (
	"context"
	"sync"
	"time"

	"github.com/albapepper/prekick-data/internal/odds"
)

// Fake is an in-memory Client for tests. Fixtures are keyed by league;
// per-league list errors and per-fixture odds errors are injectable.
type Fake struct {
	mu sync.Mutex

	FixturesByLeague map[string][]Fixture
	ListErr          map[string]error // league -> error
	OddsErr          map[string]error // fixtureID -> error

	ListCalls int
	OddsCalls int
}

// NewFake creates an empty fake provider.
func NewFake() *Fake {
	return &Fake{
		FixturesByLeague: make(map[string][]Fixture),
		ListErr:          make(map[string]error),
		OddsErr:          make(map[string]error),
	}
}

// AddFixture registers a fixture for discovery.
func (f *Fake) AddFixture(fx Fixture) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FixturesByLeague[fx.League] = append(f.FixturesByLeague[fx.League], fx)
}

func (f *Fake) ListFixtures(ctx context.Context, league string) ([]Fixture, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ListCalls++
	if err := f.ListErr[league]; err != nil {
		return nil, err
	}
	return append([]Fixture(nil), f.FixturesByLeague[league]...), nil
}

func (f *Fake) FetchLiveOdds(ctx context.Context, league, fixtureID string, markets []string, region string) (*odds.Payload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.OddsCalls++
	if err := f.OddsErr[fixtureID]; err != nil {
		return nil, err
	}
	return f.payloadFor(league, fixtureID, markets), nil
}

func (f *Fake) FetchHistoricalFixtures(ctx context.Context, league string, asOf, from, to time.Time) ([]Fixture, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ListCalls++
	var out []Fixture
	for _, fx := range f.FixturesByLeague[league] {
		if !fx.Kickoff.Before(from) && !fx.Kickoff.After(to) {
			out = append(out, fx)
		}
	}
	return out, nil
}

func (f *Fake) FetchHistoricalOdds(ctx context.Context, league, fixtureID string, asOf time.Time, markets []string, region string) (*odds.Payload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.OddsCalls++
	if err := f.OddsErr[fixtureID]; err != nil {
		return nil, err
	}
	return f.payloadFor(league, fixtureID, markets), nil
}

func (f *Fake) EstimateCost(kind CostKind, marketCount, regionCount int) int {
	return EstimateCost(kind, marketCount, regionCount)
}

// payloadFor synthesizes a one-bookmaker payload covering the requested
// markets. Caller holds the lock.
func (f *Fake) payloadFor(league, fixtureID string, markets []string) *odds.Payload {
	var fx *Fixture
	for i := range f.FixturesByLeague[league] {
		if f.FixturesByLeague[league][i].ID == fixtureID {
			fx = &f.FixturesByLeague[league][i]
			break
		}
	}
	p := &odds.Payload{FixtureID: fixtureID, League: league}
	if fx != nil {
		p.HomeTeam = fx.HomeTeam
		p.AwayTeam = fx.AwayTeam
		p.Kickoff = fx.Kickoff.Format(time.RFC3339)
	}
	book := odds.Bookmaker{Key: "fakebook", Title: "Fake Book"}
	for _, m := range markets {
		book.Markets = append(book.Markets, odds.Market{
			Key: m,
			Outcomes: []odds.Outcome{
				{Name: p.HomeTeam, Price: 1.95},
				{Name: p.AwayTeam, Price: 1.95},
			},
		})
	}
	p.Bookmakers = []odds.Bookmaker{book}
	return p
}
