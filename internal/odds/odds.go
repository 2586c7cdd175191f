// Package odds defines the captured odds payload shape shared by the
// provider client and snapshot storage.
package odds

// Outcome is one priced selection within a market (e.g. home win at 2.10).
type Outcome struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Point float64 `json:"point,omitempty"` // spread/total line, zero for h2h
}

// Market is one bet type offered by a bookmaker.
type Market struct {
	Key        string    `json:"key"` // h2h, spreads, totals, ...
	LastUpdate string    `json:"last_update,omitempty"`
	Outcomes   []Outcome `json:"outcomes"`
}

// Bookmaker groups the markets one book offers for a fixture.
type Bookmaker struct {
	Key     string   `json:"key"`
	Title   string   `json:"title"`
	Markets []Market `json:"markets"`
}

// Payload is the full per-fixture odds capture returned by the provider.
type Payload struct {
	FixtureID  string      `json:"fixture_id"`
	League     string      `json:"league"`
	HomeTeam   string      `json:"home_team"`
	AwayTeam   string      `json:"away_team"`
	Kickoff    string      `json:"commence_time"`
	Bookmakers []Bookmaker `json:"bookmakers"`
}

// MarketKeys returns the distinct market keys present across all bookmakers.
func (p *Payload) MarketKeys() []string {
	seen := make(map[string]bool)
	var keys []string
	for _, b := range p.Bookmakers {
		for _, m := range b.Markets {
			if !seen[m.Key] {
				seen[m.Key] = true
				keys = append(keys, m.Key)
			}
		}
	}
	return keys
}
