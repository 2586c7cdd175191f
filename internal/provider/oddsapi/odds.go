package oddsapi

import "github.com/albapepper/prekick-data/internal/odds"

// eventOdds is the per-event odds response shape.
type eventOdds struct {
	ID           string `json:"id"`
	SportKey     string `json:"sport_key"`
	CommenceTime string `json:"commence_time"`
	HomeTeam     string `json:"home_team"`
	AwayTeam     string `json:"away_team"`
	Bookmakers   []struct {
		Key     string `json:"key"`
		Title   string `json:"title"`
		Markets []struct {
			Key        string `json:"key"`
			LastUpdate string `json:"last_update"`
			Outcomes   []struct {
				Name  string  `json:"name"`
				Price float64 `json:"price"`
				Point float64 `json:"point"`
			} `json:"outcomes"`
		} `json:"markets"`
	} `json:"bookmakers"`
}

// toPayload maps the wire shape onto the internal payload type.
func (e *eventOdds) toPayload(league string) *odds.Payload {
	p := &odds.Payload{
		FixtureID: e.ID,
		League:    league,
		HomeTeam:  e.HomeTeam,
		AwayTeam:  e.AwayTeam,
		Kickoff:   e.CommenceTime,
	}
	for _, b := range e.Bookmakers {
		book := odds.Bookmaker{Key: b.Key, Title: b.Title}
		for _, m := range b.Markets {
			market := odds.Market{Key: m.Key, LastUpdate: m.LastUpdate}
			for _, o := range m.Outcomes {
				market.Outcomes = append(market.Outcomes, odds.Outcome{
					Name:  o.Name,
					Price: o.Price,
					Point: o.Point,
				})
			}
			book.Markets = append(book.Markets, market)
		}
		p.Bookmakers = append(p.Bookmakers, book)
	}
	return p
}
