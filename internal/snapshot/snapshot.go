// Package snapshot persists raw odds captures and derived index artifacts
// over any blob.Store, under a stable key layout:
//
//	leagues/{league}/{season}/{fixtureID}_{offsetName}_{matchDate}.json
//	leagues/{league}/{season}/{by_match|by_date|by_team}.json
//
// Snapshot identity is the (fixtureID, offsetName, matchDate) triple, so a
// re-capture of the same job overwrites in place instead of duplicating.
package snapshot

import (
	"fmt"
	"time"

	"github.com/albapepper/prekick-data/internal/odds"
)

// IndexType names the three derived index artifacts.
type IndexType string

const (
	IndexByMatch IndexType = "by_match"
	IndexByDate  IndexType = "by_date"
	IndexByTeam  IndexType = "by_team"
)

// Metadata describes one capture. CollectionMethod distinguishes live
// pipeline captures from historical backfills and repair refetches.
type Metadata struct {
	FixtureID        string    `json:"fixture_id"`
	League           string    `json:"league"`
	Season           string    `json:"season"`
	OffsetName       string    `json:"offset_name"`
	MatchDate        string    `json:"match_date"` // YYYY-MM-DD
	KickoffTime      time.Time `json:"kickoff_time"`
	CapturedAt       time.Time `json:"captured_at"`
	CollectionMethod string    `json:"collection_method"` // live, historical, refetch
}

// Snapshot is the stored artifact: metadata plus the odds payload.
type Snapshot struct {
	Metadata Metadata     `json:"metadata"`
	Odds     odds.Payload `json:"odds"`
}

// Key returns the storage key for this snapshot.
func (s *Snapshot) Key() string {
	return Key(s.Metadata.League, s.Metadata.Season, s.Metadata.FixtureID,
		s.Metadata.OffsetName, s.Metadata.MatchDate)
}

// ID returns the snapshot identity used by the download endpoint:
// {fixtureID}_{offsetName}_{matchDate}.
func (s *Snapshot) ID() string {
	return fmt.Sprintf("%s_%s_%s", s.Metadata.FixtureID, s.Metadata.OffsetName, s.Metadata.MatchDate)
}

// Key builds a snapshot storage key.
func Key(league, season, fixtureID, offsetName, matchDate string) string {
	return fmt.Sprintf("leagues/%s/%s/%s_%s_%s.json", league, season, fixtureID, offsetName, matchDate)
}

// IndexKey builds an index artifact storage key.
func IndexKey(league, season string, kind IndexType) string {
	return fmt.Sprintf("leagues/%s/%s/%s.json", league, season, kind)
}

// SeasonPrefix is the listing prefix for one league season.
func SeasonPrefix(league, season string) string {
	return fmt.Sprintf("leagues/%s/%s/", league, season)
}

// SeasonForDate infers the season label from a match date using the European
// convention: August onward belongs to {year}-{year+1}, earlier months to
// {year-1}-{year}.
func SeasonForDate(matchDate time.Time) string {
	y := matchDate.Year()
	if matchDate.Month() >= time.August {
		return fmt.Sprintf("%d-%d", y, y+1)
	}
	return fmt.Sprintf("%d-%d", y-1, y)
}

// SeasonForDateString parses a YYYY-MM-DD match date and infers its season.
func SeasonForDateString(matchDate string) (string, error) {
	t, err := time.Parse("2006-01-02", matchDate)
	if err != nil {
		return "", fmt.Errorf("parse match date %q: %w", matchDate, err)
	}
	return SeasonForDate(t), nil
}
