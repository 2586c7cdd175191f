// Package index maintains the derived lookup artifacts over stored
// snapshots: one primary match index (match key -> snapshot locations) and
// two views computed from it (by date, by team). The match index is built
// incrementally; the views are fully rebuilt on every build call and are
// always safe to discard and regenerate.
package index

import (
	"strings"
	"time"
)

// GenerateMatchKey derives the human-readable match key from normalized team
// names and a match date: whitespace runs become underscores, order is
// preserved. "Arsenal FC" + "Chelsea FC" + "2025-11-30" ->
// "Arsenal_FC_Chelsea_FC_2025-11-30".
func GenerateMatchKey(homeTeam, awayTeam, matchDate string) string {
	return underscore(homeTeam) + "_" + underscore(awayTeam) + "_" + matchDate
}

func underscore(s string) string {
	return strings.Join(strings.Fields(s), "_")
}

// SnapshotRef describes one stored snapshot for index maintenance. Team
// names must already be normalized.
type SnapshotRef struct {
	HomeTeam   string
	AwayTeam   string
	MatchDate  string // YYYY-MM-DD
	OffsetName string
	Location   string // storage key
}

// MatchEntry aggregates the known snapshot locations for one match.
type MatchEntry struct {
	MatchKey  string            `json:"match_key"`
	HomeTeam  string            `json:"home_team"`
	AwayTeam  string            `json:"away_team"`
	MatchDate string            `json:"match_date"`
	Snapshots map[string]string `json:"snapshots"` // offset name -> location
}

// MatchIndex is the primary index artifact for one league season.
type MatchIndex struct {
	League    string                 `json:"league"`
	Season    string                 `json:"season"`
	Entries   map[string]*MatchEntry `json:"entries"` // match key -> entry
	UpdatedAt time.Time              `json:"updated_at"`
}

// DateEntry lists the matches on one date and the union of offsets seen
// across them.
type DateEntry struct {
	MatchKeys []string `json:"match_keys"`
	Offsets   []string `json:"offsets"`
}

// DateIndex groups match keys by match date. GeneratedFrom carries the match
// index timestamp it was reduced from, so rebuilding without an intervening
// match index change produces byte-identical artifacts.
type DateIndex struct {
	League        string                `json:"league"`
	Season        string                `json:"season"`
	Dates         map[string]*DateEntry `json:"dates"`
	GeneratedFrom time.Time             `json:"generated_from"`
}

// TeamIndex groups match keys by participating team (home or away).
type TeamIndex struct {
	League        string              `json:"league"`
	Season        string              `json:"season"`
	Teams         map[string][]string `json:"teams"`
	GeneratedFrom time.Time           `json:"generated_from"`
}
