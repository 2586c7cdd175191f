package index

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/albapepper/prekick-data/internal/snapshot"
)

// Builder owns the three index artifacts for all league seasons. Lookups are
// one artifact fetch plus one map access — never a scan of snapshot storage.
type Builder struct {
	store  *snapshot.Store
	logger *slog.Logger
}

// NewBuilder creates a Builder over a snapshot store.
func NewBuilder(store *snapshot.Store, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{store: store, logger: logger}
}

// --------------------------------------------------------------------------
// Match index (incremental)
// --------------------------------------------------------------------------

// UpdateMatchIndex merges new snapshot refs into the match index,
// creating entries on first sight. A later write for the same offset on the
// same match overwrites the earlier location (last write wins). Entries not
// mentioned in refs are preserved untouched.
func (b *Builder) UpdateMatchIndex(ctx context.Context, league, season string, refs []SnapshotRef) (*MatchIndex, error) {
	idx, err := b.loadMatchIndex(ctx, league, season)
	if err != nil {
		return nil, err
	}

	for _, ref := range refs {
		key := GenerateMatchKey(ref.HomeTeam, ref.AwayTeam, ref.MatchDate)
		entry, ok := idx.Entries[key]
		if !ok {
			entry = &MatchEntry{
				MatchKey:  key,
				HomeTeam:  ref.HomeTeam,
				AwayTeam:  ref.AwayTeam,
				MatchDate: ref.MatchDate,
				Snapshots: make(map[string]string),
			}
			idx.Entries[key] = entry
		}
		entry.Snapshots[ref.OffsetName] = ref.Location
	}

	idx.UpdatedAt = time.Now().UTC()
	if err := b.saveMatchIndex(ctx, idx); err != nil {
		return nil, err
	}
	b.logger.Info("Match index updated",
		"league", league, "season", season,
		"merged", len(refs), "entries", len(idx.Entries))
	return idx, nil
}

// ReplaceMatchIndex rebuilds the match index from scratch out of refs,
// discarding prior entries. Used by the repair tool after re-querying job
// state.
func (b *Builder) ReplaceMatchIndex(ctx context.Context, league, season string, refs []SnapshotRef) (*MatchIndex, error) {
	idx := &MatchIndex{
		League:  league,
		Season:  season,
		Entries: make(map[string]*MatchEntry),
	}
	for _, ref := range refs {
		key := GenerateMatchKey(ref.HomeTeam, ref.AwayTeam, ref.MatchDate)
		entry, ok := idx.Entries[key]
		if !ok {
			entry = &MatchEntry{
				MatchKey:  key,
				HomeTeam:  ref.HomeTeam,
				AwayTeam:  ref.AwayTeam,
				MatchDate: ref.MatchDate,
				Snapshots: make(map[string]string),
			}
			idx.Entries[key] = entry
		}
		entry.Snapshots[ref.OffsetName] = ref.Location
	}
	idx.UpdatedAt = time.Now().UTC()
	if err := b.saveMatchIndex(ctx, idx); err != nil {
		return nil, err
	}
	return idx, nil
}

func (b *Builder) loadMatchIndex(ctx context.Context, league, season string) (*MatchIndex, error) {
	data, err := b.store.GetIndex(ctx, league, season, snapshot.IndexByMatch)
	if err != nil {
		return nil, fmt.Errorf("load match index %s/%s: %w", league, season, err)
	}
	if data == nil {
		return &MatchIndex{
			League:  league,
			Season:  season,
			Entries: make(map[string]*MatchEntry),
		}, nil
	}
	var idx MatchIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("decode match index %s/%s: %w", league, season, err)
	}
	if idx.Entries == nil {
		idx.Entries = make(map[string]*MatchEntry)
	}
	return &idx, nil
}

func (b *Builder) saveMatchIndex(ctx context.Context, idx *MatchIndex) error {
	data, err := json.Marshal(idx)
	if err != nil {
		return fmt.Errorf("marshal match index: %w", err)
	}
	return b.store.SaveIndex(ctx, idx.League, idx.Season, snapshot.IndexByMatch, data)
}

// --------------------------------------------------------------------------
// Derived indexes (full rebuild)
// --------------------------------------------------------------------------

// BuildDateIndex reduces the current match index into the by-date view.
func (b *Builder) BuildDateIndex(ctx context.Context, league, season string) (*DateIndex, error) {
	matchIdx, err := b.loadMatchIndex(ctx, league, season)
	if err != nil {
		return nil, err
	}

	dates := make(map[string]*DateEntry)
	for key, entry := range matchIdx.Entries {
		de, ok := dates[entry.MatchDate]
		if !ok {
			de = &DateEntry{}
			dates[entry.MatchDate] = de
		}
		de.MatchKeys = append(de.MatchKeys, key)
		for offset := range entry.Snapshots {
			de.Offsets = appendUnique(de.Offsets, offset)
		}
	}
	for _, de := range dates {
		sort.Strings(de.MatchKeys)
		sort.Strings(de.Offsets)
	}

	idx := &DateIndex{
		League:        league,
		Season:        season,
		Dates:         dates,
		GeneratedFrom: matchIdx.UpdatedAt,
	}
	data, err := json.Marshal(idx)
	if err != nil {
		return nil, fmt.Errorf("marshal date index: %w", err)
	}
	if err := b.store.SaveIndex(ctx, league, season, snapshot.IndexByDate, data); err != nil {
		return nil, err
	}
	return idx, nil
}

// BuildTeamIndex reduces the current match index into the by-team view.
// A match contributes to both its home and away team's list.
func (b *Builder) BuildTeamIndex(ctx context.Context, league, season string) (*TeamIndex, error) {
	matchIdx, err := b.loadMatchIndex(ctx, league, season)
	if err != nil {
		return nil, err
	}

	teams := make(map[string][]string)
	for key, entry := range matchIdx.Entries {
		teams[entry.HomeTeam] = append(teams[entry.HomeTeam], key)
		teams[entry.AwayTeam] = append(teams[entry.AwayTeam], key)
	}
	for team := range teams {
		sort.Strings(teams[team])
	}

	idx := &TeamIndex{
		League:        league,
		Season:        season,
		Teams:         teams,
		GeneratedFrom: matchIdx.UpdatedAt,
	}
	data, err := json.Marshal(idx)
	if err != nil {
		return nil, fmt.Errorf("marshal team index: %w", err)
	}
	if err := b.store.SaveIndex(ctx, league, season, snapshot.IndexByTeam, data); err != nil {
		return nil, err
	}
	return idx, nil
}

// BuildAllIndexes rebuilds both derived views. Date and team are independent
// of each other; both reduce whatever match index state exists right now.
func (b *Builder) BuildAllIndexes(ctx context.Context, league, season string) error {
	if _, err := b.BuildDateIndex(ctx, league, season); err != nil {
		return err
	}
	if _, err := b.BuildTeamIndex(ctx, league, season); err != nil {
		return err
	}
	b.logger.Info("Derived indexes rebuilt", "league", league, "season", season)
	return nil
}

// --------------------------------------------------------------------------
// Lookups
// --------------------------------------------------------------------------

// LookupMatch returns the match entry for normalized team names and a date,
// or nil when unknown.
func (b *Builder) LookupMatch(ctx context.Context, league, season, homeTeam, awayTeam, matchDate string) (*MatchEntry, error) {
	idx, err := b.loadMatchIndex(ctx, league, season)
	if err != nil {
		return nil, err
	}
	return idx.Entries[GenerateMatchKey(homeTeam, awayTeam, matchDate)], nil
}

// MatchesForDate returns the date entry for one match date, or nil.
func (b *Builder) MatchesForDate(ctx context.Context, league, season, matchDate string) (*DateEntry, error) {
	data, err := b.store.GetIndex(ctx, league, season, snapshot.IndexByDate)
	if err != nil || data == nil {
		return nil, err
	}
	var idx DateIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("decode date index %s/%s: %w", league, season, err)
	}
	return idx.Dates[matchDate], nil
}

// MatchesForTeam returns the match keys a normalized team appears in.
func (b *Builder) MatchesForTeam(ctx context.Context, league, season, team string) ([]string, error) {
	data, err := b.store.GetIndex(ctx, league, season, snapshot.IndexByTeam)
	if err != nil || data == nil {
		return nil, err
	}
	var idx TeamIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("decode team index %s/%s: %w", league, season, err)
	}
	return idx.Teams[team], nil
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}
