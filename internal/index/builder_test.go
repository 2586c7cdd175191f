package index

import (
	"bytes"
	"context"
	"testing"

	"github.com/albapepper/prekick-data/internal/blob"
	"github.com/albapepper/prekick-data/internal/snapshot"
)

const (
	testLeague = "soccer_epl"
	testSeason = "2025-2026"
)

func newTestBuilder(t *testing.T) (*Builder, *snapshot.Store) {
	t.Helper()
	store := snapshot.NewStore(blob.NewMemory(), nil)
	return NewBuilder(store, nil), store
}

func ref(home, away, date, offset, location string) SnapshotRef {
	return SnapshotRef{
		HomeTeam:   home,
		AwayTeam:   away,
		MatchDate:  date,
		OffsetName: offset,
		Location:   location,
	}
}

func TestGenerateMatchKey(t *testing.T) {
	tests := []struct {
		home, away, date string
		want             string
	}{
		{"Arsenal FC", "Chelsea FC", "2025-11-30", "Arsenal_FC_Chelsea_FC_2025-11-30"},
		{"Wolves", "Spurs", "2026-01-02", "Wolves_Spurs_2026-01-02"},
		{"Team  With   Runs", "Other", "2025-09-01", "Team_With_Runs_Other_2025-09-01"},
	}
	for _, tt := range tests {
		if got := GenerateMatchKey(tt.home, tt.away, tt.date); got != tt.want {
			t.Errorf("GenerateMatchKey(%q, %q, %q) = %q, want %q", tt.home, tt.away, tt.date, got, tt.want)
		}
	}
}

func TestUpdateMatchIndexIncremental(t *testing.T) {
	b, _ := newTestBuilder(t)
	ctx := context.Background()

	// First run: one match, one offset.
	idx, err := b.UpdateMatchIndex(ctx, testLeague, testSeason, []SnapshotRef{
		ref("Arsenal FC", "Chelsea FC", "2025-11-30", "opening", "k/opening.json"),
	})
	if err != nil {
		t.Fatalf("UpdateMatchIndex: %v", err)
	}
	if len(idx.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(idx.Entries))
	}

	// Second run: a new offset for the same match plus a new match. The
	// existing entry is preserved and extended, not replaced.
	idx, err = b.UpdateMatchIndex(ctx, testLeague, testSeason, []SnapshotRef{
		ref("Arsenal FC", "Chelsea FC", "2025-11-30", "closing", "k/closing.json"),
		ref("Wolves", "Spurs", "2025-12-01", "opening", "k/wolves.json"),
	})
	if err != nil {
		t.Fatalf("second UpdateMatchIndex: %v", err)
	}
	if len(idx.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(idx.Entries))
	}
	entry := idx.Entries["Arsenal_FC_Chelsea_FC_2025-11-30"]
	if entry == nil {
		t.Fatal("first match lost on merge")
	}
	if entry.Snapshots["opening"] != "k/opening.json" || entry.Snapshots["closing"] != "k/closing.json" {
		t.Errorf("snapshots = %v", entry.Snapshots)
	}
}

func TestUpdateMatchIndexLastWriteWins(t *testing.T) {
	b, _ := newTestBuilder(t)
	ctx := context.Background()

	for _, loc := range []string{"k/old.json", "k/new.json"} {
		if _, err := b.UpdateMatchIndex(ctx, testLeague, testSeason, []SnapshotRef{
			ref("Arsenal FC", "Chelsea FC", "2025-11-30", "closing", loc),
		}); err != nil {
			t.Fatalf("UpdateMatchIndex(%s): %v", loc, err)
		}
	}

	entry, err := b.LookupMatch(ctx, testLeague, testSeason, "Arsenal FC", "Chelsea FC", "2025-11-30")
	if err != nil {
		t.Fatalf("LookupMatch: %v", err)
	}
	if entry.Snapshots["closing"] != "k/new.json" {
		t.Errorf("closing = %s, want the later write", entry.Snapshots["closing"])
	}
}

func TestReplaceMatchIndexDiscardsPriorEntries(t *testing.T) {
	b, _ := newTestBuilder(t)
	ctx := context.Background()

	if _, err := b.UpdateMatchIndex(ctx, testLeague, testSeason, []SnapshotRef{
		ref("Arsenal FC", "Chelsea FC", "2025-11-30", "closing", "k/a.json"),
	}); err != nil {
		t.Fatalf("UpdateMatchIndex: %v", err)
	}

	idx, err := b.ReplaceMatchIndex(ctx, testLeague, testSeason, []SnapshotRef{
		ref("Wolves", "Spurs", "2025-12-01", "opening", "k/b.json"),
	})
	if err != nil {
		t.Fatalf("ReplaceMatchIndex: %v", err)
	}
	if len(idx.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(idx.Entries))
	}
	if _, ok := idx.Entries["Arsenal_FC_Chelsea_FC_2025-11-30"]; ok {
		t.Error("replace kept a stale entry")
	}
}

func TestDerivedIndexes(t *testing.T) {
	b, store := newTestBuilder(t)
	ctx := context.Background()

	if _, err := b.UpdateMatchIndex(ctx, testLeague, testSeason, []SnapshotRef{
		ref("Arsenal FC", "Chelsea FC", "2025-11-30", "opening", "k/a1.json"),
		ref("Arsenal FC", "Chelsea FC", "2025-11-30", "closing", "k/a2.json"),
		ref("Wolves", "Spurs", "2025-11-30", "closing", "k/b1.json"),
		ref("Chelsea FC", "Wolves", "2025-12-06", "closing", "k/c1.json"),
	}); err != nil {
		t.Fatalf("UpdateMatchIndex: %v", err)
	}
	if err := b.BuildAllIndexes(ctx, testLeague, testSeason); err != nil {
		t.Fatalf("BuildAllIndexes: %v", err)
	}

	de, err := b.MatchesForDate(ctx, testLeague, testSeason, "2025-11-30")
	if err != nil {
		t.Fatalf("MatchesForDate: %v", err)
	}
	if de == nil || len(de.MatchKeys) != 2 {
		t.Fatalf("date entry = %+v, want 2 matches", de)
	}
	wantOffsets := []string{"closing", "opening"}
	if len(de.Offsets) != len(wantOffsets) {
		t.Fatalf("offsets = %v", de.Offsets)
	}
	for i, o := range wantOffsets {
		if de.Offsets[i] != o {
			t.Errorf("offsets[%d] = %s, want %s (sorted union)", i, de.Offsets[i], o)
		}
	}

	// Chelsea plays in two matches, once home and once away.
	keys, err := b.MatchesForTeam(ctx, testLeague, testSeason, "Chelsea FC")
	if err != nil {
		t.Fatalf("MatchesForTeam: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("Chelsea matches = %v, want 2", keys)
	}

	if missing, err := b.MatchesForDate(ctx, testLeague, testSeason, "2030-01-01"); err != nil || missing != nil {
		t.Errorf("unknown date = (%+v, %v), want (nil, nil)", missing, err)
	}

	// Derived artifacts must exist as storage keys.
	for _, kind := range []snapshot.IndexType{snapshot.IndexByDate, snapshot.IndexByTeam} {
		ok, err := store.IndexExists(ctx, testLeague, testSeason, kind)
		if err != nil || !ok {
			t.Errorf("index %s missing (ok=%v err=%v)", kind, ok, err)
		}
	}
}

func TestDerivedRebuildIsByteIdentical(t *testing.T) {
	b, store := newTestBuilder(t)
	ctx := context.Background()

	if _, err := b.UpdateMatchIndex(ctx, testLeague, testSeason, []SnapshotRef{
		ref("Arsenal FC", "Chelsea FC", "2025-11-30", "closing", "k/a.json"),
		ref("Wolves", "Spurs", "2025-12-01", "opening", "k/b.json"),
	}); err != nil {
		t.Fatalf("UpdateMatchIndex: %v", err)
	}

	if err := b.BuildAllIndexes(ctx, testLeague, testSeason); err != nil {
		t.Fatalf("first build: %v", err)
	}
	first := make(map[snapshot.IndexType][]byte)
	for _, kind := range []snapshot.IndexType{snapshot.IndexByDate, snapshot.IndexByTeam} {
		data, err := store.GetIndex(ctx, testLeague, testSeason, kind)
		if err != nil {
			t.Fatalf("GetIndex %s: %v", kind, err)
		}
		first[kind] = data
	}

	// Rebuilding with no intervening match index change must reproduce the
	// artifacts byte for byte.
	if err := b.BuildAllIndexes(ctx, testLeague, testSeason); err != nil {
		t.Fatalf("second build: %v", err)
	}
	for _, kind := range []snapshot.IndexType{snapshot.IndexByDate, snapshot.IndexByTeam} {
		data, err := store.GetIndex(ctx, testLeague, testSeason, kind)
		if err != nil {
			t.Fatalf("GetIndex %s after rebuild: %v", kind, err)
		}
		if !bytes.Equal(first[kind], data) {
			t.Errorf("%s index differs across identical rebuilds", kind)
		}
	}
}

func TestLookupMatchUnknown(t *testing.T) {
	b, _ := newTestBuilder(t)
	entry, err := b.LookupMatch(context.Background(), testLeague, testSeason, "Nobody", "Nothing", "2025-01-01")
	if err != nil {
		t.Fatalf("LookupMatch on empty index: %v", err)
	}
	if entry != nil {
		t.Errorf("entry = %+v, want nil", entry)
	}
}
