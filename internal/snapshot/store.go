package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/albapepper/prekick-data/internal/blob"
)

// Store reads and writes snapshot and index artifacts. The underlying blob
// store is expected to be wrapped with blob.WithRetry by the caller; Store
// itself adds no retry.
type Store struct {
	blobs  blob.Store
	logger *slog.Logger
}

// NewStore creates a snapshot store over a blob backend.
func NewStore(blobs blob.Store, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{blobs: blobs, logger: logger}
}

// Save writes one snapshot at its deterministic key. Saving the same
// identity twice overwrites in place.
func (s *Store) Save(ctx context.Context, snap *Snapshot) (string, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot %s: %w", snap.ID(), err)
	}
	key := snap.Key()
	if err := s.blobs.Put(ctx, key, data); err != nil {
		return "", fmt.Errorf("save snapshot %s: %w", snap.ID(), err)
	}
	return key, nil
}

// Get loads a snapshot by key. Returns (nil, nil) when absent.
func (s *Store) Get(ctx context.Context, key string) (*Snapshot, error) {
	data, err := s.blobs.Get(ctx, key)
	if blob.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return &snap, nil
}

// GetRaw returns the stored JSON bytes without decoding, for passthrough
// serving. Returns (nil, nil) when absent.
func (s *Store) GetRaw(ctx context.Context, key string) ([]byte, error) {
	data, err := s.blobs.Get(ctx, key)
	if blob.IsNotFound(err) {
		return nil, nil
	}
	return data, err
}

// Exists reports whether a snapshot is stored at key.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	return s.blobs.Exists(ctx, key)
}

// Delete removes a snapshot. Missing keys are a no-op.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.blobs.Delete(ctx, key)
}

// ListSeason returns every snapshot key for one league season, index
// artifacts excluded.
func (s *Store) ListSeason(ctx context.Context, league, season string) ([]string, error) {
	keys, err := s.blobs.List(ctx, SeasonPrefix(league, season))
	if err != nil {
		return nil, err
	}
	var out []string
	for _, k := range keys {
		if isIndexKey(k) {
			continue
		}
		out = append(out, k)
	}
	return out, nil
}

// BatchSave writes a batch of snapshots, continuing past individual
// failures. Returns the keys written and the first error set.
func (s *Store) BatchSave(ctx context.Context, snaps []*Snapshot) ([]string, []error) {
	var keys []string
	var errs []error
	for _, snap := range snaps {
		key, err := s.Save(ctx, snap)
		if err != nil {
			s.logger.Warn("Batch save: snapshot failed", "id", snap.ID(), "error", err)
			errs = append(errs, err)
			continue
		}
		keys = append(keys, key)
	}
	return keys, errs
}

// SaveIndex writes an index artifact as raw JSON.
func (s *Store) SaveIndex(ctx context.Context, league, season string, kind IndexType, data []byte) error {
	if err := s.blobs.Put(ctx, IndexKey(league, season, kind), data); err != nil {
		return fmt.Errorf("save %s index: %w", kind, err)
	}
	return nil
}

// GetIndex loads an index artifact. Returns (nil, nil) when absent.
func (s *Store) GetIndex(ctx context.Context, league, season string, kind IndexType) ([]byte, error) {
	data, err := s.blobs.Get(ctx, IndexKey(league, season, kind))
	if blob.IsNotFound(err) {
		return nil, nil
	}
	return data, err
}

// IndexExists reports whether an index artifact is stored.
func (s *Store) IndexExists(ctx context.Context, league, season string, kind IndexType) (bool, error) {
	return s.blobs.Exists(ctx, IndexKey(league, season, kind))
}

func isIndexKey(key string) bool {
	base := key[strings.LastIndex(key, "/")+1:]
	return base == string(IndexByMatch)+".json" ||
		base == string(IndexByDate)+".json" ||
		base == string(IndexByTeam)+".json"
}
