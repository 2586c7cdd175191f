// Package blob abstracts the physical storage medium for snapshot and index
// artifacts. Backends: local filesystem, S3-compatible object storage
// (MinIO client), and Redis. Memory is the test fake.
//
// Absence is a value, not a fault: Get returns ErrNotFound, Exists returns
// false, Delete of a missing key is a no-op. Every other failure is a
// genuine error the Retry decorator will retry with backoff.
package blob

import (
	"context"
	"errors"
)

// ErrNotFound reports that no artifact exists at the requested key.
var ErrNotFound = errors.New("blob: not found")

// Store is a key-addressed artifact store. Put must publish atomically where
// the backend supports it — a concurrent reader never observes a partial
// write. List must drain any backend pagination and return the complete key
// set under the prefix.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// IsNotFound reports whether err means the key does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
