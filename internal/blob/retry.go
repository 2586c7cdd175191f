package blob

import (
	"context"
	"time"
)

const (
	defaultRetryAttempts = 3
	defaultRetryBase     = 200 * time.Millisecond
	defaultRetryCap      = 5 * time.Second
)

// Retry wraps a Store and retries transient failures with exponential
// backoff. ErrNotFound is never retried — absence is an answer, not a fault.
type Retry struct {
	inner    Store
	attempts int
	base     time.Duration
	cap      time.Duration
}

// WithRetry decorates a store with default backoff policy.
func WithRetry(inner Store) *Retry {
	return &Retry{
		inner:    inner,
		attempts: defaultRetryAttempts,
		base:     defaultRetryBase,
		cap:      defaultRetryCap,
	}
}

// WithRetryPolicy decorates a store with an explicit policy.
func WithRetryPolicy(inner Store, attempts int, base, cap time.Duration) *Retry {
	if attempts < 1 {
		attempts = 1
	}
	return &Retry{inner: inner, attempts: attempts, base: base, cap: cap}
}

func (r *Retry) do(ctx context.Context, op func() error) error {
	var err error
	delay := r.base
	for attempt := 0; attempt < r.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
			if delay > r.cap {
				delay = r.cap
			}
		}
		err = op()
		if err == nil || IsNotFound(err) {
			return err
		}
	}
	return err
}

func (r *Retry) Put(ctx context.Context, key string, data []byte) error {
	return r.do(ctx, func() error { return r.inner.Put(ctx, key, data) })
}

func (r *Retry) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := r.do(ctx, func() error {
		var opErr error
		data, opErr = r.inner.Get(ctx, key)
		return opErr
	})
	return data, err
}

func (r *Retry) Exists(ctx context.Context, key string) (bool, error) {
	var ok bool
	err := r.do(ctx, func() error {
		var opErr error
		ok, opErr = r.inner.Exists(ctx, key)
		return opErr
	})
	return ok, err
}

func (r *Retry) Delete(ctx context.Context, key string) error {
	return r.do(ctx, func() error { return r.inner.Delete(ctx, key) })
}

func (r *Retry) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := r.do(ctx, func() error {
		var opErr error
		keys, opErr = r.inner.List(ctx, prefix)
		return opErr
	})
	return keys, err
}

func (r *Retry) Close() error { return r.inner.Close() }
