package blob

import (
	"context"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

// Redis stores artifacts as plain string values. Suited to small deployments
// where snapshots and Postgres share a box and object storage is overkill.
// SET is atomic, so the publish discipline holds for free.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis connects and pings. All keys are namespaced under prefix.
func NewRedis(ctx context.Context, addr, password, prefix string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	if prefix == "" {
		prefix = "prekick:"
	}
	return &Redis{client: client, prefix: prefix}, nil
}

func (s *Redis) Put(ctx context.Context, key string, data []byte) error {
	if err := s.client.Set(ctx, s.prefix+key, data, 0).Err(); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (s *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return data, nil
}

func (s *Redis) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.prefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", key, err)
	}
	return n > 0, nil
}

func (s *Redis) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// List walks SCAN cursors until exhaustion so callers always see the
// complete key set, never one page.
func (s *Redis) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	var cursor uint64
	pattern := s.prefix + prefix + "*"
	for {
		page, next, err := s.client.Scan(ctx, cursor, pattern, 500).Result()
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", prefix, err)
		}
		for _, k := range page {
			keys = append(keys, k[len(s.prefix):])
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Redis) Close() error { return s.client.Close() }
