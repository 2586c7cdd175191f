package blob

import (
	"context"
	"fmt"

	"github.com/albapepper/prekick-data/internal/config"
)

// Open constructs the configured blob backend, wrapped with the default
// retry policy. Shared by cmd/api and cmd/collector.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	var backend Store
	var err error

	switch cfg.StorageBackend {
	case "fs", "":
		backend, err = NewFS(cfg.StoragePath)
	case "s3":
		backend, err = NewS3(ctx, S3Options{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
		})
	case "redis":
		backend, err = NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, "")
	default:
		return nil, fmt.Errorf("unknown storage backend %q (want fs, s3, or redis)", cfg.StorageBackend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.StorageBackend, err)
	}
	return WithRetry(backend), nil
}
