package main

import (
	"context"
	"fmt"

	"adgen/internal/domain"
	"adgen/internal/infra"
	"adgen/internal/storage"
)

func newObjectStore(ctx context.Context, cfg *infra.Config) (domain.ObjectStore, error) {
	switch cfg.StorageBackend {
	case "s3":
		return storage.NewS3Store(ctx, storage.S3Options{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			Endpoint:     cfg.S3Endpoint,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			UsePathStyle: cfg.S3UsePathStyle,
		})
	case "filesystem":
		return storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackend)
	}
}
