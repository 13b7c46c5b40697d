package blob

import (
	"context"
	"fmt"

	"lightbox/internal/config"
)

// Open constructs the blob store selected by configuration.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch Driver(cfg.Archive.BlobDriver) {
	case DriverFS:
		return NewFS(cfg.Archive.BlobDir)
	case DriverS3:
		return NewS3(ctx, S3Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			Prefix:          cfg.S3.Prefix,
			UsePathStyle:    cfg.S3.UsePathStyle,
		})
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Archive.BlobDriver)
	}
}
