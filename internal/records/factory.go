package records

import (
	"context"
	"strings"
)

// NewStore creates a postgres-backed store when configured, otherwise in-memory.
func NewStore(ctx context.Context, databaseURL string) (Store, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewInMemoryStore(), nil
	}
	return NewPostgresStore(ctx, databaseURL)
}

// NewBlobStore creates an S3-compatible blob store when an endpoint is configured,
// otherwise an in-memory one.
func NewBlobStore(ctx context.Context, opts MinioOptions) (BlobStore, error) {
	if strings.TrimSpace(opts.Endpoint) == "" {
		return NewMemoryBlobStore(), nil
	}
	return NewMinioBlobStore(ctx, opts)
}
