// Package storage abstracts the remote object store the job reads its input
// from and publishes its result to. The pipeline needs exactly two
// operations: read one object, write one object.
package storage

import (
	"context"
	"fmt"
	"strings"

	"photomesh/internal/config"
)

// ObjectStore is the minimal surface the pipeline requires. No listing,
// versioning, or multipart semantics.
type ObjectStore interface {
	// Fetch downloads bucket/key to destPath.
	Fetch(ctx context.Context, bucket, key, destPath string) error
	// Store uploads srcPath to bucket/key with the given content type.
	Store(ctx context.Context, bucket, key, srcPath, contentType string) error
}

// New constructs the store selected by configuration.
func New(cfg config.Storage) (ObjectStore, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "s3":
		return newS3Store(cfg)
	case "local":
		return NewLocal(cfg.LocalDir)
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}
