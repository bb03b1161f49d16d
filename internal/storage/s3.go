package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"photomesh/internal/config"
)

// s3Store talks to any S3-compatible endpoint through the minio client.
type s3Store struct {
	client *minio.Client
}

func newS3Store(cfg config.Storage) (*s3Store, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("s3 storage: endpoint required")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 storage: %w", err)
	}
	return &s3Store{client: client}, nil
}

func (s *s3Store) Fetch(ctx context.Context, bucket, key, destPath string) error {
	if err := s.client.FGetObject(ctx, bucket, key, destPath, minio.GetObjectOptions{}); err != nil {
		return fmt.Errorf("fetch s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}

func (s *s3Store) Store(ctx context.Context, bucket, key, srcPath, contentType string) error {
	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := s.client.FPutObject(ctx, bucket, key, srcPath, opts); err != nil {
		return fmt.Errorf("store s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}

var _ ObjectStore = (*s3Store)(nil)
