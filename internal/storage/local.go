package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"photomesh/internal/fileutil"
)

// Local is a directory-backed object store: <root>/<bucket>/<key>. Used by
// tests and air-gapped deployments.
type Local struct {
	root string
}

// NewLocal constructs a Local store rooted at dir.
func NewLocal(dir string) (*Local, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("local storage: directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("local storage: %w", err)
	}
	return &Local{root: dir}, nil
}

func (l *Local) objectPath(bucket, key string) string {
	return filepath.Join(l.root, bucket, filepath.FromSlash(key))
}

func (l *Local) Fetch(ctx context.Context, bucket, key, destPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src := l.objectPath(bucket, key)
	if _, err := os.Stat(src); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("fetch %s/%s: object not found", bucket, key)
		}
		return fmt.Errorf("fetch %s/%s: %w", bucket, key, err)
	}
	if err := fileutil.CopyFile(src, destPath); err != nil {
		return fmt.Errorf("fetch %s/%s: %w", bucket, key, err)
	}
	return nil
}

func (l *Local) Store(ctx context.Context, bucket, key, srcPath, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dest := l.objectPath(bucket, key)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("store %s/%s: %w", bucket, key, err)
	}
	if err := fileutil.CopyFileVerified(srcPath, dest); err != nil {
		return fmt.Errorf("store %s/%s: %w", bucket, key, err)
	}
	return nil
}

var _ ObjectStore = (*Local)(nil)
