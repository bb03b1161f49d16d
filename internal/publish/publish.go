// Package publish derives the destination object key and uploads the final
// mesh to the destination bucket.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"photomesh/internal/config"
	"photomesh/internal/logging"
	"photomesh/internal/services"
	"photomesh/internal/storage"
)

const meshContentType = "model/obj"

// DestinationKey maps a source object key to the printable-mesh key. The
// directory prefix of the source key is preserved so results land next to
// their inputs.
func DestinationKey(sourceKey string) string {
	base := strings.TrimSuffix(sourceKey, path.Ext(sourceKey))
	if base == "" {
		base = sourceKey
	}
	return base + "_printable.obj"
}

// Publisher uploads finished meshes.
type Publisher struct {
	store  storage.ObjectStore
	logger *slog.Logger
}

func New(store storage.ObjectStore, logger *slog.Logger) *Publisher {
	return &Publisher{
		store:  store,
		logger: logging.NewComponentLogger(logger, "publish"),
	}
}

// Publish uploads meshPath for the given job and returns the destination key.
func (p *Publisher) Publish(ctx context.Context, job config.Job, meshPath string) (string, error) {
	info, err := os.Stat(meshPath)
	if err != nil {
		return "", services.Wrap(services.ErrStageOutput, "publish", "inspect mesh",
			fmt.Sprintf("final mesh %s is missing", meshPath), err)
	}
	if info.Size() == 0 {
		return "", services.Wrap(services.ErrStageOutput, "publish", "inspect mesh",
			fmt.Sprintf("final mesh %s is empty", meshPath), nil)
	}

	key := DestinationKey(job.SourceKey)
	started := time.Now()
	if err := p.store.Store(ctx, job.DestBucket, key, meshPath, meshContentType); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "publish", "upload",
			fmt.Sprintf("uploading %s to %s/%s failed", meshPath, job.DestBucket, key), err)
	}

	p.logger.Info("mesh published",
		logging.String(logging.FieldEventType, "mesh_published"),
		logging.String("bucket", job.DestBucket),
		logging.String("key", key),
		logging.Int64("bytes", info.Size()),
		logging.Duration("elapsed", time.Since(started).Round(time.Millisecond)),
	)
	return key, nil
}
