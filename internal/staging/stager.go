// Package staging materializes the remote input object as a flat directory
// of still images: archives are extracted and flattened, videos are sampled
// at a fixed frame rate, everything else is rejected.
package staging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"photomesh/internal/config"
	"photomesh/internal/fileutil"
	"photomesh/internal/logging"
	"photomesh/internal/services"
	"photomesh/internal/storage"
)

// ContentKind classifies the staged input.
type ContentKind string

const (
	KindArchive ContentKind = "archive"
	KindVideo   ContentKind = "video"
)

// Result reports what staging produced.
type Result struct {
	Kind       ContentKind
	SourceFile string
	ImagesDir  string
	ImageCount int
}

// Stager downloads and stages the job input.
type Stager struct {
	store   storage.ObjectStore
	ffmpeg  string
	ffprobe string
	logger  *slog.Logger
}

// New constructs a Stager.
func New(store storage.ObjectStore, cfg *config.Config, logger *slog.Logger) *Stager {
	return &Stager{
		store:   store,
		ffmpeg:  cfg.FFmpegBinary(),
		ffprobe: cfg.FFprobeBinary(),
		logger:  logging.NewComponentLogger(logger, "stager"),
	}
}

// Stage downloads exactly one object and materializes it as a flat image
// directory under workDir. Unsupported content types are fatal input errors.
// No image-count minimum is enforced here; the reconstruction validators own
// that call.
func (s *Stager) Stage(ctx context.Context, job config.Job, workDir string) (Result, error) {
	downloadDir := filepath.Join(workDir, "download")
	imagesDir := filepath.Join(workDir, "images")
	for _, dir := range []string{downloadDir, imagesDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Result{}, services.Wrap(services.ErrInput, "stager", "prepare", dir, err)
		}
	}

	sourceFile := filepath.Join(downloadDir, filepath.Base(job.SourceKey))
	if err := s.store.Fetch(ctx, job.SourceBucket, job.SourceKey, sourceFile); err != nil {
		return Result{}, services.Wrap(services.ErrInput, "stager", "download", job.SourceKey, err)
	}

	contentType, err := classify(sourceFile)
	if err != nil {
		return Result{}, services.Wrap(services.ErrInput, "stager", "classify", sourceFile, err)
	}
	s.logger.Info("input downloaded",
		logging.String("key", job.SourceKey),
		logging.String("content_type", contentType),
	)

	result := Result{SourceFile: sourceFile, ImagesDir: imagesDir}
	switch {
	case contentType == "application/zip":
		result.Kind = KindArchive
		if err := s.extractArchive(sourceFile, imagesDir); err != nil {
			return Result{}, err
		}
	case strings.HasPrefix(contentType, "video/"):
		result.Kind = KindVideo
		if err := s.sampleFrames(ctx, sourceFile, imagesDir); err != nil {
			return Result{}, err
		}
	default:
		return Result{}, services.Wrap(services.ErrInput, "stager", "classify",
			fmt.Sprintf("unsupported content type %q for %s", contentType, filepath.Base(job.SourceKey)), nil)
	}

	count, err := fileutil.CountFiles(imagesDir)
	if err != nil {
		return Result{}, services.Wrap(services.ErrInput, "stager", "count images", imagesDir, err)
	}
	result.ImageCount = count

	s.logger.Info("input staged",
		logging.String(logging.FieldEventType, "input_staged"),
		logging.String("kind", string(result.Kind)),
		logging.Int("images", count),
	)
	return result, nil
}
