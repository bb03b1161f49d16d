// Package pipeline orchestrates a complete batch job: stage the input,
// reconstruct, clean the mesh, publish, and record the run in the ledger.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"photomesh/internal/config"
	"photomesh/internal/hardware"
	"photomesh/internal/logging"
	"photomesh/internal/meshfix"
	"photomesh/internal/preflight"
	"photomesh/internal/publish"
	"photomesh/internal/reconstruct"
	"photomesh/internal/runlog"
	"photomesh/internal/services"
	"photomesh/internal/staging"
	"photomesh/internal/storage"
	"photomesh/internal/toolchain"
)

// Outcome summarizes a successful run.
type Outcome struct {
	RunID      string
	ResultKey  string
	ImageCount int
	// Cleaned is false when the raw mesh was published without cleanup.
	Cleaned bool
	Elapsed time.Duration
}

// Pipeline wires the run-scoped collaborators together. One Pipeline serves
// one process; concurrent runs on the same work directory are excluded by a
// file lock.
type Pipeline struct {
	cfg    *config.Config
	logger *slog.Logger
	store  storage.ObjectStore
	ledger *runlog.Store
}

// New builds a Pipeline from configuration. The object store and the run
// ledger are opened eagerly so misconfiguration surfaces before any work
// starts.
func New(cfg *config.Config, logger *slog.Logger) (*Pipeline, error) {
	store, err := storage.New(cfg.Storage)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "open storage", "", err)
	}
	ledger, err := runlog.Open(cfg)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "open run ledger", "", err)
	}
	return &Pipeline{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "pipeline"),
		store:  store,
		ledger: ledger,
	}, nil
}

// Close releases the run ledger.
func (p *Pipeline) Close() error {
	return p.ledger.Close()
}

// Ledger exposes the run history store for CLI views.
func (p *Pipeline) Ledger() *runlog.Store {
	return p.ledger
}

// Run executes one job end to end. The returned error is tagged with the
// failure taxonomy; the run ledger records the same classification.
func (p *Pipeline) Run(ctx context.Context, job config.Job) (Outcome, error) {
	started := time.Now()

	if err := job.Validate(); err != nil {
		return Outcome{}, services.Wrap(services.ErrConfiguration, "pipeline", "validate job", "", err)
	}
	if err := p.cfg.EnsureDirectories(); err != nil {
		return Outcome{}, services.Wrap(services.ErrConfiguration, "pipeline", "prepare directories", "", err)
	}

	lock := flock.New(filepath.Join(p.cfg.Paths.WorkDir, "photomesh.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return Outcome{}, services.Wrap(services.ErrConfiguration, "pipeline", "acquire lock", "", err)
	}
	if !locked {
		return Outcome{}, services.Wrap(services.ErrConfiguration, "pipeline", "acquire lock",
			"another run is already using this work directory", nil)
	}
	defer func() { _ = lock.Unlock() }()

	runID, err := p.ledger.Begin(ctx, job)
	if err != nil {
		return Outcome{}, services.Wrap(services.ErrConfiguration, "pipeline", "record run", "", err)
	}
	logger := p.logger.With(logging.String(logging.FieldRunID, runID))
	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("source", job.SourceBucket+"/"+job.SourceKey),
		logging.String("dest_bucket", job.DestBucket),
	)

	outcome, err := p.execute(ctx, logger, runID, job)
	if err != nil {
		if ledgerErr := p.ledger.Fail(ctx, runID, err); ledgerErr != nil {
			logger.Warn("ledger failure write failed", logging.Error(ledgerErr))
		}
		logger.Error("run failed",
			logging.String(logging.FieldEventType, "run_failure"),
			logging.String(logging.FieldErrorKind, services.Kind(err)),
			logging.Error(err),
		)
		if services.IsDataQuality(err) {
			logger.Info("input cannot produce a reconstruction; retake photos with more overlap",
				logging.String(logging.FieldErrorHint, "data_quality"))
		}
		return Outcome{}, err
	}

	outcome.RunID = runID
	outcome.Elapsed = time.Since(started)
	if ledgerErr := p.ledger.Complete(ctx, runID, outcome.ResultKey); ledgerErr != nil {
		logger.Warn("ledger completion write failed", logging.Error(ledgerErr))
	}
	logger.Info("run complete",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.String("result_key", outcome.ResultKey),
		logging.Int("image_count", outcome.ImageCount),
		logging.Bool("mesh_cleaned", outcome.Cleaned),
		logging.Duration("elapsed", outcome.Elapsed.Round(time.Millisecond)),
	)
	return outcome, nil
}

func (p *Pipeline) execute(ctx context.Context, logger *slog.Logger, runID string, job config.Job) (Outcome, error) {
	env, err := toolchain.Resolve(p.cfg.Toolchain.SearchRoot)
	if err != nil {
		return Outcome{}, err
	}

	if missing := preflight.MissingRequired(preflight.CheckSystemDeps(ctx, p.cfg)); len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for _, status := range missing {
			names = append(names, status.Name)
		}
		return Outcome{}, services.Wrap(services.ErrConfiguration, "pipeline", "check dependencies",
			fmt.Sprintf("missing required binaries: %s", strings.Join(names, ", ")), nil)
	}

	capability := hardware.Probe(ctx, logger)

	// Scratch from previous runs is never reused; the run dir tree starts
	// empty every time.
	runsRoot := filepath.Join(p.cfg.Paths.WorkDir, "runs")
	if err := os.RemoveAll(runsRoot); err != nil {
		return Outcome{}, services.Wrap(services.ErrConfiguration, "pipeline", "reset scratch", runsRoot, err)
	}
	runDir := filepath.Join(runsRoot, runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return Outcome{}, services.Wrap(services.ErrConfiguration, "pipeline", "create run dir", runDir, err)
	}

	stager := staging.New(p.store, p.cfg, logger)
	staged, err := stager.Stage(ctx, job, runDir)
	if err != nil {
		return Outcome{}, err
	}

	layout := reconstruct.NewLayout(runDir)
	runner := reconstruct.NewRunner(env, logger, p.ledger.Recorder(runID, logger))
	err = runner.Run(ctx, layout, reconstruct.Options{
		SensorDatabase:   env.SensorDatabase,
		CUDA:             capability.CUDA,
		MinSolvedCameras: p.cfg.Reconstruction.MinSolvedCameras,
	})
	if err != nil {
		return Outcome{}, err
	}

	cleaner := meshfix.New(p.cfg.Toolchain, logger)
	cleaned, err := cleaner.Clean(ctx, layout.MeshFile(), layout.CleanedMeshFile())
	if err != nil {
		return Outcome{}, err
	}

	publisher := publish.New(p.store, logger)
	resultKey, err := publisher.Publish(ctx, job, layout.CleanedMeshFile())
	if err != nil {
		return Outcome{}, err
	}

	return Outcome{
		ResultKey:  resultKey,
		ImageCount: staged.ImageCount,
		Cleaned:    cleaned.Cleaned,
	}, nil
}
