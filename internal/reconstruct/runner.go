package reconstruct

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"photomesh/internal/fileutil"
	"photomesh/internal/logging"
	"photomesh/internal/services"
	"photomesh/internal/toolchain"
)

var commandContext = exec.CommandContext

// StageObserver is notified as stages start and finish. The run ledger hooks
// in here; a nil observer is valid.
type StageObserver interface {
	StageStarted(name string)
	StageFinished(name string, err error)
}

// Runner executes the nine-stage chain sequentially. Every stage is a
// blocking subprocess; there is no retry and no partial-stage resume.
type Runner struct {
	env      toolchain.Env
	logger   *slog.Logger
	observer StageObserver
}

// NewRunner constructs a Runner over a resolved toolchain.
func NewRunner(env toolchain.Env, logger *slog.Logger, observer StageObserver) *Runner {
	return &Runner{
		env:      env,
		logger:   logging.NewComponentLogger(logger, "reconstruct"),
		observer: observer,
	}
}

// Run walks the stage plan in order. The first failure aborts the chain;
// callers receive the classified error unchanged.
func (r *Runner) Run(ctx context.Context, layout Layout, opts Options) error {
	if opts.SensorDatabase == "" {
		opts.SensorDatabase = r.env.SensorDatabase
	}

	stages := Plan(layout, opts)
	for i, stage := range stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.observer != nil {
			r.observer.StageStarted(stage.Name)
		}
		err := r.runStage(ctx, stage, i+1, len(stages))
		if r.observer != nil {
			r.observer.StageFinished(stage.Name, err)
		}
		if err != nil {
			return err
		}
	}

	r.logger.Info("reconstruction complete",
		logging.String(logging.FieldEventType, "reconstruction_complete"),
		logging.Int("solved_cameras", countPoseMarkers(layout.CamerasFile())),
		logging.String("mesh", layout.MeshFile()),
	)
	return nil
}

func (r *Runner) runStage(ctx context.Context, stage Stage, index, total int) error {
	logger := logging.WithStage(r.logger, stage.Name)
	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("binary", stage.Binary),
		logging.Int("index", index),
		logging.Int("total", total),
	)

	for _, dir := range stage.EnsureDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return services.Wrap(services.ErrExternalTool, stage.Name, "prepare output dir", dir, err)
		}
	}
	// File outputs need their parent directory in place before the tool runs.
	for _, output := range stage.Outputs {
		if filepath.Ext(output) != "" {
			if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
				return services.Wrap(services.ErrExternalTool, stage.Name, "prepare output dir", output, err)
			}
		}
	}

	started := time.Now()
	cmd := commandContext(ctx, r.env.Binary(stage.Binary), stage.Args...)
	r.env.Apply(cmd)
	output, err := cmd.CombinedOutput()
	if err != nil {
		logger.Error("stage failed",
			logging.String(logging.FieldEventType, "stage_failure"),
			logging.Error(err),
			logging.String("output_tail", tail(string(output), 2048)),
		)
		return services.Wrap(services.ErrExternalTool, stage.Name, "run",
			fmt.Sprintf("%s exited with an error", stage.Binary), err)
	}

	for _, artifact := range stage.Outputs {
		if err := checkArtifact(stage.Name, artifact); err != nil {
			return err
		}
	}
	if stage.Check != nil {
		if err := stage.Check(); err != nil {
			return err
		}
	}

	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("elapsed", time.Since(started).Round(time.Millisecond)),
	)
	return nil
}

// checkArtifact enforces the chain invariant: a stage's declared output must
// exist before the next stage starts, even when the tool exited zero.
func checkArtifact(stageName, artifact string) error {
	if _, err := os.Stat(artifact); err != nil {
		parent := filepath.Dir(artifact)
		return services.Wrap(services.ErrStageOutput, stageName, "validate",
			fmt.Sprintf("expected output %s missing (parent contents: %s)",
				artifact, strings.Join(fileutil.ListDir(parent), ", ")), err)
	}
	return nil
}

func tail(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max:]
}
