// Package meshfix runs the headless Blender cleanup over the raw
// reconstruction mesh. Cleanup is best effort: when Blender or the cleanup
// script is unavailable, or the cleanup itself fails, the raw mesh is
// published unchanged and the degradation is logged.
package meshfix

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"photomesh/internal/config"
	"photomesh/internal/fileutil"
	"photomesh/internal/logging"
	"photomesh/internal/services"
)

// decimateRatio is handed to the cleanup script as its final argument. The
// script decimates aggressively so the published mesh stays printable on
// consumer slicers.
const decimateRatio = "0.005"

var commandContext = exec.CommandContext

// Result reports how the output mesh was produced.
type Result struct {
	// Cleaned is false when the raw mesh was passed through unchanged.
	Cleaned bool
	// Detail explains a passthrough in operator terms.
	Detail string
	// Elapsed covers the Blender invocation only.
	Elapsed time.Duration
}

// Cleaner drives the Blender cleanup subprocess.
type Cleaner struct {
	binary string
	script string
	logger *slog.Logger
}

// New builds a Cleaner from the toolchain configuration.
func New(cfg config.Toolchain, logger *slog.Logger) *Cleaner {
	return &Cleaner{
		binary: cfg.BlenderBinary,
		script: cfg.CleanupScript,
		logger: logging.NewComponentLogger(logger, "meshfix"),
	}
}

// Clean produces outPath from inPath. A missing input mesh is a hard error;
// everything that goes wrong with the cleanup tooling degrades to a verified
// copy of the raw mesh so the job still yields a publishable artifact.
func (c *Cleaner) Clean(ctx context.Context, inPath, outPath string) (Result, error) {
	if _, err := os.Stat(inPath); err != nil {
		return Result{}, services.Wrap(services.ErrStageOutput, "mesh_cleanup", "inspect input",
			fmt.Sprintf("raw mesh %s is missing", inPath), err)
	}

	if reason := c.unavailable(); reason != "" {
		return c.passthrough(inPath, outPath, reason)
	}

	started := time.Now()
	cmd := commandContext(ctx, c.binary,
		"--background",
		"--python", c.script,
		"--",
		inPath,
		outPath,
		decimateRatio,
	)
	output, err := cmd.CombinedOutput()
	elapsed := time.Since(started)
	if err != nil {
		c.logger.Warn("blender cleanup failed",
			logging.String(logging.FieldEventType, "mesh_cleanup_failed"),
			logging.Error(err),
			logging.String("output_tail", tail(string(output), 1024)),
		)
		return c.passthrough(inPath, outPath, "blender exited with an error")
	}
	if _, err := os.Stat(outPath); err != nil {
		return c.passthrough(inPath, outPath, "blender exited cleanly but wrote no output mesh")
	}

	c.logger.Info("mesh cleanup complete",
		logging.String(logging.FieldEventType, "mesh_cleanup_complete"),
		logging.Duration("elapsed", elapsed.Round(time.Millisecond)),
		logging.String("mesh", outPath),
	)
	return Result{Cleaned: true, Elapsed: elapsed}, nil
}

// unavailable reports why cleanup cannot run, or "" when it can.
func (c *Cleaner) unavailable() string {
	if c.binary == "" {
		return "no blender binary configured"
	}
	if _, err := exec.LookPath(c.binary); err != nil {
		return fmt.Sprintf("blender binary %q not found", c.binary)
	}
	if c.script == "" {
		return "no cleanup script configured"
	}
	if _, err := os.Stat(c.script); err != nil {
		return fmt.Sprintf("cleanup script %s not found", c.script)
	}
	return ""
}

func (c *Cleaner) passthrough(inPath, outPath, reason string) (Result, error) {
	c.logger.Warn("publishing raw mesh without cleanup",
		logging.String(logging.FieldEventType, "mesh_cleanup_skipped"),
		logging.String(logging.FieldErrorHint, reason),
	)
	if err := fileutil.CopyFileVerified(inPath, outPath); err != nil {
		return Result{}, services.Wrap(services.ErrStageOutput, "mesh_cleanup", "copy raw mesh",
			"raw mesh passthrough failed", err)
	}
	return Result{Cleaned: false, Detail: reason}, nil
}

func tail(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max:]
}
