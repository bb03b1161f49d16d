package reconstruct

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"photomesh/internal/logging"
	"photomesh/internal/services"
	"photomesh/internal/toolchain"
)

// stubToolchain plants a fake AliceVision install whose binaries are shell
// stubs. Each stub appends its name to an invocation log and runs the body
// given for it, with $out holding the --output argument.
func stubToolchain(t *testing.T, bodies map[string]string) (toolchain.Env, string) {
	t.Helper()
	root := t.TempDir()
	install := filepath.Join(root, "AliceVision-3.2.0")
	binDir := filepath.Join(install, "bin")
	dbDir := filepath.Join(install, "share", "aliceVision")
	for _, dir := range []string{binDir, filepath.Join(install, "lib"), dbDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	if err := os.WriteFile(filepath.Join(dbDir, "cameraSensors.db"), []byte("db"), 0o644); err != nil {
		t.Fatalf("write sensor db: %v", err)
	}

	invocationLog := filepath.Join(root, "invocations.log")
	for name, body := range bodies {
		script := fmt.Sprintf(`#!/bin/sh
out=""
prev=""
for arg; do
  [ "$prev" = "--output" ] && out="$arg"
  prev="$arg"
done
echo %s >> %q
%s
`, name, invocationLog, body)
		if err := os.WriteFile(filepath.Join(binDir, name), []byte(script), 0o755); err != nil {
			t.Fatalf("write stub %s: %v", name, err)
		}
	}

	env, err := toolchain.Resolve(root)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	return env, invocationLog
}

func happyBodies() map[string]string {
	fileOutput := func(content string) string {
		return fmt.Sprintf(`mkdir -p "$(dirname "$out")" && printf %%s '%s' > "$out"`, content)
	}
	dirOutput := `mkdir -p "$out" && touch "$out/artifact"`
	return map[string]string{
		"aliceVision_cameraInit":        fileOutput(`{"views":[{"viewId":"1"}]}`),
		"aliceVision_featureExtraction": dirOutput,
		"aliceVision_imageMatching":     fileOutput("0 1\n0 2\n1 2\n"),
		"aliceVision_featureMatching":   dirOutput,
		"aliceVision_incrementalSfM":    fileOutput(`{"poses":[{"poseId":"1"},{"poseId":"2"},{"poseId":"3"}]}`),
		"aliceVision_prepareDenseScene": fileOutput("dense scene"),
		"aliceVision_depthMapEstimation": dirOutput,
		"aliceVision_depthMapFiltering":  dirOutput,
		"aliceVision_meshing":            fileOutput("v 0 0 0\nf 1 1 1\n"),
	}
}

type recordingObserver struct {
	started  []string
	finished []string
	failures map[string]error
}

func (o *recordingObserver) StageStarted(name string) { o.started = append(o.started, name) }

func (o *recordingObserver) StageFinished(name string, err error) {
	o.finished = append(o.finished, name)
	if err != nil {
		if o.failures == nil {
			o.failures = map[string]error{}
		}
		o.failures[name] = err
	}
}

func invocations(t *testing.T, logPath string) string {
	t.Helper()
	data, err := os.ReadFile(logPath)
	if err != nil {
		return ""
	}
	return string(data)
}

func TestRunnerHappyPath(t *testing.T) {
	env, _ := stubToolchain(t, happyBodies())
	layout := NewLayout(t.TempDir())
	observer := &recordingObserver{}
	runner := NewRunner(env, logging.NewNop(), observer)

	err := runner.Run(context.Background(), layout, Options{MinSolvedCameras: 3})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(observer.started) != 9 || len(observer.finished) != 9 {
		t.Fatalf("observer saw %d/%d stages, want 9/9", len(observer.started), len(observer.finished))
	}
	if len(observer.failures) != 0 {
		t.Fatalf("unexpected failures: %v", observer.failures)
	}
	if _, err := os.Stat(layout.MeshFile()); err != nil {
		t.Fatalf("mesh artifact missing: %v", err)
	}
}

func TestRunnerEmptyPairListStopsBeforeFeatureMatching(t *testing.T) {
	bodies := happyBodies()
	bodies["aliceVision_imageMatching"] = `mkdir -p "$(dirname "$out")" && : > "$out"`
	env, logPath := stubToolchain(t, bodies)
	layout := NewLayout(t.TempDir())
	runner := NewRunner(env, logging.NewNop(), nil)

	err := runner.Run(context.Background(), layout, Options{MinSolvedCameras: 3})
	if !errors.Is(err, services.ErrDataQuality) {
		t.Fatalf("expected data quality error, got %v", err)
	}
	log := invocations(t, logPath)
	if strings.Contains(log, "aliceVision_featureMatching") {
		t.Fatal("feature matching ran after an empty pair list")
	}
	if strings.Contains(log, "aliceVision_incrementalSfM") {
		t.Fatal("dense chain ran after an empty pair list")
	}
}

func TestRunnerInsufficientCamerasIsDataQuality(t *testing.T) {
	bodies := happyBodies()
	bodies["aliceVision_incrementalSfM"] = `mkdir -p "$(dirname "$out")" && printf %s '{"poses":[{"poseId":"1"},{"poseId":"2"}]}' > "$out"`
	env, logPath := stubToolchain(t, bodies)
	layout := NewLayout(t.TempDir())
	runner := NewRunner(env, logging.NewNop(), nil)

	err := runner.Run(context.Background(), layout, Options{MinSolvedCameras: 3})
	if !errors.Is(err, services.ErrDataQuality) {
		t.Fatalf("expected data quality error, got %v", err)
	}
	if strings.Contains(invocations(t, logPath), "aliceVision_prepareDenseScene") {
		t.Fatal("dense preparation ran after insufficient cameras")
	}
}

func TestRunnerMissingArtifactIsStageOutput(t *testing.T) {
	bodies := happyBodies()
	bodies["aliceVision_meshing"] = `exit 0`
	env, _ := stubToolchain(t, bodies)
	layout := NewLayout(t.TempDir())
	runner := NewRunner(env, logging.NewNop(), nil)

	err := runner.Run(context.Background(), layout, Options{MinSolvedCameras: 3})
	if !errors.Is(err, services.ErrStageOutput) {
		t.Fatalf("expected stage output error, got %v", err)
	}
}

func TestRunnerNonZeroExitIsExternalTool(t *testing.T) {
	bodies := happyBodies()
	bodies["aliceVision_depthMapEstimation"] = `echo "CUDA device lost" >&2; exit 3`
	env, _ := stubToolchain(t, bodies)
	layout := NewLayout(t.TempDir())
	observer := &recordingObserver{}
	runner := NewRunner(env, logging.NewNop(), observer)

	err := runner.Run(context.Background(), layout, Options{MinSolvedCameras: 3})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if observer.failures["depth_map_estimation"] == nil {
		t.Fatal("observer should record the failing stage")
	}
}

func TestRunnerHonorsCancellation(t *testing.T) {
	env, _ := stubToolchain(t, happyBodies())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := NewRunner(env, logging.NewNop(), nil)
	err := runner.Run(ctx, NewLayout(t.TempDir()), Options{MinSolvedCameras: 3})
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
