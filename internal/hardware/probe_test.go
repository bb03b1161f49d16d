package hardware

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"photomesh/internal/logging"
)

func stubNvidiaSMI(t *testing.T, script string) {
	t.Helper()
	binDir := t.TempDir()
	target := filepath.Join(binDir, nvidiaSMI)
	if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	t.Setenv("PATH", binDir)
}

func TestProbeNoBinary(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	cap := Probe(context.Background(), logging.NewNop())
	if cap.CUDA {
		t.Fatal("CUDA flag should be false without nvidia-smi")
	}
}

func TestProbeBinaryFails(t *testing.T) {
	stubNvidiaSMI(t, "#!/bin/sh\necho 'NVIDIA-SMI has failed' >&2\nexit 9\n")

	cap := Probe(context.Background(), logging.NewNop())
	if cap.CUDA {
		t.Fatal("CUDA flag should be false when nvidia-smi exits non-zero")
	}
}

func TestProbeReportsGPU(t *testing.T) {
	stubNvidiaSMI(t, "#!/bin/sh\necho 'GPU 0: NVIDIA RTX A4000 (UUID: GPU-1234)'\nexit 0\n")

	cap := Probe(context.Background(), logging.NewNop())
	if !cap.CUDA {
		t.Fatal("CUDA flag should be true with one GPU listed")
	}
	if cap.Detail == "" {
		t.Fatal("detail should carry the GPU line")
	}
}

func TestProbeZeroGPUs(t *testing.T) {
	stubNvidiaSMI(t, "#!/bin/sh\nexit 0\n")

	cap := Probe(context.Background(), logging.NewNop())
	if cap.CUDA {
		t.Fatal("CUDA flag should be false when no GPUs are listed")
	}
}

func TestCountGPULines(t *testing.T) {
	output := "GPU 0: A (UUID: x)\nGPU 1: B (UUID: y)\n"
	if got := countGPULines(output); got != 2 {
		t.Fatalf("countGPULines = %d, want 2", got)
	}
}
