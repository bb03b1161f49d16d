// Package hardware probes for a usable CUDA accelerator. Absence is a
// supported degraded mode, not an error: feature extraction falls back to
// CPU.
package hardware

import (
	"context"
	"log/slog"
	"os/exec"
	"strings"

	"photomesh/internal/logging"
)

var commandContext = exec.CommandContext

const nvidiaSMI = "nvidia-smi"

// Capability reports the accelerator probe outcome. Computed once at job
// start and read-only afterward.
type Capability struct {
	CUDA   bool
	Detail string
}

// Probe queries the NVIDIA management interface. CUDA is true only when the
// binary exists and returns success with at least one GPU listed.
func Probe(ctx context.Context, logger *slog.Logger) Capability {
	log := logging.NewComponentLogger(logger, "hardware")

	if _, err := exec.LookPath(nvidiaSMI); err != nil {
		cap := Capability{Detail: "nvidia-smi not found"}
		log.Info("no accelerator detected; stages will run on CPU",
			logging.String(logging.FieldEventType, "accelerator_probe"),
			logging.String("detail", cap.Detail),
		)
		return cap
	}

	output, err := commandContext(ctx, nvidiaSMI, "-L").CombinedOutput()
	if err != nil {
		cap := Capability{Detail: "nvidia-smi failed: " + strings.TrimSpace(string(output))}
		log.Info("accelerator interface present but unusable; stages will run on CPU",
			logging.String(logging.FieldEventType, "accelerator_probe"),
			logging.Error(err),
		)
		return cap
	}

	gpus := countGPULines(string(output))
	if gpus == 0 {
		cap := Capability{Detail: "nvidia-smi reported no GPUs"}
		log.Info("no accelerator detected; stages will run on CPU",
			logging.String(logging.FieldEventType, "accelerator_probe"),
			logging.String("detail", cap.Detail),
		)
		return cap
	}

	cap := Capability{CUDA: true, Detail: firstGPULine(string(output))}
	log.Info("accelerator detected",
		logging.String(logging.FieldEventType, "accelerator_probe"),
		logging.Int("gpus", gpus),
		logging.String("detail", cap.Detail),
	)
	return cap
}

// countGPULines counts "GPU N: ..." entries in nvidia-smi -L output.
func countGPULines(output string) int {
	count := 0
	for _, line := range strings.Split(output, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "GPU ") {
			count++
		}
	}
	return count
}

func firstGPULine(output string) string {
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "GPU ") {
			return trimmed
		}
	}
	return ""
}
