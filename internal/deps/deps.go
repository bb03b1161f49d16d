// Package deps declares the external binaries the pipeline shells out to and
// reports their availability.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"photomesh/internal/config"
	"photomesh/internal/reconstruct"
	"photomesh/internal/toolchain"
)

// Requirement defines an external dependency the pipeline relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Requirements builds the dependency list for the given configuration. The
// photogrammetry binaries are listed through the resolved toolchain when one
// is available; env may be the zero value when resolution failed.
func Requirements(cfg *config.Config, env toolchain.Env) []Requirement {
	requirements := []Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Required for video frame extraction",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Required for video inspection",
		},
		{
			Name:        "Blender",
			Command:     cfg.Toolchain.BlenderBinary,
			Description: "Optional mesh cleanup; raw mesh is published without it",
			Optional:    true,
		},
	}
	for _, binary := range reconstruct.StageBinaries() {
		command := binary
		if env.BinDir != "" {
			command = env.Binary(binary)
		}
		requirements = append(requirements, Requirement{
			Name:        binary,
			Command:     command,
			Description: "Photogrammetry stage binary",
		})
	}
	return requirements
}
