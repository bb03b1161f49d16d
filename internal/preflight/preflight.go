package preflight

import (
	"context"

	"photomesh/internal/config"
	"photomesh/internal/deps"
	"photomesh/internal/toolchain"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the environment checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	results = append(results, CheckFreeSpace("Work directory space", cfg.Paths.WorkDir))
	results = append(results, CheckToolchain(cfg.Toolchain.SearchRoot))
	return results
}

// CheckSystemDeps evaluates the external binary dependencies. Both the run
// path and the CLI status command use this to avoid duplicating the
// requirements list.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	env, err := toolchain.Resolve(cfg.Toolchain.SearchRoot)
	if err != nil {
		env = toolchain.Env{}
	}
	return deps.CheckBinaries(deps.Requirements(cfg, env))
}

// MissingRequired filters statuses down to unavailable mandatory
// dependencies.
func MissingRequired(statuses []deps.Status) []deps.Status {
	var missing []deps.Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status)
		}
	}
	return missing
}
