package config

import (
	"fmt"
	"strings"
)

// Validate checks configuration values for internal consistency.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		problems = append(problems, "paths.work_dir must be set")
	}
	if strings.TrimSpace(c.Toolchain.SearchRoot) == "" {
		problems = append(problems, "toolchain.search_root must be set")
	}

	switch c.Storage.Provider {
	case "s3":
		if strings.TrimSpace(c.Storage.Endpoint) == "" {
			problems = append(problems, "storage.endpoint must be set for the s3 provider")
		}
	case "local":
		if strings.TrimSpace(c.Storage.LocalDir) == "" {
			problems = append(problems, "storage.local_dir must be set for the local provider")
		}
	default:
		problems = append(problems, fmt.Sprintf("storage.provider must be \"s3\" or \"local\", got %q", c.Storage.Provider))
	}

	switch c.Logging.Format {
	case "", "auto", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format must be \"auto\", \"console\", or \"json\", got %q", c.Logging.Format))
	}

	if c.Reconstruction.MinSolvedCameras < 1 {
		problems = append(problems, "reconstruction.min_solved_cameras must be at least 1")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
