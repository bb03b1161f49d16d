package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkDir string `toml:"work_dir"`
	LogDir  string `toml:"log_dir"`
}

// Storage contains object storage connection settings.
type Storage struct {
	Provider  string `toml:"provider"` // "s3" or "local"
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Region    string `toml:"region"`
	UseSSL    bool   `toml:"use_ssl"`
	LocalDir  string `toml:"local_dir"`
}

// Toolchain contains settings for the wrapped photogrammetry install and the
// optional mesh cleanup collaborator.
type Toolchain struct {
	SearchRoot    string `toml:"search_root"`
	BlenderBinary string `toml:"blender_binary"`
	CleanupScript string `toml:"cleanup_script"`
}

// Reconstruction contains the few tunable thresholds of the stage chain.
// Stage argument templates themselves are fixed by the pipeline.
type Reconstruction struct {
	// MinSolvedCameras is the pose count required after structure from
	// motion. The production threshold is stricter; 3 tolerates small test
	// inputs.
	MinSolvedCameras int `toml:"min_solved_cameras"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for photomesh.
type Config struct {
	Paths          Paths          `toml:"paths"`
	Storage        Storage        `toml:"storage"`
	Toolchain      Toolchain      `toml:"toolchain"`
	Reconstruction Reconstruction `toml:"reconstruction"`
	Logging        Logging        `toml:"logging"`
}

// Job carries the per-invocation parameters supplied by the caller, never by
// the config file. Immutable for the job's duration.
type Job struct {
	SourceBucket string
	SourceKey    string
	DestBucket   string
}

// Environment variable names for job parameters.
const (
	EnvSourceBucket = "PHOTOMESH_SOURCE_BUCKET"
	EnvSourceKey    = "PHOTOMESH_SOURCE_KEY"
	EnvDestBucket   = "PHOTOMESH_DEST_BUCKET"
)

// JobFromEnv reads job parameters from the environment. Empty fields are left
// for flag overrides; Validate decides completeness.
func JobFromEnv() Job {
	return Job{
		SourceBucket: strings.TrimSpace(os.Getenv(EnvSourceBucket)),
		SourceKey:    strings.TrimSpace(os.Getenv(EnvSourceKey)),
		DestBucket:   strings.TrimSpace(os.Getenv(EnvDestBucket)),
	}
}

// Validate checks that every job parameter is present.
func (j Job) Validate() error {
	var missing []string
	if j.SourceBucket == "" {
		missing = append(missing, EnvSourceBucket)
	}
	if j.SourceKey == "" {
		missing = append(missing, EnvSourceKey)
	}
	if j.DestBucket == "" {
		missing = append(missing, EnvDestBucket)
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing job parameters: %s", strings.Join(missing, ", "))
	}
	return nil
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/photomesh/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The boolean reports
// whether a file existed at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("photomesh.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	for _, field := range []*string{
		&c.Paths.WorkDir,
		&c.Paths.LogDir,
		&c.Toolchain.SearchRoot,
		&c.Toolchain.CleanupScript,
		&c.Storage.LocalDir,
	} {
		if strings.TrimSpace(*field) == "" {
			*field = ""
			continue
		}
		expanded, err := expandPath(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}
	c.Storage.Provider = strings.ToLower(strings.TrimSpace(c.Storage.Provider))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	return nil
}

// EnsureDirectories creates the directories a run requires.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for frame sampling.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
