package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultValidatesWithLocalOverride(t *testing.T) {
	cfg := Default()
	cfg.Storage.Provider = "local"
	cfg.Storage.LocalDir = t.TempDir()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config with local storage should validate: %v", err)
	}
}

func TestValidateRejectsS3WithoutEndpoint(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation failure for s3 provider without endpoint")
	} else if !strings.Contains(err.Error(), "storage.endpoint") {
		t.Fatalf("unexpected validation message: %v", err)
	}
}

func TestValidateRejectsUnknownProvider(t *testing.T) {
	cfg := Default()
	cfg.Storage.Provider = "ftp"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation failure for unknown provider")
	}
}

func TestLoadParsesAndExpandsPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
work_dir = "` + filepath.Join(dir, "work") + `"

[storage]
provider = "local"
local_dir = "` + filepath.Join(dir, "store") + `"

[logging]
format = "JSON"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be reported as existing")
	}
	if resolved != path {
		t.Fatalf("resolved path = %q, want %q", resolved, path)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("format not normalized: %q", cfg.Logging.Format)
	}
	if !filepath.IsAbs(cfg.Paths.WorkDir) {
		t.Fatalf("work dir not absolute: %q", cfg.Paths.WorkDir)
	}
	if cfg.Reconstruction.MinSolvedCameras != defaultMinSolvedCameras {
		t.Fatalf("defaults not applied under partial file: %d", cfg.Reconstruction.MinSolvedCameras)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.toml")
	_, _, exists, err := Load(missing)
	if exists {
		t.Fatal("missing file reported as existing")
	}
	// Defaults use the s3 provider without endpoint, so validation fails.
	if err == nil {
		t.Fatal("expected validation error from bare defaults")
	}
}

func TestJobValidate(t *testing.T) {
	job := Job{SourceBucket: "in", SourceKey: "scan.zip", DestBucket: "out"}
	if err := job.Validate(); err != nil {
		t.Fatalf("complete job should validate: %v", err)
	}

	job.DestBucket = ""
	err := job.Validate()
	if err == nil {
		t.Fatal("expected error for missing destination bucket")
	}
	if !strings.Contains(err.Error(), EnvDestBucket) {
		t.Fatalf("error should name the missing variable: %v", err)
	}
}

func TestJobFromEnv(t *testing.T) {
	t.Setenv(EnvSourceBucket, " photos ")
	t.Setenv(EnvSourceKey, "scan.zip")
	t.Setenv(EnvDestBucket, "meshes")

	job := JobFromEnv()
	if job.SourceBucket != "photos" {
		t.Fatalf("source bucket not trimmed: %q", job.SourceBucket)
	}
	if job.SourceKey != "scan.zip" || job.DestBucket != "meshes" {
		t.Fatalf("unexpected job: %+v", job)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("sample config not written: %v", err)
	}
	cfg, _, exists, err := Load(path)
	if err != nil {
		// The sample ships with an example endpoint, so it must parse and
		// validate as written.
		t.Fatalf("sample config should load: %v", err)
	}
	if !exists {
		t.Fatal("sample config not detected")
	}
	if cfg.Toolchain.SearchRoot == "" {
		t.Fatal("sample config missing toolchain search root")
	}
}
