package toolchain

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"photomesh/internal/services"
)

func plantInstall(t *testing.T, root string) string {
	t.Helper()
	install := filepath.Join(root, "AliceVision-3.2.0")
	dbDir := filepath.Join(install, "share", "aliceVision")
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dbDir, "cameraSensors.db"), []byte("Canon;EOS;22.3\n"), 0o644); err != nil {
		t.Fatalf("write sensor db: %v", err)
	}
	for _, sub := range []string{"bin", "lib"} {
		if err := os.MkdirAll(filepath.Join(install, sub), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", sub, err)
		}
	}
	return install
}

func TestResolveFindsVersionedInstall(t *testing.T) {
	root := t.TempDir()
	install := plantInstall(t, root)

	env, err := Resolve(root)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if env.RootDir != install {
		t.Fatalf("root = %q, want %q", env.RootDir, install)
	}
	if env.BinDir != filepath.Join(install, "bin") {
		t.Fatalf("bin = %q", env.BinDir)
	}
	if !strings.HasSuffix(env.SensorDatabase, "cameraSensors.db") {
		t.Fatalf("sensor db = %q", env.SensorDatabase)
	}
}

func TestResolveMissingMarkerIsConfigurationError(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "unrelated"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	_, err := Resolve(root)
	if err == nil {
		t.Fatal("expected error for missing marker")
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	// The diagnostic must list the search root contents.
	if !strings.Contains(err.Error(), "unrelated/") {
		t.Fatalf("expected directory listing in diagnostic, got %v", err)
	}
}

func TestResolveUnreadableRoot(t *testing.T) {
	_, err := Resolve(filepath.Join(t.TempDir(), "absent"))
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestApplySetsExplicitEnvironment(t *testing.T) {
	root := t.TempDir()
	install := plantInstall(t, root)

	env, err := Resolve(root)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	cmd := exec.Command("true")
	env.Apply(cmd)

	var path, ldPath, avRoot, sensorDB string
	for _, kv := range cmd.Env {
		switch {
		case strings.HasPrefix(kv, "PATH="):
			path = kv
		case strings.HasPrefix(kv, "LD_LIBRARY_PATH="):
			ldPath = kv
		case strings.HasPrefix(kv, "ALICEVISION_ROOT="):
			avRoot = kv
		case strings.HasPrefix(kv, "ALICEVISION_SENSOR_DB="):
			sensorDB = kv
		}
	}
	if !strings.HasPrefix(path, "PATH="+filepath.Join(install, "bin")) {
		t.Fatalf("bin dir not prepended to PATH: %q", path)
	}
	if !strings.Contains(ldPath, filepath.Join(install, "lib")) {
		t.Fatalf("lib dir missing from LD_LIBRARY_PATH: %q", ldPath)
	}
	if avRoot != "ALICEVISION_ROOT="+install {
		t.Fatalf("root not exported to child: %q", avRoot)
	}
	if sensorDB == "" {
		t.Fatal("sensor db not exported to child")
	}
	// The parent process environment must stay untouched.
	if got := os.Getenv("ALICEVISION_ROOT"); got != "" {
		t.Fatalf("parent environment mutated: ALICEVISION_ROOT=%q", got)
	}
}

func TestBinary(t *testing.T) {
	env := Env{BinDir: "/opt/av/bin"}
	if got := env.Binary("aliceVision_meshing"); got != filepath.Join("/opt/av/bin", "aliceVision_meshing") {
		t.Fatalf("Binary = %q", got)
	}
}
