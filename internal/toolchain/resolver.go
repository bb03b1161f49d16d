package toolchain

import (
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"photomesh/internal/fileutil"
	"photomesh/internal/services"
)

// sensorDBRelPath is the marker file that identifies an AliceVision install.
// The directory above it moves between releases, so the install root is
// discovered at run time by searching for this path.
const sensorDBRelPath = "share/aliceVision/cameraSensors.db"

// Env describes a resolved toolchain installation. Values are applied to
// each stage subprocess explicitly; nothing is exported into the photomesh
// process environment.
type Env struct {
	RootDir        string
	BinDir         string
	LibDir         string
	SensorDatabase string
}

// Resolve searches searchRoot for an AliceVision installation and returns its
// environment. The search covers searchRoot itself and its immediate
// subdirectories, which matches the release layout (/opt/AliceVision-<ver>).
func Resolve(searchRoot string) (Env, error) {
	searchRoot = strings.TrimSpace(searchRoot)
	if searchRoot == "" {
		return Env{}, services.Wrap(services.ErrConfiguration, "toolchain", "resolve", "search root not configured", nil)
	}

	candidates := []string{searchRoot}
	entries, err := os.ReadDir(searchRoot)
	if err != nil {
		return Env{}, services.Wrap(services.ErrConfiguration, "toolchain", "resolve",
			fmt.Sprintf("read search root %s", searchRoot), err)
	}
	for _, entry := range entries {
		if entry.IsDir() || entry.Type()&fs.ModeSymlink != 0 {
			candidates = append(candidates, filepath.Join(searchRoot, entry.Name()))
		}
	}

	for _, root := range candidates {
		marker := filepath.Join(root, filepath.FromSlash(sensorDBRelPath))
		info, err := os.Stat(marker)
		if err != nil || info.IsDir() {
			continue
		}
		return Env{
			RootDir:        root,
			BinDir:         filepath.Join(root, "bin"),
			LibDir:         filepath.Join(root, "lib"),
			SensorDatabase: marker,
		}, nil
	}

	return Env{}, services.Wrap(services.ErrConfiguration, "toolchain", "resolve",
		fmt.Sprintf("no %s under %s (contents: %s)",
			sensorDBRelPath, searchRoot, strings.Join(fileutil.ListDir(searchRoot), ", ")), nil)
}

// Binary returns the absolute path of a toolchain executable.
func (e Env) Binary(name string) string {
	return filepath.Join(e.BinDir, name)
}

// Apply sets the environment the toolchain binaries need on cmd, inheriting
// the parent environment and prepending the toolchain paths. Explicit
// per-command application replaces the global exports the install docs
// suggest.
func (e Env) Apply(cmd *exec.Cmd) {
	env := os.Environ()
	env = prependPathVar(env, "PATH", e.BinDir)
	env = prependPathVar(env, "LD_LIBRARY_PATH", e.LibDir)
	env = append(env,
		"ALICEVISION_ROOT="+e.RootDir,
		"ALICEVISION_SENSOR_DB="+e.SensorDatabase,
	)
	cmd.Env = env
}

func prependPathVar(env []string, key, value string) []string {
	if value == "" {
		return env
	}
	prefix := key + "="
	for i, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			existing := kv[len(prefix):]
			if existing == "" {
				env[i] = prefix + value
			} else {
				env[i] = prefix + value + string(os.PathListSeparator) + existing
			}
			return env
		}
	}
	return append(env, prefix+value)
}
