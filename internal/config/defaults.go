package config

const (
	defaultWorkDir          = "~/.local/share/photomesh/work"
	defaultLogDir           = "~/.local/share/photomesh/logs"
	defaultSearchRoot       = "/opt"
	defaultBlenderBinary    = "blender"
	defaultCleanupScript    = "/opt/photomesh/cleanup_mesh.py"
	defaultStorageProvider  = "s3"
	defaultStorageRegion    = "us-east-1"
	defaultLogFormat        = "auto"
	defaultLogLevel         = "info"
	defaultMinSolvedCameras = 3
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir: defaultWorkDir,
			LogDir:  defaultLogDir,
		},
		Storage: Storage{
			Provider: defaultStorageProvider,
			Region:   defaultStorageRegion,
			UseSSL:   true,
		},
		Toolchain: Toolchain{
			SearchRoot:    defaultSearchRoot,
			BlenderBinary: defaultBlenderBinary,
			CleanupScript: defaultCleanupScript,
		},
		Reconstruction: Reconstruction{
			MinSolvedCameras: defaultMinSolvedCameras,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
