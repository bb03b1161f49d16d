package reconstruct

// Fixed stage parameters. These are pipeline policy, not user configuration.
const (
	// defaultFieldOfView is assumed when image metadata carries no focal
	// information.
	defaultFieldOfView = "45.0"
	// depthMapDownscale trades depth resolution for memory and runtime.
	depthMapDownscale = "2"
	// meshMaxInputPoints caps the dense cloud fed to meshing.
	meshMaxInputPoints = "50000000"
	// describerType is the feature descriptor used for matching.
	describerType = "sift"
)

// Stage describes one external-tool invocation in the fixed nine-step
// sequence.
type Stage struct {
	// Name is the short identifier used in logs and the run ledger.
	Name string
	// Binary is the executable name resolved against the toolchain bin dir.
	Binary string
	// Args is the fixed argument template.
	Args []string
	// EnsureDirs are created before the stage runs.
	EnsureDirs []string
	// Outputs are the declared artifact paths that must exist once the
	// stage exits zero.
	Outputs []string
	// Check runs after the output-existence check for stages that can exit
	// zero yet produce unusable output. Nil for most stages.
	Check func() error
}

// Options carries the run-time inputs the plan depends on.
type Options struct {
	SensorDatabase string
	// CUDA is the accelerator capability flag. When false, feature
	// extraction is forced onto the CPU.
	CUDA bool
	// MinSolvedCameras is the pose-count threshold applied after structure
	// from motion.
	MinSolvedCameras int
}

// Plan returns the nine ordered stages over the given layout. Each stage
// consumes the declared outputs of the stages before it; the chain is strict,
// no artifact has more than one consumer.
func Plan(layout Layout, opts Options) []Stage {
	featureArgs := []string{
		"--input", layout.CameraInitFile(),
		"--describerTypes", describerType,
		"--output", layout.FeaturesDir(),
	}
	if !opts.CUDA {
		featureArgs = append(featureArgs, "--forceCpuExtraction", "1")
	}

	minPoses := opts.MinSolvedCameras
	if minPoses < 1 {
		minPoses = 1
	}

	return []Stage{
		{
			Name:   "camera_init",
			Binary: "aliceVision_cameraInit",
			Args: []string{
				"--imageFolder", layout.ImagesDir(),
				"--sensorDatabase", opts.SensorDatabase,
				"--defaultFieldOfView", defaultFieldOfView,
				"--allowSingleView", "1",
				"--output", layout.CameraInitFile(),
			},
			Outputs: []string{layout.CameraInitFile()},
		},
		{
			Name:       "feature_extraction",
			Binary:     "aliceVision_featureExtraction",
			Args:       featureArgs,
			EnsureDirs: []string{layout.FeaturesDir()},
			Outputs:    []string{layout.FeaturesDir()},
		},
		{
			Name:   "image_matching",
			Binary: "aliceVision_imageMatching",
			Args: []string{
				"--input", layout.CameraInitFile(),
				"--featuresFolders", layout.FeaturesDir(),
				"--method", "Exhaustive",
				"--output", layout.ImageMatchesFile(),
			},
			Outputs: []string{layout.ImageMatchesFile()},
			Check:   func() error { return checkPairList(layout.ImageMatchesFile()) },
		},
		{
			Name:   "feature_matching",
			Binary: "aliceVision_featureMatching",
			Args: []string{
				"--input", layout.CameraInitFile(),
				"--featuresFolders", layout.FeaturesDir(),
				"--imagePairsList", layout.ImageMatchesFile(),
				"--describerTypes", describerType,
				"--output", layout.MatchesDir(),
			},
			EnsureDirs: []string{layout.MatchesDir()},
			Outputs:    []string{layout.MatchesDir()},
		},
		{
			Name:   "structure_from_motion",
			Binary: "aliceVision_incrementalSfM",
			Args: []string{
				"--input", layout.CameraInitFile(),
				"--featuresFolders", layout.FeaturesDir(),
				"--matchesFolders", layout.MatchesDir(),
				"--output", layout.CamerasFile(),
			},
			Outputs: []string{layout.CamerasFile()},
			Check:   func() error { return checkSolvedCameras(layout.CamerasFile(), minPoses) },
		},
		{
			Name:   "prepare_dense_scene",
			Binary: "aliceVision_prepareDenseScene",
			Args: []string{
				"--input", layout.CamerasFile(),
				"--output", layout.DenseSceneFile(),
			},
			Outputs: []string{layout.DenseSceneFile()},
		},
		{
			Name:   "depth_map_estimation",
			Binary: "aliceVision_depthMapEstimation",
			Args: []string{
				"--input", layout.DenseSceneFile(),
				"--downscale", depthMapDownscale,
				"--output", layout.DepthMapsDir(),
			},
			EnsureDirs: []string{layout.DepthMapsDir()},
			Outputs:    []string{layout.DepthMapsDir()},
		},
		{
			Name:   "depth_map_filtering",
			Binary: "aliceVision_depthMapFiltering",
			Args: []string{
				"--input", layout.DenseSceneFile(),
				"--depthMapsFolder", layout.DepthMapsDir(),
				"--output", layout.FilteredDepthMapsDir(),
			},
			EnsureDirs: []string{layout.FilteredDepthMapsDir()},
			Outputs:    []string{layout.FilteredDepthMapsDir()},
		},
		{
			Name:   "meshing",
			Binary: "aliceVision_meshing",
			Args: []string{
				"--input", layout.DenseSceneFile(),
				"--depthMapsFolder", layout.FilteredDepthMapsDir(),
				"--estimateSpaceFromSfM", "1",
				"--maxInputPoints", meshMaxInputPoints,
				"--output", layout.MeshFile(),
			},
			Outputs: []string{layout.MeshFile()},
		},
	}
}

// StageNames returns the ordered stage identifiers, used by the run ledger
// and CLI views.
func StageNames() []string {
	names := make([]string, 0, 9)
	for _, stage := range Plan(NewLayout("."), Options{MinSolvedCameras: 1}) {
		names = append(names, stage.Name)
	}
	return names
}

// StageCount is the length of the fixed chain.
func StageCount() int { return len(StageNames()) }

// StageBinaries returns the executable names the chain shells out to, used by
// dependency checks.
func StageBinaries() []string {
	binaries := make([]string, 0, 9)
	for _, stage := range Plan(NewLayout("."), Options{MinSolvedCameras: 1}) {
		binaries = append(binaries, stage.Binary)
	}
	return binaries
}
