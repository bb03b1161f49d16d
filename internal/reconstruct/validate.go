package reconstruct

import (
	"fmt"
	"os"
	"strings"

	"photomesh/internal/services"
)

// poseMarker is the textual marker counted in the reconstruction output to
// approximate the number of successfully localized cameras.
const poseMarker = `"poseId"`

// checkPairList verifies that image matching produced at least one candidate
// pair. The tool exits zero on an unusable photoset; an empty list means the
// problem is unsolvable with this input, not a software failure.
func checkPairList(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return services.Wrap(services.ErrStageOutput, "image_matching", "validate", path, err)
	}
	if info.Size() == 0 {
		return services.Wrap(services.ErrDataQuality, "image_matching", "validate",
			"no matching image pairs found; the photoset lacks overlap or texture (retake photos with more overlap)", nil)
	}
	return nil
}

// checkSolvedCameras verifies that structure from motion localized at least
// minPoses cameras by counting pose markers in the output descriptor.
func checkSolvedCameras(path string, minPoses int) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return services.Wrap(services.ErrStageOutput, "structure_from_motion", "validate", path, err)
	}
	poses := strings.Count(string(data), poseMarker)
	if poses < minPoses {
		return services.Wrap(services.ErrDataQuality, "structure_from_motion", "validate",
			fmt.Sprintf("only %d cameras solved, need %d; this is a data problem, not a software defect (retake photos with more views and overlap)", poses, minPoses), nil)
	}
	return nil
}

// countPoseMarkers exposes the marker count for logging.
func countPoseMarkers(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	return strings.Count(string(data), poseMarker)
}
