package reconstruct

import "path/filepath"

// Layout fixes the working-directory paths the stage chain uses. Paths are
// established by convention, not computed: each stage's inputs are the
// declared outputs of the stages before it.
type Layout struct {
	root string
}

// NewLayout returns the layout rooted at the run's working directory.
func NewLayout(root string) Layout {
	return Layout{root: root}
}

func (l Layout) Root() string { return l.root }

func (l Layout) ImagesDir() string { return filepath.Join(l.root, "images") }

func (l Layout) CameraInitFile() string {
	return filepath.Join(l.root, "camera_init", "cameraInit.sfm")
}

func (l Layout) FeaturesDir() string { return filepath.Join(l.root, "features") }

func (l Layout) ImageMatchesFile() string {
	return filepath.Join(l.root, "image_matching", "imageMatches.txt")
}

func (l Layout) MatchesDir() string { return filepath.Join(l.root, "matches") }

func (l Layout) CamerasFile() string {
	return filepath.Join(l.root, "sfm", "cameras.sfm")
}

// DenseSceneFile is passed to dense-scene preparation as an explicit output
// name; the tool's undocumented default naming is bypassed to keep the
// artifact chain unambiguous.
func (l Layout) DenseSceneFile() string {
	return filepath.Join(l.root, "dense", "scene.sfm")
}

func (l Layout) DepthMapsDir() string { return filepath.Join(l.root, "depth_maps") }

func (l Layout) FilteredDepthMapsDir() string {
	return filepath.Join(l.root, "depth_maps_filtered")
}

func (l Layout) MeshFile() string {
	return filepath.Join(l.root, "mesh", "mesh.obj")
}

// CleanedMeshFile is where the post-processor writes its output.
func (l Layout) CleanedMeshFile() string {
	return filepath.Join(l.root, "mesh", "mesh_cleaned.obj")
}
