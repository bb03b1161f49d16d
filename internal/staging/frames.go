package staging

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"photomesh/internal/logging"
	"photomesh/internal/media/ffprobe"
	"photomesh/internal/services"
)

var commandContext = exec.CommandContext

// framesPerSecond is the fixed sampling rate for video inputs. Two frames
// per second gives enough overlap between neighbouring views for feature
// matching on handheld orbit footage.
const framesPerSecond = 2

// sampleFrames extracts sequentially numbered JPEG frames from a video at
// the fixed rate.
func (s *Stager) sampleFrames(ctx context.Context, videoPath, imagesDir string) error {
	if probe, err := ffprobe.Inspect(ctx, s.ffprobe, videoPath); err != nil {
		// Inspection is informational only; ffmpeg is the authority on
		// whether the video decodes.
		s.logger.Warn("ffprobe inspection failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "frame sampling will proceed without a duration estimate"),
		)
	} else {
		s.logger.Info("video input inspected",
			logging.Float64("duration_seconds", probe.DurationSeconds()),
			logging.Int("expected_frames", int(probe.DurationSeconds()*framesPerSecond)),
			logging.Int("video_streams", probe.VideoStreamCount()),
		)
	}

	pattern := filepath.Join(imagesDir, "frame_%05d.jpg")
	cmd := commandContext(ctx, s.ffmpeg,
		"-hide_banner", "-loglevel", "error",
		"-i", videoPath,
		"-vf", fmt.Sprintf("fps=%d", framesPerSecond),
		"-q:v", "2",
		pattern,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return services.Wrap(services.ErrInput, "stager", "sample frames",
			strings.TrimSpace(string(output)), err)
	}
	return nil
}
