package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers for the failure taxonomy. Every fatal pipeline error is
// wrapped with exactly one of these so callers can classify without parsing
// messages.
var (
	// ErrConfiguration covers missing or unusable installation/configuration
	// state (toolchain marker absent, bad config values).
	ErrConfiguration = errors.New("configuration error")
	// ErrInput covers unsupported or unreadable job input.
	ErrInput = errors.New("input error")
	// ErrDataQuality covers inputs the tools processed successfully but that
	// cannot yield a reconstruction (empty match list, too few solved
	// cameras). Distinguished from software defects so operators retake
	// photos instead of filing bugs.
	ErrDataQuality = errors.New("data quality error")
	// ErrStageOutput covers a stage that exited zero but did not produce its
	// declared artifact.
	ErrStageOutput = errors.New("stage output error")
	// ErrExternalTool covers non-zero exits and launch failures of wrapped
	// binaries.
	ErrExternalTool = errors.New("external tool error")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns the short taxonomy label for an error, or "software" when the
// error carries no marker.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrInput):
		return "input"
	case errors.Is(err, ErrDataQuality):
		return "data_quality"
	case errors.Is(err, ErrStageOutput):
		return "stage_output"
	case errors.Is(err, ErrExternalTool):
		return "external_tool"
	case err == nil:
		return ""
	default:
		return "software"
	}
}

// IsDataQuality reports whether the failure should steer operators toward
// recapturing the input rather than debugging the pipeline.
func IsDataQuality(err error) bool {
	return errors.Is(err, ErrDataQuality)
}

// ExitCode maps an error to the process exit status: 0 on success, 1 on any
// fatal condition. All taxonomy members are fatal.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
