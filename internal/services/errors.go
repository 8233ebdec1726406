package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingMetadata indicates neither explicit flags nor the title
	// source yielded a non-empty title and artist.
	ErrMissingMetadata = errors.New("missing metadata")
	// ErrSourceNotFound indicates the selected recording path does not
	// resolve to an existing regular file.
	ErrSourceNotFound = errors.New("source recording not found")
	// ErrDirectoryCreate indicates a destination directory could not be
	// established.
	ErrDirectoryCreate = errors.New("directory create failed")
	// ErrCopyFailed indicates a replica could not be written.
	ErrCopyFailed = errors.New("copy failed")
	// ErrExternalTool indicates an external collaborator (ffmpeg, ffprobe)
	// failed or exited non-zero.
	ErrExternalTool = errors.New("external tool error")
	// ErrValidation indicates stage inputs were malformed or incomplete.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration indicates the run configuration is unusable.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrValidation
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
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
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
