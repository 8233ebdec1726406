package encoding

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"recpub/internal/logging"
	"recpub/internal/services"
)

// commandContext is swapped in tests.
var commandContext = exec.CommandContext

// Runner invokes the external encode collaborator synchronously, blocking
// until the child process exits.
type Runner interface {
	Encode(ctx context.Context, inputPath, outputPath string, profile Profile) error
}

// FFmpegRunner runs ffmpeg and surfaces non-zero exits as
// services.ErrExternalTool with the stderr tail attached.
type FFmpegRunner struct {
	binary string
	logger *slog.Logger
}

// NewFFmpegRunner constructs a runner for the given ffmpeg binary.
func NewFFmpegRunner(binary string, logger *slog.Logger) *FFmpegRunner {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	return &FFmpegRunner{
		binary: binary,
		logger: logging.NewComponentLogger(logger, "ffmpeg"),
	}
}

// Encode runs one ffmpeg invocation for the profile.
func (r *FFmpegRunner) Encode(ctx context.Context, inputPath, outputPath string, profile Profile) error {
	args := profile.Args(inputPath, outputPath)
	r.logger.Debug("invoking encoder",
		logging.String("profile", profile.String()),
		logging.String("args", strings.Join(args, " ")))

	cmd := commandContext(ctx, r.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return services.Wrap(services.ErrExternalTool, "encoding", "run "+r.binary,
			fmt.Sprintf("%s encode failed: %s", profile.Name, stderrTail(stderr.String())), err)
	}
	return nil
}

// stderrTail keeps the last few lines of encoder output, which is where
// ffmpeg reports the actual failure.
func stderrTail(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	const keep = 5
	if len(lines) > keep {
		lines = lines[len(lines)-keep:]
	}
	return strings.TrimSpace(strings.Join(lines, " | "))
}
