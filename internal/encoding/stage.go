// Package encoding produces derived artifacts by invoking an external
// encoder, idempotently and with explicit exit-status checking.
package encoding

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"recpub/internal/fileutil"
	"recpub/internal/logging"
	"recpub/internal/naming"
	"recpub/internal/services"
	"recpub/internal/stage"
)

// Stage runs one encode (audio or video) with skip-flag and
// already-present short circuits.
type Stage struct {
	runner  Runner
	retries int
	logger  *slog.Logger
}

// NewStage constructs an encode stage. retries is the number of additional
// attempts after a failed invocation; the default configuration is zero.
func NewStage(runner Runner, retries int, logger *slog.Logger) *Stage {
	if retries < 0 {
		retries = 0
	}
	return &Stage{
		runner:  runner,
		retries: retries,
		logger:  logging.NewComponentLogger(logger, "encoder"),
	}
}

// Produce creates spec.StagingPath from the source recording using the
// given profile. Skip semantics: a set skip flag wins without checking
// existence; an existing output short-circuits without invoking the
// encoder.
func (s *Stage) Produce(ctx context.Context, skip bool, sourcePath string, spec naming.ArtifactSpec, profile Profile) (stage.Result, error) {
	logger := logging.WithContext(ctx, s.logger)

	if skip {
		logger.Info("encode skipped by flag", logging.String("artifact", string(spec.Kind)))
		return stage.SkippedByFlag, nil
	}
	if fileutil.Exists(spec.StagingPath) {
		logger.Info("artifact already present, skipping encode",
			logging.String("artifact", string(spec.Kind)),
			logging.String("path", spec.StagingPath))
		return stage.SkippedAlreadyPresent, nil
	}

	if err := os.MkdirAll(filepath.Dir(spec.StagingPath), 0o755); err != nil {
		return stage.Failed, services.Wrap(services.ErrDirectoryCreate, "encoding", "ensure staging dir",
			filepath.Dir(spec.StagingPath), err)
	}

	attempts := s.retries + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		logger.Info("encoding artifact",
			logging.String("artifact", string(spec.Kind)),
			logging.String("profile", profile.String()),
			logging.Int("attempt", attempt))

		lastErr = s.runner.Encode(ctx, sourcePath, spec.StagingPath, profile)
		if lastErr == nil {
			break
		}
		// A failed attempt may leave a partial output behind; remove it so
		// the retry (or a later re-run) does not mistake it for a finished
		// artifact.
		_ = os.Remove(spec.StagingPath)
		if attempt < attempts {
			logger.Warn("encode attempt failed, retrying",
				logging.Int("attempt", attempt),
				logging.Error(lastErr))
		}
	}
	if lastErr != nil {
		return stage.Failed, lastErr
	}

	if !fileutil.IsRegularFile(spec.StagingPath) {
		return stage.Failed, services.Wrap(services.ErrExternalTool, "encoding", "verify output",
			fmt.Sprintf("encoder exited cleanly but %s was not produced", spec.StagingPath), nil)
	}

	logger.Info("artifact encoded",
		logging.String("artifact", string(spec.Kind)),
		logging.String("path", spec.StagingPath))
	return stage.Completed, nil
}
