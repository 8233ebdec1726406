// Package replication copies run artifacts into their destination archives,
// never overwriting existing replicas.
package replication

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"recpub/internal/fileutil"
	"recpub/internal/logging"
	"recpub/internal/naming"
	"recpub/internal/services"
	"recpub/internal/stage"
)

// Outcome records the result of one (artifact, destination) copy task.
type Outcome struct {
	Kind        naming.ArtifactKind
	Destination string
	Result      stage.Result
}

// Replicator performs idempotent whole-file copies. Every (artifact,
// destination) pair is independent, so the copy tasks run concurrently;
// existence at each destination is checked fresh inside each task, never
// cached.
type Replicator struct {
	logger *slog.Logger
}

// NewReplicator constructs a replicator.
func NewReplicator(logger *slog.Logger) *Replicator {
	return &Replicator{logger: logging.NewComponentLogger(logger, "replicator")}
}

// copyTask is one independent idempotent copy.
type copyTask struct {
	kind   naming.ArtifactKind
	source string
	target string
}

// Replicate copies the original recording into the staging directory and
// the date-bucketed originals root, and each non-skipped derived artifact
// from staging into its destination root. A skip flag bypasses the
// artifact's replication entirely. Existing replicas are never overwritten.
func (r *Replicator) Replicate(ctx context.Context, sourcePath string, plan naming.Plan, skipAudio, skipVideo bool) ([]Outcome, error) {
	var tasks []copyTask

	// The original replicates from the source recording itself: once into
	// the staging directory, once into each destination bucket.
	tasks = append(tasks, copyTask{kind: naming.KindOriginal, source: sourcePath, target: plan.Original.StagingPath})
	for _, dest := range plan.Original.Destinations {
		tasks = append(tasks, copyTask{kind: naming.KindOriginal, source: sourcePath, target: dest})
	}

	outcomes := make([]Outcome, 0, len(tasks)+2)
	if skipAudio {
		r.logger.Info("audio replication skipped by flag")
		outcomes = append(outcomes, Outcome{Kind: naming.KindAudio, Result: stage.SkippedByFlag})
	} else {
		for _, dest := range plan.Audio.Destinations {
			tasks = append(tasks, copyTask{kind: naming.KindAudio, source: plan.Audio.StagingPath, target: dest})
		}
	}
	if skipVideo {
		r.logger.Info("video replication skipped by flag")
		outcomes = append(outcomes, Outcome{Kind: naming.KindVideo, Result: stage.SkippedByFlag})
	} else {
		for _, dest := range plan.Video.Destinations {
			tasks = append(tasks, copyTask{kind: naming.KindVideo, source: plan.Video.StagingPath, target: dest})
		}
	}

	results := make([]Outcome, len(tasks))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, task := range tasks {
		group.Go(func() error {
			outcome, err := r.runTask(groupCtx, task)
			results[i] = outcome
			return err
		})
	}
	if err := group.Wait(); err != nil {
		return append(outcomes, results...), err
	}
	return append(outcomes, results...), nil
}

func (r *Replicator) runTask(ctx context.Context, task copyTask) (Outcome, error) {
	outcome := Outcome{Kind: task.kind, Destination: task.target}
	logger := logging.WithContext(ctx, r.logger)

	if fileutil.Exists(task.target) {
		logger.Info("replica already present, skipping copy",
			logging.String("artifact", string(task.kind)),
			logging.String("destination", task.target))
		outcome.Result = stage.SkippedAlreadyPresent
		return outcome, nil
	}

	if !fileutil.IsRegularFile(task.source) {
		outcome.Result = stage.Failed
		return outcome, services.Wrap(services.ErrCopyFailed, "replicating", "locate artifact",
			fmt.Sprintf("%s artifact missing at %s", task.kind, task.source), nil)
	}

	if dir := filepath.Dir(task.target); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			outcome.Result = stage.Failed
			return outcome, services.Wrap(services.ErrDirectoryCreate, "replicating", "ensure destination dir", dir, err)
		}
	}

	if err := fileutil.CopyFileVerified(task.source, task.target); err != nil {
		outcome.Result = stage.Failed
		return outcome, services.Wrap(services.ErrCopyFailed, "replicating", "copy artifact",
			fmt.Sprintf("%s to %s", task.source, task.target), err)
	}

	logger.Info("artifact replicated",
		logging.String("artifact", string(task.kind)),
		logging.String("destination", task.target))
	outcome.Result = stage.Completed
	return outcome, nil
}
