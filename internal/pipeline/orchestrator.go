// Package pipeline sequences one finalize-and-publish run: metadata, source
// acquisition, lock wait, encodes, replication. Transitions are strictly
// forward; re-running the whole pipeline is the retry mechanism.
package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"recpub/internal/config"
	"recpub/internal/confirm"
	"recpub/internal/encoding"
	"recpub/internal/history"
	"recpub/internal/lockwait"
	"recpub/internal/logging"
	"recpub/internal/metadata"
	"recpub/internal/naming"
	"recpub/internal/notifications"
	"recpub/internal/replication"
	"recpub/internal/services"
	"recpub/internal/source"
	"recpub/internal/stage"
)

// Stage keys used in reports and the run-history store.
const (
	StageStagingLock = "staging_lock"
	StageMetadata    = "metadata"
	StageSource      = "source"
	StageLockWait    = "lock_wait"
	StageAudio       = "encode_audio"
	StageVideo       = "encode_video"
	StageReplicate   = "replicate"
	stagingLockName  = ".recpub.lock"
)

// Report is the aggregated outcome of one run.
type Report struct {
	RunID        string
	State        State
	BaseName     string
	SourcePath   string
	StageResults map[string]stage.Result
	Replication  []replication.Outcome
}

// Orchestrator owns skip/debug policy and sequences the stages. Every
// collaborator is constructed once; RunConfig varies per run.
type Orchestrator struct {
	cfg        *config.Config
	resolver   *metadata.Resolver
	selector   *source.Selector
	waiter     *lockwait.Waiter
	encoder    *encoding.Stage
	replicator *replication.Replicator
	confirmer  confirm.Provider
	store      *history.Store
	notifier   notifications.Service
	logger     *slog.Logger
}

// New wires an orchestrator from configuration. store may be nil when run
// history is unavailable; notifier may be the noop service.
func New(cfg *config.Config, confirmer confirm.Provider, store *history.Store, notifier notifications.Service, logger *slog.Logger) *Orchestrator {
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	return &Orchestrator{
		cfg: cfg,
		resolver: metadata.NewResolver(
			cfg.Paths.TitleFile,
			time.Duration(cfg.Workflow.TitlePollMillis)*time.Millisecond,
			logger,
		),
		selector: source.NewSelector(
			cfg.Paths.SourceDir,
			cfg.Workflow.CandidateLimit,
			cfg.Encoding.FFprobeBinary,
			time.Duration(cfg.Workflow.ProbeTimeoutSecond)*time.Second,
			logger,
		),
		waiter: lockwait.NewWaiter(
			lockwait.FlockProber{},
			time.Duration(cfg.Workflow.LockPollSeconds)*time.Second,
			logger,
		),
		encoder: encoding.NewStage(
			encoding.NewFFmpegRunner(cfg.Encoding.FFmpegBinary, logger),
			cfg.Encoding.RetryAttempts,
			logger,
		),
		replicator: replication.NewReplicator(logger),
		confirmer:  confirmer,
		store:      store,
		notifier:   notifier,
		logger:     logging.NewComponentLogger(logger, "pipeline"),
	}
}

// Run executes one pipeline run. A user decline returns a Cancelled report
// and a nil error; fatal errors return a Failed report alongside the error.
func (o *Orchestrator) Run(ctx context.Context, rc RunConfig) (Report, error) {
	started := time.Now()
	report := Report{
		RunID:        uuid.NewString(),
		State:        StateAwaitingMetadata,
		StageResults: make(map[string]stage.Result),
	}
	ctx = logging.WithRunID(ctx, report.RunID)
	logger := logging.WithContext(ctx, o.logger)
	logger.Info("run started")

	// Only one run may own the staging directory; existence checks would
	// race otherwise.
	stagingLock := flock.New(filepath.Join(o.cfg.Paths.StagingDir, stagingLockName))
	locked, err := stagingLock.TryLock()
	if err != nil {
		return o.fail(ctx, report, StageStagingLock,
			services.Wrap(services.ErrValidation, "pipeline", "acquire staging lock", o.cfg.Paths.StagingDir, err))
	}
	if !locked {
		return o.fail(ctx, report, StageStagingLock,
			services.Wrap(services.ErrValidation, "pipeline", "acquire staging lock",
				"another recpub run holds the staging directory", nil))
	}
	defer func() {
		if unlockErr := stagingLock.Unlock(); unlockErr != nil {
			logger.Warn("failed to release staging lock", logging.Error(unlockErr))
		}
	}()

	o.startHistory(ctx, &report, rc)

	// Metadata.
	md, decision, err := o.resolveMetadata(ctx, rc)
	if err != nil {
		return o.fail(ctx, report, StageMetadata, err)
	}
	if !decision.Accepted {
		return o.cancel(ctx, report, StageMetadata, "metadata declined")
	}
	skipAudio, skipVideo := decision.SkipAudio, decision.SkipVideo
	report.StageResults[StageMetadata] = stage.Completed
	if err := o.resolver.WriteBack(md); err != nil {
		logger.Warn("title source write-back failed", logging.Error(err))
	}

	// Source acquisition.
	report.State = StateAwaitingSource
	recording, accepted, err := o.acquireSource(ctx, rc)
	if err != nil {
		return o.fail(ctx, report, StageSource, err)
	}
	if !accepted {
		return o.cancel(ctx, report, StageSource, "recording selection declined")
	}
	report.SourcePath = recording.Path
	report.StageResults[StageSource] = stage.Completed
	logger.Info("recording acquired", logging.String("path", recording.Path))

	plan := naming.NewPlan(rc.runDate(), md, recording.Extension, naming.Layout{
		StagingDir:   o.cfg.Paths.StagingDir,
		OriginalsDir: o.cfg.Paths.OriginalsDir,
		VideoDir:     o.cfg.Paths.VideoDir,
		AudioDir:     o.cfg.Paths.AudioDir,
		AudioExt:     o.cfg.Encoding.AudioExtension,
		VideoExt:     o.cfg.Encoding.VideoExtension,
	})
	report.BaseName = plan.BaseName

	// Wait for the writer to let go before any encode reads the file.
	report.State = StateAwaitingRecordingFinish
	waitCtx := logging.WithStage(ctx, StageLockWait)
	if err := o.waiter.Wait(waitCtx, recording.Path); err != nil {
		return o.fail(ctx, report, StageLockWait, err)
	}
	report.StageResults[StageLockWait] = stage.Completed

	// Encodes. Audio and video read the same source and write disjoint
	// outputs; reference order is audio first.
	report.State = StateEncoding
	encodeCtx := logging.WithStage(ctx, StageAudio)
	audioResult, err := o.encoder.Produce(encodeCtx, skipAudio, recording.Path, plan.Audio, encoding.AudioProfile(o.cfg.Encoding, md))
	report.StageResults[StageAudio] = audioResult
	if err != nil {
		return o.fail(ctx, report, StageAudio, err)
	}
	encodeCtx = logging.WithStage(ctx, StageVideo)
	videoResult, err := o.encoder.Produce(encodeCtx, skipVideo, recording.Path, plan.Video, encoding.VideoProfile(o.cfg.Encoding, md))
	report.StageResults[StageVideo] = videoResult
	if err != nil {
		return o.fail(ctx, report, StageVideo, err)
	}

	// Replication.
	report.State = StateReplicating
	if rc.Debug {
		logger.Info("debug run, replication bypassed")
		report.StageResults[StageReplicate] = stage.SkippedByFlag
	} else {
		if err := o.confirmer.ConfirmReplication(ctx, plan.BaseName, plannedDestinations(plan, skipAudio, skipVideo)); err != nil {
			return o.fail(ctx, report, StageReplicate, err)
		}
		replicateCtx := logging.WithStage(ctx, StageReplicate)
		outcomes, err := o.replicator.Replicate(replicateCtx, recording.Path, plan, skipAudio, skipVideo)
		report.Replication = outcomes
		if err != nil {
			return o.fail(ctx, report, StageReplicate, err)
		}
		report.StageResults[StageReplicate] = aggregateReplication(outcomes)
	}

	report.State = StateDone
	o.finishHistory(ctx, report, md, "")
	if err := o.notifier.NotifyRunCompleted(ctx, report.BaseName, time.Since(started)); err != nil {
		logger.Warn("completion notification failed", logging.Error(err))
	}
	logger.Info("run complete", logging.String("base_name", report.BaseName))
	return report, nil
}

// resolveMetadata resolves and confirms metadata, returning the metadata
// rebuilt from the confirmed (possibly edited) fields.
func (o *Orchestrator) resolveMetadata(ctx context.Context, rc RunConfig) (metadata.Metadata, confirm.MetadataDecision, error) {
	var (
		md  metadata.Metadata
		err error
	)
	if rc.Interactive {
		md, err = o.resolver.WaitForTitleSource(ctx, rc.Title, rc.Artist)
	} else {
		md, err = o.resolver.Resolve(rc.Title, rc.Artist)
	}
	if err != nil {
		return metadata.Metadata{}, confirm.MetadataDecision{}, err
	}

	decision, err := o.confirmer.ConfirmMetadata(ctx, md, rc.SkipAudio, rc.SkipVideo)
	if err != nil {
		return metadata.Metadata{}, confirm.MetadataDecision{}, err
	}
	if !decision.Accepted {
		return metadata.Metadata{}, decision, nil
	}

	confirmed := metadata.New(decision.Title, decision.Artist)
	if !confirmed.Valid() {
		return metadata.Metadata{}, confirm.MetadataDecision{}, services.Wrap(
			services.ErrMissingMetadata, "metadata", "validate confirmed metadata",
			"title and artist must both be non-empty", nil)
	}
	return confirmed, decision, nil
}

// acquireSource resolves the explicit path or lets the user pick a
// candidate. accepted is false when the user declines.
func (o *Orchestrator) acquireSource(ctx context.Context, rc RunConfig) (source.Recording, bool, error) {
	if rc.Source != "" {
		recording, err := o.selector.FromPath(rc.Source)
		return recording, err == nil, err
	}

	candidates, err := o.selector.Candidates(ctx)
	if err != nil {
		return source.Recording{}, false, err
	}
	choice, err := o.confirmer.SelectRecording(ctx, candidates)
	if err != nil {
		return source.Recording{}, false, err
	}
	if !choice.Accepted {
		return source.Recording{}, false, nil
	}
	recording, err := o.selector.FromPath(choice.Path)
	return recording, err == nil, err
}

func (o *Orchestrator) fail(ctx context.Context, report Report, stageName string, err error) (Report, error) {
	report.StageResults[stageName] = stage.Failed
	report.State = StateFailed
	o.finishHistory(ctx, report, metadata.Metadata{}, err.Error())
	if notifyErr := o.notifier.NotifyRunFailed(ctx, report.BaseName, err); notifyErr != nil {
		logging.WithContext(ctx, o.logger).Warn("failure notification failed", logging.Error(notifyErr))
	}
	logging.WithContext(ctx, o.logger).Error("run failed",
		logging.String("stage", stageName), logging.Error(err))
	return report, err
}

func (o *Orchestrator) cancel(ctx context.Context, report Report, stageName, reason string) (Report, error) {
	report.StageResults[stageName] = stage.Cancelled
	report.State = StateCancelled
	o.finishHistory(ctx, report, metadata.Metadata{}, "")
	if notifyErr := o.notifier.NotifyRunCancelled(ctx, report.BaseName); notifyErr != nil {
		logging.WithContext(ctx, o.logger).Warn("cancellation notification failed", logging.Error(notifyErr))
	}
	logging.WithContext(ctx, o.logger).Info("run cancelled", logging.String("reason", reason))
	return report, nil
}

func (o *Orchestrator) startHistory(ctx context.Context, report *Report, rc RunConfig) {
	if o.store == nil {
		return
	}
	if _, err := o.store.StartRun(ctx, report.RunID, rc.Source, rc.Title, rc.Artist, string(report.State)); err != nil {
		logging.WithContext(ctx, o.logger).Warn("run history insert failed", logging.Error(err))
	}
}

func (o *Orchestrator) finishHistory(ctx context.Context, report Report, md metadata.Metadata, errMessage string) {
	if o.store == nil {
		return
	}
	results := make(map[string]string, len(report.StageResults))
	for name, result := range report.StageResults {
		results[name] = string(result)
	}
	run := &history.Run{
		ID:           report.RunID,
		BaseName:     report.BaseName,
		SourcePath:   report.SourcePath,
		Title:        md.Title,
		Artist:       md.Artist,
		State:        string(report.State),
		ErrorMessage: errMessage,
		StageResults: results,
	}
	if err := o.store.Update(ctx, run); err != nil {
		logging.WithContext(ctx, o.logger).Warn("run history update failed", logging.Error(err))
	}
}

func plannedDestinations(plan naming.Plan, skipAudio, skipVideo bool) []string {
	destinations := append([]string(nil), plan.Original.Destinations...)
	if !skipAudio {
		destinations = append(destinations, plan.Audio.Destinations...)
	}
	if !skipVideo {
		destinations = append(destinations, plan.Video.Destinations...)
	}
	return destinations
}

// aggregateReplication folds per-destination outcomes into one stage result:
// Completed when any copy happened, otherwise everything was already
// present or skipped.
func aggregateReplication(outcomes []replication.Outcome) stage.Result {
	result := stage.SkippedAlreadyPresent
	for _, outcome := range outcomes {
		if outcome.Result == stage.Completed {
			return stage.Completed
		}
		if outcome.Result == stage.Failed {
			return stage.Failed
		}
	}
	if len(outcomes) == 0 {
		return stage.SkippedByFlag
	}
	return result
}
