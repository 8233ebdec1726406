package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"recpub/internal/config"
	"recpub/internal/confirm"
	"recpub/internal/history"
	"recpub/internal/logging"
	"recpub/internal/metadata"
	"recpub/internal/pipeline"
	"recpub/internal/services"
	"recpub/internal/source"
	"recpub/internal/stage"
	"recpub/internal/testsupport"
)

var runDate = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

// flockNew grabs the staging lock the way a concurrent run would and
// returns an unlock func.
func flockNew(t *testing.T, cfg *config.Config) func() {
	t.Helper()
	lock := flock.New(filepath.Join(cfg.Paths.StagingDir, ".recpub.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		t.Fatalf("TryLock: %v", err)
	}
	if !locked {
		t.Fatal("staging lock unexpectedly held")
	}
	return func() { _ = lock.Unlock() }
}

// decliningProvider cancels at the chosen confirmation point.
type decliningProvider struct {
	declineMetadata bool
}

func (p decliningProvider) ConfirmMetadata(_ context.Context, md metadata.Metadata, skipAudio, skipVideo bool) (confirm.MetadataDecision, error) {
	if p.declineMetadata {
		return confirm.MetadataDecision{}, nil
	}
	return confirm.MetadataDecision{
		Accepted:  true,
		Title:     md.Title,
		Artist:    md.Artist,
		SkipAudio: skipAudio,
		SkipVideo: skipVideo,
	}, nil
}

func (decliningProvider) SelectRecording(context.Context, []source.Recording) (confirm.SourceDecision, error) {
	return confirm.SourceDecision{}, nil
}

func (decliningProvider) ConfirmReplication(context.Context, string, []string) error {
	return nil
}

// stubEncoder installs a fake ffmpeg that touches its output file and logs
// each invocation, returning a closure that reports the invocation count.
func stubEncoder(t *testing.T, exitCode int) func() int {
	t.Helper()
	countFile := filepath.Join(t.TempDir(), "invocations")
	body := fmt.Sprintf("echo run >> %q\n", countFile)
	if exitCode == 0 {
		body += testsupport.EncoderStubBody
	} else {
		body += fmt.Sprintf("echo boom >&2\nexit %d", exitCode)
	}
	testsupport.StubBinary(t, "ffmpeg", body)
	return func() int {
		data, err := os.ReadFile(countFile)
		if err != nil {
			return 0
		}
		return strings.Count(string(data), "run")
	}
}

func writeTitleFile(t *testing.T, cfg *config.Config, title, artist string) {
	t.Helper()
	if err := os.WriteFile(cfg.Paths.TitleFile, []byte(title+"\n"+artist+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func writeRecording(t *testing.T, cfg *config.Config, name string) string {
	t.Helper()
	path := filepath.Join(cfg.Paths.SourceDir, name)
	testsupport.WriteFile(t, path, 4096)
	return path
}

func newOrchestrator(t *testing.T, cfg *config.Config, provider confirm.Provider) *pipeline.Orchestrator {
	t.Helper()
	return pipeline.New(cfg, provider, nil, nil, logging.NewNop())
}

func artifactPaths(cfg *config.Config, baseName, sourceExt string) (staging, dest map[string]string) {
	bucket := runDate.Format("2006-01-02")
	staging = map[string]string{
		"original": filepath.Join(cfg.Paths.StagingDir, baseName+sourceExt),
		"audio":    filepath.Join(cfg.Paths.StagingDir, baseName+cfg.Encoding.AudioExtension),
		"video":    filepath.Join(cfg.Paths.StagingDir, baseName+cfg.Encoding.VideoExtension),
	}
	dest = map[string]string{
		"original": filepath.Join(cfg.Paths.OriginalsDir, bucket, baseName+sourceExt),
		"audio":    filepath.Join(cfg.Paths.AudioDir, baseName+cfg.Encoding.AudioExtension),
		"video":    filepath.Join(cfg.Paths.VideoDir, baseName+cfg.Encoding.VideoExtension),
	}
	return staging, dest
}

func TestRunCompletesEndToEnd(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	invocations := stubEncoder(t, 0)
	writeTitleFile(t, cfg, "Lecture One", "Speaker A")
	sourcePath := writeRecording(t, cfg, "recording.mkv")

	orch := newOrchestrator(t, cfg, confirm.Auto{})
	report, err := orch.Run(context.Background(), pipeline.RunConfig{
		Source:  sourcePath,
		RunDate: runDate,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.State != pipeline.StateDone {
		t.Fatalf("State = %s, want %s", report.State, pipeline.StateDone)
	}
	if report.BaseName != "20240601 Lecture One" {
		t.Fatalf("BaseName = %q", report.BaseName)
	}
	if invocations() != 2 {
		t.Errorf("encoder invoked %d times, want 2", invocations())
	}

	staging, dest := artifactPaths(cfg, report.BaseName, ".mkv")
	for kind, path := range staging {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("staging %s artifact missing: %v", kind, err)
		}
	}
	for kind, path := range dest {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("%s replica missing: %v", kind, err)
		}
	}

	for _, name := range []string{pipeline.StageMetadata, pipeline.StageSource, pipeline.StageLockWait} {
		if report.StageResults[name] != stage.Completed {
			t.Errorf("%s = %s, want %s", name, report.StageResults[name], stage.Completed)
		}
	}
	if report.StageResults[pipeline.StageAudio] != stage.Completed || report.StageResults[pipeline.StageVideo] != stage.Completed {
		t.Errorf("encode results = %v", report.StageResults)
	}

	// Confirmed metadata is written back to the title file.
	data, err := os.ReadFile(cfg.Paths.TitleFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "Lecture One\n") {
		t.Errorf("title file = %q", data)
	}
}

func TestSecondRunPerformsNoWork(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	invocations := stubEncoder(t, 0)
	writeTitleFile(t, cfg, "Weekly Sync", "Pat")
	sourcePath := writeRecording(t, cfg, "recording.mkv")
	rc := pipeline.RunConfig{Source: sourcePath, RunDate: runDate}

	orch := newOrchestrator(t, cfg, confirm.Auto{})
	if _, err := orch.Run(context.Background(), rc); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	first := invocations()

	report, err := orch.Run(context.Background(), rc)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if report.State != pipeline.StateDone {
		t.Fatalf("State = %s", report.State)
	}
	if invocations() != first {
		t.Errorf("second run invoked the encoder %d more times", invocations()-first)
	}
	if report.StageResults[pipeline.StageAudio] != stage.SkippedAlreadyPresent {
		t.Errorf("audio = %s, want %s", report.StageResults[pipeline.StageAudio], stage.SkippedAlreadyPresent)
	}
	if report.StageResults[pipeline.StageVideo] != stage.SkippedAlreadyPresent {
		t.Errorf("video = %s, want %s", report.StageResults[pipeline.StageVideo], stage.SkippedAlreadyPresent)
	}
	if report.StageResults[pipeline.StageReplicate] != stage.SkippedAlreadyPresent {
		t.Errorf("replicate = %s, want %s", report.StageResults[pipeline.StageReplicate], stage.SkippedAlreadyPresent)
	}
	for _, outcome := range report.Replication {
		if outcome.Result != stage.SkippedAlreadyPresent && outcome.Result != stage.SkippedByFlag {
			t.Errorf("replication outcome %s at %q = %s", outcome.Kind, outcome.Destination, outcome.Result)
		}
	}
}

func TestSkipAudioIsolation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stubEncoder(t, 0)
	writeTitleFile(t, cfg, "Weekly Sync", "Pat")
	sourcePath := writeRecording(t, cfg, "recording.mkv")

	orch := newOrchestrator(t, cfg, confirm.Auto{})
	report, err := orch.Run(context.Background(), pipeline.RunConfig{
		Source:    sourcePath,
		SkipAudio: true,
		RunDate:   runDate,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.StageResults[pipeline.StageAudio] != stage.SkippedByFlag {
		t.Errorf("audio = %s", report.StageResults[pipeline.StageAudio])
	}

	staging, dest := artifactPaths(cfg, report.BaseName, ".mkv")
	for _, path := range []string{staging["audio"], dest["audio"]} {
		if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("audio artifact created despite skip flag: %s", path)
		}
	}
	for _, path := range []string{staging["video"], dest["video"]} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("video artifact missing: %v", err)
		}
	}
}

func TestDebugBypassesReplication(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stubEncoder(t, 0)
	writeTitleFile(t, cfg, "Weekly Sync", "Pat")
	sourcePath := writeRecording(t, cfg, "recording.mkv")

	orch := newOrchestrator(t, cfg, confirm.Auto{})
	report, err := orch.Run(context.Background(), pipeline.RunConfig{
		Source:  sourcePath,
		Debug:   true,
		RunDate: runDate,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.State != pipeline.StateDone {
		t.Fatalf("State = %s", report.State)
	}
	if report.StageResults[pipeline.StageReplicate] != stage.SkippedByFlag {
		t.Errorf("replicate = %s", report.StageResults[pipeline.StageReplicate])
	}

	staging, dest := artifactPaths(cfg, report.BaseName, ".mkv")
	for kind, path := range map[string]string{"audio": staging["audio"], "video": staging["video"]} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("debug run should still encode %s: %v", kind, err)
		}
	}
	for kind, path := range dest {
		if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("debug run replicated %s to %s", kind, path)
		}
	}
	if _, err := os.Stat(staging["original"]); !errors.Is(err, os.ErrNotExist) {
		t.Error("debug run copied the original into staging")
	}
}

func TestMetadataDeclineCancelsCleanly(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	invocations := stubEncoder(t, 0)
	writeTitleFile(t, cfg, "Weekly Sync", "Pat")
	sourcePath := writeRecording(t, cfg, "recording.mkv")

	orch := newOrchestrator(t, cfg, decliningProvider{declineMetadata: true})
	report, err := orch.Run(context.Background(), pipeline.RunConfig{
		Source:  sourcePath,
		RunDate: runDate,
	})
	if err != nil {
		t.Fatalf("cancel must not be an error: %v", err)
	}
	if report.State != pipeline.StateCancelled {
		t.Fatalf("State = %s, want %s", report.State, pipeline.StateCancelled)
	}
	if report.StageResults[pipeline.StageMetadata] != stage.Cancelled {
		t.Errorf("metadata = %s", report.StageResults[pipeline.StageMetadata])
	}
	if invocations() != 0 {
		t.Errorf("cancelled run invoked the encoder %d times", invocations())
	}
}

func TestSelectionDeclineCancels(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stubEncoder(t, 0)
	writeTitleFile(t, cfg, "Weekly Sync", "Pat")
	writeRecording(t, cfg, "recording.mkv")

	// Auto declines candidate selection when no explicit source is given.
	orch := newOrchestrator(t, cfg, confirm.Auto{})
	report, err := orch.Run(context.Background(), pipeline.RunConfig{RunDate: runDate})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.State != pipeline.StateCancelled {
		t.Fatalf("State = %s, want %s", report.State, pipeline.StateCancelled)
	}
	if report.StageResults[pipeline.StageSource] != stage.Cancelled {
		t.Errorf("source = %s", report.StageResults[pipeline.StageSource])
	}
}

func TestMissingMetadataFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stubEncoder(t, 0)
	sourcePath := writeRecording(t, cfg, "recording.mkv")

	orch := newOrchestrator(t, cfg, confirm.Auto{})
	report, err := orch.Run(context.Background(), pipeline.RunConfig{
		Source:  sourcePath,
		RunDate: runDate,
	})
	if !errors.Is(err, services.ErrMissingMetadata) {
		t.Fatalf("err = %v, want ErrMissingMetadata", err)
	}
	if report.State != pipeline.StateFailed {
		t.Fatalf("State = %s, want %s", report.State, pipeline.StateFailed)
	}
}

func TestEncodeFailureSurfaces(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stubEncoder(t, 1)
	writeTitleFile(t, cfg, "Weekly Sync", "Pat")
	sourcePath := writeRecording(t, cfg, "recording.mkv")

	orch := newOrchestrator(t, cfg, confirm.Auto{})
	report, err := orch.Run(context.Background(), pipeline.RunConfig{
		Source:  sourcePath,
		RunDate: runDate,
	})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("err = %v, want ErrExternalTool", err)
	}
	if report.State != pipeline.StateFailed {
		t.Fatalf("State = %s", report.State)
	}
	if report.StageResults[pipeline.StageAudio] != stage.Failed {
		t.Errorf("audio = %s", report.StageResults[pipeline.StageAudio])
	}
}

func TestPartialRerunSkipsOnlyExistingArtifacts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	invocations := stubEncoder(t, 0)
	writeTitleFile(t, cfg, "Weekly Sync", "Pat")
	sourcePath := writeRecording(t, cfg, "recording.mkv")

	// A prior partial run left the audio artifact staged but not the video.
	staging, _ := artifactPaths(cfg, "20240601 Weekly Sync", ".mkv")
	testsupport.WriteFile(t, staging["audio"], 32)

	orch := newOrchestrator(t, cfg, confirm.Auto{})
	report, err := orch.Run(context.Background(), pipeline.RunConfig{
		Source:  sourcePath,
		RunDate: runDate,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.StageResults[pipeline.StageAudio] != stage.SkippedAlreadyPresent {
		t.Errorf("audio = %s", report.StageResults[pipeline.StageAudio])
	}
	if report.StageResults[pipeline.StageVideo] != stage.Completed {
		t.Errorf("video = %s", report.StageResults[pipeline.StageVideo])
	}
	if invocations() != 1 {
		t.Errorf("encoder invoked %d times, want 1", invocations())
	}

	// Both artifacts replicate since neither existed at any destination.
	_, dest := artifactPaths(cfg, report.BaseName, ".mkv")
	for kind, path := range dest {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("%s replica missing: %v", kind, err)
		}
	}
}

func TestNoOverwriteAtDestinations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stubEncoder(t, 0)
	writeTitleFile(t, cfg, "Weekly Sync", "Pat")
	sourcePath := writeRecording(t, cfg, "recording.mkv")

	_, dest := artifactPaths(cfg, "20240601 Weekly Sync", ".mkv")
	if err := os.MkdirAll(filepath.Dir(dest["video"]), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dest["video"], []byte("existing replica"), 0o644); err != nil {
		t.Fatal(err)
	}

	orch := newOrchestrator(t, cfg, confirm.Auto{})
	report, err := orch.Run(context.Background(), pipeline.RunConfig{
		Source:  sourcePath,
		RunDate: runDate,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.State != pipeline.StateDone {
		t.Fatalf("State = %s", report.State)
	}
	data, err := os.ReadFile(dest["video"])
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "existing replica" {
		t.Errorf("existing video replica was overwritten: %q", data)
	}
}

func TestRunHistoryPersisted(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stubEncoder(t, 0)
	writeTitleFile(t, cfg, "Weekly Sync", "Pat")
	sourcePath := writeRecording(t, cfg, "recording.mkv")

	store, err := history.OpenPath(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	orch := pipeline.New(cfg, confirm.Auto{}, store, nil, logging.NewNop())
	report, err := orch.Run(context.Background(), pipeline.RunConfig{
		Source:  sourcePath,
		RunDate: runDate,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	run, err := store.GetByID(context.Background(), report.RunID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if run == nil {
		t.Fatal("run not recorded")
	}
	if run.State != string(pipeline.StateDone) {
		t.Errorf("recorded state = %q", run.State)
	}
	if run.BaseName != "20240601 Weekly Sync" {
		t.Errorf("recorded base name = %q", run.BaseName)
	}
	if run.StageResults[pipeline.StageVideo] != string(stage.Completed) {
		t.Errorf("recorded stage results = %v", run.StageResults)
	}
}

func TestSecondConcurrentRunRefused(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stubEncoder(t, 0)
	writeTitleFile(t, cfg, "Weekly Sync", "Pat")
	sourcePath := writeRecording(t, cfg, "recording.mkv")

	// Hold the staging lock the way a concurrent run would.
	held := flockNew(t, cfg)
	defer held()

	orch := newOrchestrator(t, cfg, confirm.Auto{})
	report, err := orch.Run(context.Background(), pipeline.RunConfig{
		Source:  sourcePath,
		RunDate: runDate,
	})
	if err == nil {
		t.Fatal("expected error while staging lock is held")
	}
	if report.State != pipeline.StateFailed {
		t.Fatalf("State = %s", report.State)
	}
}
