// Package confirm defines the user-confirmation capability the pipeline
// depends on: accept/edit metadata, choose a source recording, approve
// replication. Implementations decide how (or whether) the user is asked.
package confirm

import (
	"context"
	"os"

	"github.com/mattn/go-isatty"

	"recpub/internal/metadata"
	"recpub/internal/source"
)

// MetadataDecision is the outcome of presenting resolved metadata. When
// Accepted is false the run is cancelled cleanly.
type MetadataDecision struct {
	Accepted  bool
	Title     string
	Artist    string
	SkipAudio bool
	SkipVideo bool
}

// SourceDecision is the outcome of presenting candidate recordings.
type SourceDecision struct {
	Accepted bool
	Path     string
}

// Provider is the confirmation contract the orchestrator sees.
// ConfirmReplication is an acknowledgement pause before the bulk copy, not a
// cancellation point; it affects timing only.
type Provider interface {
	ConfirmMetadata(ctx context.Context, md metadata.Metadata, skipAudio, skipVideo bool) (MetadataDecision, error)
	SelectRecording(ctx context.Context, candidates []source.Recording) (SourceDecision, error)
	ConfirmReplication(ctx context.Context, baseName string, destinations []string) error
}

// IsInteractive reports whether f is attached to a terminal.
func IsInteractive(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Auto is the non-interactive provider: resolved metadata is accepted as-is
// and replication proceeds, but recording selection is declined because
// picking a candidate without a human is unsafe while a recording may still
// be in progress. Explicit --source is the non-interactive path.
type Auto struct{}

func (Auto) ConfirmMetadata(_ context.Context, md metadata.Metadata, skipAudio, skipVideo bool) (MetadataDecision, error) {
	return MetadataDecision{
		Accepted:  true,
		Title:     md.Title,
		Artist:    md.Artist,
		SkipAudio: skipAudio,
		SkipVideo: skipVideo,
	}, nil
}

func (Auto) SelectRecording(context.Context, []source.Recording) (SourceDecision, error) {
	return SourceDecision{}, nil
}

func (Auto) ConfirmReplication(context.Context, string, []string) error {
	return nil
}
