// Package naming derives the shared filename stem and artifact paths for
// one recording.
package naming

import (
	"path/filepath"
	"time"

	"recpub/internal/metadata"
)

// ArtifactKind identifies one of the three artifacts a run produces.
type ArtifactKind string

const (
	KindOriginal ArtifactKind = "original"
	KindAudio    ArtifactKind = "audio"
	KindVideo    ArtifactKind = "video"
)

// ArtifactSpec pins down where one artifact is staged and where it is
// replicated. Existence at each path is checked fresh before every write,
// never cached across a run.
type ArtifactSpec struct {
	Kind         ArtifactKind
	StagingPath  string
	Destinations []string
}

// Layout captures the directory roots and derived-artifact extensions used
// to compute a plan.
type Layout struct {
	StagingDir   string
	OriginalsDir string
	VideoDir     string
	AudioDir     string
	AudioExt     string
	VideoExt     string
}

// Plan is the complete naming decision for one run: the shared stem plus
// the three artifact specs. Computed once from BaseName and the layout.
type Plan struct {
	BaseName string
	Original ArtifactSpec
	Audio    ArtifactSpec
	Video    ArtifactSpec
}

// BaseName derives the shared filename stem: the sanitized normalized
// title, prefixed with the run date in compact YYYYMMDD form unless the
// title already starts with a date token. Pure function of (runDate, md).
func BaseName(runDate time.Time, md metadata.Metadata) string {
	safe := md.SafeTitle()
	if metadata.HasLeadingDateToken(md.NormalizedTitle) {
		return safe
	}
	return runDate.Format("20060102") + " " + safe
}

// DateBucket returns the date-bucketed subfolder name used for original
// replicas.
func DateBucket(runDate time.Time) string {
	return runDate.Format("2006-01-02")
}

// NewPlan computes every artifact path for one run. sourceExt is the
// extension of the source recording (including the dot) and names the
// original replicas.
func NewPlan(runDate time.Time, md metadata.Metadata, sourceExt string, layout Layout) Plan {
	base := BaseName(runDate, md)
	return Plan{
		BaseName: base,
		Original: ArtifactSpec{
			Kind:        KindOriginal,
			StagingPath: filepath.Join(layout.StagingDir, base+sourceExt),
			Destinations: []string{
				filepath.Join(layout.OriginalsDir, DateBucket(runDate), base+sourceExt),
			},
		},
		Audio: ArtifactSpec{
			Kind:         KindAudio,
			StagingPath:  filepath.Join(layout.StagingDir, base+layout.AudioExt),
			Destinations: []string{filepath.Join(layout.AudioDir, base+layout.AudioExt)},
		},
		Video: ArtifactSpec{
			Kind:         KindVideo,
			StagingPath:  filepath.Join(layout.StagingDir, base+layout.VideoExt),
			Destinations: []string{filepath.Join(layout.VideoDir, base+layout.VideoExt)},
		},
	}
}
