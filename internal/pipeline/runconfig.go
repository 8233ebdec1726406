package pipeline

import "time"

// RunConfig carries the per-run inputs. It is built once in the CLI layer
// and passed by value; nothing mutates it after construction.
type RunConfig struct {
	// Source is an explicit recording path. When empty the run selects
	// interactively from the source directory.
	Source string
	// Title and Artist override the title file when both are set.
	Title  string
	Artist string

	SkipAudio bool
	SkipVideo bool
	// Debug bypasses replication entirely while encodes still run.
	Debug bool

	// Interactive enables title-file polling and confirmation prompts.
	Interactive bool

	// RunDate pins the date used for the base name and the originals
	// bucket. Zero means the wall clock at run start.
	RunDate time.Time
}

func (rc RunConfig) runDate() time.Time {
	if rc.RunDate.IsZero() {
		return time.Now()
	}
	return rc.RunDate
}
