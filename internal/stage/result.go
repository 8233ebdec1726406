// Package stage defines the tagged outcome every pipeline stage reports.
package stage

// Result is the tagged outcome of one stage execution. The orchestrator
// aggregates results but never mutates a prior one.
type Result string

const (
	// Completed means the stage did its work.
	Completed Result = "completed"
	// SkippedAlreadyPresent means the stage's output already existed, so
	// no work was performed.
	SkippedAlreadyPresent Result = "skipped_already_present"
	// SkippedByFlag means a run-level skip flag bypassed the stage without
	// checking output existence.
	SkippedByFlag Result = "skipped_by_flag"
	// Cancelled means the user declined at a confirmation point.
	Cancelled Result = "cancelled"
	// Failed means the stage hit a fatal error.
	Failed Result = "failed"
)

// Skipped reports whether the result is one of the two no-op outcomes.
func (r Result) Skipped() bool {
	return r == SkippedAlreadyPresent || r == SkippedByFlag
}

// Terminal reports whether the result ends the run.
func (r Result) Terminal() bool {
	return r == Cancelled || r == Failed
}
