package pipeline

// State identifies where a run is in its strictly forward progression.
type State string

const (
	StateAwaitingMetadata        State = "awaiting_metadata"
	StateAwaitingSource          State = "awaiting_source"
	StateAwaitingRecordingFinish State = "awaiting_recording_finish"
	StateEncoding                State = "encoding"
	StateReplicating             State = "replicating"
	StateDone                    State = "done"
	// StateCancelled is the clean terminal for a user decline at one of the
	// two awaiting confirmation points.
	StateCancelled State = "cancelled"
	// StateFailed is the terminal for any fatal error.
	StateFailed State = "failed"
)

// Terminal reports whether the state ends a run.
func (s State) Terminal() bool {
	return s == StateDone || s == StateCancelled || s == StateFailed
}
