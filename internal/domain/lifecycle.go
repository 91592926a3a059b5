package domain

// Phase is the coordinator's lifecycle state for a single guess attempt.
// Transitions are linear and one-way; Resolved, TimedOut and Failed are
// terminal until the attempt is reset.
type Phase string

const (
	PhaseIdle                 Phase = "idle"
	PhaseSubmitting           Phase = "submitting"
	PhaseAwaitingConfirmation Phase = "awaiting_confirmation"
	PhaseAwaitingResolution   Phase = "awaiting_resolution"
	PhaseResolved             Phase = "resolved"
	PhaseTimedOut             Phase = "timed_out"
	PhaseFailed               Phase = "failed"
)

// Terminal reports whether the phase ends a lifecycle attempt.
func (p Phase) Terminal() bool {
	switch p {
	case PhaseResolved, PhaseTimedOut, PhaseFailed:
		return true
	default:
		return false
	}
}
