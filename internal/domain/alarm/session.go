package alarm

import "time"

// State is the lifecycle state of an alarm session.
type State int

const (
	// StateIdle means no alarm task is running.
	StateIdle State = iota
	// StateRinging means the alarm task is playing the ramp.
	StateRinging
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRinging:
		return "ringing"
	default:
		return "unknown"
	}
}

// Session is the observable state of an alarm controller.
type Session struct {
	// State tells whether the alarm is ringing.
	State State
	// Ramp is the ramp of the current (or last) run.
	Ramp Ramp
	// Volume is the volume of the current (or last) play, always within [0, Ramp.Max].
	Volume float64
	// Plays counts how many times the sound has played in the current run.
	Plays int
	// StartedAt is when the current run started; zero while never started.
	StartedAt time.Time
}

// Clone returns a copy of the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}

	cloned := *s

	return &cloned
}
