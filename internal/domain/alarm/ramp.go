package alarm

import (
	"errors"
	"fmt"
	"time"
)

// Default ramp used by the "find" command.
const (
	DefaultInterval  = 1500 * time.Millisecond
	DefaultIncrement = 0.05
	DefaultStart     = 0.05
	DefaultMax       = 1.0
)

// ErrInvalidParameter is returned when a ramp cannot be played as configured.
var ErrInvalidParameter = errors.New("invalid alarm parameter")

// Ramp describes a volume ramp: the sound plays at Start, then every
// Interval the volume grows by Increment until it reaches Max.
type Ramp struct {
	// Interval is the pause between two plays of the sound.
	Interval time.Duration
	// Increment is added to the volume after each play.
	Increment float64
	// Start is the volume of the first play.
	Start float64
	// Max caps the volume.
	Max float64
}

// DefaultRamp returns the ramp used when a command does not specify one.
func DefaultRamp() Ramp {
	return Ramp{
		Interval:  DefaultInterval,
		Increment: DefaultIncrement,
		Start:     DefaultStart,
		Max:       DefaultMax,
	}
}

// Validate checks the ramp constraints:
// interval > 0, 0 < max <= 1, 0 < increment < max and 0 <= start <= max.
// Comparisons are written so that NaN never passes.
func (r Ramp) Validate() error {
	if r.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive, got %s", ErrInvalidParameter, r.Interval)
	}

	if !(r.Max > 0 && r.Max <= 1) {
		return fmt.Errorf("%w: max volume must be in (0, 1], got %v", ErrInvalidParameter, r.Max)
	}

	if !(r.Increment > 0) {
		return fmt.Errorf("%w: volume increment must be positive, got %v", ErrInvalidParameter, r.Increment)
	}

	if !(r.Increment < r.Max) {
		return fmt.Errorf(
			"%w: volume increment %v must be less than max volume %v",
			ErrInvalidParameter,
			r.Increment,
			r.Max,
		)
	}

	if !(r.Start >= 0 && r.Start <= r.Max) {
		return fmt.Errorf("%w: start volume must be in [0, %v], got %v", ErrInvalidParameter, r.Max, r.Start)
	}

	return nil
}

// Next returns the volume that follows v on this ramp.
func (r Ramp) Next(v float64) float64 {
	return min(v+r.Increment, r.Max)
}
