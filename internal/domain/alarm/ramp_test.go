package alarm

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestRampValidate covers every parameter constraint.
func TestRampValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, DefaultRamp().Validate())

	valid := Ramp{Interval: time.Second, Increment: 0.1, Start: 0, Max: 1}
	require.NoError(t, valid.Validate())

	cases := map[string]func(r *Ramp){
		"zero interval":        func(r *Ramp) { r.Interval = 0 },
		"negative interval":    func(r *Ramp) { r.Interval = -time.Second },
		"zero max":             func(r *Ramp) { r.Max = 0 },
		"max above one":        func(r *Ramp) { r.Max = 1.01 },
		"zero increment":       func(r *Ramp) { r.Increment = 0 },
		"negative increment":   func(r *Ramp) { r.Increment = -0.1 },
		"increment equals max": func(r *Ramp) { r.Increment, r.Max = 0.5, 0.5 },
		"increment above max":  func(r *Ramp) { r.Increment, r.Max = 0.6, 0.5 },
		"negative start":       func(r *Ramp) { r.Start = -0.01 },
		"start above max":      func(r *Ramp) { r.Start, r.Max = 0.9, 0.8 },
		"NaN increment":        func(r *Ramp) { r.Increment = math.NaN() },
		"NaN max":              func(r *Ramp) { r.Max = math.NaN() },
	}

	for name, mutate := range cases {
		r := valid
		mutate(&r)
		require.ErrorIs(t, r.Validate(), ErrInvalidParameter, name)
	}
}

// TestRampNext checks the capped, non-decreasing progression.
func TestRampNext(t *testing.T) {
	t.Parallel()

	r := Ramp{Interval: time.Second, Increment: 0.3, Start: 0.1, Max: 0.8}

	v := r.Start
	for range 10 {
		next := r.Next(v)
		require.GreaterOrEqual(t, next, v)
		require.LessOrEqual(t, next, r.Max)
		require.InDelta(t, math.Min(v+r.Increment, r.Max), next, 1e-12)
		v = next
	}

	require.InDelta(t, r.Max, v, 1e-12)
}

// TestSessionClone verifies Clone copies values and handles nil.
func TestSessionClone(t *testing.T) {
	t.Parallel()

	require.Nil(t, (*Session)(nil).Clone())

	s := &Session{State: StateRinging, Ramp: DefaultRamp(), Volume: 0.3, Plays: 5}
	c := s.Clone()

	require.Equal(t, s, c)
	require.NotSame(t, s, c)
	require.Equal(t, "ringing", c.State.String())
	require.Equal(t, "idle", StateIdle.String())
}
