package alarm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/mqtt-stat/internal/domain/alarm"
)

var errNoDevice = errors.New("no audio device")

// fakePlayer records the volume of every play and blocks for duration.
type fakePlayer struct {
	// duration is how long one play lasts.
	duration time.Duration
	// failAfter makes Play fail once this many plays succeeded; zero disables it.
	failAfter int

	mu        sync.Mutex
	volumes   []float64
	active    int
	maxActive int
}

// Play records volume and waits for the sound duration or cancellation.
func (p *fakePlayer) Play(ctx context.Context, volume float64) error {
	p.mu.Lock()
	if p.failAfter > 0 && len(p.volumes) >= p.failAfter {
		p.mu.Unlock()
		return errNoDevice
	}

	p.volumes = append(p.volumes, volume)
	p.active++
	p.maxActive = max(p.maxActive, p.active)
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.active--
		p.mu.Unlock()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.duration):
		return nil
	}
}

// played returns a copy of the recorded volumes.
func (p *fakePlayer) played() []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]float64(nil), p.volumes...)
}

func testRamp() domain.Ramp {
	return domain.Ramp{
		Interval:  time.Second,
		Increment: 0.3,
		Start:     0.1,
		Max:       0.8,
	}
}

// TestController_RampProperty checks volume[n] = min(volume[n-1] + increment, max).
func TestController_RampProperty(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		player := &fakePlayer{duration: 500 * time.Millisecond}
		c := NewController(player)
		ramp := testRamp()

		started, err := c.Start(context.Background(), ramp)
		require.NoError(t, err)
		require.True(t, started)

		// Plays happen every 1.5s: 0, 1.5, 3, ..., 9.
		time.Sleep(10 * time.Second)
		c.Stop()
		synctest.Wait()

		volumes := player.played()
		require.Len(t, volumes, 7)
		require.InDelta(t, ramp.Start, volumes[0], 1e-9)

		for n := 1; n < len(volumes); n++ {
			require.InDelta(t, min(volumes[n-1]+ramp.Increment, ramp.Max), volumes[n], 1e-9)
			require.GreaterOrEqual(t, volumes[n], volumes[n-1])
			require.LessOrEqual(t, volumes[n], ramp.Max)
		}

		session := c.Session()
		require.Equal(t, domain.StateIdle, session.State)
		require.Equal(t, 7, session.Plays)
		require.InDelta(t, ramp.Max, session.Volume, 1e-9)
	})
}

// TestController_StartIsIdempotent ensures a second start while ringing adds no playback loop.
func TestController_StartIsIdempotent(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		player := &fakePlayer{duration: 500 * time.Millisecond}
		c := NewController(player)

		started, err := c.Start(context.Background(), testRamp())
		require.NoError(t, err)
		require.True(t, started)

		started, err = c.Start(context.Background(), domain.DefaultRamp())
		require.NoError(t, err)
		require.False(t, started)

		time.Sleep(5 * time.Second)
		require.True(t, c.Ringing())
		require.Equal(t, testRamp(), c.Session().Ramp)

		c.Stop()
		synctest.Wait()

		player.mu.Lock()
		require.Equal(t, 1, player.maxActive)
		player.mu.Unlock()
	})
}

// TestController_StopIsPrompt verifies stop interrupts the wait between plays.
func TestController_StopIsPrompt(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		player := &fakePlayer{duration: 500 * time.Millisecond}
		c := NewController(player)

		ramp := testRamp()
		ramp.Interval = time.Hour

		_, err := c.Start(context.Background(), ramp)
		require.NoError(t, err)

		// The first play is over; the task waits for the next one.
		time.Sleep(time.Second)

		stoppedAt := time.Now()
		c.Stop()
		require.NoError(t, c.Wait(context.Background()))

		require.Less(t, time.Since(stoppedAt), time.Millisecond)
		require.False(t, c.Ringing())
		require.Len(t, player.played(), 1)
	})
}

// TestController_StopWhenIdle ensures Stop and Wait are no-ops without a running alarm.
func TestController_StopWhenIdle(t *testing.T) {
	t.Parallel()

	c := NewController(new(fakePlayer))

	c.Stop()
	c.Stop()
	require.NoError(t, c.Wait(context.Background()))
	require.Equal(t, domain.StateIdle, c.Session().State)
}

// TestController_Restart verifies the alarm can ring again after stopping.
func TestController_Restart(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		player := &fakePlayer{duration: 100 * time.Millisecond}
		c := NewController(player)

		for range 3 {
			started, err := c.Start(context.Background(), testRamp())
			require.NoError(t, err)
			require.True(t, started)

			time.Sleep(2 * time.Second)
			c.Stop()
			require.NoError(t, c.Wait(context.Background()))
			require.False(t, c.Ringing())
		}

		// Two plays per run: at 0s and 1.1s.
		require.Len(t, player.played(), 6)
	})
}

// TestController_InvalidRamp ensures invalid parameters fail without touching the session.
func TestController_InvalidRamp(t *testing.T) {
	t.Parallel()

	c := NewController(new(fakePlayer))
	before := c.Session()

	ramp := testRamp()
	ramp.Increment = ramp.Max

	started, err := c.Start(context.Background(), ramp)
	require.ErrorIs(t, err, domain.ErrInvalidParameter)
	require.False(t, started)
	require.Equal(t, before, c.Session())
}

// TestController_PlaybackFailure returns the controller to idle when the player fails.
func TestController_PlaybackFailure(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		player := &fakePlayer{duration: 100 * time.Millisecond, failAfter: 2}
		c := NewController(player)

		_, err := c.Start(context.Background(), testRamp())
		require.NoError(t, err)

		time.Sleep(10 * time.Second)
		synctest.Wait()

		require.False(t, c.Ringing())
		require.Len(t, player.played(), 2)
	})
}

// TestController_Independent ensures stopping one controller leaves another ringing.
func TestController_Independent(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		first := NewController(&fakePlayer{duration: 100 * time.Millisecond})
		second := NewController(&fakePlayer{duration: 100 * time.Millisecond})

		_, err := first.Start(context.Background(), testRamp())
		require.NoError(t, err)
		_, err = second.Start(context.Background(), testRamp())
		require.NoError(t, err)

		first.Stop()
		require.NoError(t, first.Wait(context.Background()))

		require.False(t, first.Ringing())
		require.True(t, second.Ringing())

		second.Stop()
		require.NoError(t, second.Wait(context.Background()))
	})
}
