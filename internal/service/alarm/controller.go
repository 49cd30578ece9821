package alarm

import (
	"context"
	"sync"
	"time"

	domain "github.com/oshokin/mqtt-stat/internal/domain/alarm"
	"github.com/oshokin/mqtt-stat/internal/logger"
)

// Player plays the alarm sound once.
type Player interface {
	// Play blocks until the sound has played at volume (0..1) or ctx is done.
	Play(ctx context.Context, volume float64) error
}

// Controller runs at most one volume ramp at a time in its own goroutine.
// All methods are safe for concurrent use.
type Controller struct {
	// player renders the sound.
	player Player

	// mu guards every field below.
	mu sync.Mutex
	// session is the observable state of the current or last run.
	session *domain.Session
	// cancel stops the running task; nil while idle.
	cancel context.CancelFunc
	// done is closed when the running task has returned; nil while idle.
	done chan struct{}
}

// NewController returns an idle controller playing through player.
func NewController(player Player) *Controller {
	return &Controller{
		player:  player,
		session: &domain.Session{State: domain.StateIdle},
	}
}

// Start validates ramp and starts ringing in the background.
// It returns false without error when an alarm is already ringing.
// The task outlives ctx; only Stop ends it. Log fields of ctx are kept.
func (c *Controller) Start(ctx context.Context, ramp domain.Ramp) (bool, error) {
	if err := ramp.Validate(); err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session.State == domain.StateRinging {
		logger.DebugKV(ctx, "Alarm already ringing, start ignored", "plays", c.session.Plays)

		return false, nil
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	c.cancel = cancel
	c.done = done
	c.session = &domain.Session{
		State:     domain.StateRinging,
		Ramp:      ramp,
		Volume:    ramp.Start,
		StartedAt: time.Now(),
	}

	logger.InfoKV(
		ctx,
		"Alarm started",
		"interval", ramp.Interval.String(),
		"increment", ramp.Increment,
		"start", ramp.Start,
		"max", ramp.Max,
	)

	go c.run(runCtx, ramp, done)

	return true, nil
}

// Stop asks the running alarm to stop. It is a no-op while idle.
// The session turns idle once the task notices, at the latest after the current play.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
}

// Wait blocks until the controller is idle or ctx is done.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	if done == nil {
		return nil
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Session returns a copy of the current session.
func (c *Controller) Session() *domain.Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.session.Clone()
}

// Ringing reports whether an alarm is running.
func (c *Controller) Ringing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.session.State == domain.StateRinging
}

// run plays the ramp until ctx is cancelled or the player fails.
func (c *Controller) run(ctx context.Context, ramp domain.Ramp, done chan struct{}) {
	defer c.finish(ctx, done)

	volume := ramp.Start

	for ctx.Err() == nil {
		c.recordPlay(volume)

		if err := c.player.Play(ctx, volume); err != nil {
			if ctx.Err() == nil {
				logger.ErrorKV(ctx, "Alarm playback failed", "volume", volume, "error", err)
			}

			return
		}

		if !sleep(ctx, ramp.Interval) {
			return
		}

		volume = ramp.Next(volume)
	}
}

// recordPlay publishes the volume about to be played.
func (c *Controller) recordPlay(volume float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.session.Volume = volume
	c.session.Plays++
}

// finish returns the controller to idle if done still belongs to the current run.
func (c *Controller) finish(ctx context.Context, done chan struct{}) {
	c.mu.Lock()

	if c.done == done {
		c.session.State = domain.StateIdle
		c.cancel()
		c.cancel = nil
		c.done = nil
	}

	plays := c.session.Plays
	c.mu.Unlock()

	close(done)

	logger.InfoKV(ctx, "Alarm stopped", "plays", plays)
}

// sleep waits for d and reports false when ctx ends first.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
