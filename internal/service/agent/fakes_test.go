package agent

import (
	"context"
	"sync/atomic"

	"github.com/oshokin/mqtt-stat/internal/domain/device"
)

// staticDevices always reports the same snapshot.
type staticDevices device.Snapshot

func (s staticDevices) Snapshot(context.Context) device.Snapshot {
	return device.Snapshot(s)
}

// silentPlayer counts plays and blocks until cancelled.
type silentPlayer struct {
	calls atomic.Int32
}

func (p *silentPlayer) Play(ctx context.Context, _ float64) error {
	p.calls.Add(1)
	<-ctx.Done()

	return ctx.Err()
}
