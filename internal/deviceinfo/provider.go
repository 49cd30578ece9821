package deviceinfo

import (
	"context"
	"errors"
	"time"

	"github.com/distatus/battery"

	"github.com/oshokin/mqtt-stat/internal/domain/device"
	"github.com/oshokin/mqtt-stat/internal/logger"
)

// lookupTimeout bounds a single platform query.
const lookupTimeout = 5 * time.Second

// ErrNotConnected is returned by network lookups when no wireless network is joined.
var ErrNotConnected = errors.New("not connected to a wireless network")

// Provider implements device info lookups for the current platform.
type Provider struct {
	// batteries lists the system batteries.
	batteries func() ([]*battery.Battery, error)
	// networkName returns the SSID of the joined network.
	networkName func(ctx context.Context) (string, error)
}

// New returns a provider backed by the host.
func New() *Provider {
	return &Provider{
		batteries:   battery.GetAll,
		networkName: queryNetworkName,
	}
}

// Snapshot queries the host. Values that cannot be read are left nil.
func (p *Provider) Snapshot(ctx context.Context) device.Snapshot {
	var snapshot device.Snapshot

	if percent, plugged, ok := p.readBattery(ctx); ok {
		snapshot.BatteryPercent = device.Ptr(percent)
		snapshot.Charging = device.Ptr(plugged)
	}

	lookupCtx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	name, err := p.networkName(lookupCtx)

	switch {
	case err == nil && name != "":
		snapshot.NetworkName = device.Ptr(name)
	case err == nil, errors.Is(err, ErrNotConnected):
		logger.DebugKV(ctx, "No wireless network")
	default:
		logger.DebugKV(ctx, "Network name lookup failed", "error", err)
	}

	return snapshot
}
