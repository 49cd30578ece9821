package deviceinfo

import (
	"context"
	"errors"
	"math"

	"github.com/distatus/battery"

	"github.com/oshokin/mqtt-stat/internal/logger"
)

// readBattery returns the combined charge of all readable batteries
// and whether external power is connected.
func (p *Provider) readBattery(ctx context.Context) (float64, bool, bool) {
	batteries, err := p.batteries()

	var perBattery battery.Errors
	if err != nil && !errors.As(err, &perBattery) {
		logger.DebugKV(ctx, "Battery lookup failed", "error", err)

		return 0, false, false
	}

	var (
		current, full float64
		plugged       bool
		found         bool
	)

	for i, b := range batteries {
		if b == nil || (i < len(perBattery) && !usable(perBattery[i])) {
			continue
		}

		if b.Full <= 0 {
			continue
		}

		found = true
		current += b.Current
		full += b.Full

		switch b.State.Raw {
		case battery.Charging, battery.Full, battery.Idle:
			plugged = true
		default:
		}
	}

	if !found {
		return 0, false, false
	}

	return percent(current, full), plugged, true
}

// usable reports whether a battery read with err still has charge and state.
func usable(err error) bool {
	if err == nil {
		return true
	}

	var partial battery.ErrPartial
	if !errors.As(err, &partial) {
		return false
	}

	return partial.Current == nil && partial.Full == nil && partial.State == nil
}

// percent returns current/full as a percentage rounded to one decimal, capped at 100.
func percent(current, full float64) float64 {
	return math.Min(math.Round(current/full*1000)/10, 100)
}
