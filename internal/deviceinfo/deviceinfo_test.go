package deviceinfo

import (
	"context"
	"errors"
	"testing"

	"github.com/distatus/battery"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/mqtt-stat/internal/domain/device"
)

func newTestProvider(batteries []*battery.Battery, batteryErr error, ssid string, ssidErr error) *Provider {
	return &Provider{
		batteries: func() ([]*battery.Battery, error) {
			return batteries, batteryErr
		},
		networkName: func(context.Context) (string, error) {
			return ssid, ssidErr
		},
	}
}

func testBattery(current, full float64, state battery.AgnosticState) *battery.Battery {
	return &battery.Battery{
		Current: current,
		Full:    full,
		State:   battery.State{Raw: state},
	}
}

// TestSnapshot_Complete checks a laptop on a wireless network.
func TestSnapshot_Complete(t *testing.T) {
	t.Parallel()

	p := newTestProvider(
		[]*battery.Battery{testBattery(43500, 50000, battery.Charging)},
		nil,
		"HomeNet",
		nil,
	)

	s := p.Snapshot(context.Background())
	require.True(t, s.Complete())
	require.InDelta(t, 87.0, *s.BatteryPercent, 1e-9)
	require.True(t, *s.Charging)
	require.Equal(t, "HomeNet", *s.NetworkName)
}

// TestSnapshot_Unavailable checks that failures leave fields unset.
func TestSnapshot_Unavailable(t *testing.T) {
	t.Parallel()

	cases := map[string]*Provider{
		"no battery, not connected": newTestProvider(nil, nil, "", ErrNotConnected),
		"fatal battery error":       newTestProvider(nil, battery.ErrFatal{Err: errors.New("no sysfs")}, "", errors.New("nmcli: not found")),
		"unreadable battery": newTestProvider(
			[]*battery.Battery{testBattery(1, 2, battery.Charging)},
			battery.Errors{battery.ErrPartial{Full: errors.New("missing")}},
			"",
			nil,
		),
		"zero capacity": newTestProvider([]*battery.Battery{testBattery(0, 0, battery.Empty)}, nil, "", nil),
	}

	for name, p := range cases {
		require.Equal(t, device.Snapshot{}, p.Snapshot(context.Background()), name)
	}
}

// TestSnapshot_MultipleBatteries ensures charge is combined and any charging battery counts.
func TestSnapshot_MultipleBatteries(t *testing.T) {
	t.Parallel()

	p := newTestProvider(
		[]*battery.Battery{
			testBattery(20000, 40000, battery.Discharging),
			testBattery(10000, 10000, battery.Full),
			nil,
		},
		battery.Errors{nil, battery.ErrPartial{Voltage: errors.New("missing")}, nil},
		"",
		ErrNotConnected,
	)

	s := p.Snapshot(context.Background())
	require.InDelta(t, 60.0, *s.BatteryPercent, 1e-9)
	require.True(t, *s.Charging)
	require.Nil(t, s.NetworkName)
}

// TestSnapshot_Discharging reports no external power.
func TestSnapshot_Discharging(t *testing.T) {
	t.Parallel()

	p := newTestProvider([]*battery.Battery{testBattery(33333, 100000, battery.Discharging)}, nil, "Office", nil)

	s := p.Snapshot(context.Background())
	require.InDelta(t, 33.3, *s.BatteryPercent, 1e-9)
	require.False(t, *s.Charging)
}

// TestPercent rounds and caps.
func TestPercent(t *testing.T) {
	t.Parallel()

	require.InDelta(t, 50.0, percent(1, 2), 1e-9)
	require.InDelta(t, 66.7, percent(2, 3), 1e-9)
	require.InDelta(t, 100.0, percent(110, 100), 1e-9)
}

// TestParseNmcli covers the terse nmcli listing.
func TestParseNmcli(t *testing.T) {
	t.Parallel()

	out := "no:Neighbour\nyes:Home\\:Net\nno:Other\n"

	ssid, err := parseNmcli(out)
	require.NoError(t, err)
	require.Equal(t, "Home:Net", ssid)

	_, err = parseNmcli("no:Neighbour\nno:Other\n")
	require.ErrorIs(t, err, ErrNotConnected)

	_, err = parseNmcli("")
	require.ErrorIs(t, err, ErrNotConnected)
}

// TestParseSSIDField covers airport and netsh output.
func TestParseSSIDField(t *testing.T) {
	t.Parallel()

	airport := `     agrCtlRSSI: -52
          state: running
          BSSID: 3c:22:fb:aa:bb:cc
           SSID: Cafe Wifi
            MCS: 9
`

	ssid, err := parseSSIDField(airport)
	require.NoError(t, err)
	require.Equal(t, "Cafe Wifi", ssid)

	netsh := "\r\nThere is 1 interface on the system:\r\n\r\n" +
		"    Name                   : Wi-Fi\r\n" +
		"    State                  : connected\r\n" +
		"    SSID                   : Office: 5G\r\n" +
		"    AP BSSID               : 00:11:22:33:44:55\r\n"

	ssid, err = parseSSIDField(netsh)
	require.NoError(t, err)
	require.Equal(t, "Office: 5G", ssid)

	_, err = parseSSIDField("    State                  : disconnected\r\n")
	require.ErrorIs(t, err, ErrNotConnected)
}
