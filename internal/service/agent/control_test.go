package agent

import (
	"context"
	"errors"
	"testing"
	"testing/synctest"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/mqtt-stat/internal/domain/alarm"
	"github.com/oshokin/mqtt-stat/internal/domain/device"
	"github.com/oshokin/mqtt-stat/internal/mqtt"
	"github.com/oshokin/mqtt-stat/internal/service/alarm"
)

// TestControlService drives the alarm and reads status as the control API does.
func TestControlService(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		player := new(silentPlayer)
		transport := &fakeTransport{failures: 1, failWith: &mqtt.ConnectError{Code: 4, Err: errors.New("bad credentials")}}
		manager := NewConnectionManager(transport, testTopics, testBackoff)

		svc := &controlService{
			controller: alarm.NewController(player),
			manager:    manager,
			devices:    staticDevices{NetworkName: device.Ptr("HomeNet")},
			ramp:       domain.DefaultRamp(),
		}

		stop := runManager(t, manager)
		synctest.Wait()

		st := svc.Status(context.Background())
		require.Equal(t, "disconnected", st.Connection)
		require.Equal(t, byte(4), st.ReasonCode)
		require.Contains(t, st.LastError, "bad credentials")
		require.Equal(t, domain.StateIdle, st.Alarm.State)
		require.Equal(t, "HomeNet", *st.Device.NetworkName)

		started, err := svc.StartAlarm(context.Background())
		require.NoError(t, err)
		require.True(t, started)

		started, err = svc.StartAlarm(context.Background())
		require.NoError(t, err)
		require.False(t, started)

		synctest.Wait()
		require.Equal(t, domain.StateRinging, svc.Status(context.Background()).Alarm.State)

		svc.StopAlarm(context.Background())
		require.NoError(t, svc.controller.Wait(context.Background()))
		require.Equal(t, domain.StateIdle, svc.Status(context.Background()).Alarm.State)

		stop()
	})
}

// TestApplyLogLevel accepts known names and rejects the rest.
func TestApplyLogLevel(t *testing.T) {
	t.Parallel()

	require.NoError(t, applyLogLevel("info", ""))
	require.NoError(t, applyLogLevel("", "debug"))
	require.NoError(t, applyLogLevel("info", ""))
	require.ErrorIs(t, applyLogLevel("info", "loud"), ErrInvalidLogLevel)
}
