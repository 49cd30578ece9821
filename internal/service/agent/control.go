package agent

import (
	"context"

	"github.com/oshokin/mqtt-stat/internal/api/grpc/control"
	domain "github.com/oshokin/mqtt-stat/internal/domain/alarm"
	"github.com/oshokin/mqtt-stat/internal/logger"
	"github.com/oshokin/mqtt-stat/internal/service/alarm"
	"github.com/oshokin/mqtt-stat/internal/service/dispatcher"
)

// controlService serves the local control API from the running agent.
// It is unexported to keep the transport decoupled from the implementation.
type controlService struct {
	controller *alarm.Controller
	manager    *ConnectionManager
	devices    dispatcher.DeviceInfoProvider
	ramp       domain.Ramp
}

// StartAlarm starts the alarm with the configured ramp.
func (s *controlService) StartAlarm(ctx context.Context) (bool, error) {
	logger.Info(ctx, "Alarm start requested")

	return s.controller.Start(ctx, s.ramp)
}

// StopAlarm stops the alarm if it is ringing.
func (s *controlService) StopAlarm(ctx context.Context) {
	logger.InfoKV(ctx, "Alarm stop requested", "ringing", s.controller.Ringing())

	s.controller.Stop()
}

// Status collects the alarm, connection and device state.
func (s *controlService) Status(ctx context.Context) *control.Status {
	conn := s.manager.Status()

	st := &control.Status{
		Alarm:      s.controller.Session(),
		Connection: conn.State.String(),
		ReasonCode: conn.ReasonCode,
		Device:     s.devices.Snapshot(ctx),
	}

	if conn.LastError != nil {
		st.LastError = conn.LastError.Error()
	}

	return st
}
