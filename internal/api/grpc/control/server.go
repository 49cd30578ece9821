package control

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	domain "github.com/oshokin/mqtt-stat/internal/domain/alarm"
	"github.com/oshokin/mqtt-stat/internal/domain/command"
	"github.com/oshokin/mqtt-stat/internal/domain/device"
	"github.com/oshokin/mqtt-stat/internal/logger"
)

// Service abstracts the agent operations the transport layer depends on.
type Service interface {
	StartAlarm(ctx context.Context) (bool, error)
	StopAlarm(ctx context.Context)
	Status(ctx context.Context) *Status
}

// Status is the agent state reported by GetStatus.
type Status struct {
	// Alarm is a copy of the current alarm session.
	Alarm *domain.Session
	// Connection is the broker connection state name.
	Connection string
	// ReasonCode is the CONNACK code of the last broker refusal.
	ReasonCode byte
	// LastError describes the last connection failure, empty when healthy.
	LastError string
	// Device is a fresh device snapshot.
	Device device.Snapshot
}

// Server implements the ControlService gRPC API.
type Server struct {
	// service provides the agent operations.
	service Service
}

var _ ControlServer = (*Server)(nil)

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// StartAlarm starts the alarm with the configured ramp.
func (s *Server) StartAlarm(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.BoolValue, error) {
	ctx = logger.WithKV(ctx, "actor", ActorFromContext(ctx).String())

	started, err := s.service.StartAlarm(ctx)
	switch {
	case errors.Is(err, domain.ErrInvalidParameter):
		return nil, status.Error(codes.InvalidArgument, err.Error())
	case err != nil:
		return nil, status.Error(codes.Internal, "unable to start alarm")
	}

	return wrapperspb.Bool(started), nil
}

// StopAlarm stops the alarm; stopping an idle alarm succeeds.
func (s *Server) StopAlarm(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	ctx = logger.WithKV(ctx, "actor", ActorFromContext(ctx).String())

	s.service.StopAlarm(ctx)

	return new(emptypb.Empty), nil
}

// GetStatus returns the agent status as a JSON-like struct.
func (s *Server) GetStatus(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	st := s.service.Status(ctx)
	if st == nil {
		return nil, status.Error(codes.Unavailable, "status is not available yet")
	}

	result, err := toProtoStatus(st)
	if err != nil {
		logger.ErrorKV(ctx, "Failed to encode status", "error", err)

		return nil, status.Error(codes.Internal, "unable to encode status")
	}

	return result, nil
}

// toProtoStatus converts a Status to a protobuf Struct.
func toProtoStatus(st *Status) (*structpb.Struct, error) {
	alarm := map[string]any{
		"state": domain.StateIdle.String(),
	}

	if session := st.Alarm; session != nil {
		alarm["state"] = session.State.String()
		alarm["volume"] = session.Volume
		alarm["plays"] = session.Plays

		if !session.StartedAt.IsZero() {
			alarm["started_at"] = formatTime(session.StartedAt)
		}
	}

	connection := map[string]any{
		"state":       st.Connection,
		"reason_code": int(st.ReasonCode),
	}

	if st.LastError != "" {
		connection["last_error"] = st.LastError
	}

	deviceInfo, err := toProtoDevice(st.Device)
	if err != nil {
		return nil, err
	}

	result, err := structpb.NewStruct(map[string]any{
		"alarm":      alarm,
		"connection": connection,
	})
	if err != nil {
		return nil, err
	}

	result.Fields["device"] = structpb.NewStructValue(deviceInfo)

	return result, nil
}

// toProtoDevice renders a snapshot exactly like the MQTT status reply, without the status field.
func toProtoDevice(s device.Snapshot) (*structpb.Struct, error) {
	data, err := command.NewStatusReply(s).MarshalJSON()
	if err != nil {
		return nil, err
	}

	result := new(structpb.Struct)
	if err = protojson.Unmarshal(data, result); err != nil {
		return nil, err
	}

	delete(result.Fields, "status")

	return result, nil
}

// formatTime renders t in UTC, as protobuf JSON renders timestamps.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
