package control

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"

	domain "github.com/oshokin/mqtt-stat/internal/domain/alarm"
	"github.com/oshokin/mqtt-stat/internal/domain/device"
)

// fakeService implements Service for unit testing the transport.
type fakeService struct {
	startErr error
	ringing  bool
	stops    int
	actors   []Actor
	status   *Status
}

func (f *fakeService) StartAlarm(ctx context.Context) (bool, error) {
	f.actors = append(f.actors, ActorFromContext(ctx))

	if f.startErr != nil {
		return false, f.startErr
	}

	if f.ringing {
		return false, nil
	}

	f.ringing = true

	return true, nil
}

func (f *fakeService) StopAlarm(ctx context.Context) {
	f.actors = append(f.actors, ActorFromContext(ctx))
	f.ringing = false
	f.stops++
}

func (f *fakeService) Status(context.Context) *Status { return f.status }

// TestServer_StartAlarm maps service results to responses and codes.
func TestServer_StartAlarm(t *testing.T) {
	t.Parallel()

	svc := new(fakeService)
	s := NewServer(svc)

	resp, err := s.StartAlarm(context.Background(), new(emptypb.Empty))
	require.NoError(t, err)
	require.True(t, resp.GetValue())

	resp, err = s.StartAlarm(context.Background(), new(emptypb.Empty))
	require.NoError(t, err)
	require.False(t, resp.GetValue())

	svc.startErr = domain.ErrInvalidParameter
	_, err = s.StartAlarm(context.Background(), new(emptypb.Empty))
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	svc.startErr = context.DeadlineExceeded
	_, err = s.StartAlarm(context.Background(), new(emptypb.Empty))
	require.Equal(t, codes.Internal, status.Code(err))
}

// TestServer_GetStatus checks the struct layout of the status response.
func TestServer_GetStatus(t *testing.T) {
	t.Parallel()

	svc := new(fakeService)
	s := NewServer(svc)

	_, err := s.GetStatus(context.Background(), new(emptypb.Empty))
	require.Equal(t, codes.Unavailable, status.Code(err))

	svc.status = &Status{
		Alarm: &domain.Session{
			State:     domain.StateRinging,
			Volume:    0.25,
			Plays:     4,
			StartedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
		Connection: "reconnecting",
		ReasonCode: 5,
		LastError:  "not authorized",
		Device:     device.Snapshot{BatteryPercent: device.Ptr(42.5)},
	}

	resp, err := s.GetStatus(context.Background(), new(emptypb.Empty))
	require.NoError(t, err)

	got := resp.AsMap()
	require.Equal(t, map[string]any{
		"state":      "ringing",
		"volume":     0.25,
		"plays":      4.0,
		"started_at": "2026-03-01T12:00:00Z",
	}, got["alarm"])
	require.Equal(t, map[string]any{
		"state":       "reconnecting",
		"reason_code": 5.0,
		"last_error":  "not authorized",
	}, got["connection"])
	require.Equal(t, map[string]any{
		"battery_level":    42.5,
		"battery_charging": "unavailable",
		"network_ssid":     "unavailable",
	}, got["device"])
}

// TestControl_OverGRPC exercises the hand-written descriptor and client end-to-end.
func TestControl_OverGRPC(t *testing.T) {
	t.Parallel()

	svc := &fakeService{status: &Status{Connection: "connected"}}

	lis := bufconn.Listen(1 << 16)
	server := grpc.NewServer()
	RegisterControlServer(server, NewServer(svc))

	go func() {
		_ = server.Serve(lis)
	}()

	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient(
		"passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
	})

	client := NewClient(conn)
	ctx := WithActor(context.Background(), Actor{Hostname: "desk", Username: "alice"})

	started, err := client.StartAlarm(ctx)
	require.NoError(t, err)
	require.True(t, started.GetValue())

	require.NoError(t, client.StopAlarm(ctx))
	require.Equal(t, 1, svc.stops)
	require.Equal(t, []Actor{{Hostname: "desk", Username: "alice"}, {Hostname: "desk", Username: "alice"}}, svc.actors)

	st, err := client.GetStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, "connected", st.GetFields()["connection"].GetStructValue().GetFields()["state"].GetStringValue())
	require.Equal(t, "idle", st.GetFields()["alarm"].GetStructValue().GetFields()["state"].GetStringValue())
}

// TestActor_String covers the audit rendering.
func TestActor_String(t *testing.T) {
	t.Parallel()

	require.Equal(t, "unknown", Actor{}.String())
	require.Equal(t, "bob@laptop", Actor{Hostname: "laptop", Username: "bob"}.String())
	require.Equal(t, Actor{}, ActorFromContext(context.Background()))
}
