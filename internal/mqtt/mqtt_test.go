package mqtt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/mqtt-stat/internal/config"
)

func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Host:      "broker.local",
		Port:      8883,
		ClientID:  "mqtt-stat-test",
		Username:  "device",
		Password:  "secret",
		TLS:       true,
		KeepAlive: 30 * time.Second,
	}
}

// TestBuildClientOptions verifies broker settings and the disabled auto-reconnect.
func TestBuildClientOptions(t *testing.T) {
	t.Parallel()

	opts := buildClientOptions(testConfig())

	require.Len(t, opts.Servers, 1)
	require.Equal(t, "ssl://broker.local:8883", opts.Servers[0].String())
	require.Equal(t, "mqtt-stat-test", opts.ClientID)
	require.Equal(t, "device", opts.Username)
	require.Equal(t, "secret", opts.Password)
	require.True(t, opts.CleanSession)
	require.True(t, opts.Order)
	require.False(t, opts.AutoReconnect)
	require.False(t, opts.ConnectRetry)
	require.EqualValues(t, 30, opts.KeepAlive)
	require.NotNil(t, opts.TLSConfig)
	require.False(t, opts.WillEnabled)
}

// TestConfigureWill ensures the will is retained, QoS 1 and carries the payload verbatim.
func TestConfigureWill(t *testing.T) {
	t.Parallel()

	opts := buildClientOptions(testConfig())
	configureWill(opts, Will{Topic: "dev/lwt", Payload: []byte(`{"status":"offline"}`), Retained: true})

	require.True(t, opts.WillEnabled)
	require.Equal(t, "dev/lwt", opts.WillTopic)
	require.JSONEq(t, `{"status":"offline"}`, string(opts.WillPayload))
	require.Equal(t, byte(1), opts.WillQos)
	require.True(t, opts.WillRetained)

	empty := buildClientOptions(testConfig())
	configureWill(empty, Will{})
	require.False(t, empty.WillEnabled)
}

// TestConnectError checks the error chain of broker refusals.
func TestConnectError(t *testing.T) {
	t.Parallel()

	cause := errors.New("not authorized")

	var err error = &ConnectError{Code: 5, Err: cause}

	require.ErrorIs(t, err, ErrConnectionFailed)
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "code 5")

	var connectErr *ConnectError
	require.ErrorAs(t, err, &connectErr)
	require.Equal(t, byte(5), connectErr.Code)
}

// TestDialer_Unreachable ensures a refused TCP connection fails without a code.
func TestDialer_Unreachable(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = 1
	cfg.TLS = false

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	session, err := NewDialer(cfg).Connect(ctx, Will{Topic: "dev/lwt", Payload: []byte("{}")})
	require.ErrorIs(t, err, ErrConnectionFailed)
	require.Nil(t, session)
}

// TestSession_PublishEmptyTopic ensures invalid topics fail before reaching the client.
func TestSession_PublishEmptyTopic(t *testing.T) {
	t.Parallel()

	s := new(Session)

	require.ErrorIs(t, <-s.Publish("", []byte("x"), false), ErrInvalidTopic)
	require.ErrorIs(t, s.Subscribe(context.Background(), "", func(string, []byte) {}), ErrInvalidTopic)
	require.ErrorIs(t, s.Subscribe(context.Background(), "dev/cmd", nil), ErrSubscribeFailed)
}

// TestSession_ConnectionLost ensures only the first loss is reported.
func TestSession_ConnectionLost(t *testing.T) {
	t.Parallel()

	s := &Session{lost: make(chan error, 1)}

	s.connectionLost(errors.New("EOF"))
	s.connectionLost(errors.New("again"))

	err := <-s.Lost()
	require.ErrorIs(t, err, ErrConnectionLost)
	require.Contains(t, err.Error(), "EOF")

	select {
	case extra := <-s.Lost():
		t.Fatalf("unexpected second loss: %v", extra)
	default:
	}
}
