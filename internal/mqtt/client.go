package mqtt

import (
	"context"
	"fmt"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/eclipse/paho.mqtt.golang/packets"
	"go.uber.org/zap"

	"github.com/oshokin/mqtt-stat/internal/config"
	"github.com/oshokin/mqtt-stat/internal/logger"
)

// Handler receives inbound messages.
// Within a session handlers run one at a time, in arrival order.
type Handler func(topic string, payload []byte)

// Dialer opens sessions to the configured broker.
type Dialer struct {
	cfg config.MQTTConfig
}

// NewDialer returns a dialer for the broker described by cfg.
func NewDialer(cfg config.MQTTConfig) *Dialer {
	return &Dialer{cfg: cfg}
}

// Session is one live broker connection. It is safe for concurrent use.
type Session struct {
	client pahomqtt.Client
	// lost receives the reason once when the broker drops the connection.
	lost chan error
	log  *zap.SugaredLogger
}

// Connect registers will and opens a session.
// A refusal by the broker is reported as a *ConnectError carrying its code.
func (d *Dialer) Connect(ctx context.Context, will Will) (*Session, error) {
	opts := buildClientOptions(d.cfg)
	configureWill(opts, will)

	s := &Session{
		lost: make(chan error, 1),
		log:  logger.FromContext(ctx),
	}

	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		s.connectionLost(err)
	})

	s.client = pahomqtt.NewClient(opts)

	token := s.client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		// Tear down whatever the attempt ends up with.
		go func() {
			<-token.Done()
			s.client.Disconnect(0)
		}()

		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, ctx.Err())
	}

	if err := token.Error(); err != nil {
		return nil, connectError(token, err)
	}

	return s, nil
}

// connectError extracts the CONNACK code from a failed connect token.
func connectError(token pahomqtt.Token, err error) error {
	ct, ok := token.(*pahomqtt.ConnectToken)
	if !ok {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// Codes from 0xFE up are local network or protocol failures.
	code := ct.ReturnCode()
	if code == packets.Accepted || code >= packets.ErrNetworkError {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	return &ConnectError{Code: code, Err: err}
}

// Publish sends payload with QoS 1. The returned channel yields the broker
// acknowledgment result exactly once.
func (s *Session) Publish(topic string, payload []byte, retained bool) <-chan error {
	result := make(chan error, 1)

	if topic == "" {
		result <- ErrInvalidTopic

		return result
	}

	token := s.client.Publish(topic, qos, retained, payload)

	go func() {
		<-token.Done()

		if err := token.Error(); err != nil {
			result <- fmt.Errorf("%w: %s: %w", ErrPublishFailed, topic, err)

			return
		}

		result <- nil
	}()

	return result
}

// Subscribe registers handler for topic with QoS 1 and waits for the broker to confirm.
func (s *Session) Subscribe(ctx context.Context, topic string, handler Handler) error {
	if topic == "" {
		return ErrInvalidTopic
	}

	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}

	token := s.client.Subscribe(topic, qos, s.wrapHandler(handler))

	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, ctx.Err())
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}

	if st, ok := token.(*pahomqtt.SubscribeToken); ok {
		if code, found := st.Result()[topic]; found && code == subackFailure {
			return fmt.Errorf("%w: broker refused %q", ErrSubscribeFailed, topic)
		}
	}

	return nil
}

// Lost yields the reason the broker connection dropped. Nothing is sent after Disconnect.
func (s *Session) Lost() <-chan error {
	return s.lost
}

// Disconnect closes the session, leaving pending work a short time to finish.
func (s *Session) Disconnect() {
	s.client.Disconnect(defaultDisconnectQuiesce)
}

func (s *Session) connectionLost(err error) {
	select {
	case s.lost <- fmt.Errorf("%w: %w", ErrConnectionLost, err):
	default:
	}
}

// wrapHandler adds panic recovery to handler.
func (s *Session) wrapHandler(handler Handler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				s.log.Errorw("MQTT handler panic recovered", "topic", msg.Topic(), "panic", r)
			}
		}()

		handler(msg.Topic(), msg.Payload())
	}
}
