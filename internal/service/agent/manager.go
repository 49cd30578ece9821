package agent

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oshokin/mqtt-stat/internal/config"
	"github.com/oshokin/mqtt-stat/internal/domain/command"
	"github.com/oshokin/mqtt-stat/internal/logger"
	"github.com/oshokin/mqtt-stat/internal/mqtt"
)

// Session is a live broker connection.
type Session interface {
	Publish(topic string, payload []byte, retained bool) <-chan error
	Subscribe(ctx context.Context, topic string, handler mqtt.Handler) error
	// Lost yields once if the broker drops the connection.
	Lost() <-chan error
	Disconnect()
}

// Transport opens sessions. The will must be registered before the connection is attempted.
type Transport interface {
	Connect(ctx context.Context, will mqtt.Will) (Session, error)
}

// Dispatcher handles decoded command envelopes.
type Dispatcher interface {
	Dispatch(ctx context.Context, env *command.Envelope)
}

const (
	// inboxSize bounds messages waiting for the delivery goroutine.
	inboxSize = 64

	// offlineTimeout bounds the wait for the graceful offline acknowledgment.
	offlineTimeout = 5 * time.Second
)

// message is an inbound message waiting for delivery.
type message struct {
	topic   string
	payload []byte
}

// ConnectionManager owns the broker session of the agent.
type ConnectionManager struct {
	transport  Transport
	topics     config.TopicsConfig
	backoff    config.ReconnectConfig
	dispatcher Dispatcher

	state atomic.Int32
	inbox chan message

	// mu guards the fields below.
	mu      sync.Mutex
	session Session
	// lastErr is the most recent connection failure or loss.
	lastErr error
	// reasonCode is the CONNACK code of the most recent refusal.
	reasonCode byte
}

// NewConnectionManager returns a disconnected manager.
// Call SetDispatcher before Run.
func NewConnectionManager(
	transport Transport,
	topics config.TopicsConfig,
	backoff config.ReconnectConfig,
) *ConnectionManager {
	return &ConnectionManager{
		transport: transport,
		topics:    topics,
		backoff:   backoff,
		inbox:     make(chan message, inboxSize),
	}
}

// SetDispatcher sets the command handler. The dispatcher publishes through
// the manager, so the two are linked after construction.
func (m *ConnectionManager) SetDispatcher(d Dispatcher) {
	m.dispatcher = d
}

// State returns the current connection state.
func (m *ConnectionManager) State() State {
	return State(m.state.Load())
}

// Status is a point-in-time view of the connection.
type Status struct {
	State State
	// LastError is the most recent connection failure or loss, nil once connected.
	LastError error
	// ReasonCode is the CONNACK code of the last refusal, zero for other failures.
	ReasonCode byte
}

// Status returns the current connection status.
func (m *ConnectionManager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Status{
		State:      m.State(),
		LastError:  m.lastErr,
		ReasonCode: m.reasonCode,
	}
}

// Run connects and keeps the session alive until ctx is done.
// On shutdown it publishes the offline presence and disconnects.
func (m *ConnectionManager) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, "connection")

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()
		m.deliver(ctx)
	}()

	defer wg.Wait()

	delay := m.backoff.InitialDelay

	for {
		session, err := m.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				m.setState(StateDisconnected)

				return nil
			}

			m.recordFailure(ctx, err, delay)
			m.setState(StateDisconnected)

			if !sleep(ctx, delay) {
				return nil
			}

			delay = m.nextDelay(delay)

			continue
		}

		delay = m.backoff.InitialDelay

		select {
		case <-ctx.Done():
			m.shutdown(ctx, session)

			return nil
		case err := <-session.Lost():
			m.detach(session)
			m.setState(StateReconnecting)
			m.recordFailure(ctx, err, delay)

			if !sleep(ctx, delay) {
				m.setState(StateDisconnected)

				return nil
			}

			delay = m.nextDelay(delay)
		}
	}
}

// Publish sends payload with QoS 1 without retaining it.
// The returned channel yields the delivery result once; failures are also logged.
func (m *ConnectionManager) Publish(ctx context.Context, topic string, payload []byte) <-chan error {
	return m.publish(ctx, topic, payload, false)
}

func (m *ConnectionManager) publish(ctx context.Context, topic string, payload []byte, retained bool) <-chan error {
	result := make(chan error, 1)

	m.mu.Lock()
	session := m.session
	m.mu.Unlock()

	if session == nil {
		logger.WarnKV(ctx, "Publish dropped, not connected", "topic", topic)
		result <- mqtt.ErrNotConnected

		return result
	}

	done := session.Publish(topic, payload, retained)

	go func() {
		err := <-done
		if err != nil {
			logger.ErrorKV(ctx, "Publish failed", "topic", topic, "error", err)
		}

		result <- err
	}()

	return result
}

// connect opens a session, announces presence and subscribes to the listen topic.
func (m *ConnectionManager) connect(ctx context.Context) (Session, error) {
	m.setState(StateConnecting)

	will := mqtt.Will{
		Topic:    m.topics.LastKnownState,
		Payload:  command.OfflinePresence(),
		Retained: true,
	}

	session, err := m.transport.Connect(ctx, will)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.session = session
	m.lastErr, m.reasonCode = nil, 0
	m.mu.Unlock()

	// A refused subscription below drops back to Disconnected through Run.
	m.setState(StateConnected)
	m.publish(ctx, m.topics.Birth, command.OnlinePresence(), true)

	if err := session.Subscribe(ctx, m.topics.Listen, m.enqueue(ctx)); err != nil {
		if ctx.Err() != nil {
			m.shutdown(ctx, session)

			return nil, err
		}

		m.detach(session)
		session.Disconnect()

		return nil, err
	}

	logger.InfoKV(ctx, "Connected to broker", "listen_topic", m.topics.Listen)

	return session, nil
}

// enqueue returns the transport handler feeding the delivery goroutine.
func (m *ConnectionManager) enqueue(ctx context.Context) mqtt.Handler {
	return func(topic string, payload []byte) {
		select {
		case m.inbox <- message{topic: topic, payload: payload}:
		case <-ctx.Done():
		}
	}
}

// deliver decodes and dispatches inbound messages one at a time.
func (m *ConnectionManager) deliver(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-m.inbox:
			m.handle(ctx, msg)
		}
	}
}

func (m *ConnectionManager) handle(ctx context.Context, msg message) {
	env, err := command.Decode(msg.payload)
	if err != nil {
		logger.WarnKV(ctx, "Discarding malformed message", "topic", msg.topic, "error", err)

		return
	}

	if m.dispatcher == nil {
		logger.WarnKV(ctx, "No dispatcher, dropping message", "topic", msg.topic)

		return
	}

	m.dispatcher.Dispatch(ctx, env)
}

// shutdown announces the agent is offline and closes session.
func (m *ConnectionManager) shutdown(ctx context.Context, session Session) {
	// ctx is already done; the announcement must still go out.
	offlineCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), offlineTimeout)
	defer cancel()

	select {
	case err := <-m.publish(offlineCtx, m.topics.LastKnownState, command.OfflinePresence(), true):
		if err == nil {
			logger.Info(ctx, "Offline presence published")
		}
	case <-offlineCtx.Done():
		logger.Warn(ctx, "Timed out publishing offline presence")
	}

	m.detach(session)
	session.Disconnect()
	m.setState(StateDisconnected)

	logger.Info(ctx, "Disconnected from broker")
}

// detach forgets session if it is still current.
func (m *ConnectionManager) detach(session Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == session {
		m.session = nil
	}
}

func (m *ConnectionManager) recordFailure(ctx context.Context, err error, retryIn time.Duration) {
	var (
		connectErr *mqtt.ConnectError
		code       byte
	)

	if errors.As(err, &connectErr) {
		code = connectErr.Code
	}

	m.mu.Lock()
	m.lastErr, m.reasonCode = err, code
	m.mu.Unlock()

	logger.WarnKV(ctx, "Broker connection unavailable",
		"error", err,
		"reason_code", code,
		"retry_in", retryIn.String(),
	)
}

// nextDelay doubles delay up to the configured maximum.
func (m *ConnectionManager) nextDelay(delay time.Duration) time.Duration {
	return min(delay*2, m.backoff.MaxDelay)
}

func (m *ConnectionManager) setState(s State) {
	m.state.Store(int32(s))
}

// sleep waits for d and reports false when ctx ends first.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
