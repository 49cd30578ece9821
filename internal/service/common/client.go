//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/mqtt-stat/internal/api/grpc/control"
	"github.com/oshokin/mqtt-stat/internal/config"
)

// Client wraps the control API client with timeouts and caller identity.
type Client struct {
	// conn is the underlying gRPC connection to the agent.
	conn *grpc.ClientConn
	// api is the control service client.
	api *control.Client
	// actor is sent with every call.
	actor control.Actor

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithActor sets the identity reported to the agent.
func WithActor(actor control.Actor) Option {
	return func(c *Client) {
		c.actor = actor
	}
}

// errAddressRequired is returned when a required address value is missing.
var errAddressRequired = errors.New("address must be provided")

// Dial creates a client for the agent control API.
// The API listens on loopback, so the transport is not encrypted.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial agent: %w", err)
	}

	client := &Client{
		conn:        conn,
		api:         control.NewClient(conn),
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// StartAlarm starts the alarm and reports whether it was idle.
func (c *Client) StartAlarm(ctx context.Context) (bool, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.StartAlarm(callCtx)
	if err != nil {
		return false, fmt.Errorf("start alarm: %w", err)
	}

	return resp.GetValue(), nil
}

// StopAlarm stops a ringing alarm.
func (c *Client) StopAlarm(ctx context.Context) error {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	if err := c.api.StopAlarm(callCtx); err != nil {
		return fmt.Errorf("stop alarm: %w", err)
	}

	return nil
}

// GetStatus retrieves the agent status.
func (c *Client) GetStatus(ctx context.Context) (*structpb.Struct, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.GetStatus(callCtx)
	if err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}

	return resp, nil
}

// callContext returns a context carrying the actor and the client's call timeout
// if configured, otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = control.WithActor(ctx, c.actor)

	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
