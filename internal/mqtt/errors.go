package mqtt

import (
	"errors"
	"fmt"
)

// Use errors.Is to check for these errors in calling code.
var (
	// ErrNotConnected is returned when publishing without a live session.
	ErrNotConnected = errors.New("mqtt: not connected")

	// ErrConnectionFailed is returned when a connection attempt fails.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrPublishFailed is returned when a publish is not acknowledged.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrSubscribeFailed is returned when the broker rejects a subscription.
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")

	// ErrInvalidTopic is returned for empty topics.
	ErrInvalidTopic = errors.New("mqtt: topic cannot be empty")

	// ErrConnectionLost is reported by Session.Lost when the broker drops the session.
	ErrConnectionLost = errors.New("mqtt: connection lost")
)

// ConnectError is returned when the broker refuses a connection with a CONNACK code.
type ConnectError struct {
	// Code is the CONNACK return code (1..5 for MQTT 3.1.1).
	Code byte
	// Err is the transport error describing the code.
	Err error
}

// Error implements error.
func (e *ConnectError) Error() string {
	return fmt.Sprintf("mqtt: connection refused (code %d): %v", e.Code, e.Err)
}

// Unwrap lets errors.Is match ErrConnectionFailed and the transport error.
func (e *ConnectError) Unwrap() []error {
	return []error{ErrConnectionFailed, e.Err}
}
