package command

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Recognized command names.
const (
	GetStatus = "get_status"
	Find      = "find"
)

// Envelope discriminator keys.
const (
	commandKey = "command"
	statusKey  = "status"
)

// ErrMalformedEnvelope is returned when a payload is not a command envelope.
var ErrMalformedEnvelope = errors.New("malformed envelope")

// Envelope is a decoded inbound message.
type Envelope struct {
	// Command is the requested command name, empty when the message only carries a status.
	Command string
	// Status is the optional status discriminator.
	Status string
	// Payload holds every other top-level field, untouched.
	Payload map[string]any
}

// Decode parses data as a JSON object carrying exactly one of a "command" or "status" string.
func Decode(data []byte) (*Envelope, error) {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedEnvelope, err)
	}

	// "null" decodes into a nil map without error.
	if fields == nil {
		return nil, fmt.Errorf("%w: not a JSON object", ErrMalformedEnvelope)
	}

	name, err := popString(fields, commandKey)
	if err != nil {
		return nil, err
	}

	status, err := popString(fields, statusKey)
	if err != nil {
		return nil, err
	}

	if name == "" && status == "" {
		return nil, fmt.Errorf("%w: neither %q nor %q is set", ErrMalformedEnvelope, commandKey, statusKey)
	}

	if name != "" && status != "" {
		return nil, fmt.Errorf("%w: both %q and %q are set", ErrMalformedEnvelope, commandKey, statusKey)
	}

	return &Envelope{
		Command: name,
		Status:  status,
		Payload: fields,
	}, nil
}

// popString removes key from fields and returns its string value.
func popString(fields map[string]any, key string) (string, error) {
	raw, ok := fields[key]
	if !ok {
		return "", nil
	}

	delete(fields, key)

	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q must be a string, got %T", ErrMalformedEnvelope, key, raw)
	}

	return value, nil
}
