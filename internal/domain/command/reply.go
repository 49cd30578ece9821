package command

import (
	"encoding/json"

	"github.com/oshokin/mqtt-stat/internal/domain/device"
)

// Status values used in outbound messages.
const (
	StatusResponded = "responded"
	StatusOnline    = "online"
	StatusOffline   = "offline"
)

// Unavailable replaces reply fields the device could not report.
const Unavailable = "unavailable"

// StatusReply answers a get_status command.
type StatusReply struct {
	Status          string
	NetworkName     *string
	BatteryLevel    *float64
	BatteryCharging *bool
}

// NewStatusReply builds a reply from a fresh device snapshot.
func NewStatusReply(s device.Snapshot) StatusReply {
	return StatusReply{
		Status:          StatusResponded,
		NetworkName:     s.NetworkName,
		BatteryLevel:    s.BatteryPercent,
		BatteryCharging: s.Charging,
	}
}

// statusReplyJSON is the wire shape of StatusReply.
type statusReplyJSON struct {
	Status          string `json:"status"`
	NetworkSSID     any    `json:"network_ssid"`
	BatteryLevel    any    `json:"battery_level"`
	BatteryCharging any    `json:"battery_charging"`
}

// MarshalJSON renders missing values as "unavailable".
func (r StatusReply) MarshalJSON() ([]byte, error) {
	return json.Marshal(statusReplyJSON{
		Status:          r.Status,
		NetworkSSID:     orUnavailable(r.NetworkName),
		BatteryLevel:    orUnavailable(r.BatteryLevel),
		BatteryCharging: orUnavailable(r.BatteryCharging),
	})
}

func orUnavailable[T any](v *T) any {
	if v == nil {
		return Unavailable
	}

	return *v
}

// Presence is the birth and last-known-state announcement.
type Presence struct {
	Status string `json:"status"`
}

// OnlinePresence returns the encoded birth message.
func OnlinePresence() []byte {
	return mustMarshal(Presence{Status: StatusOnline})
}

// OfflinePresence returns the encoded last-known-state message.
func OfflinePresence() []byte {
	return mustMarshal(Presence{Status: StatusOffline})
}

// mustMarshal encodes values whose encoding cannot fail.
func mustMarshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}

	return data
}
