// Package device describes what the agent knows about the machine it runs on.
package device

// Snapshot is a point-in-time view of the device.
// A nil field means the value could not be determined
// (no battery, no wireless adapter, lookup failure).
type Snapshot struct {
	// BatteryPercent is the charge level in percent.
	BatteryPercent *float64
	// Charging reports whether external power is connected.
	Charging *bool
	// NetworkName is the SSID of the connected wireless network.
	NetworkName *string
}

// Ptr returns a pointer to a copy of v, for filling optional snapshot fields.
func Ptr[T any](v T) *T {
	return &v
}

// Complete reports whether every field of the snapshot is known.
func (s Snapshot) Complete() bool {
	return s.BatteryPercent != nil && s.Charging != nil && s.NetworkName != nil
}
