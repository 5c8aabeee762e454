// Package domain contains core concepts of the peer messaging session.
// This file defines discovered Devices and their signal rules.
// No runtime, transport, or UI logic should be added here.
package domain

type DeviceID string

type TransportType string

const (
	TransportBluetooth TransportType = "bluetooth"
	TransportWifi      TransportType = "wifi"
)

// Signal strength bounds. The floor models the noise floor of short-range
// radios: a device we can still see never reports a dead signal.
const (
	SignalFloor = 20
	SignalCeil  = 100
)

// Device is a peer seen by discovery. It may or may not be connected.
type Device struct {
	ID             DeviceID
	Name           string
	Transport      TransportType
	SignalStrength int
	IsConnected    bool
	DistanceMeters *float64
}

// Drift perturbs the signal strength by delta, clamped to [SignalFloor, SignalCeil].
func (d *Device) Drift(delta int) {
	d.SignalStrength = ClampSignal(d.SignalStrength + delta)
}

func ClampSignal(v int) int {
	if v < SignalFloor {
		return SignalFloor
	}
	if v > SignalCeil {
		return SignalCeil
	}
	return v
}
