// Package transport holds adapters behind the contract.Transport interface.
// The real radio stack (Bluetooth, WiFi-Direct) is a platform concern and is
// not implemented in this module; Simulated stands in for it during local
// sessions and tests.
package transport

import (
	"context"
	"log/slog"
	"time"

	"peerlink/contract"
	"peerlink/domain"

	"github.com/samber/lo"
)

var _ contract.Transport = (*Simulated)(nil)

// Simulated answers scans with a fixed set of nearby devices and simulates a
// connection handshake with a bounded delay. ConnectErr, when set, makes
// every handshake fail, which is how tests exercise transport failures.
type Simulated struct {
	log            *slog.Logger
	scanDelay      time.Duration
	handshakeDelay time.Duration
	devices        []domain.Device

	ScanErr    error
	ConnectErr error
}

func NewSimulated(log *slog.Logger, scanDelay, handshakeDelay time.Duration,
	devices []domain.Device) *Simulated {
	if devices == nil {
		devices = FixtureDevices()
	}
	return &Simulated{
		log:            log,
		scanDelay:      scanDelay,
		handshakeDelay: handshakeDelay,
		devices:        devices,
	}
}

// FixtureDevices is the canned neighborhood used by demo sessions.
func FixtureDevices() []domain.Device {
	return []domain.Device{
		{
			ID:             "1",
			Name:           "iPhone 12 Pro",
			Transport:      domain.TransportBluetooth,
			SignalStrength: 85,
			DistanceMeters: lo.ToPtr(2.5),
		},
		{
			ID:             "2",
			Name:           "Samsung Galaxy S21",
			Transport:      domain.TransportWifi,
			SignalStrength: 72,
			DistanceMeters: lo.ToPtr(5.2),
		},
		{
			ID:             "3",
			Name:           "MacBook Pro",
			Transport:      domain.TransportWifi,
			SignalStrength: 90,
			DistanceMeters: lo.ToPtr(1.1),
		},
	}
}

func (s *Simulated) Scan(ctx context.Context) ([]domain.Device, error) {
	if err := s.wait(ctx, s.scanDelay); err != nil {
		return nil, err
	}
	if s.ScanErr != nil {
		return nil, s.ScanErr
	}
	// Callers own the returned slice.
	return lo.Map(s.devices, func(d domain.Device, _ int) domain.Device {
		return d
	}), nil
}

func (s *Simulated) Connect(ctx context.Context, id domain.DeviceID) error {
	s.log.Debug("Simulated handshake", "device", id)
	if err := s.wait(ctx, s.handshakeDelay); err != nil {
		return err
	}
	return s.ConnectErr
}

func (s *Simulated) Disconnect(_ context.Context, id domain.DeviceID) error {
	s.log.Debug("Simulated disconnect", "device", id)
	return nil
}

func (s *Simulated) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
