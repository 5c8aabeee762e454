// Package connection owns the authoritative set of discoverable devices and
// connected users for the current session.
package connection

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"peerlink/contract"
	"peerlink/domain"
	"peerlink/domain/event"
	"peerlink/errors"
	"peerlink/observability"
	"peerlink/runtime"
	"peerlink/runtime/workers"

	"github.com/samber/lo"
)

// Manager coordinates the discovery lifecycle and the per-device connection
// state machine. All mutations to the device and user sets go through its
// mutex; snapshots handed to callers and subscribers are defensive copies.
// Notifications are enqueued inside the locked section, so subscribers
// observe device and user snapshots in mutation order.
type Manager struct {
	mu         sync.Mutex
	log        *slog.Logger
	transport  contract.Transport
	supervisor contract.ISupervisor
	stats      *observability.SessionStats

	driftInterval  time.Duration
	driftAmplitude int

	devices []*domain.Device
	users   []domain.ConnectedUser

	discovering bool
	stopDrift   context.CancelFunc
	rng         *rand.Rand

	deviceSubs *runtime.Subscribers
	userSubs   *runtime.Subscribers
}

func NewManager(log *slog.Logger, transport contract.Transport,
	supervisor contract.ISupervisor, stats *observability.SessionStats,
	driftInterval time.Duration, driftAmplitude int,
	sinkTimeout time.Duration) *Manager {
	return &Manager{
		log:            log,
		transport:      transport,
		supervisor:     supervisor,
		stats:          stats,
		driftInterval:  driftInterval,
		driftAmplitude: driftAmplitude,
		rng:            rand.New(rand.NewSource(time.Now().UnixNano())),
		deviceSubs:     runtime.NewSubscribers(log, sinkTimeout, stats),
		userSubs:       runtime.NewSubscribers(log, sinkTimeout, stats),
	}
}

// StartDiscovery runs one scan cycle and, on the first successful call,
// starts the periodic signal refresh. Calling it again while discovery is
// active just refreshes the device set. A failed scan leaves all state
// untouched.
func (m *Manager) StartDiscovery(ctx context.Context) error {
	found, err := m.transport.Scan(ctx)
	if err != nil {
		m.log.Warn("Discovery scan failed, keeping previous device set", "err", err)
		return fmt.Errorf("%w: %s", errors.ErrTransportFailure, err)
	}

	m.mu.Lock()
	m.applyScan(found)
	if !m.discovering {
		m.discovering = true
		driftCtx, cancel := context.WithCancel(context.Background())
		m.stopDrift = cancel
		m.supervisor.Start(driftCtx, workers.NewDriftWorker(m.log, m.driftInterval, m.driftOnce))
	}
	m.stats.IncrDevicesDiscovered(uint64(len(found)))
	m.deviceSubs.Notify(ctx, event.DevicesChanged{Devices: m.deviceSnapshotLocked()})
	m.mu.Unlock()
	return nil
}

// applyScan merges a scan result into the device set. The scan replaces the
// discoverable set, with two exceptions that preserve connection state across
// rescans: a connected device missing from the scan is kept, and a device
// present in both keeps its connected flag.
func (m *Manager) applyScan(found []domain.Device) {
	next := make([]*domain.Device, 0, len(found))
	for _, f := range found {
		f := f
		if existing := m.findDeviceLocked(f.ID); existing != nil && existing.IsConnected {
			f.IsConnected = true
		}
		next = append(next, &f)
	}
	for _, existing := range m.devices {
		if !existing.IsConnected {
			continue
		}
		inScan := lo.ContainsBy(found, func(f domain.Device) bool { return f.ID == existing.ID })
		if !inScan {
			next = append(next, existing)
		}
	}
	m.devices = next
}

// StopDiscovery tears the session down: it cancels the periodic refresh,
// clears both sets and notifies both subscriber groups. The drift flag is
// flipped under the mutex before returning, so no perturbation can land
// after this call completes.
func (m *Manager) StopDiscovery() {
	m.mu.Lock()
	m.discovering = false
	if m.stopDrift != nil {
		m.stopDrift()
		m.stopDrift = nil
	}
	m.devices = nil
	m.users = nil
	ctx := context.Background()
	m.deviceSubs.Notify(ctx, event.DevicesChanged{})
	m.userSubs.Notify(ctx, event.UsersChanged{})
	m.mu.Unlock()
}

// driftOnce perturbs every known device's signal strength by a small random
// delta, clamped to the domain bounds. Runs on the drift worker's tick.
func (m *Manager) driftOnce() {
	m.mu.Lock()
	if !m.discovering {
		m.mu.Unlock()
		return
	}
	for _, device := range m.devices {
		device.Drift(m.rng.Intn(2*m.driftAmplitude+1) - m.driftAmplitude)
	}
	m.stats.IncrDriftTicks()
	m.deviceSubs.Notify(context.Background(), event.DevicesChanged{Devices: m.deviceSnapshotLocked()})
	m.mu.Unlock()
}

// ConnectToDevice performs the handshake against the peer id. If a rescan
// dropped the device during the handshake window, the remembered device
// record is re-inserted before being marked connected, so the device and
// user sets stay consistent with each other.
func (m *Manager) ConnectToDevice(ctx context.Context, id domain.DeviceID) error {
	m.mu.Lock()
	device := m.findDeviceLocked(id)
	if device == nil {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", errors.ErrDeviceNotFound, id)
	}
	remembered := *device
	m.mu.Unlock()

	if err := m.transport.Connect(ctx, id); err != nil {
		m.log.Warn("Handshake failed", "device", id, "err", err)
		return fmt.Errorf("%w: %s", errors.ErrTransportFailure, err)
	}

	m.mu.Lock()
	device = m.findDeviceLocked(id)
	if device == nil {
		device = &remembered
		m.devices = append(m.devices, device)
	}
	device.IsConnected = true
	m.upsertUserLocked(domain.ConnectedUser{
		ID:        device.ID,
		Name:      device.Name,
		IsOnline:  true,
		Transport: device.Transport,
		LastSeen:  time.Now().UTC(),
	})
	m.stats.IncrConnections()
	m.deviceSubs.Notify(ctx, event.DevicesChanged{Devices: m.deviceSnapshotLocked()})
	m.userSubs.Notify(ctx, event.UsersChanged{Users: m.userSnapshotLocked()})
	m.mu.Unlock()
	return nil
}

// DisconnectFromDevice drops the connection. Unknown ids are a no-op, not an
// error: the peer may already be gone from the neighborhood.
func (m *Manager) DisconnectFromDevice(ctx context.Context, id domain.DeviceID) {
	if err := m.transport.Disconnect(ctx, id); err != nil {
		m.log.Warn("Transport disconnect failed", "device", id, "err", err)
	}

	m.mu.Lock()
	if device := m.findDeviceLocked(id); device != nil {
		device.IsConnected = false
	}
	m.users = lo.Filter(m.users, func(u domain.ConnectedUser, _ int) bool {
		return u.ID != id
	})
	m.deviceSubs.Notify(ctx, event.DevicesChanged{Devices: m.deviceSnapshotLocked()})
	m.userSubs.Notify(ctx, event.UsersChanged{Users: m.userSnapshotLocked()})
	m.mu.Unlock()
}

// AvailableDevices returns a copy of the current device set.
func (m *Manager) AvailableDevices() []domain.Device {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deviceSnapshotLocked()
}

// ConnectedUsers returns a copy of the current connected-user set.
func (m *Manager) ConnectedUsers() []domain.ConnectedUser {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userSnapshotLocked()
}

func (m *Manager) OnDevicesChanged(sink contract.EventSink) contract.Unsubscribe {
	return m.deviceSubs.Subscribe(sink)
}

func (m *Manager) OnUsersChanged(sink contract.EventSink) contract.Unsubscribe {
	return m.userSubs.Subscribe(sink)
}

func (m *Manager) findDeviceLocked(id domain.DeviceID) *domain.Device {
	device, _ := lo.Find(m.devices, func(d *domain.Device) bool { return d.ID == id })
	return device
}

func (m *Manager) upsertUserLocked(user domain.ConnectedUser) {
	for i, existing := range m.users {
		if existing.ID == user.ID {
			m.users[i] = user
			return
		}
	}
	m.users = append(m.users, user)
}

func (m *Manager) deviceSnapshotLocked() []domain.Device {
	return lo.Map(m.devices, func(d *domain.Device, _ int) domain.Device {
		copied := *d
		if d.DistanceMeters != nil {
			copied.DistanceMeters = lo.ToPtr(*d.DistanceMeters)
		}
		return copied
	})
}

func (m *Manager) userSnapshotLocked() []domain.ConnectedUser {
	return append([]domain.ConnectedUser(nil), m.users...)
}
