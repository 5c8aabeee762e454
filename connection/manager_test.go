package connection

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"peerlink/domain"
	"peerlink/errors"
	"peerlink/mocks"
	"peerlink/observability"
	"peerlink/runtime/workers"
	"peerlink/transport"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestManager(t *testing.T, tr *transport.Simulated) (*Manager, *observability.SessionStats) {
	t.Helper()
	log := slog.Default()
	if tr == nil {
		tr = transport.NewSimulated(log, 0, 0, nil)
	}
	stats := observability.NewSessionStats()
	sup := workers.NewSupervisor(log, 50*time.Millisecond)
	manager := NewManager(log, tr, sup, stats, 20*time.Millisecond, 5, time.Second)
	t.Cleanup(func() {
		manager.StopDiscovery()
		sup.Wait()
	})
	return manager, stats
}

func TestManager_StartDiscovery_PopulatesDevices(t *testing.T) {
	req := require.New(t)
	manager, stats := newTestManager(t, nil)

	// When a discovery session starts
	err := manager.StartDiscovery(context.Background())
	req.NoError(err)

	// Then the canned neighborhood is visible and nothing is connected yet
	devices := manager.AvailableDevices()
	req.Len(devices, 3)
	for _, device := range devices {
		req.False(device.IsConnected)
	}
	req.Empty(manager.ConnectedUsers())
	req.Equal(uint64(3), stats.Snapshot().DevicesDiscovered)
}

func TestManager_StartDiscovery_ScanFailureKeepsState(t *testing.T) {
	req := require.New(t)
	log := slog.Default()
	tr := transport.NewSimulated(log, 0, 0, nil)
	manager, _ := newTestManager(t, tr)

	req.NoError(manager.StartDiscovery(context.Background()))
	req.Len(manager.AvailableDevices(), 3)

	// When a later scan fails
	tr.ScanErr = context.DeadlineExceeded
	err := manager.StartDiscovery(context.Background())

	// Then the error surfaces and the previous device set survives
	req.ErrorIs(err, errors.ErrTransportFailure)
	req.Len(manager.AvailableDevices(), 3)
}

func TestManager_ConnectToDevice(t *testing.T) {
	req := require.New(t)
	manager, stats := newTestManager(t, nil)
	ctx := context.Background()
	req.NoError(manager.StartDiscovery(ctx))

	// When connecting to a discovered device
	req.NoError(manager.ConnectToDevice(ctx, "1"))

	// Then the device is flagged and a connected user appears
	device, found := lo.Find(manager.AvailableDevices(), func(d domain.Device) bool { return d.ID == "1" })
	req.True(found)
	req.True(device.IsConnected)

	users := manager.ConnectedUsers()
	req.Len(users, 1)
	req.Equal(domain.DeviceID("1"), users[0].ID)
	req.Equal("iPhone 12 Pro", users[0].Name)
	req.True(users[0].IsOnline)
	req.Equal(uint64(1), stats.Snapshot().Connections)

	// Connecting twice keeps a single user entry
	req.NoError(manager.ConnectToDevice(ctx, "1"))
	req.Len(manager.ConnectedUsers(), 1)
}

func TestManager_ConnectToDevice_UnknownID(t *testing.T) {
	req := require.New(t)
	manager, _ := newTestManager(t, nil)
	req.NoError(manager.StartDiscovery(context.Background()))

	err := manager.ConnectToDevice(context.Background(), "nope")
	req.ErrorIs(err, errors.ErrDeviceNotFound)
	req.Empty(manager.ConnectedUsers())
}

func TestManager_ConnectToDevice_HandshakeFailureLeavesStateUntouched(t *testing.T) {
	req := require.New(t)
	log := slog.Default()
	tr := transport.NewSimulated(log, 0, 0, nil)
	manager, _ := newTestManager(t, tr)
	ctx := context.Background()
	req.NoError(manager.StartDiscovery(ctx))

	// When the handshake fails
	tr.ConnectErr = context.DeadlineExceeded
	err := manager.ConnectToDevice(ctx, "1")

	// Then the device stays disconnected and no user is added
	req.ErrorIs(err, errors.ErrTransportFailure)
	device, _ := lo.Find(manager.AvailableDevices(), func(d domain.Device) bool { return d.ID == "1" })
	req.False(device.IsConnected)
	req.Empty(manager.ConnectedUsers())
}

func TestManager_RescanPreservesConnections(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	log := slog.Default()
	tr := mocks.NewMockTransport(ctrl)
	stats := observability.NewSessionStats()
	sup := workers.NewSupervisor(log, 50*time.Millisecond)
	manager := NewManager(log, tr, sup, stats, time.Hour, 5, time.Second)
	t.Cleanup(func() {
		manager.StopDiscovery()
		sup.Wait()
	})

	phone := domain.Device{ID: "1", Name: "Phone", Transport: domain.TransportBluetooth, SignalStrength: 85}
	laptop := domain.Device{ID: "2", Name: "Laptop", Transport: domain.TransportWifi, SignalStrength: 90}

	tr.EXPECT().Scan(gomock.Any()).Return([]domain.Device{phone, laptop}, nil)
	tr.EXPECT().Connect(gomock.Any(), domain.DeviceID("1")).Return(nil)

	ctx := context.Background()
	req.NoError(manager.StartDiscovery(ctx))
	req.NoError(manager.ConnectToDevice(ctx, "1"))

	// When a rescan no longer sees the connected phone and finds a new peer
	watch := domain.Device{ID: "3", Name: "Watch", Transport: domain.TransportBluetooth, SignalStrength: 60}
	tr.EXPECT().Scan(gomock.Any()).Return([]domain.Device{laptop, watch}, nil)
	req.NoError(manager.StartDiscovery(ctx))

	// Then the connected phone is kept, the laptop is refreshed, the watch joins
	devices := manager.AvailableDevices()
	req.Len(devices, 3)
	phoneAfter, found := lo.Find(devices, func(d domain.Device) bool { return d.ID == "1" })
	req.True(found)
	req.True(phoneAfter.IsConnected)
	req.Len(manager.ConnectedUsers(), 1)
}

func TestManager_ConnectSurvivesConcurrentRescan(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	log := slog.Default()
	tr := mocks.NewMockTransport(ctrl)
	stats := observability.NewSessionStats()
	sup := workers.NewSupervisor(log, 50*time.Millisecond)
	manager := NewManager(log, tr, sup, stats, time.Hour, 5, time.Second)
	t.Cleanup(func() {
		manager.StopDiscovery()
		sup.Wait()
	})

	phone := domain.Device{ID: "1", Name: "Phone", Transport: domain.TransportBluetooth, SignalStrength: 85}

	handshakeStarted := make(chan struct{})
	releaseHandshake := make(chan struct{})

	gomock.InOrder(
		tr.EXPECT().Scan(gomock.Any()).Return([]domain.Device{phone}, nil),
		tr.EXPECT().Scan(gomock.Any()).Return([]domain.Device{}, nil),
	)
	tr.EXPECT().
		Connect(gomock.Any(), domain.DeviceID("1")).
		DoAndReturn(func(context.Context, domain.DeviceID) error {
			close(handshakeStarted)
			<-releaseHandshake
			return nil
		})

	ctx := context.Background()
	req.NoError(manager.StartDiscovery(ctx))

	// Given a handshake in flight
	connectDone := make(chan error, 1)
	go func() { connectDone <- manager.ConnectToDevice(ctx, "1") }()
	<-handshakeStarted

	// When a rescan drops the device mid-handshake
	req.NoError(manager.StartDiscovery(ctx))
	req.Empty(manager.AvailableDevices())

	// Then the finished handshake re-inserts the remembered device
	close(releaseHandshake)
	req.NoError(<-connectDone)

	devices := manager.AvailableDevices()
	req.Len(devices, 1)
	req.True(devices[0].IsConnected)
	req.Len(manager.ConnectedUsers(), 1)
}

func TestManager_DriftKeepsSignalsInBounds(t *testing.T) {
	req := require.New(t)
	manager, stats := newTestManager(t, nil)
	req.NoError(manager.StartDiscovery(context.Background()))

	// The periodic refresh ticks every 20ms in this configuration
	req.Eventually(func() bool {
		return stats.Snapshot().DriftTicks >= 3
	}, 2*time.Second, 10*time.Millisecond)

	for _, device := range manager.AvailableDevices() {
		req.GreaterOrEqual(device.SignalStrength, domain.SignalFloor)
		req.LessOrEqual(device.SignalStrength, domain.SignalCeil)
	}
}

func TestManager_StopDiscovery_ClearsSession(t *testing.T) {
	req := require.New(t)
	manager, stats := newTestManager(t, nil)
	ctx := context.Background()
	req.NoError(manager.StartDiscovery(ctx))
	req.NoError(manager.ConnectToDevice(ctx, "1"))

	// When the session stops
	manager.StopDiscovery()

	// Then both sets are empty and the periodic refresh is frozen
	req.Empty(manager.AvailableDevices())
	req.Empty(manager.ConnectedUsers())

	ticksAfterStop := stats.Snapshot().DriftTicks
	time.Sleep(80 * time.Millisecond)
	req.Equal(ticksAfterStop, stats.Snapshot().DriftTicks)
}

func TestManager_DisconnectFromDevice(t *testing.T) {
	req := require.New(t)
	manager, _ := newTestManager(t, nil)
	ctx := context.Background()
	req.NoError(manager.StartDiscovery(ctx))
	req.NoError(manager.ConnectToDevice(ctx, "1"))

	// When the peer disconnects
	manager.DisconnectFromDevice(ctx, "1")

	// Then the device stays discoverable but loses its flag, and the user leaves
	device, found := lo.Find(manager.AvailableDevices(), func(d domain.Device) bool { return d.ID == "1" })
	req.True(found)
	req.False(device.IsConnected)
	req.Empty(manager.ConnectedUsers())

	// Disconnecting an unknown peer is a no-op
	manager.DisconnectFromDevice(ctx, "ghost")
	req.Len(manager.AvailableDevices(), 3)
}

func TestManager_SnapshotsAreDefensiveCopies(t *testing.T) {
	req := require.New(t)
	manager, _ := newTestManager(t, nil)
	req.NoError(manager.StartDiscovery(context.Background()))

	snapshot := manager.AvailableDevices()
	snapshot[0].SignalStrength = 1
	snapshot[0].IsConnected = true
	if snapshot[0].DistanceMeters != nil {
		*snapshot[0].DistanceMeters = 999
	}

	fresh := manager.AvailableDevices()
	req.NotEqual(1, fresh[0].SignalStrength)
	req.False(fresh[0].IsConnected)
	req.NotEqual(999.0, *fresh[0].DistanceMeters)
}
