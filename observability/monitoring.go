package observability

import (
	"sync/atomic"
	"time"
)

// SessionSnapshot aggregates the session counters for logging and the UI.
type SessionSnapshot struct {
	DevicesDiscovered uint64 `json:"devices_discovered"`
	DriftTicks        uint64 `json:"drift_ticks"`
	Connections       uint64 `json:"connections"`
	MessagesSent      uint64 `json:"messages_sent"`
	MessagesDelivered uint64 `json:"messages_delivered"`
	Notifications     uint64 `json:"notifications"`
	SinkTimeouts      uint64 `json:"sink_timeouts"`
	StartedAt         string `json:"started_at"`
}

// SessionStats tracks real-time counters for the current discovery/messaging
// session. Counters are atomic so workers can report without coordination.
type SessionStats struct {
	devicesDiscovered uint64
	driftTicks        uint64
	connections       uint64
	messagesSent      uint64
	messagesDelivered uint64
	notifications     uint64
	sinkTimeouts      uint64
	startedAt         time.Time
}

func NewSessionStats() *SessionStats {
	return &SessionStats{startedAt: time.Now().UTC()}
}

func (s *SessionStats) IncrDevicesDiscovered(n uint64) {
	atomic.AddUint64(&s.devicesDiscovered, n)
}

func (s *SessionStats) IncrDriftTicks() {
	atomic.AddUint64(&s.driftTicks, 1)
}

func (s *SessionStats) IncrConnections() {
	atomic.AddUint64(&s.connections, 1)
}

func (s *SessionStats) IncrMessagesSent() {
	atomic.AddUint64(&s.messagesSent, 1)
}

func (s *SessionStats) IncrMessagesDelivered() {
	atomic.AddUint64(&s.messagesDelivered, 1)
}

func (s *SessionStats) IncrNotifications() {
	atomic.AddUint64(&s.notifications, 1)
}

func (s *SessionStats) IncrSinkTimeouts() {
	atomic.AddUint64(&s.sinkTimeouts, 1)
}

func (s *SessionStats) Snapshot() SessionSnapshot {
	return SessionSnapshot{
		DevicesDiscovered: atomic.LoadUint64(&s.devicesDiscovered),
		DriftTicks:        atomic.LoadUint64(&s.driftTicks),
		Connections:       atomic.LoadUint64(&s.connections),
		MessagesSent:      atomic.LoadUint64(&s.messagesSent),
		MessagesDelivered: atomic.LoadUint64(&s.messagesDelivered),
		Notifications:     atomic.LoadUint64(&s.notifications),
		SinkTimeouts:      atomic.LoadUint64(&s.sinkTimeouts),
		StartedAt:         s.startedAt.Format(time.RFC3339),
	}
}
