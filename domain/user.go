package domain

import "time"

// ConnectedUser is the logical peer behind a Device once a connection succeeds.
// It exists exactly as long as the corresponding Device has IsConnected set.
type ConnectedUser struct {
	ID        DeviceID
	Name      string
	IsOnline  bool
	Transport TransportType
	LastSeen  time.Time
}
