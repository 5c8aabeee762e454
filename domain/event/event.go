package event

import (
	"peerlink/domain"
	"time"

	"github.com/google/uuid"
)

type DomainEvent interface {
	Name() string
}

// Snapshot events. Each carries the full current collection of its owning
// component, already defensively copied, so subscribers never share state
// with the mutation path.

type DevicesChanged struct {
	Devices []domain.Device
}

func (DevicesChanged) Name() string { return "DevicesChanged" }

type UsersChanged struct {
	Users []domain.ConnectedUser
}

func (UsersChanged) Name() string { return "UsersChanged" }

type RoomsChanged struct {
	Rooms []domain.ChatRoom
}

func (RoomsChanged) Name() string { return "RoomsChanged" }

type MessagesChanged struct {
	Messages []domain.Message
}

func (MessagesChanged) Name() string { return "MessagesChanged" }

// Pipeline events, consumed by storage and search sinks rather than the
// presentation layer.

// MessageAppended carries the resolved room alongside the message, since a
// direct message addresses a peer, not a room.
type MessageAppended struct {
	Message domain.Message
	Room    domain.RoomID
}

func (MessageAppended) Name() string { return "MessageAppended" }

type MessageStatusChanged struct {
	ID     uuid.UUID
	Room   domain.RoomID
	Status domain.DeliveryStatus
	At     time.Time
}

func (MessageStatusChanged) Name() string { return "MessageStatusChanged" }
