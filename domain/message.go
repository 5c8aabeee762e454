package domain

import (
	"time"

	"github.com/google/uuid"
)

type DeliveryStatus int

const (
	StatusSending DeliveryStatus = iota
	StatusSent
	StatusDelivered
	StatusRead
)

func (s DeliveryStatus) String() string {
	switch s {
	case StatusSending:
		return "sending"
	case StatusSent:
		return "sent"
	case StatusDelivered:
		return "delivered"
	case StatusRead:
		return "read"
	default:
		return "unknown"
	}
}

type MessageKind string

const (
	KindText  MessageKind = "text"
	KindImage MessageKind = "image"
	KindFile  MessageKind = "file"
)

// Message is a single chat message. Exactly one of ReceiverID (direct) or
// RoomID (group) is the authoritative target.
type Message struct {
	ID         uuid.UUID
	SenderID   string
	ReceiverID string
	RoomID     RoomID
	Content    string
	Kind       MessageKind
	Language   string
	Timestamp  time.Time
	Status     DeliveryStatus
}

// AdvanceStatus moves the delivery status forward. A transition to an equal
// or earlier stage is refused, which keeps the lifecycle monotonic.
func (m *Message) AdvanceStatus(next DeliveryStatus) bool {
	if next <= m.Status {
		return false
	}
	m.Status = next
	return true
}

// BelongsTo reports whether the message is part of the given room: either it
// targets the room directly, or it is a direct message whose endpoints match
// the room's two participants.
func (m Message) BelongsTo(room ChatRoom) bool {
	if m.RoomID != "" {
		return m.RoomID == room.ID
	}
	return room.MatchesDirectPair(m.SenderID, m.ReceiverID)
}

// Draft is the caller-supplied part of a message. Content and sender are
// required; the target is exactly one of ReceiverID or RoomID. Attachment
// carries raw bytes for image/file messages and stays empty for text.
type Draft struct {
	SenderID   string `validate:"required"`
	ReceiverID string
	RoomID     string
	Content    string `validate:"required"`
	Attachment []byte
}

// HasSingleTarget checks the exactly-one-addressing-mode rule.
func (d Draft) HasSingleTarget() bool {
	return (d.ReceiverID == "") != (d.RoomID == "")
}
