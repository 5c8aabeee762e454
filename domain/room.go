package domain

import (
	"sort"
	"time"
)

type RoomID string

type RoomKind string

const (
	RoomDirect RoomKind = "direct"
	RoomGroup  RoomKind = "group"
)

// LocalParticipant denotes the local identity inside a room's participant set.
const LocalParticipant = "user"

// ChatRoom is a conversation, direct (two participants, one being the local
// user) or group. LastMessage is a denormalized cache of the most recent
// message appended to the room.
type ChatRoom struct {
	ID           RoomID
	Name         string
	Kind         RoomKind
	Participants []string
	LastMessage  *Message
	UnreadCount  int
	CreatedAt    time.Time
}

// EffectiveTime is the timestamp rooms are ordered by: the last message's
// timestamp when present, the creation time otherwise.
func (r ChatRoom) EffectiveTime() time.Time {
	if r.LastMessage != nil {
		return r.LastMessage.Timestamp
	}
	return r.CreatedAt
}

func (r ChatRoom) HasParticipant(id string) bool {
	for _, p := range r.Participants {
		if p == id {
			return true
		}
	}
	return false
}

// MatchesDirectPair reports whether a direct room holds exactly this
// sender/receiver pair.
func (r ChatRoom) MatchesDirectPair(senderID, receiverID string) bool {
	if r.Kind != RoomDirect || receiverID == "" {
		return false
	}
	return r.HasParticipant(senderID) && r.HasParticipant(receiverID)
}

// SortRooms orders rooms descending by effective time. The sort is stable so
// two rooms with the same effective time keep their insertion order.
func SortRooms(rooms []ChatRoom) {
	sort.SliceStable(rooms, func(i, j int) bool {
		return rooms[i].EffectiveTime().After(rooms[j].EffectiveTime())
	})
}
