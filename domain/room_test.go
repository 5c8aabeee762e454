package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestChatRoom_EffectiveTime(t *testing.T) {
	req := require.New(t)
	createdAt := time.Now().UTC().Add(-time.Hour)
	room := ChatRoom{CreatedAt: createdAt}

	// Without a last message the room sorts by creation time
	req.Equal(createdAt, room.EffectiveTime())

	// A last message takes over
	at := time.Now().UTC()
	room.LastMessage = &Message{Timestamp: at}
	req.Equal(at, room.EffectiveTime())
}

func TestSortRooms_MostRecentFirst(t *testing.T) {
	req := require.New(t)
	base := time.Now().UTC()

	quiet := ChatRoom{ID: "quiet", CreatedAt: base.Add(-2 * time.Hour)}
	active := ChatRoom{ID: "active", CreatedAt: base.Add(-3 * time.Hour),
		LastMessage: &Message{Timestamp: base}}
	recent := ChatRoom{ID: "recent", CreatedAt: base.Add(-time.Hour)}

	rooms := []ChatRoom{quiet, active, recent}
	SortRooms(rooms)

	req.Equal(RoomID("active"), rooms[0].ID)
	req.Equal(RoomID("recent"), rooms[1].ID)
	req.Equal(RoomID("quiet"), rooms[2].ID)
}

func TestSortRooms_TiesKeepInsertionOrder(t *testing.T) {
	req := require.New(t)
	at := time.Now().UTC()

	first := ChatRoom{ID: "first", CreatedAt: at}
	second := ChatRoom{ID: "second", CreatedAt: at}
	third := ChatRoom{ID: "third", CreatedAt: at}

	rooms := []ChatRoom{first, second, third}
	SortRooms(rooms)

	// Equal effective timestamps: stable sort keeps insertion order
	req.Equal(RoomID("first"), rooms[0].ID)
	req.Equal(RoomID("second"), rooms[1].ID)
	req.Equal(RoomID("third"), rooms[2].ID)
}

func TestChatRoom_MatchesDirectPair(t *testing.T) {
	req := require.New(t)
	direct := ChatRoom{Kind: RoomDirect, Participants: []string{LocalParticipant, "p1"}}
	group := ChatRoom{Kind: RoomGroup, Participants: []string{LocalParticipant, "p1", "p2"}}

	req.True(direct.MatchesDirectPair(LocalParticipant, "p1"))
	req.True(direct.MatchesDirectPair("p1", LocalParticipant))
	req.False(direct.MatchesDirectPair(LocalParticipant, "p2"))

	// Group rooms never match by pair
	req.False(group.MatchesDirectPair(LocalParticipant, "p1"))

	// An empty receiver is not a pair
	req.False(direct.MatchesDirectPair(LocalParticipant, ""))
}
