// Package messaging owns chat rooms and messages: room resolution, the
// delivery-status pipeline and change notification.
package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"peerlink/contract"
	"peerlink/domain"
	"peerlink/domain/event"
	"peerlink/errors"
	"peerlink/moderation"
	"peerlink/observability"
	"peerlink/repositories"
	"peerlink/runtime"
	"peerlink/runtime/workers"

	"github.com/abadojack/whatlanggo"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Core serializes all room and message mutations behind one mutex. Delivery
// transitions re-enter through applyStatus from the delivery worker; they are
// scripted (sending -> sent -> delivered) and never regress. Notifications
// are enqueued inside the serialized section, so subscribers observe
// snapshots in mutation order.
type Core struct {
	mu         sync.Mutex
	log        *slog.Logger
	validate   *validator.Validate
	moderator  *moderation.Moderator
	supervisor contract.ISupervisor
	stats      *observability.SessionStats

	history repositories.IHistoryRepository
	search  repositories.ISearchRepository

	sentAfter      time.Duration
	deliveredAfter time.Duration

	rooms    []*domain.ChatRoom
	messages []*domain.Message

	delivery *workers.DeliveryWorker
	msgSubs  *runtime.Subscribers
	roomSubs *runtime.Subscribers
	pipeline *runtime.Subscribers
}

func NewCore(log *slog.Logger, supervisor contract.ISupervisor,
	stats *observability.SessionStats, moderator *moderation.Moderator,
	history repositories.IHistoryRepository, search repositories.ISearchRepository,
	sentAfter, deliveredAfter, sinkTimeout time.Duration, bufferSize int) *Core {
	c := &Core{
		log:            log,
		validate:       validator.New(),
		moderator:      moderator,
		supervisor:     supervisor,
		stats:          stats,
		history:        history,
		search:         search,
		sentAfter:      sentAfter,
		deliveredAfter: deliveredAfter,
		msgSubs:        runtime.NewSubscribers(log, sinkTimeout, stats),
		roomSubs:       runtime.NewSubscribers(log, sinkTimeout, stats),
		pipeline:       runtime.NewSubscribers(log, sinkTimeout, stats),
	}
	c.delivery = workers.NewDeliveryWorker(log, bufferSize, c.applyStatus)
	return c
}

// Start places the delivery worker under supervision. Teardown happens
// through the supervisor's context: cancelling it stops the worker and
// clears every pending delivery timer.
func (c *Core) Start(ctx context.Context) {
	c.supervisor.Start(ctx, c.delivery)
}

// RegisterSinks attaches pipeline consumers (history store, search index).
func (c *Core) RegisterSinks(sinks ...contract.EventSink) {
	for _, s := range sinks {
		c.pipeline.Subscribe(s)
	}
}

// SendMessage validates and appends a draft, returns the created message in
// its initial sending state and schedules the sent/delivered transitions.
// The draft's content is censored before the message enters the room.
func (c *Core) SendMessage(ctx context.Context, draft domain.Draft) (domain.Message, error) {
	if err := c.validate.Struct(draft); err != nil {
		return domain.Message{}, fmt.Errorf("%w: %s", errors.ErrInvalidDraft, err)
	}
	if !draft.HasSingleTarget() {
		return domain.Message{}, fmt.Errorf("%w: exactly one of receiver or room must be set", errors.ErrInvalidDraft)
	}

	content, censoredWords := c.moderator.Censor(draft.Content)
	if len(censoredWords) > 0 {
		c.log.Debug("Censored outgoing message", "words", len(censoredWords))
	}
	info := whatlanggo.Detect(content)

	message := &domain.Message{
		ID:         uuid.New(),
		SenderID:   draft.SenderID,
		ReceiverID: draft.ReceiverID,
		RoomID:     domain.RoomID(draft.RoomID),
		Content:    content,
		Kind:       detectKind(draft.Attachment),
		Language:   info.Lang.Iso6391(),
		Timestamp:  time.Now().UTC(),
		Status:     domain.StatusSending,
	}

	c.mu.Lock()
	c.messages = append(c.messages, message)
	room, created := c.resolveRoomLocked(*message)
	if room != nil {
		room.LastMessage = lo.ToPtr(*message)
		if message.SenderID != domain.LocalParticipant {
			room.UnreadCount++
		}
	}
	var resolvedRoom domain.RoomID
	if room != nil {
		resolvedRoom = room.ID
	}
	m := *message
	c.msgSubs.Notify(ctx, event.MessagesChanged{Messages: c.messageSnapshotLocked()})
	if room != nil {
		c.roomSubs.Notify(ctx, event.RoomsChanged{Rooms: c.roomSnapshotLocked()})
	}
	c.pipeline.Notify(ctx, event.MessageAppended{Message: m, Room: resolvedRoom})
	c.mu.Unlock()

	c.stats.IncrMessagesSent()
	if created {
		c.log.Info("Created direct room on first contact", "room", resolvedRoom, "peer", draft.ReceiverID)
	}

	// Scripted delivery lifecycle. Not cancellable once scheduled.
	c.delivery.Schedule(workers.DeliveryJob{MessageID: m.ID, Status: domain.StatusSent, After: c.sentAfter})
	c.delivery.Schedule(workers.DeliveryJob{MessageID: m.ID, Status: domain.StatusDelivered, After: c.deliveredAfter})

	return m, nil
}

// resolveRoomLocked finds the room a message lands in: by explicit room id,
// or the direct room matching the sender/receiver pair. A direct message to a
// peer without a room yet creates one (first contact).
func (c *Core) resolveRoomLocked(message domain.Message) (*domain.ChatRoom, bool) {
	if message.RoomID != "" {
		room, _ := lo.Find(c.rooms, func(r *domain.ChatRoom) bool { return r.ID == message.RoomID })
		return room, false
	}
	room, found := lo.Find(c.rooms, func(r *domain.ChatRoom) bool {
		return r.MatchesDirectPair(message.SenderID, message.ReceiverID)
	})
	if found {
		return room, false
	}

	// The room carries the remote peer's name whichever side spoke first.
	peer := message.ReceiverID
	if peer == domain.LocalParticipant {
		peer = message.SenderID
	}
	created := &domain.ChatRoom{
		ID:           domain.RoomID(uuid.NewString()),
		Name:         peer,
		Kind:         domain.RoomDirect,
		Participants: []string{message.SenderID, message.ReceiverID},
		CreatedAt:    time.Now().UTC(),
	}
	c.rooms = append(c.rooms, created)
	return created, true
}

// applyStatus is the delivery worker's re-entry point into the serialized
// mutation path. A transition that would move a status backwards is ignored.
func (c *Core) applyStatus(id uuid.UUID, status domain.DeliveryStatus) {
	c.mu.Lock()
	message, _ := lo.Find(c.messages, func(m *domain.Message) bool { return m.ID == id })
	if message == nil || !message.AdvanceStatus(status) {
		c.mu.Unlock()
		return
	}
	roomChanged := c.syncLastMessageLocked(*message)
	ctx := context.Background()
	c.msgSubs.Notify(ctx, event.MessagesChanged{Messages: c.messageSnapshotLocked()})
	if roomChanged {
		c.roomSubs.Notify(ctx, event.RoomsChanged{Rooms: c.roomSnapshotLocked()})
	}
	c.pipeline.Notify(ctx, event.MessageStatusChanged{
		ID: id, Status: status, At: time.Now().UTC(),
	})
	c.mu.Unlock()

	if status == domain.StatusDelivered {
		c.stats.IncrMessagesDelivered()
	}
}

// syncLastMessageLocked refreshes denormalized lastMessage copies that point
// at the given message.
func (c *Core) syncLastMessageLocked(message domain.Message) bool {
	changed := false
	for _, room := range c.rooms {
		if room.LastMessage != nil && room.LastMessage.ID == message.ID {
			room.LastMessage = lo.ToPtr(message)
			changed = true
		}
	}
	return changed
}

// MessagesForRoom returns every message belonging to the room: explicit room
// targets plus direct messages between the room's two participants.
func (c *Core) MessagesForRoom(roomID domain.RoomID) ([]domain.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	room, _ := lo.Find(c.rooms, func(r *domain.ChatRoom) bool { return r.ID == roomID })
	if room == nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrRoomNotFound, roomID)
	}
	return lo.FilterMap(c.messages, func(m *domain.Message, _ int) (domain.Message, bool) {
		return *m, m.BelongsTo(*room)
	}), nil
}

// MessagesForUser returns every message with the user at either endpoint.
func (c *Core) MessagesForUser(userID string) []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return lo.FilterMap(c.messages, func(m *domain.Message, _ int) (domain.Message, bool) {
		return *m, m.SenderID == userID || m.ReceiverID == userID
	})
}

// ChatRooms returns all rooms, most recently active first. Rooms with equal
// effective timestamps keep their insertion order.
func (c *Core) ChatRooms() []domain.ChatRoom {
	c.mu.Lock()
	rooms := c.roomSnapshotLocked()
	c.mu.Unlock()

	domain.SortRooms(rooms)
	return rooms
}

// CreateChatRoom constructs and appends a room. It does not deduplicate
// against existing rooms with the same participants; callers check first.
func (c *Core) CreateChatRoom(ctx context.Context, name string, participants []string,
	kind domain.RoomKind) (domain.ChatRoom, error) {
	if kind == domain.RoomDirect {
		if len(participants) != 2 || !lo.Contains(participants, domain.LocalParticipant) {
			return domain.ChatRoom{}, fmt.Errorf(
				"%w: a direct room has exactly two participants including %q",
				errors.ErrInvalidRoom, domain.LocalParticipant)
		}
	}

	room := &domain.ChatRoom{
		ID:           domain.RoomID(uuid.NewString()),
		Name:         name,
		Kind:         kind,
		Participants: append([]string(nil), participants...),
		CreatedAt:    time.Now().UTC(),
	}

	c.mu.Lock()
	c.rooms = append(c.rooms, room)
	created := *room
	c.roomSubs.Notify(ctx, event.RoomsChanged{Rooms: c.roomSnapshotLocked()})
	c.mu.Unlock()
	return created, nil
}

// MarkAsRead clears the room's unread counter and promotes its inbound
// delivered messages to read. Unknown room ids are a no-op; calling it twice
// is harmless.
func (c *Core) MarkAsRead(ctx context.Context, roomID domain.RoomID) {
	c.mu.Lock()
	room, _ := lo.Find(c.rooms, func(r *domain.ChatRoom) bool { return r.ID == roomID })
	if room == nil {
		c.mu.Unlock()
		return
	}
	room.UnreadCount = 0

	var promoted []domain.Message
	for _, message := range c.messages {
		if !message.BelongsTo(*room) || message.SenderID == domain.LocalParticipant {
			continue
		}
		if message.Status == domain.StatusDelivered && message.AdvanceStatus(domain.StatusRead) {
			c.syncLastMessageLocked(*message)
			promoted = append(promoted, *message)
		}
	}
	c.roomSubs.Notify(ctx, event.RoomsChanged{Rooms: c.roomSnapshotLocked()})
	if len(promoted) > 0 {
		c.msgSubs.Notify(ctx, event.MessagesChanged{Messages: c.messageSnapshotLocked()})
		for _, m := range promoted {
			c.pipeline.Notify(ctx, event.MessageStatusChanged{
				ID: m.ID, Room: roomID, Status: domain.StatusRead, At: time.Now().UTC(),
			})
		}
	}
	c.mu.Unlock()
}

// SearchMessages finds message ids by content through the session index.
func (c *Core) SearchMessages(ctx context.Context, terms string, roomID domain.RoomID,
	limit int) ([]uuid.UUID, error) {
	if c.search == nil {
		return nil, nil
	}
	return c.search.Search(ctx, terms, string(roomID), limit)
}

// History pages through the session history store, most recent first.
func (c *Core) History(roomID domain.RoomID, cursor *string) ([]repositories.HistoryMessage, *string, error) {
	if c.history == nil {
		return nil, nil, nil
	}
	return c.history.Messages(string(roomID), cursor)
}

func (c *Core) OnMessagesChanged(sink contract.EventSink) contract.Unsubscribe {
	return c.msgSubs.Subscribe(sink)
}

func (c *Core) OnRoomsChanged(sink contract.EventSink) contract.Unsubscribe {
	return c.roomSubs.Subscribe(sink)
}

func (c *Core) messageSnapshotLocked() []domain.Message {
	return lo.Map(c.messages, func(m *domain.Message, _ int) domain.Message { return *m })
}

func (c *Core) roomSnapshotLocked() []domain.ChatRoom {
	return lo.Map(c.rooms, func(r *domain.ChatRoom, _ int) domain.ChatRoom {
		copied := *r
		copied.Participants = append([]string(nil), r.Participants...)
		if r.LastMessage != nil {
			copied.LastMessage = lo.ToPtr(*r.LastMessage)
		}
		return copied
	})
}

// detectKind classifies a draft by its attachment's magic bytes. Text drafts
// carry no attachment.
func detectKind(attachment []byte) domain.MessageKind {
	if len(attachment) == 0 {
		return domain.KindText
	}
	if strings.HasPrefix(mimetype.Detect(attachment).String(), "image/") {
		return domain.KindImage
	}
	return domain.KindFile
}
