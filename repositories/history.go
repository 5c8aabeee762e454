//go:generate go run go.uber.org/mock/mockgen -source=history.go -destination=../mocks/mock_history_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"peerlink/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IHistoryRepository interface {
	StoreMessage(message HistoryMessage) error
	Messages(roomID string, cursor *string) ([]HistoryMessage, *string, error)
}

// HistoryRepository keeps the session's message history in BadgerDB. The
// database is expected to be opened in-memory: history lives exactly as long
// as the session, never across restarts.
type HistoryRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewHistoryRepository(db *badger.DB, log *slog.Logger, limitMessages *int) HistoryRepository {
	return HistoryRepository{db: db, log: log, limitMessages: limitMessages}
}

type HistoryMessage struct {
	ID       uuid.UUID             `json:"id"`
	Room     string                `json:"room"`
	Sender   string                `json:"sender"`
	Receiver string                `json:"receiver,omitempty"`
	Content  string                `json:"content"`
	Kind     domain.MessageKind    `json:"kind"`
	Language string                `json:"language,omitempty"`
	Status   domain.DeliveryStatus `json:"status"`
	At       time.Time             `json:"at"`
}

// StoreMessage persists a message for the current session.
// The key is formatted as "msg:{room_id}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two messages
//     arrive at the same nanosecond.
func (r HistoryRepository) StoreMessage(message HistoryMessage) error {
	key := fmt.Sprintf("msg:%s:%019d:%s",
		message.Room,
		message.At.UnixNano(),
		message.ID,
	)
	bytes, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
}

// Messages retrieves a room's history using a prefix scan, most recent first.
// Thanks to the padded timestamp in the key, messages are naturally sorted by
// time. It stops collecting once the configured limitMessages is reached and
// returns an opaque cursor for the next page, nil once the room is exhausted.
func (r HistoryRepository) Messages(roomID string, cursor *string) ([]HistoryMessage, *string, error) {
	var rawMessages [][]byte
	var lastKey string
	err := r.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("msg:%s:", roomID)
		prefix := []byte(prefixStr)
		prefixLen := len(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Seek past the newest possible position msg:{room}:9999999999999999999
			// then walk backwards in time.
			seekKey = append(prefix, []byte("9999999999999999999")...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}

		it.Seek(seekKey)

		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if r.limitMessages != nil && len(rawMessages) == *r.limitMessages {
				r.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *r.limitMessages))
				break
			}
			item := it.Item()
			// Memorize cursor part of the actual key
			lastKey = string(item.Key()[prefixLen:])
			err := item.Value(func(value []byte) error {
				rawMessages = append(rawMessages, append([]byte(nil), value...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	// A nil cursor tells the caller pagination is exhausted.
	if len(rawMessages) == 0 {
		return nil, nil, nil
	}

	messages := make([]HistoryMessage, 0, len(rawMessages))
	for _, b := range rawMessages {
		var message HistoryMessage
		if err = json.Unmarshal(b, &message); err != nil {
			return nil, nil, err
		}
		messages = append(messages, message)
	}
	return messages, &lastKey, nil
}

// FromDomain maps a domain message into its history row. Direct messages get
// filed under the room resolved at send time.
func FromDomain(message domain.Message, roomID domain.RoomID) HistoryMessage {
	return HistoryMessage{
		ID:       message.ID,
		Room:     string(roomID),
		Sender:   message.SenderID,
		Receiver: message.ReceiverID,
		Content:  message.Content,
		Kind:     message.Kind,
		Language: message.Language,
		Status:   message.Status,
		At:       message.Timestamp,
	}
}
