//go:generate go run go.uber.org/mock/mockgen -source=search.go -destination=../mocks/mock_search_repository.go -package=mocks
package repositories

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"
)

type ISearchRepository interface {
	Index(message HistoryMessage) error
	Search(ctx context.Context, terms, roomID string, limit int) ([]uuid.UUID, error)
}

// SearchRepository maintains a Bluge full-text index over message content,
// scoped to the session (the writer is expected to use the in-memory config).
type SearchRepository struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewSearchRepository(writer *bluge.Writer, log *slog.Logger) *SearchRepository {
	return &SearchRepository{writer: writer, log: log}
}

// Index makes a message findable by its content, filterable by room.
func (s *SearchRepository) Index(message HistoryMessage) error {
	doc := bluge.NewDocument(message.ID.String()).
		AddField(bluge.NewTextField("content", message.Content)).
		AddField(bluge.NewKeywordField("room", message.Room)).
		AddField(bluge.NewKeywordField("sender", message.Sender))

	return s.writer.Update(doc.ID(), doc)
}

// Search returns the ids of messages matching the terms, newest-scored first.
// An empty roomID searches across all rooms.
func (s *SearchRepository) Search(ctx context.Context, terms, roomID string, limit int) ([]uuid.UUID, error) {
	reader, err := s.writer.Reader()
	if err != nil {
		return nil, fmt.Errorf("opening index reader: %w", err)
	}
	defer func() {
		if err := reader.Close(); err != nil {
			s.log.Warn("Failed to close index reader", "err", err)
		}
	}()

	query := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(terms).SetField("content"))
	if roomID != "" {
		query.AddMust(bluge.NewTermQuery(roomID).SetField("room"))
	}

	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(limit, query))
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	var ids []uuid.UUID
	match, err := iterator.Next()
	for err == nil && match != nil {
		visitErr := match.VisitStoredFields(func(field string, value []byte) bool {
			if field == "_id" {
				if id, parseErr := uuid.Parse(string(value)); parseErr == nil {
					ids = append(ids, id)
				}
			}
			return true
		})
		if visitErr != nil {
			return nil, visitErr
		}
		match, err = iterator.Next()
	}
	if err != nil {
		return nil, err
	}
	return ids, nil
}
