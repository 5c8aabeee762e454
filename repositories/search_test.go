package repositories

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"peerlink/domain"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func setupTestIndex(t *testing.T) *SearchRepository {
	writer, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = writer.Close() })
	return NewSearchRepository(writer, slog.Default())
}

func indexedMessage(room, content string) HistoryMessage {
	return HistoryMessage{
		ID:      uuid.New(),
		Room:    room,
		Sender:  domain.LocalParticipant,
		Content: content,
		Kind:    domain.KindText,
		At:      time.Now().UTC(),
	}
}

func TestSearchRepository_IndexAndSearch(t *testing.T) {
	req := require.New(t)
	repo := setupTestIndex(t)
	ctx := context.Background()

	hit := indexedMessage("room-1", "meet me at the harbor tonight")
	req.NoError(repo.Index(hit))
	req.NoError(repo.Index(indexedMessage("room-1", "nothing relevant here")))

	ids, err := repo.Search(ctx, "harbor", "", 10)
	req.NoError(err)
	req.Len(ids, 1)
	req.Equal(hit.ID, ids[0])
}

func TestSearchRepository_RoomFilter(t *testing.T) {
	req := require.New(t)
	repo := setupTestIndex(t)
	ctx := context.Background()

	inRoom := indexedMessage("room-1", "harbor plans")
	elsewhere := indexedMessage("room-2", "harbor plans")
	req.NoError(repo.Index(inRoom))
	req.NoError(repo.Index(elsewhere))

	// A room id narrows the search to that room
	ids, err := repo.Search(ctx, "harbor", "room-1", 10)
	req.NoError(err)
	req.Len(ids, 1)
	req.Equal(inRoom.ID, ids[0])

	// An empty room id searches across all rooms
	ids, err = repo.Search(ctx, "harbor", "", 10)
	req.NoError(err)
	req.Len(ids, 2)
}

func TestSearchRepository_NoMatches(t *testing.T) {
	req := require.New(t)
	repo := setupTestIndex(t)

	req.NoError(repo.Index(indexedMessage("room-1", "hello world")))

	ids, err := repo.Search(context.Background(), "submarine", "", 10)
	req.NoError(err)
	req.Empty(ids)
}

func TestSearchRepository_ReindexSameID(t *testing.T) {
	req := require.New(t)
	repo := setupTestIndex(t)
	ctx := context.Background()

	message := indexedMessage("room-1", "draft wording")
	req.NoError(repo.Index(message))

	// Re-indexing the same id replaces the document instead of duplicating it
	message.Content = "final wording"
	req.NoError(repo.Index(message))

	ids, err := repo.Search(ctx, "wording", "", 10)
	req.NoError(err)
	req.Len(ids, 1)

	ids, err = repo.Search(ctx, "draft", "", 10)
	req.NoError(err)
	req.Empty(ids)
}
