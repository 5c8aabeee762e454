package sink

import (
	"context"
	"log/slog"

	"peerlink/domain/event"
	"peerlink/repositories"
)

// HistorySink records appended messages into the session history store.
// Status transitions are not rewritten: history keeps the message as it was
// appended, the live status is owned by the messaging core.
type HistorySink struct {
	repository repositories.IHistoryRepository
	log        *slog.Logger
}

func NewHistorySink(repository repositories.IHistoryRepository, log *slog.Logger) HistorySink {
	return HistorySink{repository: repository, log: log}
}

func (h HistorySink) Consume(_ context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.MessageAppended:
		return h.repository.StoreMessage(
			repositories.FromDomain(evt.Message, evt.Room))
	default:
		return nil
	}
}
