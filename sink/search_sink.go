package sink

import (
	"context"
	"log/slog"

	"peerlink/domain/event"
	"peerlink/repositories"
)

// SearchSink feeds appended messages into the full-text index.
type SearchSink struct {
	repository repositories.ISearchRepository
	log        *slog.Logger
}

func NewSearchSink(repository repositories.ISearchRepository, log *slog.Logger) SearchSink {
	return SearchSink{repository: repository, log: log}
}

func (s SearchSink) Consume(_ context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.MessageAppended:
		return s.repository.Index(repositories.FromDomain(evt.Message, evt.Room))
	default:
		return nil
	}
}
