package workers

import (
	"context"
	"log/slog"
	"time"

	"peerlink/contract"
)

// Ensure *DriftWorker implements the contract.Worker interface at compile time.
var _ contract.Worker = (*DriftWorker)(nil)

// DriftWorker drives the periodic signal refresh while discovery is active.
// It owns no state: each tick calls back into the connection manager, which
// applies the perturbation inside its own serialized mutation path.
type DriftWorker struct {
	log      *slog.Logger
	interval time.Duration
	tick     func()
}

func NewDriftWorker(log *slog.Logger, interval time.Duration, tick func()) *DriftWorker {
	return &DriftWorker{log: log, interval: interval, tick: tick}
}

func (w *DriftWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping drift worker")
			return nil
		case <-ticker.C:
			w.tick()
		}
	}
}
