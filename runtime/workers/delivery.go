package workers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"peerlink/contract"
	"peerlink/domain"

	"github.com/google/uuid"
)

var _ contract.Worker = (*DeliveryWorker)(nil)

// DeliveryJob schedules one status transition for a message. Jobs are not
// cancellable individually: they model physical delivery, not a retractable
// operation. Only a full teardown clears pending timers.
type DeliveryJob struct {
	MessageID uuid.UUID
	Status    domain.DeliveryStatus
	After     time.Duration
}

// DeliveryWorker owns the delivery-status timers of the messaging core.
// Each accepted job arms a timer; when it fires, the transition is applied
// through the apply callback, which re-enters the core's serialized mutation
// path. On shutdown every pending timer is stopped so no notification can
// reach subscribers after teardown.
type DeliveryWorker struct {
	log   *slog.Logger
	jobs  chan DeliveryJob
	apply func(id uuid.UUID, status domain.DeliveryStatus)

	mu      sync.Mutex
	pending map[string]*time.Timer
	closed  bool
}

func NewDeliveryWorker(log *slog.Logger, bufferSize int,
	apply func(id uuid.UUID, status domain.DeliveryStatus)) *DeliveryWorker {
	return &DeliveryWorker{
		log:     log,
		jobs:    make(chan DeliveryJob, bufferSize),
		apply:   apply,
		pending: make(map[string]*time.Timer),
	}
}

// Schedule enqueues a transition. Non-blocking: when the queue is full the
// timer is armed inline instead, so a burst of sends can slow scheduling down
// but never strand a message before its next stage.
func (w *DeliveryWorker) Schedule(job DeliveryJob) {
	select {
	case w.jobs <- job:
	default:
		w.log.Warn(fmt.Sprintf("Delivery queue full, arming transition to %s inline", job.Status),
			"message_id", job.MessageID)
		w.arm(job)
	}
}

func (w *DeliveryWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping delivery worker")
			w.drain()
			return nil
		case job, ok := <-w.jobs:
			if !ok {
				w.log.Debug("Channel is closed")
				w.drain()
				return nil
			}
			w.arm(job)
		}
	}
}

func (w *DeliveryWorker) arm(job DeliveryJob) {
	key := jobKey(job)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.pending[key] = time.AfterFunc(job.After, func() {
		w.mu.Lock()
		delete(w.pending, key)
		closed := w.closed
		w.mu.Unlock()
		if closed {
			return
		}
		w.apply(job.MessageID, job.Status)
	})
}

// drain stops every pending timer. Timers already past their firing point
// see the closed flag and return without applying.
func (w *DeliveryWorker) drain() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	for key, timer := range w.pending {
		timer.Stop()
		delete(w.pending, key)
	}
}

// PendingCount reports the number of armed timers, used by teardown tests.
func (w *DeliveryWorker) PendingCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

func jobKey(job DeliveryJob) string {
	return fmt.Sprintf("%s:%d", job.MessageID, job.Status)
}
