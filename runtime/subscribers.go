// Package runtime handles change propagation and worker supervision plumbing.
// It orchestrates notification fan-out without containing domain rules.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"peerlink/contract"
	"peerlink/domain/event"
	"peerlink/observability"
)

// Subscribers is a registry of event sinks for one component, with an ordered
// dispatch queue behind it. Notify only appends to the queue, so components
// call it from inside their serialized mutation section: enqueue order is
// mutation order. A single dispatcher goroutine drains the queue in FIFO
// order and bounds each Consume call with a timeout, so one stalled
// subscriber delays later events by at most the configured window but can
// never reorder them or block the mutation path.
//
// Unsubscribe handles are safe to call from inside a Consume callback:
// delivery iterates over a snapshot of the sink list, never the live map.
type Subscribers struct {
	mu          sync.RWMutex
	log         *slog.Logger
	sinkTimeout time.Duration
	stats       *observability.SessionStats
	nextHandle  int
	handles     []int
	sinks       map[int]contract.EventSink

	queueMu sync.Mutex
	queue   []queuedEvent
	wake    chan struct{}
}

type queuedEvent struct {
	ctx context.Context
	e   event.DomainEvent
}

func NewSubscribers(log *slog.Logger, sinkTimeout time.Duration, stats *observability.SessionStats) *Subscribers {
	s := &Subscribers{
		log:         log,
		sinkTimeout: sinkTimeout,
		stats:       stats,
		sinks:       make(map[int]contract.EventSink),
		wake:        make(chan struct{}, 1),
	}
	go s.dispatchLoop()
	return s
}

// Subscribe registers a sink and returns its unsubscribe handle.
func (s *Subscribers) Subscribe(sink contract.EventSink) contract.Unsubscribe {
	s.mu.Lock()
	defer s.mu.Unlock()

	handle := s.nextHandle
	s.nextHandle++
	s.handles = append(s.handles, handle)
	s.sinks[handle] = sink

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.sinks, handle)
		for i, h := range s.handles {
			if h == handle {
				s.handles = append(s.handles[:i], s.handles[i+1:]...)
				break
			}
		}
	}
}

func (s *Subscribers) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sinks)
}

// Notify enqueues the event for delivery. It never blocks and returns
// immediately; callers invoke it while still holding their component mutex so
// the queue preserves mutation order.
func (s *Subscribers) Notify(ctx context.Context, e event.DomainEvent) {
	s.queueMu.Lock()
	s.queue = append(s.queue, queuedEvent{ctx: ctx, e: e})
	s.queueMu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// dispatchLoop is the single dispatcher: it drains the queue in FIFO order,
// one event at a time, for the lifetime of the registry.
func (s *Subscribers) dispatchLoop() {
	for range s.wake {
		for {
			s.queueMu.Lock()
			if len(s.queue) == 0 {
				s.queueMu.Unlock()
				break
			}
			next := s.queue[0]
			s.queue = s.queue[1:]
			s.queueMu.Unlock()

			s.deliver(next.ctx, next.e)
		}
	}
}

// deliver hands one event to every sink registered at delivery time. Each
// sink gets at most sinkTimeout; a sink that overruns is abandoned (its
// goroutine finishes in the background) and counted.
func (s *Subscribers) deliver(ctx context.Context, e event.DomainEvent) {
	s.mu.RLock()
	snapshot := make([]contract.EventSink, 0, len(s.handles))
	for _, h := range s.handles {
		if sink, ok := s.sinks[h]; ok {
			snapshot = append(snapshot, sink)
		}
	}
	s.mu.RUnlock()

	for _, sink := range snapshot {
		s.consume(ctx, sink, e)
	}
}

func (s *Subscribers) consume(ctx context.Context, sink contract.EventSink, e event.DomainEvent) {
	done := make(chan error, 1)
	go func() {
		done <- sink.Consume(ctx, e)
	}()

	select {
	case err := <-done:
		if err != nil {
			s.log.Warn("Sink rejected event", "event", e.Name(), "error", err)
		}
		if s.stats != nil {
			s.stats.IncrNotifications()
		}
	case <-time.After(s.sinkTimeout):
		s.log.Warn(fmt.Sprintf("Sink timed out after %s, abandoning delivery", s.sinkTimeout),
			"event", e.Name())
		if s.stats != nil {
			s.stats.IncrSinkTimeouts()
		}
	}
}
