//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"peerlink/domain"
	"peerlink/domain/event"
	"reflect"
)

// Transport is the platform-specific discovery and connection collaborator.
// The actual radio implementation (Bluetooth, WiFi-Direct) lives outside this
// module; the session core only relies on these three primitives.
type Transport interface {
	Scan(ctx context.Context) ([]domain.Device, error)
	Connect(ctx context.Context, id domain.DeviceID) error
	Disconnect(ctx context.Context, id domain.DeviceID) error
}

// EventSink consumes change events. Presentation subscribers, the history
// store and the search index all plug in through this interface.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// Unsubscribe removes a previously registered sink. Safe to call from inside
// a Consume callback, and safe to call more than once.
type Unsubscribe func()

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
	Wait()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
