package audit

import (
	"context"
	"time"

	"gatepass/pkg/domain"
)

// Publisher is the service-facing emission port.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// Store persists events. It is append-only; sinks that cannot list (Kafka)
// implement Publisher directly instead.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByAttendee(ctx context.Context, eventID domain.EventID, attendeeID domain.AttendeeID) ([]Event, error)
}

// StorePublisher writes events to a Store, stamping a timestamp when the
// emitter did not set one.
type StorePublisher struct {
	store Store
}

func NewStorePublisher(store Store) *StorePublisher {
	return &StorePublisher{store: store}
}

func (p *StorePublisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	return p.store.Append(ctx, event)
}

// Fanout emits to every publisher, returning the first error. Used to pair
// the durable store sink with the Kafka stream.
type Fanout []Publisher

func (f Fanout) Emit(ctx context.Context, event Event) error {
	var firstErr error
	for _, p := range f {
		if err := p.Emit(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
