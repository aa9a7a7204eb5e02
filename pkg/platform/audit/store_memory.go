package audit

import (
	"context"
	"sync"

	"gatepass/pkg/domain"
)

// InMemoryStore keeps the trail in memory; tests assert against it.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) ListByAttendee(_ context.Context, eventID domain.EventID, attendeeID domain.AttendeeID) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Event
	for _, e := range s.events {
		if e.EventID == eventID && e.AttendeeID == attendeeID {
			out = append(out, e)
		}
	}
	return out, nil
}

// All returns a copy of every recorded event, for test assertions.
func (s *InMemoryStore) All() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event{}, s.events...)
}
