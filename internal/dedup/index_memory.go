package dedup

import (
	"context"
	"fmt"
	"sync"

	"gatepass/pkg/domain"
	"gatepass/pkg/platform/sentinel"
)

// InMemoryIndex is the single-node index used in tests and when Redis is not
// configured.
type InMemoryIndex struct {
	mu     sync.RWMutex
	claims map[domain.CPF]Claim
}

func NewInMemoryIndex() *InMemoryIndex {
	return &InMemoryIndex{claims: make(map[domain.CPF]Claim)}
}

func (i *InMemoryIndex) Claim(_ context.Context, cpf domain.CPF, claim Claim) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if existing, ok := i.claims[cpf]; ok && existing.AttendeeID != claim.AttendeeID {
		return fmt.Errorf("cpf held by %q in event %s: %w", existing.Name, existing.EventID, sentinel.ErrConflict)
	}
	i.claims[cpf] = claim
	return nil
}

func (i *InMemoryIndex) Lookup(_ context.Context, cpf domain.CPF) (*Claim, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if claim, ok := i.claims[cpf]; ok {
		return &claim, nil
	}
	return nil, sentinel.ErrNotFound
}

func (i *InMemoryIndex) Release(_ context.Context, cpf domain.CPF, attendeeID domain.AttendeeID) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if existing, ok := i.claims[cpf]; ok && existing.AttendeeID == attendeeID {
		delete(i.claims, cpf)
	}
	return nil
}
