package supplier

import (
	"context"
	"sync"

	"gatepass/pkg/domain"
	"gatepass/pkg/platform/sentinel"
)

// Store is the event-scoped supplier collection.
type Store interface {
	Create(ctx context.Context, s *Supplier) error
	FindByID(ctx context.Context, eventID domain.EventID, supplierID domain.SupplierID) (*Supplier, error)
	List(ctx context.Context, eventID domain.EventID) ([]*Supplier, error)
	Update(ctx context.Context, s *Supplier) error
	CountBySector(ctx context.Context, eventID domain.EventID, sectorID domain.SectorID) (int, error)
}

// InMemoryStore keeps suppliers under one RWMutex.
type InMemoryStore struct {
	mu        sync.RWMutex
	suppliers map[domain.EventID]map[domain.SupplierID]*Supplier
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{suppliers: make(map[domain.EventID]map[domain.SupplierID]*Supplier)}
}

func clone(s *Supplier) *Supplier {
	cp := *s
	cp.Sectors = append([]domain.SectorID{}, s.Sectors...)
	cp.SubCompanies = append([]SubCompany{}, s.SubCompanies...)
	cp.TokenHash = append([]byte{}, s.TokenHash...)
	return &cp
}

func (st *InMemoryStore) Create(_ context.Context, s *Supplier) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	col, ok := st.suppliers[s.EventID]
	if !ok {
		col = make(map[domain.SupplierID]*Supplier)
		st.suppliers[s.EventID] = col
	}
	if _, exists := col[s.ID]; exists {
		return sentinel.ErrConflict
	}
	col[s.ID] = clone(s)
	return nil
}

func (st *InMemoryStore) FindByID(_ context.Context, eventID domain.EventID, supplierID domain.SupplierID) (*Supplier, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	if s, ok := st.suppliers[eventID][supplierID]; ok {
		return clone(s), nil
	}
	return nil, sentinel.ErrNotFound
}

func (st *InMemoryStore) List(_ context.Context, eventID domain.EventID) ([]*Supplier, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	var out []*Supplier
	for _, s := range st.suppliers[eventID] {
		out = append(out, clone(s))
	}
	return out, nil
}

func (st *InMemoryStore) Update(_ context.Context, s *Supplier) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.suppliers[s.EventID][s.ID]; !ok {
		return sentinel.ErrNotFound
	}
	st.suppliers[s.EventID][s.ID] = clone(s)
	return nil
}

func (st *InMemoryStore) CountBySector(_ context.Context, eventID domain.EventID, sectorID domain.SectorID) (int, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	count := 0
	for _, s := range st.suppliers[eventID] {
		for _, sec := range s.Sectors {
			if sec == sectorID {
				count++
				break
			}
		}
	}
	return count, nil
}
