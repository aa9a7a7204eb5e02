package sector

import (
	"context"
	"sync"

	"gatepass/pkg/domain"
	"gatepass/pkg/platform/sentinel"
)

// Store holds the sectors and validation points of every event.
type Store interface {
	CreateSector(ctx context.Context, s *Sector) error
	FindSector(ctx context.Context, eventID domain.EventID, sectorID domain.SectorID) (*Sector, error)
	ListSectors(ctx context.Context, eventID domain.EventID) ([]*Sector, error)
	UpdateSector(ctx context.Context, s *Sector) error
	DeleteSector(ctx context.Context, eventID domain.EventID, sectorID domain.SectorID) error

	CreatePoint(ctx context.Context, p *ValidationPoint) error
	FindPoint(ctx context.Context, eventID domain.EventID, pointID domain.ValidationPointID) (*ValidationPoint, error)
	ListPoints(ctx context.Context, eventID domain.EventID) ([]*ValidationPoint, error)
	DeletePoint(ctx context.Context, eventID domain.EventID, pointID domain.ValidationPointID) error
	CountPointsBySector(ctx context.Context, eventID domain.EventID, sectorID domain.SectorID) (int, error)
}

type InMemoryStore struct {
	mu      sync.RWMutex
	sectors map[domain.EventID]map[domain.SectorID]*Sector
	points  map[domain.EventID]map[domain.ValidationPointID]*ValidationPoint
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sectors: make(map[domain.EventID]map[domain.SectorID]*Sector),
		points:  make(map[domain.EventID]map[domain.ValidationPointID]*ValidationPoint),
	}
}

func (st *InMemoryStore) CreateSector(_ context.Context, s *Sector) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	col, ok := st.sectors[s.EventID]
	if !ok {
		col = make(map[domain.SectorID]*Sector)
		st.sectors[s.EventID] = col
	}
	if _, exists := col[s.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *s
	col[s.ID] = &cp
	return nil
}

func (st *InMemoryStore) FindSector(_ context.Context, eventID domain.EventID, sectorID domain.SectorID) (*Sector, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	if s, ok := st.sectors[eventID][sectorID]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, sentinel.ErrNotFound
}

func (st *InMemoryStore) ListSectors(_ context.Context, eventID domain.EventID) ([]*Sector, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	var out []*Sector
	for _, s := range st.sectors[eventID] {
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

func (st *InMemoryStore) UpdateSector(_ context.Context, s *Sector) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.sectors[s.EventID][s.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *s
	st.sectors[s.EventID][s.ID] = &cp
	return nil
}

func (st *InMemoryStore) DeleteSector(_ context.Context, eventID domain.EventID, sectorID domain.SectorID) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.sectors[eventID][sectorID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(st.sectors[eventID], sectorID)
	return nil
}

func (st *InMemoryStore) CreatePoint(_ context.Context, p *ValidationPoint) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	col, ok := st.points[p.EventID]
	if !ok {
		col = make(map[domain.ValidationPointID]*ValidationPoint)
		st.points[p.EventID] = col
	}
	if _, exists := col[p.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *p
	col[p.ID] = &cp
	return nil
}

func (st *InMemoryStore) FindPoint(_ context.Context, eventID domain.EventID, pointID domain.ValidationPointID) (*ValidationPoint, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	if p, ok := st.points[eventID][pointID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, sentinel.ErrNotFound
}

func (st *InMemoryStore) ListPoints(_ context.Context, eventID domain.EventID) ([]*ValidationPoint, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	var out []*ValidationPoint
	for _, p := range st.points[eventID] {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (st *InMemoryStore) DeletePoint(_ context.Context, eventID domain.EventID, pointID domain.ValidationPointID) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.points[eventID][pointID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(st.points[eventID], pointID)
	return nil
}

func (st *InMemoryStore) CountPointsBySector(_ context.Context, eventID domain.EventID, sectorID domain.SectorID) (int, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	count := 0
	for _, p := range st.points[eventID] {
		if p.SectorID == sectorID {
			count++
		}
	}
	return count, nil
}
