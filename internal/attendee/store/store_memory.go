package store

import (
	"context"
	"sync"
	"time"

	"gatepass/internal/attendee/models"
	"gatepass/pkg/domain"
	"gatepass/pkg/platform/sentinel"
)

// InMemoryStore keeps per-event attendee collections under one RWMutex. The
// single lock is what makes CreateWithinLimit and CheckIn check-then-write
// atomic; tests and single-node deployments use it directly.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[domain.EventID]map[domain.AttendeeID]*models.Attendee
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[domain.EventID]map[domain.AttendeeID]*models.Attendee)}
}

func (s *InMemoryStore) collection(eventID domain.EventID) map[domain.AttendeeID]*models.Attendee {
	col, ok := s.events[eventID]
	if !ok {
		col = make(map[domain.AttendeeID]*models.Attendee)
		s.events[eventID] = col
	}
	return col
}

func (s *InMemoryStore) CreateWithinLimit(_ context.Context, a *models.Attendee, limit int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	col := s.collection(a.EventID)
	for _, existing := range col {
		if existing.CPF == a.CPF && existing.Status.IsActive() {
			return &DuplicateCPFError{EventID: existing.EventID, AttendeeID: existing.ID, Name: existing.Name}
		}
	}
	if !a.SupplierID.IsNil() && limit >= 0 {
		count := 0
		for _, existing := range col {
			if existing.SupplierID == a.SupplierID && existing.Status.IsActive() {
				count++
			}
		}
		if count >= limit {
			return sentinel.ErrLimitReached
		}
	}
	// Pre-assigned wristbands enter the sector namespace at registration.
	for sectorID, code := range a.Wristbands {
		for _, other := range col {
			if issued, ok := other.Wristbands[sectorID]; ok && issued == code {
				return &WristbandConflictError{SectorID: sectorID, Code: code, HolderID: other.ID}
			}
		}
	}
	col[a.ID] = a.Clone()
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, eventID domain.EventID, attendeeID domain.AttendeeID) (*models.Attendee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if a, ok := s.events[eventID][attendeeID]; ok {
		return a.Clone(), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindActiveByCPF(_ context.Context, eventID domain.EventID, cpf domain.CPF) (*models.Attendee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.events[eventID] {
		if a.CPF == cpf && a.Status.IsActive() {
			return a.Clone(), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindByWristband(_ context.Context, eventID domain.EventID, code domain.WristbandCode) (*models.Attendee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.events[eventID] {
		if _, ok := a.WristbandSector(code); ok {
			return a.Clone(), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) List(_ context.Context, eventID domain.EventID, filter Filter) ([]*models.Attendee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Attendee
	for _, a := range s.events[eventID] {
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if !filter.SupplierID.IsNil() && a.SupplierID != filter.SupplierID {
			continue
		}
		if !filter.SectorID.IsNil() && !a.HasSector(filter.SectorID) {
			continue
		}
		out = append(out, a.Clone())
	}
	return out, nil
}

func (s *InMemoryStore) SearchByCPF(_ context.Context, cpf domain.CPF) ([]*models.Attendee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Attendee
	for _, col := range s.events {
		for _, a := range col {
			if a.CPF == cpf {
				out = append(out, a.Clone())
			}
		}
	}
	return out, nil
}

func (s *InMemoryStore) Execute(_ context.Context, eventID domain.EventID, attendeeID domain.AttendeeID,
	validate func(*models.Attendee) error, mutate func(*models.Attendee)) (*models.Attendee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.events[eventID][attendeeID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(a); err != nil {
		return nil, err
	}
	mutate(a)
	return a.Clone(), nil
}

func (s *InMemoryStore) CheckIn(_ context.Context, eventID domain.EventID, attendeeID domain.AttendeeID,
	wristbands map[domain.SectorID]domain.WristbandCode, role domain.Role, by string, now time.Time) (*models.Attendee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	col := s.events[eventID]
	a, ok := col[attendeeID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := a.CanCheckIn(role, wristbands); err != nil {
		return nil, err
	}
	if a.Status != models.StatusCheckedOut {
		// First admission: every newly assigned code must be free in its
		// sector. Codes the attendee already holds were checked at issuance.
		for sectorID, code := range wristbands {
			if held, ok := a.Wristbands[sectorID]; ok && held == code {
				continue
			}
			for _, other := range col {
				if other.ID == a.ID {
					continue
				}
				if issued, ok := other.Wristbands[sectorID]; ok && issued == code {
					return nil, &WristbandConflictError{SectorID: sectorID, Code: code, HolderID: other.ID}
				}
			}
		}
	}
	a.ApplyCheckIn(wristbands, by, now)
	return a.Clone(), nil
}

func (s *InMemoryStore) Delete(_ context.Context, eventID domain.EventID, attendeeID domain.AttendeeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	col, ok := s.events[eventID]
	if _, exists := col[attendeeID]; !ok || !exists {
		return sentinel.ErrNotFound
	}
	delete(col, attendeeID)
	return nil
}

func (s *InMemoryStore) CountActiveBySupplier(_ context.Context, eventID domain.EventID, supplierID domain.SupplierID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, a := range s.events[eventID] {
		if a.SupplierID == supplierID && a.Status.IsActive() {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryStore) CountBySector(_ context.Context, eventID domain.EventID, sectorID domain.SectorID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, a := range s.events[eventID] {
		if a.HasSector(sectorID) {
			count++
		}
	}
	return count, nil
}
