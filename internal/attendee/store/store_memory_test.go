package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatepass/internal/attendee/models"
	"gatepass/pkg/domain"
	"gatepass/pkg/platform/sentinel"
)

// Valid CPFs for fixtures (check digits verified by ParseCPF).
var fixtureCPFs = []string{
	"52998224725", "11144477735", "93541134780", "12345678909",
}

func newAttendee(t *testing.T, eventID domain.EventID, cpf string, supplierID domain.SupplierID, sectors ...domain.SectorID) *models.Attendee {
	t.Helper()
	if len(sectors) == 0 {
		sectors = []domain.SectorID{domain.NewSectorID()}
	}
	parsed, err := domain.ParseCPF(cpf)
	require.NoError(t, err)
	a, err := models.NewAttendee(eventID, "Attendee "+cpf, parsed, "photos/"+cpf+".jpg", sectors, models.StatusPending, time.Now())
	require.NoError(t, err)
	a.SupplierID = supplierID
	return a
}

func TestCreateWithinLimit_DuplicateCPF(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	eventID := domain.NewEventID()

	first := newAttendee(t, eventID, fixtureCPFs[0], domain.SupplierID{})
	require.NoError(t, s.CreateWithinLimit(ctx, first, -1))

	t.Run("active duplicate is rejected with holder identity", func(t *testing.T) {
		dup := newAttendee(t, eventID, fixtureCPFs[0], domain.SupplierID{})
		err := s.CreateWithinLimit(ctx, dup, -1)
		require.Error(t, err)

		var dupErr *DuplicateCPFError
		require.True(t, errors.As(err, &dupErr))
		assert.Equal(t, first.ID, dupErr.AttendeeID)
		assert.Equal(t, first.Name, dupErr.Name)
		assert.True(t, errors.Is(err, sentinel.ErrConflict))
	})

	t.Run("cancelled record frees the cpf", func(t *testing.T) {
		_, err := s.Execute(ctx, eventID, first.ID,
			func(a *models.Attendee) error { return a.CanCancel(domain.RoleAdmin) },
			func(a *models.Attendee) { a.ApplyCancel(time.Now()) })
		require.NoError(t, err)

		again := newAttendee(t, eventID, fixtureCPFs[0], domain.SupplierID{})
		require.NoError(t, s.CreateWithinLimit(ctx, again, -1))
	})
}

func TestCreateWithinLimit_PreAssignedWristbands(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	eventID := domain.NewEventID()
	sectorID := domain.NewSectorID()

	first := newAttendee(t, eventID, fixtureCPFs[0], domain.SupplierID{}, sectorID)
	require.NoError(t, first.AssignWristbands(map[domain.SectorID]domain.WristbandCode{sectorID: "WB-500"}))
	require.NoError(t, s.CreateWithinLimit(ctx, first, -1))

	t.Run("pre-assigned code resolves by scan", func(t *testing.T) {
		got, err := s.FindByWristband(ctx, eventID, "WB-500")
		require.NoError(t, err)
		assert.Equal(t, first.ID, got.ID)
	})

	t.Run("pre-assigned code occupies the sector namespace", func(t *testing.T) {
		second := newAttendee(t, eventID, fixtureCPFs[1], domain.SupplierID{}, sectorID)
		require.NoError(t, second.AssignWristbands(map[domain.SectorID]domain.WristbandCode{sectorID: "WB-500"}))
		err := s.CreateWithinLimit(ctx, second, -1)

		var conflict *WristbandConflictError
		require.True(t, errors.As(err, &conflict))
		assert.Equal(t, first.ID, conflict.HolderID)
	})

	t.Run("check-in accepts the code already held", func(t *testing.T) {
		got, err := s.CheckIn(ctx, eventID, first.ID,
			map[domain.SectorID]domain.WristbandCode{sectorID: "WB-500"},
			domain.RoleStaff, "Desk 1", time.Now())
		require.NoError(t, err)
		assert.Equal(t, models.StatusCheckedIn, got.Status)
	})
}

func TestCheckIn_NoCollisionWithBandlessAttendees(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	eventID := domain.NewEventID()
	sectorID := domain.NewSectorID()

	// Attendees holding no wristbands must never match an incoming code.
	bandless := newAttendee(t, eventID, fixtureCPFs[0], domain.SupplierID{}, sectorID)
	require.NoError(t, s.CreateWithinLimit(ctx, bandless, -1))

	a := newAttendee(t, eventID, fixtureCPFs[1], domain.SupplierID{}, sectorID)
	require.NoError(t, s.CreateWithinLimit(ctx, a, -1))

	got, err := s.CheckIn(ctx, eventID, a.ID,
		map[domain.SectorID]domain.WristbandCode{sectorID: "WB-600"},
		domain.RoleStaff, "Desk 1", time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.StatusCheckedIn, got.Status)
}

// TestCreateWithinLimit_ConcurrentCapacity asserts the core concurrency
// property: N+k concurrent registrations against limit N never leave more
// than N active records for the supplier.
func TestCreateWithinLimit_ConcurrentCapacity(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	eventID := domain.NewEventID()
	supplierID := domain.NewSupplierID()
	const limit = 2

	var wg sync.WaitGroup
	errs := make([]error, len(fixtureCPFs))
	for i, cpf := range fixtureCPFs {
		wg.Add(1)
		go func(i int, cpf string) {
			defer wg.Done()
			a := newAttendee(t, eventID, cpf, supplierID)
			errs[i] = s.CreateWithinLimit(ctx, a, limit)
		}(i, cpf)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, errors.Is(err, sentinel.ErrLimitReached))
		}
	}
	assert.Equal(t, limit, succeeded)

	count, err := s.CountActiveBySupplier(ctx, eventID, supplierID)
	require.NoError(t, err)
	assert.Equal(t, limit, count)
}

func TestCheckIn_WristbandCollision(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	eventID := domain.NewEventID()
	sectorID := domain.NewSectorID()

	a := newAttendee(t, eventID, fixtureCPFs[0], domain.SupplierID{}, sectorID)
	b := newAttendee(t, eventID, fixtureCPFs[1], domain.SupplierID{}, sectorID)
	require.NoError(t, s.CreateWithinLimit(ctx, a, -1))
	require.NoError(t, s.CreateWithinLimit(ctx, b, -1))

	code := map[domain.SectorID]domain.WristbandCode{sectorID: "WB-100"}
	_, err := s.CheckIn(ctx, eventID, a.ID, code, domain.RoleStaff, "Desk 1", time.Now())
	require.NoError(t, err)

	_, err = s.CheckIn(ctx, eventID, b.ID, code, domain.RoleStaff, "Desk 2", time.Now())
	require.Error(t, err)
	var collision *WristbandConflictError
	require.True(t, errors.As(err, &collision))
	assert.Equal(t, a.ID, collision.HolderID)
	assert.Equal(t, sectorID, collision.SectorID)

	// The failed check-in left b untouched.
	stored, err := s.FindByID(ctx, eventID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)
	assert.Empty(t, stored.Wristbands)
}

// TestCheckIn_ConcurrentSameCode: exactly one of two concurrent check-ins
// assigning the same code in the same sector wins.
func TestCheckIn_ConcurrentSameCode(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	eventID := domain.NewEventID()
	sectorID := domain.NewSectorID()

	a := newAttendee(t, eventID, fixtureCPFs[0], domain.SupplierID{}, sectorID)
	b := newAttendee(t, eventID, fixtureCPFs[1], domain.SupplierID{}, sectorID)
	require.NoError(t, s.CreateWithinLimit(ctx, a, -1))
	require.NoError(t, s.CreateWithinLimit(ctx, b, -1))

	code := map[domain.SectorID]domain.WristbandCode{sectorID: "WB-RACE"}
	var wg sync.WaitGroup
	results := make([]error, 2)
	for i, id := range []domain.AttendeeID{a.ID, b.ID} {
		wg.Add(1)
		go func(i int, id domain.AttendeeID) {
			defer wg.Done()
			_, results[i] = s.CheckIn(ctx, eventID, id, code, domain.RoleStaff, "Desk", time.Now())
		}(i, id)
	}
	wg.Wait()

	var collisions, successes int
	for _, err := range results {
		if err == nil {
			successes++
			continue
		}
		var collision *WristbandConflictError
		if errors.As(err, &collision) {
			collisions++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, collisions)
}

func TestCheckIn_SameCodeDifferentSectors(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	eventID := domain.NewEventID()
	sectorA := domain.NewSectorID()
	sectorB := domain.NewSectorID()

	a := newAttendee(t, eventID, fixtureCPFs[0], domain.SupplierID{}, sectorA)
	b := newAttendee(t, eventID, fixtureCPFs[1], domain.SupplierID{}, sectorB)
	require.NoError(t, s.CreateWithinLimit(ctx, a, -1))
	require.NoError(t, s.CreateWithinLimit(ctx, b, -1))

	// The namespace is per sector: the same code may exist in two sectors.
	_, err := s.CheckIn(ctx, eventID, a.ID, map[domain.SectorID]domain.WristbandCode{sectorA: "WB-1"}, domain.RoleStaff, "Desk", time.Now())
	require.NoError(t, err)
	_, err = s.CheckIn(ctx, eventID, b.ID, map[domain.SectorID]domain.WristbandCode{sectorB: "WB-1"}, domain.RoleStaff, "Desk", time.Now())
	require.NoError(t, err)
}

func TestFindByWristband(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	eventID := domain.NewEventID()
	sectorID := domain.NewSectorID()

	a := newAttendee(t, eventID, fixtureCPFs[0], domain.SupplierID{}, sectorID)
	require.NoError(t, s.CreateWithinLimit(ctx, a, -1))
	_, err := s.CheckIn(ctx, eventID, a.ID, map[domain.SectorID]domain.WristbandCode{sectorID: "WB-7"}, domain.RoleStaff, "Desk", time.Now())
	require.NoError(t, err)

	found, err := s.FindByWristband(ctx, eventID, "WB-7")
	require.NoError(t, err)
	assert.Equal(t, a.ID, found.ID)

	_, err = s.FindByWristband(ctx, eventID, "WB-UNKNOWN")
	assert.True(t, errors.Is(err, sentinel.ErrNotFound))
}

func TestExecute_FailedValidationLeavesRecordUnchanged(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	eventID := domain.NewEventID()

	a := newAttendee(t, eventID, fixtureCPFs[0], domain.SupplierID{})
	require.NoError(t, s.CreateWithinLimit(ctx, a, -1))

	_, err := s.Execute(ctx, eventID, a.ID,
		func(att *models.Attendee) error { return att.CanCheckOut(domain.RoleStaff) },
		func(att *models.Attendee) { att.ApplyCheckOut("Desk", time.Now()) })
	require.Error(t, err)

	stored, err := s.FindByID(ctx, eventID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)
	assert.Nil(t, stored.CheckoutTime)
}

func TestList_Filters(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	eventID := domain.NewEventID()
	supplierID := domain.NewSupplierID()
	sectorID := domain.NewSectorID()

	a := newAttendee(t, eventID, fixtureCPFs[0], supplierID, sectorID)
	b := newAttendee(t, eventID, fixtureCPFs[1], domain.SupplierID{})
	require.NoError(t, s.CreateWithinLimit(ctx, a, -1))
	require.NoError(t, s.CreateWithinLimit(ctx, b, -1))

	bySupplier, err := s.List(ctx, eventID, Filter{SupplierID: supplierID})
	require.NoError(t, err)
	require.Len(t, bySupplier, 1)
	assert.Equal(t, a.ID, bySupplier[0].ID)

	bySector, err := s.List(ctx, eventID, Filter{SectorID: sectorID})
	require.NoError(t, err)
	require.Len(t, bySector, 1)

	all, err := s.List(ctx, eventID, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDelete_FreesCPF(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	eventID := domain.NewEventID()

	a := newAttendee(t, eventID, fixtureCPFs[0], domain.SupplierID{})
	require.NoError(t, s.CreateWithinLimit(ctx, a, -1))
	require.NoError(t, s.Delete(ctx, eventID, a.ID))

	again := newAttendee(t, eventID, fixtureCPFs[0], domain.SupplierID{})
	require.NoError(t, s.CreateWithinLimit(ctx, again, -1))

	assert.True(t, errors.Is(s.Delete(ctx, eventID, a.ID), sentinel.ErrNotFound))
}
