//go:build integration

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatepass/internal/attendee/models"
	"gatepass/pkg/domain"
	"gatepass/pkg/platform/sentinel"
	"gatepass/pkg/testutil/containers"
)

func newPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()
	ctx := context.Background()

	pg := containers.NewPostgresContainer(t)
	pool, err := pgxpool.New(ctx, pg.DSN)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	s := NewPostgresStore(pool)
	require.NoError(t, s.EnsureSchema(ctx))
	return s
}

func wb(t *testing.T, raw string) domain.WristbandCode {
	t.Helper()
	code, err := domain.ParseWristbandCode(raw)
	require.NoError(t, err)
	return code
}

func TestPostgresStore(t *testing.T) {
	ctx := context.Background()
	s := newPostgresStore(t)

	t.Run("create and find round-trip", func(t *testing.T) {
		eventID := domain.NewEventID()
		supplierID := domain.NewSupplierID()
		a := newAttendee(t, eventID, fixtureCPFs[0], supplierID)
		a.SubCompany = "Stage Crew Ltda"
		require.NoError(t, s.CreateWithinLimit(ctx, a, -1))

		got, err := s.FindByID(ctx, eventID, a.ID)
		require.NoError(t, err)
		assert.Equal(t, a.Name, got.Name)
		assert.Equal(t, a.CPF, got.CPF)
		assert.Equal(t, a.Sectors, got.Sectors)
		assert.Equal(t, supplierID, got.SupplierID)
		assert.Equal(t, "Stage Crew Ltda", got.SubCompany)
		assert.Equal(t, models.StatusPending, got.Status)
	})

	t.Run("active duplicate cpf is rejected with holder identity", func(t *testing.T) {
		eventID := domain.NewEventID()
		first := newAttendee(t, eventID, fixtureCPFs[1], domain.SupplierID{})
		require.NoError(t, s.CreateWithinLimit(ctx, first, -1))

		dup := newAttendee(t, eventID, fixtureCPFs[1], domain.SupplierID{})
		err := s.CreateWithinLimit(ctx, dup, -1)
		var dupErr *DuplicateCPFError
		require.True(t, errors.As(err, &dupErr))
		assert.Equal(t, first.ID, dupErr.AttendeeID)
		assert.Equal(t, first.Name, dupErr.Name)
	})

	t.Run("cancelled record frees the cpf", func(t *testing.T) {
		eventID := domain.NewEventID()
		first := newAttendee(t, eventID, fixtureCPFs[2], domain.SupplierID{})
		require.NoError(t, s.CreateWithinLimit(ctx, first, -1))

		_, err := s.Execute(ctx, eventID, first.ID,
			func(a *models.Attendee) error { return a.CanCancel(domain.RoleAdmin) },
			func(a *models.Attendee) { a.ApplyCancel(time.Now()) })
		require.NoError(t, err)

		again := newAttendee(t, eventID, fixtureCPFs[2], domain.SupplierID{})
		require.NoError(t, s.CreateWithinLimit(ctx, again, -1))
	})

	t.Run("supplier limit counts active registrations only", func(t *testing.T) {
		eventID := domain.NewEventID()
		supplierID := domain.NewSupplierID()

		first := newAttendee(t, eventID, fixtureCPFs[0], supplierID)
		require.NoError(t, s.CreateWithinLimit(ctx, first, 1))

		over := newAttendee(t, eventID, fixtureCPFs[1], supplierID)
		err := s.CreateWithinLimit(ctx, over, 1)
		assert.ErrorIs(t, err, sentinel.ErrLimitReached)

		_, err = s.Execute(ctx, eventID, first.ID,
			func(a *models.Attendee) error { return a.CanCancel(domain.RoleAdmin) },
			func(a *models.Attendee) { a.ApplyCancel(time.Now()) })
		require.NoError(t, err)
		require.NoError(t, s.CreateWithinLimit(ctx, over, 1))

		count, err := s.CountActiveBySupplier(ctx, eventID, supplierID)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("check-in issues wristbands and rejects code reuse", func(t *testing.T) {
		eventID := domain.NewEventID()
		sectorID := domain.NewSectorID()
		now := time.Now()

		first := newAttendee(t, eventID, fixtureCPFs[0], domain.SupplierID{}, sectorID)
		require.NoError(t, s.CreateWithinLimit(ctx, first, -1))
		second := newAttendee(t, eventID, fixtureCPFs[1], domain.SupplierID{}, sectorID)
		require.NoError(t, s.CreateWithinLimit(ctx, second, -1))

		code := wb(t, "WB-1001")
		checked, err := s.CheckIn(ctx, eventID, first.ID,
			map[domain.SectorID]domain.WristbandCode{sectorID: code}, domain.RoleStaff, "gate-3", now)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCheckedIn, checked.Status)
		assert.Equal(t, "gate-3", checked.CheckedInBy)

		_, err = s.CheckIn(ctx, eventID, second.ID,
			map[domain.SectorID]domain.WristbandCode{sectorID: code}, domain.RoleStaff, "gate-3", now)
		var conflict *WristbandConflictError
		require.True(t, errors.As(err, &conflict))
		assert.Equal(t, sectorID, conflict.SectorID)
		assert.Equal(t, first.ID, conflict.HolderID)

		found, err := s.FindByWristband(ctx, eventID, code)
		require.NoError(t, err)
		assert.Equal(t, first.ID, found.ID)
	})

	t.Run("pre-assigned wristbands claim the namespace at registration", func(t *testing.T) {
		eventID := domain.NewEventID()
		sectorID := domain.NewSectorID()
		now := time.Now()

		code := wb(t, "WB-3003")
		a := newAttendee(t, eventID, fixtureCPFs[0], domain.SupplierID{}, sectorID)
		require.NoError(t, a.AssignWristbands(map[domain.SectorID]domain.WristbandCode{sectorID: code}))
		require.NoError(t, s.CreateWithinLimit(ctx, a, -1))

		// The band resolves by scan while the record is still PENDING.
		found, err := s.FindByWristband(ctx, eventID, code)
		require.NoError(t, err)
		assert.Equal(t, a.ID, found.ID)
		assert.Equal(t, models.StatusPending, found.Status)

		// Another registration cannot claim the same code.
		other := newAttendee(t, eventID, fixtureCPFs[1], domain.SupplierID{}, sectorID)
		require.NoError(t, other.AssignWristbands(map[domain.SectorID]domain.WristbandCode{sectorID: code}))
		err = s.CreateWithinLimit(ctx, other, -1)
		var conflict *WristbandConflictError
		require.True(t, errors.As(err, &conflict))
		assert.Equal(t, a.ID, conflict.HolderID)

		// Check-in with the held code succeeds: no re-insert, no self-conflict.
		checked, err := s.CheckIn(ctx, eventID, a.ID,
			map[domain.SectorID]domain.WristbandCode{sectorID: code}, domain.RoleCheckpoint, "gate-1", now)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCheckedIn, checked.Status)
	})

	t.Run("undo check-in releases the codes", func(t *testing.T) {
		eventID := domain.NewEventID()
		sectorID := domain.NewSectorID()
		now := time.Now()

		a := newAttendee(t, eventID, fixtureCPFs[2], domain.SupplierID{}, sectorID)
		require.NoError(t, s.CreateWithinLimit(ctx, a, -1))

		code := wb(t, "WB-2002")
		_, err := s.CheckIn(ctx, eventID, a.ID,
			map[domain.SectorID]domain.WristbandCode{sectorID: code}, domain.RoleAdmin, "ops", now)
		require.NoError(t, err)

		_, err = s.Execute(ctx, eventID, a.ID,
			func(rec *models.Attendee) error { return rec.CanUndoCheckIn(domain.RoleAdmin) },
			func(rec *models.Attendee) { rec.ApplyUndoCheckIn(now) })
		require.NoError(t, err)

		_, err = s.FindByWristband(ctx, eventID, code)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("list filters by status supplier and sector", func(t *testing.T) {
		eventID := domain.NewEventID()
		supplierID := domain.NewSupplierID()
		sectorID := domain.NewSectorID()

		inSector := newAttendee(t, eventID, fixtureCPFs[0], supplierID, sectorID)
		require.NoError(t, s.CreateWithinLimit(ctx, inSector, -1))
		outside := newAttendee(t, eventID, fixtureCPFs[1], domain.SupplierID{})
		require.NoError(t, s.CreateWithinLimit(ctx, outside, -1))

		bySector, err := s.List(ctx, eventID, Filter{SectorID: sectorID})
		require.NoError(t, err)
		require.Len(t, bySector, 1)
		assert.Equal(t, inSector.ID, bySector[0].ID)

		bySupplier, err := s.List(ctx, eventID, Filter{SupplierID: supplierID})
		require.NoError(t, err)
		require.Len(t, bySupplier, 1)

		pending, err := s.List(ctx, eventID, Filter{Status: models.StatusPending})
		require.NoError(t, err)
		assert.Len(t, pending, 2)

		count, err := s.CountBySector(ctx, eventID, sectorID)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("search by cpf spans events, delete removes the record", func(t *testing.T) {
		cpf := fixtureCPFs[3]
		eventA := domain.NewEventID()
		eventB := domain.NewEventID()

		inA := newAttendee(t, eventA, cpf, domain.SupplierID{})
		require.NoError(t, s.CreateWithinLimit(ctx, inA, -1))
		inB := newAttendee(t, eventB, cpf, domain.SupplierID{})
		require.NoError(t, s.CreateWithinLimit(ctx, inB, -1))

		hits, err := s.SearchByCPF(ctx, inA.CPF)
		require.NoError(t, err)
		assert.Len(t, hits, 2)

		require.NoError(t, s.Delete(ctx, eventA, inA.ID))
		_, err = s.FindByID(ctx, eventA, inA.ID)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
		assert.ErrorIs(t, s.Delete(ctx, eventA, inA.ID), sentinel.ErrNotFound)
	})
}
