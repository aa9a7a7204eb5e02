//go:build integration

package supplier

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

	st := NewPostgresStore(pool)
	require.NoError(t, st.EnsureSchema(ctx))
	return st
}

func TestPostgresStore(t *testing.T) {
	ctx := context.Background()
	st := newPostgresStore(t)
	now := time.Now().UTC().Truncate(time.Millisecond)

	t.Run("create and find round-trip", func(t *testing.T) {
		eventID := domain.NewEventID()
		sectorID := domain.NewSectorID()
		s, err := NewSupplier(eventID, "Bar Norte", []domain.SectorID{sectorID}, 25, now)
		require.NoError(t, err)
		s.SubCompanies = []SubCompany{{Name: "Copa", SectorID: sectorID}}
		s.TokenHash = []byte("hash")
		require.NoError(t, st.Create(ctx, s))

		got, err := st.FindByID(ctx, eventID, s.ID)
		require.NoError(t, err)
		assert.Equal(t, s.Name, got.Name)
		assert.Equal(t, s.Sectors, got.Sectors)
		assert.Equal(t, 25, got.RegistrationLimit)
		assert.True(t, got.Active)
		assert.Equal(t, s.SubCompanies, got.SubCompanies)
		assert.Equal(t, s.TokenHash, got.TokenHash)
	})

	t.Run("duplicate id conflicts", func(t *testing.T) {
		eventID := domain.NewEventID()
		s, err := NewSupplier(eventID, "Seguranca", []domain.SectorID{domain.NewSectorID()}, 10, now)
		require.NoError(t, err)
		require.NoError(t, st.Create(ctx, s))
		assert.ErrorIs(t, st.Create(ctx, s), sentinel.ErrConflict)
	})

	t.Run("update persists and missing row is not found", func(t *testing.T) {
		eventID := domain.NewEventID()
		s, err := NewSupplier(eventID, "Limpeza", []domain.SectorID{domain.NewSectorID()}, 5, now)
		require.NoError(t, err)
		require.NoError(t, st.Create(ctx, s))

		s.Active = false
		s.RegistrationLimit = 8
		require.NoError(t, st.Update(ctx, s))

		got, err := st.FindByID(ctx, eventID, s.ID)
		require.NoError(t, err)
		assert.False(t, got.Active)
		assert.Equal(t, 8, got.RegistrationLimit)

		ghost, err := NewSupplier(eventID, "Ghost", []domain.SectorID{domain.NewSectorID()}, 1, now)
		require.NoError(t, err)
		assert.ErrorIs(t, st.Update(ctx, ghost), sentinel.ErrNotFound)
	})

	t.Run("list is event scoped and counts by sector", func(t *testing.T) {
		eventID := domain.NewEventID()
		sharedSector := domain.NewSectorID()
		a, err := NewSupplier(eventID, "A", []domain.SectorID{sharedSector}, 1, now)
		require.NoError(t, err)
		b, err := NewSupplier(eventID, "B", []domain.SectorID{sharedSector, domain.NewSectorID()}, 1, now.Add(time.Second))
		require.NoError(t, err)
		other, err := NewSupplier(domain.NewEventID(), "Elsewhere", []domain.SectorID{sharedSector}, 1, now)
		require.NoError(t, err)
		require.NoError(t, st.Create(ctx, a))
		require.NoError(t, st.Create(ctx, b))
		require.NoError(t, st.Create(ctx, other))

		list, err := st.List(ctx, eventID)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "A", list[0].Name)
		assert.Equal(t, "B", list[1].Name)

		count, err := st.CountBySector(ctx, eventID, sharedSector)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})
}
