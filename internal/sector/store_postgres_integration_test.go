//go:build integration

package sector

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

	t.Run("sector round-trip, update and delete", func(t *testing.T) {
		eventID := domain.NewEventID()
		s, err := NewSector(eventID, "Pista", "#00FF00", now)
		require.NoError(t, err)
		require.NoError(t, st.CreateSector(ctx, s))

		got, err := st.FindSector(ctx, eventID, s.ID)
		require.NoError(t, err)
		assert.Equal(t, "Pista", got.Label)
		assert.Equal(t, "#00FF00", got.Color)

		s.Label = "Pista Premium"
		require.NoError(t, st.UpdateSector(ctx, s))
		got, err = st.FindSector(ctx, eventID, s.ID)
		require.NoError(t, err)
		assert.Equal(t, "Pista Premium", got.Label)

		require.NoError(t, st.DeleteSector(ctx, eventID, s.ID))
		_, err = st.FindSector(ctx, eventID, s.ID)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("list is event scoped", func(t *testing.T) {
		eventID := domain.NewEventID()
		a, err := NewSector(eventID, "Backstage", "", now)
		require.NoError(t, err)
		b, err := NewSector(eventID, "Camarote", "", now.Add(time.Second))
		require.NoError(t, err)
		other, err := NewSector(domain.NewEventID(), "Elsewhere", "", now)
		require.NoError(t, err)
		require.NoError(t, st.CreateSector(ctx, a))
		require.NoError(t, st.CreateSector(ctx, b))
		require.NoError(t, st.CreateSector(ctx, other))

		list, err := st.ListSectors(ctx, eventID)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "Backstage", list[0].Label)
		assert.Equal(t, "Camarote", list[1].Label)
	})

	t.Run("validation points round-trip and count by sector", func(t *testing.T) {
		eventID := domain.NewEventID()
		s, err := NewSector(eventID, "VIP", "", now)
		require.NoError(t, err)
		require.NoError(t, st.CreateSector(ctx, s))

		p1, err := NewValidationPoint(eventID, s.ID, "Portao Leste", now)
		require.NoError(t, err)
		p2, err := NewValidationPoint(eventID, s.ID, "Portao Oeste", now.Add(time.Second))
		require.NoError(t, err)
		require.NoError(t, st.CreatePoint(ctx, p1))
		require.NoError(t, st.CreatePoint(ctx, p2))

		got, err := st.FindPoint(ctx, eventID, p1.ID)
		require.NoError(t, err)
		assert.Equal(t, s.ID, got.SectorID)
		assert.Equal(t, "Portao Leste", got.Label)

		points, err := st.ListPoints(ctx, eventID)
		require.NoError(t, err)
		assert.Len(t, points, 2)

		count, err := st.CountPointsBySector(ctx, eventID, s.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		require.NoError(t, st.DeletePoint(ctx, eventID, p2.ID))
		count, err = st.CountPointsBySector(ctx, eventID, s.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}
