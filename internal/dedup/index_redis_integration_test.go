//go:build integration

package dedup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatepass/pkg/domain"
	"gatepass/pkg/platform/sentinel"
	"gatepass/pkg/testutil/containers"
)

func TestRedisIndex(t *testing.T) {
	ctx := context.Background()
	rc := containers.NewRedisContainer(t)
	idx := NewRedisIndex(rc.Client)

	cpf, err := domain.ParseCPF("52998224725")
	require.NoError(t, err)

	claim := Claim{
		EventID:    domain.NewEventID(),
		AttendeeID: domain.NewAttendeeID(),
		Name:       "Ana Souza",
	}

	t.Run("claim then lookup resolves the holder", func(t *testing.T) {
		require.NoError(t, idx.Claim(ctx, cpf, claim))

		got, err := idx.Lookup(ctx, cpf)
		require.NoError(t, err)
		assert.Equal(t, claim.AttendeeID, got.AttendeeID)
		assert.Equal(t, claim.EventID, got.EventID)
		assert.Equal(t, "Ana Souza", got.Name)
	})

	t.Run("claim is idempotent for the same holder", func(t *testing.T) {
		assert.NoError(t, idx.Claim(ctx, cpf, claim))
	})

	t.Run("competing claim reports a conflict", func(t *testing.T) {
		other := Claim{
			EventID:    domain.NewEventID(),
			AttendeeID: domain.NewAttendeeID(),
			Name:       "Bruno Lima",
		}
		err := idx.Claim(ctx, cpf, other)
		assert.ErrorIs(t, err, sentinel.ErrConflict)
	})

	t.Run("release by a non-holder is a no-op", func(t *testing.T) {
		require.NoError(t, idx.Release(ctx, cpf, domain.NewAttendeeID()))
		_, err := idx.Lookup(ctx, cpf)
		assert.NoError(t, err)
	})

	t.Run("release by the holder frees the cpf", func(t *testing.T) {
		require.NoError(t, idx.Release(ctx, cpf, claim.AttendeeID))
		_, err := idx.Lookup(ctx, cpf)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)

		// A fresh claim succeeds after release.
		assert.NoError(t, idx.Claim(ctx, cpf, claim))
	})
}
