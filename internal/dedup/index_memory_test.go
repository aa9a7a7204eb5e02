package dedup

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatepass/pkg/domain"
	"gatepass/pkg/platform/sentinel"
)

func TestInMemoryIndex(t *testing.T) {
	ctx := context.Background()
	idx := NewInMemoryIndex()
	cpf := domain.CPF("52998224725")

	holder := Claim{EventID: domain.NewEventID(), AttendeeID: domain.NewAttendeeID(), Name: "Ana Souza"}
	require.NoError(t, idx.Claim(ctx, cpf, holder))

	t.Run("claim is idempotent for the same holder", func(t *testing.T) {
		require.NoError(t, idx.Claim(ctx, cpf, holder))
	})

	t.Run("another holder conflicts", func(t *testing.T) {
		other := Claim{EventID: domain.NewEventID(), AttendeeID: domain.NewAttendeeID(), Name: "Bruno Lima"}
		err := idx.Claim(ctx, cpf, other)
		require.Error(t, err)
		assert.True(t, errors.Is(err, sentinel.ErrConflict))
	})

	t.Run("lookup resolves the holder", func(t *testing.T) {
		claim, err := idx.Lookup(ctx, cpf)
		require.NoError(t, err)
		assert.Equal(t, holder.AttendeeID, claim.AttendeeID)
	})

	t.Run("release by a non-holder is a no-op", func(t *testing.T) {
		require.NoError(t, idx.Release(ctx, cpf, domain.NewAttendeeID()))
		_, err := idx.Lookup(ctx, cpf)
		require.NoError(t, err)
	})

	t.Run("release by the holder frees the cpf", func(t *testing.T) {
		require.NoError(t, idx.Release(ctx, cpf, holder.AttendeeID))
		_, err := idx.Lookup(ctx, cpf)
		assert.True(t, errors.Is(err, sentinel.ErrNotFound))
	})
}
