package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "gatepass/pkg/domain-errors"
)

// TestParseCPF_Invariants validates the parsing invariant: a CPF is exactly
// 11 digits with matching check digits, regardless of input punctuation.
func TestParseCPF_Invariants(t *testing.T) {
	t.Run("accepts bare digits", func(t *testing.T) {
		cpf, err := ParseCPF("52998224725")
		require.NoError(t, err)
		assert.Equal(t, CPF("52998224725"), cpf)
	})

	t.Run("normalizes punctuation", func(t *testing.T) {
		cpf, err := ParseCPF("529.982.247-25")
		require.NoError(t, err)
		assert.Equal(t, CPF("52998224725"), cpf)
	})

	t.Run("rejects wrong length", func(t *testing.T) {
		_, err := ParseCPF("1234567890")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects letters", func(t *testing.T) {
		_, err := ParseCPF("5299822472a")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects bad check digits", func(t *testing.T) {
		_, err := ParseCPF("52998224726")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects repeated-digit numbers", func(t *testing.T) {
		_, err := ParseCPF("11111111111")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestCPF_Masked(t *testing.T) {
	cpf, err := ParseCPF("52998224725")
	require.NoError(t, err)
	assert.Equal(t, "529******25", cpf.Masked())
}
