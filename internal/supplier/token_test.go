package supplier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatepass/pkg/domain"
	dErrors "gatepass/pkg/domain-errors"
)

func newTestSupplier(t *testing.T) *Supplier {
	t.Helper()
	s, err := NewSupplier(domain.NewEventID(), "Stagehands Ltd", []domain.SectorID{domain.NewSectorID()}, 10, time.Now().UTC())
	require.NoError(t, err)
	return s
}

func TestTokenIssuer_MintVerifyRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-signing-key", time.Hour)
	sup := newTestSupplier(t)

	token, err := issuer.Mint(sup, time.Now().UTC())
	require.NoError(t, err)
	require.NotEmpty(t, sup.TokenHash)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)

	eventID, supplierID, err := claims.ParsedIDs()
	require.NoError(t, err)
	assert.Equal(t, sup.EventID, eventID)
	assert.Equal(t, sup.ID, supplierID)

	assert.NoError(t, CheckSecret(sup, claims.Secret))
}

func TestTokenIssuer_RejectsWrongKey(t *testing.T) {
	issuer := NewTokenIssuer("key-one", time.Hour)
	other := NewTokenIssuer("key-two", time.Hour)
	sup := newTestSupplier(t)

	token, err := issuer.Mint(sup, time.Now().UTC())
	require.NoError(t, err)

	_, err = other.Verify(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestTokenIssuer_RejectsExpired(t *testing.T) {
	issuer := NewTokenIssuer("test-signing-key", time.Minute)
	sup := newTestSupplier(t)

	token, err := issuer.Mint(sup, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestCheckSecret_RemintRevokesOldToken(t *testing.T) {
	issuer := NewTokenIssuer("test-signing-key", time.Hour)
	sup := newTestSupplier(t)

	first, err := issuer.Mint(sup, time.Now().UTC())
	require.NoError(t, err)
	firstClaims, err := issuer.Verify(first)
	require.NoError(t, err)

	_, err = issuer.Mint(sup, time.Now().UTC())
	require.NoError(t, err)

	err = CheckSecret(sup, firstClaims.Secret)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestCheckSecret_NoTokenMinted(t *testing.T) {
	sup := newTestSupplier(t)
	err := CheckSecret(sup, "anything")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
