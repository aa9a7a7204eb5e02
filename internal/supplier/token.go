package supplier

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"gatepass/pkg/domain"
	dErrors "gatepass/pkg/domain-errors"
)

// Capability tokens give a supplier a scoped promoter view of one event.
// The token is a signed JWT carrying the supplier and event IDs plus a
// random secret; only the bcrypt hash of the secret is stored, so a leaked
// database cannot forge tokens that survive verification.

// TokenClaims is the JWT payload of a supplier capability token.
type TokenClaims struct {
	SupplierID string `json:"supplier_id"`
	EventID    string `json:"event_id"`
	Secret     string `json:"secret"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and verifies capability tokens.
type TokenIssuer struct {
	signingKey []byte
	ttl        time.Duration
}

func NewTokenIssuer(signingKey string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{signingKey: []byte(signingKey), ttl: ttl}
}

// Mint issues a token for the supplier and stores the secret hash on the
// record. The returned plaintext token is shown to the operator once.
func (i *TokenIssuer) Mint(s *Supplier, now time.Time) (string, error) {
	secretBytes := make([]byte, 16)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", fmt.Errorf("generate token secret: %w", err)
	}
	secret := hex.EncodeToString(secretBytes)

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash token secret: %w", err)
	}
	s.TokenHash = hash
	s.UpdatedAt = now

	claims := TokenClaims{
		SupplierID: s.ID.String(),
		EventID:    s.EventID.String(),
		Secret:     secret,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "gatepass",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign capability token: %w", err)
	}
	return signed, nil
}

// Verify parses the token and checks its secret against the supplier's
// stored hash. The caller resolves the supplier from the parsed IDs first.
func (i *TokenIssuer) Verify(tokenString string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.signingKey, nil
	})
	if err != nil || !token.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid capability token")
	}
	return claims, nil
}

// CheckSecret compares the token secret against the supplier's stored hash.
func CheckSecret(s *Supplier, secret string) error {
	if len(s.TokenHash) == 0 {
		return dErrors.New(dErrors.CodeUnauthorized, "supplier has no active token")
	}
	if err := bcrypt.CompareHashAndPassword(s.TokenHash, []byte(secret)); err != nil {
		return dErrors.New(dErrors.CodeUnauthorized, "capability token revoked")
	}
	return nil
}

// ParsedIDs resolves the typed IDs from the claims.
func (c *TokenClaims) ParsedIDs() (domain.EventID, domain.SupplierID, error) {
	eventID, err := domain.ParseEventID(c.EventID)
	if err != nil {
		return domain.EventID{}, domain.SupplierID{}, dErrors.New(dErrors.CodeUnauthorized, "malformed capability token")
	}
	supplierID, err := domain.ParseSupplierID(c.SupplierID)
	if err != nil {
		return domain.EventID{}, domain.SupplierID{}, dErrors.New(dErrors.CodeUnauthorized, "malformed capability token")
	}
	return eventID, supplierID, nil
}
