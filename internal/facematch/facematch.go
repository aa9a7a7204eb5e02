// Package facematch defines the identity-verification oracle consulted at
// sector validation points. The oracle compares the photo captured at the
// gate against the photo registered on the credential.
package facematch

import "context"

// Result is the oracle's verdict.
type Result string

const (
	ResultMatch   Result = "MATCH"
	ResultNoMatch Result = "NO_MATCH"
	// ResultError means the oracle could not produce a verdict. Gates treat
	// it as advisory and fall back to manual inspection.
	ResultError Result = "ERROR"
)

// Oracle compares a captured photo against the registered reference.
//
//go:generate mockgen -source=facematch.go -destination=mock_facematch.go -package=facematch
type Oracle interface {
	Compare(ctx context.Context, registeredRef, capturedRef string) (Result, error)
}
