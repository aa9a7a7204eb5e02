package domain

import (
	"strings"

	dErrors "gatepass/pkg/domain-errors"
)

// WristbandCode is the scannable code printed on a physical wristband.
// Codes are case-insensitive; we store the upper-cased form so the
// per-sector uniqueness scan never misses a collision on casing.
type WristbandCode string

// ParseWristbandCode trims and upper-cases a scanned code.
func ParseWristbandCode(raw string) (WristbandCode, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if code == "" {
		return "", dErrors.New(dErrors.CodeValidation, "wristband code is required")
	}
	if len(code) > 64 {
		return "", dErrors.New(dErrors.CodeValidation, "wristband code must be at most 64 characters")
	}
	return WristbandCode(code), nil
}

func (w WristbandCode) String() string { return string(w) }
