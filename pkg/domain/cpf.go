package domain

import (
	"strings"

	dErrors "gatepass/pkg/domain-errors"
)

// CPF is a normalized Brazilian national ID: exactly 11 digits, check digits
// verified. It is the natural de-duplication key for attendee records.
type CPF string

// ParseCPF normalizes punctuation ("123.456.789-01" and bare digit forms are
// equivalent) and validates length, digit content, and both check digits.
func ParseCPF(raw string) (CPF, error) {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == ' ':
			// separators are ignored
		default:
			return "", dErrors.New(dErrors.CodeValidation, "cpf contains invalid characters")
		}
	}
	digits := b.String()
	if len(digits) != 11 {
		return "", dErrors.New(dErrors.CodeValidation, "cpf must have exactly 11 digits")
	}
	if allSameDigit(digits) {
		return "", dErrors.New(dErrors.CodeValidation, "cpf is not a valid number")
	}
	if digits[9] != cpfCheckDigit(digits[:9]) || digits[10] != cpfCheckDigit(digits[:10]) {
		return "", dErrors.New(dErrors.CodeValidation, "cpf check digits do not match")
	}
	return CPF(digits), nil
}

func (c CPF) String() string { return string(c) }

// Masked renders the CPF for logs: only the first three and last two digits.
func (c CPF) Masked() string {
	if len(c) != 11 {
		return "***"
	}
	return string(c[:3]) + "******" + string(c[9:])
}

func allSameDigit(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}

// cpfCheckDigit computes the standard mod-11 check digit over the prefix.
func cpfCheckDigit(prefix string) byte {
	sum := 0
	weight := len(prefix) + 1
	for i := 0; i < len(prefix); i++ {
		sum += int(prefix[i]-'0') * (weight - i)
	}
	rest := (sum * 10) % 11
	if rest == 10 {
		rest = 0
	}
	return byte('0' + rest)
}
