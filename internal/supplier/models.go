// Package supplier manages delegated registrants: promoters and vendors who
// may register attendees into a restricted set of sectors, up to a limit,
// through the approval gate.
package supplier

import (
	"time"

	"gatepass/pkg/domain"
	dErrors "gatepass/pkg/domain-errors"
)

// SubCompany is a free-text sub-grouping a supplier may register under,
// pinned to one of its sectors.
type SubCompany struct {
	Name     string          `json:"name"`
	SectorID domain.SectorID `json:"sector_id"`
}

// Supplier is a delegated registrant.
//
// Invariants:
//   - RegistrationLimit >= 0; the count of non-cancelled attendees with this
//     supplier never exceeds it (enforced by the attendee store's
//     transactional count-then-insert)
//   - Sectors is the full set of zones the supplier may register into
//   - An inactive supplier cannot register or mint tokens
type Supplier struct {
	ID                domain.SupplierID `json:"id"`
	EventID           domain.EventID    `json:"event_id"`
	Name              string            `json:"name"`
	Sectors           []domain.SectorID `json:"sectors"`
	RegistrationLimit int               `json:"registration_limit"`
	Active            bool              `json:"active"`
	SubCompanies      []SubCompany      `json:"sub_companies,omitempty"`

	// TokenHash is the bcrypt hash of the capability token secret. The
	// plaintext is returned exactly once, at mint time.
	TokenHash []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewSupplier(eventID domain.EventID, name string, sectors []domain.SectorID, limit int, now time.Time) (*Supplier, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "supplier name is required")
	}
	if len(sectors) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "supplier needs at least one sector")
	}
	if limit < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "registration limit must not be negative")
	}
	return &Supplier{
		ID:                domain.NewSupplierID(),
		EventID:           eventID,
		Name:              name,
		Sectors:           append([]domain.SectorID{}, sectors...),
		RegistrationLimit: limit,
		Active:            true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// CoversSectors reports whether every requested sector is within the
// supplier's allowed set.
func (s *Supplier) CoversSectors(sectors []domain.SectorID) bool {
	for _, requested := range sectors {
		found := false
		for _, allowed := range s.Sectors {
			if requested == allowed {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
