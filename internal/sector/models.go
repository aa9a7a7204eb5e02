// Package sector manages the physical zones of an event and the validation
// points mounted at their entrances.
package sector

import (
	"time"

	"gatepass/pkg/domain"
	dErrors "gatepass/pkg/domain-errors"
)

// Sector is a physical zone within an event. Wristband codes are unique per
// sector, not per event, so two sectors may reuse the same code.
type Sector struct {
	ID        domain.SectorID `json:"id"`
	EventID   domain.EventID  `json:"event_id"`
	Label     string          `json:"label"`
	Color     string          `json:"color,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func NewSector(eventID domain.EventID, label, color string, now time.Time) (*Sector, error) {
	if label == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "sector label is required")
	}
	return &Sector{
		ID:        domain.NewSectorID(),
		EventID:   eventID,
		Label:     label,
		Color:     color,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ValidationPoint is a scan device bound to one sector. A scan at the point
// validates entry into that sector.
type ValidationPoint struct {
	ID        domain.ValidationPointID `json:"id"`
	EventID   domain.EventID           `json:"event_id"`
	SectorID  domain.SectorID          `json:"sector_id"`
	Label     string                   `json:"label"`
	CreatedAt time.Time                `json:"created_at"`
}

func NewValidationPoint(eventID domain.EventID, sectorID domain.SectorID, label string, now time.Time) (*ValidationPoint, error) {
	if label == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "validation point label is required")
	}
	if sectorID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "validation point needs a sector")
	}
	return &ValidationPoint{
		ID:        domain.NewValidationPointID(),
		EventID:   eventID,
		SectorID:  sectorID,
		Label:     label,
		CreatedAt: now,
	}, nil
}
