// Package domain holds the typed identifiers and value objects shared by
// every module. IDs are distinct types over uuid.UUID so the compiler keeps
// an AttendeeID from ever being passed where a SectorID is expected.
package domain

import (
	"github.com/google/uuid"

	dErrors "gatepass/pkg/domain-errors"
)

type (
	// EventID identifies one event. Every collection is scoped by it.
	EventID uuid.UUID
	// AttendeeID identifies an attendee within an event.
	AttendeeID uuid.UUID
	// SectorID identifies an access zone / credential class.
	SectorID uuid.UUID
	// SupplierID identifies a delegated registrant (promoter/vendor).
	SupplierID uuid.UUID
	// ValidationPointID identifies an unattended sector checkpoint.
	ValidationPointID uuid.UUID
)

func (id EventID) String() string           { return uuid.UUID(id).String() }
func (id AttendeeID) String() string        { return uuid.UUID(id).String() }
func (id SectorID) String() string          { return uuid.UUID(id).String() }
func (id SupplierID) String() string        { return uuid.UUID(id).String() }
func (id ValidationPointID) String() string { return uuid.UUID(id).String() }

func (id EventID) IsNil() bool           { return uuid.UUID(id) == uuid.Nil }
func (id AttendeeID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id SectorID) IsNil() bool          { return uuid.UUID(id) == uuid.Nil }
func (id SupplierID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id ValidationPointID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// parseUUID enforces the shared invariant: IDs must be valid, non-nil UUIDs.
func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id is required")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id must be a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id must not be the nil UUID")
	}
	return parsed, nil
}

func ParseEventID(raw string) (EventID, error) {
	u, err := parseUUID(raw, "event")
	return EventID(u), err
}

func ParseAttendeeID(raw string) (AttendeeID, error) {
	u, err := parseUUID(raw, "attendee")
	return AttendeeID(u), err
}

func ParseSectorID(raw string) (SectorID, error) {
	u, err := parseUUID(raw, "sector")
	return SectorID(u), err
}

func ParseSupplierID(raw string) (SupplierID, error) {
	u, err := parseUUID(raw, "supplier")
	return SupplierID(u), err
}

func ParseValidationPointID(raw string) (ValidationPointID, error) {
	u, err := parseUUID(raw, "validation point")
	return ValidationPointID(u), err
}

// Text marshaling renders IDs as canonical UUID strings in JSON, including
// as map keys (wristbands are keyed by sector).

func (id EventID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id *EventID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	*id = EventID(u)
	return err
}

func (id AttendeeID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id *AttendeeID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	*id = AttendeeID(u)
	return err
}

func (id SectorID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id *SectorID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	*id = SectorID(u)
	return err
}

func (id SupplierID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id *SupplierID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	*id = SupplierID(u)
	return err
}

func (id ValidationPointID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id *ValidationPointID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	*id = ValidationPointID(u)
	return err
}

func NewEventID() EventID                     { return EventID(uuid.New()) }
func NewAttendeeID() AttendeeID               { return AttendeeID(uuid.New()) }
func NewSectorID() SectorID                   { return SectorID(uuid.New()) }
func NewSupplierID() SupplierID               { return SupplierID(uuid.New()) }
func NewValidationPointID() ValidationPointID { return ValidationPointID(uuid.New()) }
