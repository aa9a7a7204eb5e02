// Package store persists attendee records. Implementations must provide the
// check-then-write atomicity the credential invariants depend on: supplier
// capacity, per-event CPF uniqueness, and the per-sector wristband namespace
// are all validated inside the same critical section (mutex or SQL
// transaction) that commits the write.
package store

import (
	"context"
	"fmt"
	"time"

	"gatepass/internal/attendee/models"
	"gatepass/pkg/domain"
	"gatepass/pkg/platform/sentinel"
)

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Status     models.CheckinStatus
	SupplierID domain.SupplierID
	SectorID   domain.SectorID
}

// Store is the event-scoped attendee collection.
type Store interface {
	// CreateWithinLimit inserts a new attendee after atomically checking
	// (a) the supplier's active-registration count against limit,
	// (b) the event's active-CPF namespace, and (c) the sector namespace of
	// any pre-assigned wristband codes. limit < 0 means unlimited.
	// Returns sentinel.ErrLimitReached, *DuplicateCPFError, or
	// *WristbandConflictError.
	CreateWithinLimit(ctx context.Context, a *models.Attendee, limit int) error

	FindByID(ctx context.Context, eventID domain.EventID, attendeeID domain.AttendeeID) (*models.Attendee, error)

	// FindActiveByCPF resolves a CPF within one event's active (non-
	// cancelled, non-rejected) attendee set.
	FindActiveByCPF(ctx context.Context, eventID domain.EventID, cpf domain.CPF) (*models.Attendee, error)

	// FindByWristband resolves a scanned code in any sector of the event.
	FindByWristband(ctx context.Context, eventID domain.EventID, code domain.WristbandCode) (*models.Attendee, error)

	List(ctx context.Context, eventID domain.EventID, filter Filter) ([]*models.Attendee, error)

	// SearchByCPF scans every event for records holding the CPF, for the
	// operator-invoked duplicate-prevention search.
	SearchByCPF(ctx context.Context, cpf domain.CPF) ([]*models.Attendee, error)

	// Execute atomically runs validate then mutate on one record under the
	// store's lock. If validate fails, the stored record is unchanged and
	// its error is returned as-is.
	Execute(ctx context.Context, eventID domain.EventID, attendeeID domain.AttendeeID,
		validate func(*models.Attendee) error, mutate func(*models.Attendee)) (*models.Attendee, error)

	// CheckIn commits an admission: validates the transition for the role,
	// checks every assigned code against the sector's issued-code namespace,
	// and applies the status change, all in one critical section.
	// Returns *WristbandConflictError when a code is already issued.
	CheckIn(ctx context.Context, eventID domain.EventID, attendeeID domain.AttendeeID,
		wristbands map[domain.SectorID]domain.WristbandCode, role domain.Role, by string, now time.Time) (*models.Attendee, error)

	// Delete physically removes the record, freeing its CPF.
	Delete(ctx context.Context, eventID domain.EventID, attendeeID domain.AttendeeID) error

	CountActiveBySupplier(ctx context.Context, eventID domain.EventID, supplierID domain.SupplierID) (int, error)
	CountBySector(ctx context.Context, eventID domain.EventID, sectorID domain.SectorID) (int, error)
}

// DuplicateCPFError reports the record already holding a CPF so operators
// can resolve the conflict manually.
type DuplicateCPFError struct {
	EventID    domain.EventID
	AttendeeID domain.AttendeeID
	Name       string
}

func (e *DuplicateCPFError) Error() string {
	return fmt.Sprintf("cpf already held by %q in event %s", e.Name, e.EventID)
}

func (e *DuplicateCPFError) Unwrap() error { return sentinel.ErrConflict }

// WristbandConflictError reports a code already issued in a sector.
type WristbandConflictError struct {
	SectorID domain.SectorID
	Code     domain.WristbandCode
	HolderID domain.AttendeeID
}

func (e *WristbandConflictError) Error() string {
	return fmt.Sprintf("wristband %s already issued in sector %s", e.Code, e.SectorID)
}

func (e *WristbandConflictError) Unwrap() error { return sentinel.ErrConflict }
