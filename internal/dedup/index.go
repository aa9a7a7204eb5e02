// Package dedup maintains the cross-event CPF index used by the global
// de-duplication policy. The index is advisory bookkeeping layered over the
// per-event uniqueness check the attendee store already enforces: it lets a
// registration in event B discover an active record in event A without
// scanning every event's collection.
package dedup

import (
	"context"

	"gatepass/pkg/domain"
)

// Claim records which attendee holds a CPF and where.
type Claim struct {
	EventID    domain.EventID    `json:"event_id"`
	AttendeeID domain.AttendeeID `json:"attendee_id"`
	Name       string            `json:"name"`
}

// Index is the cross-event CPF namespace.
type Index interface {
	// Claim registers the CPF for the given holder. Returns the existing
	// claim wrapped in sentinel.ErrConflict when another holder owns it.
	Claim(ctx context.Context, cpf domain.CPF, claim Claim) error

	// Lookup resolves the current holder, or sentinel.ErrNotFound.
	Lookup(ctx context.Context, cpf domain.CPF) (*Claim, error)

	// Release frees the CPF if (and only if) the given attendee holds it.
	// Releasing an unheld CPF is a no-op.
	Release(ctx context.Context, cpf domain.CPF, attendeeID domain.AttendeeID) error
}
