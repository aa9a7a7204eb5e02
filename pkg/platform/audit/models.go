// Package audit captures the append-only trail of credential mutations and
// checkpoint activity. Events are emitted by services through a Publisher;
// sinks range from an in-memory store (tests) to PostgreSQL and Kafka.
package audit

import (
	"time"

	"gatepass/pkg/domain"
)

// Kind labels what happened.
type Kind string

const (
	KindAttendeeRegistered Kind = "attendee_registered"
	KindStatusChanged      Kind = "status_changed"
	KindProposalSubmitted  Kind = "proposal_submitted"
	KindProposalApproved   Kind = "proposal_approved"
	KindProposalRejected   Kind = "proposal_rejected"
	KindAttendeeBlocked    Kind = "attendee_blocked"
	KindAttendeeDeleted    Kind = "attendee_deleted"
	KindSectorEntry        Kind = "sector_entry"
	KindBulkApplied        Kind = "bulk_applied"
)

// Event is one audit record. Detail carries kind-specific fields (previous
// status, wristband codes, block reason) as flat strings so every sink can
// serialize it without schema knowledge.
type Event struct {
	Kind       Kind              `json:"kind"`
	EventID    domain.EventID    `json:"event_id"`
	AttendeeID domain.AttendeeID `json:"attendee_id,omitempty"`
	Actor      string            `json:"actor,omitempty"`
	ActorRole  domain.Role       `json:"actor_role,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
	Detail     map[string]string `json:"detail,omitempty"`
}
