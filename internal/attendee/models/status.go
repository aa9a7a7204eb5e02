package models

import (
	"gatepass/pkg/domain"
	dErrors "gatepass/pkg/domain-errors"
)

// CheckinStatus is the canonical credential state. Earlier generations of
// this system carried divergent enums across UI variants; this one table is
// now the only source of truth.
type CheckinStatus string

const (
	StatusPending             CheckinStatus = "PENDING"
	StatusPendingApproval     CheckinStatus = "PENDING_APPROVAL"
	StatusSupplierReview      CheckinStatus = "SUPPLIER_REVIEW"
	StatusCheckedIn           CheckinStatus = "CHECKED_IN"
	StatusCheckedOut          CheckinStatus = "CHECKED_OUT"
	StatusMissed              CheckinStatus = "MISSED"
	StatusSubstitutionRequest CheckinStatus = "SUBSTITUTION_REQUEST"
	StatusSectorChangeRequest CheckinStatus = "SECTOR_CHANGE_REQUEST"
	StatusCancelled           CheckinStatus = "CANCELLED"
	StatusRejected            CheckinStatus = "REJECTED"
	StatusBlocked             CheckinStatus = "BLOCKED"
)

// AllStatuses lists every member of the enum, for exhaustiveness checks.
var AllStatuses = []CheckinStatus{
	StatusPending, StatusPendingApproval, StatusSupplierReview,
	StatusCheckedIn, StatusCheckedOut, StatusMissed,
	StatusSubstitutionRequest, StatusSectorChangeRequest,
	StatusCancelled, StatusRejected, StatusBlocked,
}

func (s CheckinStatus) IsValid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status only leaves via explicit reactivation
// or deletion.
func (s CheckinStatus) IsTerminal() bool {
	return s == StatusCancelled || s == StatusRejected
}

// IsActive reports whether the record counts toward supplier capacity and
// holds its CPF in the de-duplication namespace.
func (s CheckinStatus) IsActive() bool {
	return !s.IsTerminal()
}

type transition struct {
	from CheckinStatus
	to   CheckinStatus
}

// transitions is the single legal-transition table. A (from, to) pair absent
// from the map is illegal for every role; present pairs list the roles
// allowed to drive them. BLOCKED is handled separately in CanTransition
// because it is reachable from any non-terminal state.
var transitions = map[transition][]domain.Role{
	// Admission and movement at the gate.
	{StatusPending, StatusCheckedIn}:    {domain.RoleAdmin, domain.RoleStaff, domain.RoleCheckpoint},
	{StatusMissed, StatusCheckedIn}:     {domain.RoleAdmin, domain.RoleStaff, domain.RoleCheckpoint},
	{StatusCheckedIn, StatusCheckedOut}: {domain.RoleAdmin, domain.RoleStaff, domain.RoleCheckpoint},
	{StatusCheckedOut, StatusCheckedIn}: {domain.RoleAdmin, domain.RoleStaff, domain.RoleCheckpoint},
	{StatusCheckedIn, StatusPending}:    {domain.RoleAdmin, domain.RoleStaff},

	// Desk bookkeeping.
	{StatusPending, StatusMissed}:    {domain.RoleAdmin, domain.RoleStaff},
	{StatusPending, StatusCancelled}: {domain.RoleAdmin, domain.RoleStaff},
	{StatusMissed, StatusCancelled}:  {domain.RoleAdmin, domain.RoleStaff},

	// Approval-gated proposals. Promoters may only enter request states;
	// staff can open a substitution at the desk as well.
	{StatusPending, StatusSubstitutionRequest}:    {domain.RoleAdmin, domain.RoleStaff, domain.RolePromoter},
	{StatusMissed, StatusSubstitutionRequest}:     {domain.RoleAdmin, domain.RoleStaff},
	{StatusPending, StatusSectorChangeRequest}:    {domain.RolePromoter},
	{StatusSubstitutionRequest, StatusPending}:    {domain.RoleAdmin},
	{StatusSectorChangeRequest, StatusPending}:    {domain.RoleAdmin},
	{StatusPendingApproval, StatusPending}:        {domain.RoleAdmin},
	{StatusPendingApproval, StatusRejected}:       {domain.RoleAdmin},
	{StatusSupplierReview, StatusPendingApproval}: {domain.RoleAdmin, domain.RolePromoter},
	{StatusSupplierReview, StatusRejected}:        {domain.RoleAdmin},

	// Reactivation out of terminal-ish states.
	{StatusCancelled, StatusPending}: {domain.RoleAdmin, domain.RoleStaff},
	{StatusRejected, StatusPending}:  {domain.RoleAdmin},

	// Unblock.
	{StatusBlocked, StatusPending}: {domain.RoleAdmin},
}

// CanTransition reports whether role may move an attendee from one status to
// another. Failure identifies the attempted (from, to, role) triple.
func CanTransition(from, to CheckinStatus, role domain.Role) error {
	if !to.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown status %q", to)
	}
	if to == StatusBlocked {
		// Block authority may freeze any non-terminal credential.
		if from.IsTerminal() || from == StatusBlocked {
			return invalidTransition(from, to, role)
		}
		if role == domain.RoleAdmin || role == domain.RolePromoter {
			return nil
		}
		return invalidTransition(from, to, role)
	}
	roles, ok := transitions[transition{from: from, to: to}]
	if !ok {
		return invalidTransition(from, to, role)
	}
	for _, allowed := range roles {
		if role == allowed {
			return nil
		}
	}
	return invalidTransition(from, to, role)
}

func invalidTransition(from, to CheckinStatus, role domain.Role) error {
	return dErrors.Newf(dErrors.CodeInvalidTransition,
		"transition %s -> %s is not allowed for role %s", from, to, role).
		WithDetail("from", string(from)).
		WithDetail("to", string(to)).
		WithDetail("role", string(role))
}

// NextScanAction computes what a general-checkpoint scan does for a given
// current status. ok=false means the code resolved but no action is legal.
func NextScanAction(current CheckinStatus) (CheckinStatus, bool) {
	switch current {
	case StatusPending, StatusMissed, StatusCheckedOut:
		return StatusCheckedIn, true
	case StatusCheckedIn:
		return StatusCheckedOut, true
	default:
		return "", false
	}
}
