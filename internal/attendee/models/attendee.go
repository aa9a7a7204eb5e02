package models

import (
	"time"

	"gatepass/pkg/domain"
	dErrors "gatepass/pkg/domain-errors"
)

// Attendee is the aggregate root for one access credential.
//
// Invariants:
//   - Status is always a member of the CheckinStatus enum
//   - A wristband code is unique within (event, sector); the store enforces
//     the namespace, the aggregate enforces shape (codes only for sectors
//     the credential covers)
//   - CPF is unique among the event's active attendees
//   - Canonical fields (Name, CPF, PhotoRef, Sectors) change only by direct
//     admin edit or by an approved proposal, never by a promoter directly
//
// Mutations follow the Can*/Apply* split so stores can run
// validate-then-mutate atomically under their own lock (Execute pattern):
// either the full set of field changes (status + wristbands + audit stamp)
// commits, or none does.
type Attendee struct {
	ID         domain.AttendeeID `json:"id"`
	EventID    domain.EventID    `json:"event_id"`
	Name       string            `json:"name"`
	CPF        domain.CPF        `json:"cpf"`
	PhotoRef   string            `json:"photo_ref"`
	Sectors    []domain.SectorID `json:"sectors"`
	SupplierID domain.SupplierID `json:"supplier_id,omitempty"`
	SubCompany string            `json:"sub_company,omitempty"`

	Status      CheckinStatus `json:"status"`
	BlockReason string        `json:"block_reason,omitempty"`
	Proposal    *Proposal     `json:"proposal,omitempty"`

	// One physical token per sector the credential covers.
	Wristbands map[domain.SectorID]domain.WristbandCode `json:"wristbands,omitempty"`

	// Live interior location tracking, written by sector validation points.
	CurrentSectorID   domain.SectorID `json:"current_sector_id,omitempty"`
	LastSectorEntryAt *time.Time      `json:"last_sector_entry_at,omitempty"`

	// Audit stamps.
	CheckinTime  *time.Time `json:"checkin_time,omitempty"`
	CheckoutTime *time.Time `json:"checkout_time,omitempty"`
	CheckedInBy  string     `json:"checked_in_by,omitempty"`
	CheckedOutBy string     `json:"checked_out_by,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewAttendee constructs a registration-complete attendee in its initial
// status. Required fields: name, cpf, photo, at least one sector.
func NewAttendee(eventID domain.EventID, name string, cpf domain.CPF, photoRef string, sectors []domain.SectorID, initial CheckinStatus, now time.Time) (*Attendee, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "attendee name is required")
	}
	if len(name) > 200 {
		return nil, dErrors.New(dErrors.CodeValidation, "attendee name must be 200 characters or less")
	}
	if cpf == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "attendee cpf is required")
	}
	if photoRef == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "attendee photo is required")
	}
	if len(sectors) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "attendee needs at least one sector")
	}
	if initial != StatusPending && initial != StatusPendingApproval && initial != StatusSupplierReview {
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "%s is not a valid initial status", initial)
	}
	return &Attendee{
		ID:        domain.NewAttendeeID(),
		EventID:   eventID,
		Name:      name,
		CPF:       cpf,
		PhotoRef:  photoRef,
		Sectors:   append([]domain.SectorID{}, sectors...),
		Status:    initial,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// HasSector reports whether the credential covers the given sector.
func (a *Attendee) HasSector(sectorID domain.SectorID) bool {
	for _, s := range a.Sectors {
		if s == sectorID {
			return true
		}
	}
	return false
}

// WristbandSector resolves a scanned code to the sector it was issued for.
func (a *Attendee) WristbandSector(code domain.WristbandCode) (domain.SectorID, bool) {
	for sectorID, issued := range a.Wristbands {
		if issued == code {
			return sectorID, true
		}
	}
	return domain.SectorID{}, false
}

// AssignWristbands records codes issued ahead of admission, e.g. bands
// distributed with the registration packet. Codes may only target sectors the
// credential covers; the store checks the per-sector namespace on insert.
func (a *Attendee) AssignWristbands(wristbands map[domain.SectorID]domain.WristbandCode) error {
	for sectorID := range wristbands {
		if !a.HasSector(sectorID) {
			return dErrors.Newf(dErrors.CodeValidation,
				"credential does not cover sector %s", sectorID)
		}
	}
	if len(wristbands) == 0 {
		return nil
	}
	if a.Wristbands == nil {
		a.Wristbands = make(map[domain.SectorID]domain.WristbandCode, len(wristbands))
	}
	for sectorID, code := range wristbands {
		a.Wristbands[sectorID] = code
	}
	return nil
}

// CanCheckIn validates admission. First admission needs a wristband code for
// every sector the credential covers, taken from the request or already held
// from registration; re-entry after check-out keeps the codes already issued.
func (a *Attendee) CanCheckIn(role domain.Role, wristbands map[domain.SectorID]domain.WristbandCode) error {
	if err := CanTransition(a.Status, StatusCheckedIn, role); err != nil {
		return err
	}
	if a.Status == StatusCheckedOut {
		// Re-entry: wristbands already on the attendee's wrist.
		return nil
	}
	for _, sectorID := range a.Sectors {
		_, incoming := wristbands[sectorID]
		_, held := a.Wristbands[sectorID]
		if !incoming && !held {
			return dErrors.Newf(dErrors.CodeValidation,
				"wristband code missing for sector %s", sectorID)
		}
	}
	for sectorID, code := range wristbands {
		if !a.HasSector(sectorID) {
			return dErrors.Newf(dErrors.CodeValidation,
				"credential does not cover sector %s", sectorID)
		}
		if held, ok := a.Wristbands[sectorID]; ok && held != code {
			return dErrors.Newf(dErrors.CodeConflict,
				"sector %s already has wristband %s assigned", sectorID, held)
		}
	}
	return nil
}

// ApplyCheckIn commits the admission, merging any new codes over the ones
// already held. A fresh CheckinTime is set on every entry, including re-entry.
func (a *Attendee) ApplyCheckIn(wristbands map[domain.SectorID]domain.WristbandCode, by string, now time.Time) {
	if a.Status != StatusCheckedOut && len(wristbands) > 0 {
		if a.Wristbands == nil {
			a.Wristbands = make(map[domain.SectorID]domain.WristbandCode, len(wristbands))
		}
		for sectorID, code := range wristbands {
			a.Wristbands[sectorID] = code
		}
	}
	a.Status = StatusCheckedIn
	t := now
	a.CheckinTime = &t
	a.CheckedInBy = by
	a.UpdatedAt = now
}

func (a *Attendee) CanCheckOut(role domain.Role) error {
	return CanTransition(a.Status, StatusCheckedOut, role)
}

func (a *Attendee) ApplyCheckOut(by string, now time.Time) {
	a.Status = StatusCheckedOut
	t := now
	a.CheckoutTime = &t
	a.CheckedOutBy = by
	a.CurrentSectorID = domain.SectorID{}
	a.UpdatedAt = now
}

// CanUndoCheckIn validates reverting an accidental admission.
func (a *Attendee) CanUndoCheckIn(role domain.Role) error {
	return CanTransition(a.Status, StatusPending, role)
}

// ApplyUndoCheckIn reverts to PENDING and releases the issued wristbands so
// their codes return to the sector namespace.
func (a *Attendee) ApplyUndoCheckIn(now time.Time) {
	a.Status = StatusPending
	a.Wristbands = nil
	a.CheckinTime = nil
	a.CheckedInBy = ""
	a.CurrentSectorID = domain.SectorID{}
	a.LastSectorEntryAt = nil
	a.UpdatedAt = now
}

func (a *Attendee) CanMarkMissed(role domain.Role) error {
	return CanTransition(a.Status, StatusMissed, role)
}

func (a *Attendee) ApplyMarkMissed(now time.Time) {
	a.Status = StatusMissed
	a.UpdatedAt = now
}

func (a *Attendee) CanCancel(role domain.Role) error {
	return CanTransition(a.Status, StatusCancelled, role)
}

// ApplyCancel frees the CPF for re-registration and drops any pending
// proposal.
func (a *Attendee) ApplyCancel(now time.Time) {
	a.Status = StatusCancelled
	a.Proposal = nil
	a.UpdatedAt = now
}

// CanReactivate validates leaving CANCELLED or REJECTED back to PENDING.
func (a *Attendee) CanReactivate(role domain.Role) error {
	return CanTransition(a.Status, StatusPending, role)
}

func (a *Attendee) ApplyReactivate(now time.Time) {
	a.Status = StatusPending
	a.UpdatedAt = now
}

func (a *Attendee) CanBlock(role domain.Role) error {
	return CanTransition(a.Status, StatusBlocked, role)
}

func (a *Attendee) ApplyBlock(reason string, now time.Time) {
	a.Status = StatusBlocked
	a.BlockReason = reason
	a.UpdatedAt = now
}

func (a *Attendee) CanUnblock(role domain.Role) error {
	return CanTransition(a.Status, StatusPending, role)
}

func (a *Attendee) ApplyUnblock(now time.Time) {
	a.Status = StatusPending
	a.BlockReason = ""
	a.UpdatedAt = now
}

// CanPropose validates submitting a change request: the current status must
// be a legal source for that proposal's request state, for the given role.
func (a *Attendee) CanPropose(kind ProposalKind, role domain.Role) error {
	return CanTransition(a.Status, kind.requestStatus(), role)
}

// ApplyPropose parks the attendee in the request status with the proposal
// payload attached. Canonical fields stay untouched.
func (a *Attendee) ApplyPropose(p Proposal, now time.Time) {
	p.SubmittedAt = now
	a.Status = p.Kind.requestStatus()
	a.Proposal = &p
	a.UpdatedAt = now
}

// CanApprove validates an admin approval of the pending proposal.
func (a *Attendee) CanApprove(role domain.Role) error {
	if a.Proposal == nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "attendee has no pending proposal")
	}
	return CanTransition(a.Status, StatusPending, role)
}

// ApplyApprove copies the proposal payload onto the canonical record and
// returns the attendee to PENDING.
func (a *Attendee) ApplyApprove(now time.Time) {
	p := a.Proposal
	switch p.Kind {
	case ProposalSubstitution:
		a.Name = p.Name
		a.CPF = p.CPF
		a.PhotoRef = p.PhotoRef
		if len(p.Sectors) > 0 {
			a.Sectors = append([]domain.SectorID{}, p.Sectors...)
		}
		// A substituted credential belongs to a new person; any issued
		// wristbands are void.
		a.Wristbands = nil
	case ProposalSectorChange:
		a.Sectors = append([]domain.SectorID{}, p.Sectors...)
	case ProposalNewRegistration:
		// Canonical fields were written at registration; approval only
		// releases the credential.
	}
	a.Status = StatusPending
	a.Proposal = nil
	a.UpdatedAt = now
}

// HasPendingProposal reports whether the attendee sits in a request status
// with a payload attached.
func (a *Attendee) HasPendingProposal() bool {
	switch a.Status {
	case StatusSubstitutionRequest, StatusSectorChangeRequest, StatusPendingApproval, StatusSupplierReview:
		return a.Proposal != nil
	}
	return false
}

// ApplyReject discards the pending proposal. Edit requests revert to
// PENDING; new registrations are rejected outright.
func (a *Attendee) ApplyReject(now time.Time) {
	kind := ProposalNewRegistration
	if a.Proposal != nil {
		kind = a.Proposal.Kind
	}
	if kind == ProposalNewRegistration {
		a.Status = StatusRejected
	} else {
		a.Status = StatusPending
	}
	a.Proposal = nil
	a.UpdatedAt = now
}

// ApplySectorEntry records interior movement from a sector validation
// point. Status is deliberately untouched.
func (a *Attendee) ApplySectorEntry(sectorID domain.SectorID, now time.Time) {
	a.CurrentSectorID = sectorID
	t := now
	a.LastSectorEntryAt = &t
	a.UpdatedAt = now
}

// Clone returns a deep copy so stores can hand out records without aliasing
// their internal state.
func (a *Attendee) Clone() *Attendee {
	cp := *a
	cp.Sectors = append([]domain.SectorID{}, a.Sectors...)
	if a.Wristbands != nil {
		cp.Wristbands = make(map[domain.SectorID]domain.WristbandCode, len(a.Wristbands))
		for sectorID, code := range a.Wristbands {
			cp.Wristbands[sectorID] = code
		}
	}
	if a.Proposal != nil {
		p := *a.Proposal
		p.Sectors = append([]domain.SectorID{}, a.Proposal.Sectors...)
		cp.Proposal = &p
	}
	if a.CheckinTime != nil {
		t := *a.CheckinTime
		cp.CheckinTime = &t
	}
	if a.CheckoutTime != nil {
		t := *a.CheckoutTime
		cp.CheckoutTime = &t
	}
	if a.LastSectorEntryAt != nil {
		t := *a.LastSectorEntryAt
		cp.LastSectorEntryAt = &t
	}
	return &cp
}
