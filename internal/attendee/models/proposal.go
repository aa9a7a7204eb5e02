package models

import (
	"time"

	"gatepass/pkg/domain"
)

// ProposalKind distinguishes the three promoter-submitted change requests
// that pass through the approval gate.
type ProposalKind string

const (
	ProposalSubstitution    ProposalKind = "substitution"
	ProposalSectorChange    ProposalKind = "sector_change"
	ProposalNewRegistration ProposalKind = "new_registration"
)

// Proposal is the payload of a pending change request. It never touches the
// canonical attendee fields until an admin approves it; reject discards it.
type Proposal struct {
	Kind        ProposalKind      `json:"kind"`
	Name        string            `json:"name,omitempty"`
	CPF         domain.CPF        `json:"cpf,omitempty"`
	PhotoRef    string            `json:"photo_ref,omitempty"`
	Sectors     []domain.SectorID `json:"sectors,omitempty"`
	SubmittedBy string            `json:"submitted_by"`
	SubmittedAt time.Time         `json:"submitted_at"`
}

// requestStatus maps a proposal kind to the status the attendee holds while
// the proposal is pending.
func (k ProposalKind) requestStatus() CheckinStatus {
	switch k {
	case ProposalSubstitution:
		return StatusSubstitutionRequest
	case ProposalSectorChange:
		return StatusSectorChangeRequest
	default:
		return StatusPendingApproval
	}
}
