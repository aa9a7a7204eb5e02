package service

import (
	"context"
	"errors"

	"gatepass/internal/attendee/models"
	"gatepass/internal/dedup"
	"gatepass/pkg/domain"
	dErrors "gatepass/pkg/domain-errors"
	"gatepass/pkg/platform/audit"
	"gatepass/pkg/platform/sentinel"
	"gatepass/pkg/requestcontext"
)

// SubstitutionInput proposes replacing the person behind a credential.
type SubstitutionInput struct {
	Name     string
	CPF      string
	PhotoRef string
	Sectors  []domain.SectorID
}

// RequestSubstitution parks the attendee in SUBSTITUTION_REQUEST with the
// replacement's data attached. Canonical fields stay untouched until an admin
// approves.
func (s *Service) RequestSubstitution(ctx context.Context, eventID domain.EventID, attendeeID domain.AttendeeID, in SubstitutionInput) (*models.Attendee, error) {
	if in.Name == "" || in.PhotoRef == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "substitution requires name and photo")
	}
	cpf, err := domain.ParseCPF(in.CPF)
	if err != nil {
		return nil, err
	}
	return s.propose(ctx, eventID, attendeeID, models.Proposal{
		Kind:     models.ProposalSubstitution,
		Name:     in.Name,
		CPF:      cpf,
		PhotoRef: in.PhotoRef,
		Sectors:  in.Sectors,
	})
}

// RequestSectorChange parks the attendee in SECTOR_CHANGE_REQUEST with the
// replacement sector set attached.
func (s *Service) RequestSectorChange(ctx context.Context, eventID domain.EventID, attendeeID domain.AttendeeID, sectors []domain.SectorID) (*models.Attendee, error) {
	if len(sectors) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "sector change needs at least one sector")
	}
	return s.propose(ctx, eventID, attendeeID, models.Proposal{
		Kind:    models.ProposalSectorChange,
		Sectors: sectors,
	})
}

func (s *Service) propose(ctx context.Context, eventID domain.EventID, attendeeID domain.AttendeeID, p models.Proposal) (*models.Attendee, error) {
	actor := requestcontext.Actor(ctx)
	now := requestcontext.Now(ctx)
	p.SubmittedBy = actor.Name

	// A promoter may only touch its own attendees; the proposed sectors must
	// stay within its allowed set.
	if actor.Role == domain.RolePromoter {
		if err := s.checkPromoterScope(ctx, eventID, attendeeID, actor.SupplierID, p.Sectors); err != nil {
			return nil, err
		}
	}

	updated, err := s.store.Execute(ctx, eventID, attendeeID,
		func(a *models.Attendee) error {
			if a.HasPendingProposal() {
				return dErrors.New(dErrors.CodeConflict, "attendee already has a pending proposal")
			}
			return a.CanPropose(p.Kind, actor.Role)
		},
		func(a *models.Attendee) { a.ApplyPropose(p, now) },
	)
	if err != nil {
		return nil, translateStoreErr(err)
	}

	s.emit(ctx, audit.Event{
		Kind:       audit.KindProposalSubmitted,
		EventID:    eventID,
		AttendeeID: attendeeID,
		Actor:      actor.Name,
		ActorRole:  actor.Role,
		Timestamp:  now,
		Detail:     map[string]string{"kind": string(p.Kind)},
	})
	return updated, nil
}

func (s *Service) checkPromoterScope(ctx context.Context, eventID domain.EventID, attendeeID domain.AttendeeID, supplierID domain.SupplierID, sectors []domain.SectorID) error {
	a, err := s.store.FindByID(ctx, eventID, attendeeID)
	if err != nil {
		return translateStoreErr(err)
	}
	if a.SupplierID != supplierID {
		return dErrors.New(dErrors.CodeForbidden, "attendee belongs to another supplier")
	}
	if len(sectors) == 0 {
		return nil
	}
	sup, err := s.suppliers.FindByID(ctx, eventID, supplierID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "supplier not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "supplier lookup failed")
	}
	if !sup.CoversSectors(sectors) {
		return dErrors.New(dErrors.CodeForbidden, "supplier may not propose the requested sectors")
	}
	return nil
}

// Approve applies the pending proposal to the canonical record and returns
// the attendee to PENDING. A substitution to a new CPF re-checks the
// uniqueness namespaces first.
func (s *Service) Approve(ctx context.Context, eventID domain.EventID, attendeeID domain.AttendeeID) (*models.Attendee, error) {
	actor := requestcontext.Actor(ctx)
	now := requestcontext.Now(ctx)

	current, err := s.store.FindByID(ctx, eventID, attendeeID)
	if err != nil {
		return nil, translateStoreErr(err)
	}
	if current.Proposal != nil && current.Proposal.Kind == models.ProposalSubstitution && current.Proposal.CPF != current.CPF {
		if err := s.checkSubstituteCPF(ctx, eventID, attendeeID, current.Proposal.CPF, current.Name); err != nil {
			return nil, err
		}
	}

	var kind models.ProposalKind
	updated, err := s.store.Execute(ctx, eventID, attendeeID,
		func(a *models.Attendee) error {
			if a.Proposal != nil {
				kind = a.Proposal.Kind
			}
			return a.CanApprove(actor.Role)
		},
		func(a *models.Attendee) { a.ApplyApprove(now) },
	)
	if err != nil {
		return nil, translateStoreErr(err)
	}

	if kind == models.ProposalSubstitution && updated.CPF != current.CPF {
		s.releaseCPF(ctx, current.CPF, attendeeID)
		if s.policy == DedupGlobal && s.index != nil {
			claim := dedup.Claim{EventID: eventID, AttendeeID: attendeeID, Name: updated.Name}
			if err := s.index.Claim(ctx, updated.CPF, claim); err != nil {
				s.logger.WarnContext(ctx, "cpf index claim failed after substitution", "error", err)
			}
		}
	}

	if err := s.emitStrict(ctx, audit.Event{
		Kind:       audit.KindProposalApproved,
		EventID:    eventID,
		AttendeeID: attendeeID,
		Actor:      actor.Name,
		ActorRole:  actor.Role,
		Timestamp:  now,
		Detail:     map[string]string{"kind": string(kind)},
	}); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "proposal approved",
		"event_id", eventID, "attendee_id", attendeeID, "kind", kind)
	return updated, nil
}

// checkSubstituteCPF re-runs the duplicate checks against the incoming CPF
// at approval time; the proposal may have sat in the queue long enough for
// someone else to register it.
func (s *Service) checkSubstituteCPF(ctx context.Context, eventID domain.EventID, attendeeID domain.AttendeeID, cpf domain.CPF, name string) error {
	existing, err := s.store.FindActiveByCPF(ctx, eventID, cpf)
	if err == nil && existing.ID != attendeeID {
		return dErrors.New(dErrors.CodeDuplicateCPF, "substitute cpf already registered in this event").
			WithDetail("attendee_id", existing.ID.String()).
			WithDetail("holder_name", existing.Name)
	}
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "cpf lookup failed")
	}
	if s.policy == DedupGlobal && s.index != nil {
		if claim, err := s.index.Lookup(ctx, cpf); err == nil && claim.AttendeeID != attendeeID {
			return dErrors.New(dErrors.CodeDuplicateCPF, "substitute cpf already registered in another event").
				WithDetail("event_id", claim.EventID.String()).
				WithDetail("attendee_id", claim.AttendeeID.String()).
				WithDetail("holder_name", claim.Name)
		}
	}
	return nil
}

// Reject discards the pending proposal. Edit requests revert to PENDING with
// canonical fields untouched; new registrations become REJECTED. Rejecting an
// attendee with nothing pending is a no-op.
func (s *Service) Reject(ctx context.Context, eventID domain.EventID, attendeeID domain.AttendeeID) (*models.Attendee, error) {
	actor := requestcontext.Actor(ctx)
	now := requestcontext.Now(ctx)

	if actor.Role != domain.RoleAdmin {
		return nil, dErrors.New(dErrors.CodeForbidden, "only admins may reject proposals")
	}

	var kind models.ProposalKind
	var noop bool
	updated, err := s.store.Execute(ctx, eventID, attendeeID,
		func(a *models.Attendee) error {
			if !a.HasPendingProposal() {
				noop = true
				return nil
			}
			kind = a.Proposal.Kind
			return nil
		},
		func(a *models.Attendee) {
			if !noop {
				a.ApplyReject(now)
			}
		},
	)
	if err != nil {
		return nil, translateStoreErr(err)
	}
	if noop {
		return updated, nil
	}

	// A rejected registration leaves the active set and frees its CPF.
	if updated.Status == models.StatusRejected {
		s.releaseCPF(ctx, updated.CPF, attendeeID)
	}

	if err := s.emitStrict(ctx, audit.Event{
		Kind:       audit.KindProposalRejected,
		EventID:    eventID,
		AttendeeID: attendeeID,
		Actor:      actor.Name,
		ActorRole:  actor.Role,
		Timestamp:  now,
		Detail:     map[string]string{"kind": string(kind)},
	}); err != nil {
		return nil, err
	}
	return updated, nil
}
