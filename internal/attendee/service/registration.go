package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	"gatepass/internal/attendee/models"
	"gatepass/internal/dedup"
	"gatepass/internal/supplier"
	"gatepass/pkg/domain"
	dErrors "gatepass/pkg/domain-errors"
	"gatepass/pkg/platform/audit"
	"gatepass/pkg/platform/sentinel"
	"gatepass/pkg/requestcontext"
)

// RegisterInput carries one registration. SupplierID is optional for admin
// registrations; promoter registrations always run under the actor's own
// supplier regardless of what the input claims. Wristbands pre-assigns codes
// distributed ahead of the event, letting the credential be admitted by a
// general-checkpoint scan alone.
type RegisterInput struct {
	EventID    domain.EventID
	Name       string
	CPF        string
	PhotoRef   string
	Sectors    []domain.SectorID
	SupplierID domain.SupplierID
	SubCompany string
	Wristbands map[domain.SectorID]domain.WristbandCode
}

// Register creates a credential. Admin and staff registrations land in
// PENDING immediately; promoter registrations land in PENDING_APPROVAL with a
// new-registration proposal awaiting the approval gate. Supplier capacity and
// CPF uniqueness are checked atomically by the store.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.Attendee, error) {
	ctx, span := s.tracer.Start(ctx, "attendee.register")
	defer span.End()

	cpf, err := domain.ParseCPF(in.CPF)
	if err != nil {
		return nil, err
	}

	actor := requestcontext.Actor(ctx)
	now := requestcontext.Now(ctx)

	initial := models.StatusPending
	limit := -1
	supplierID := in.SupplierID
	subCompany := in.SubCompany

	var sup *supplier.Supplier
	if actor.Role == domain.RolePromoter {
		supplierID = actor.SupplierID
		initial = models.StatusPendingApproval
	}
	if !supplierID.IsNil() {
		sup, err = s.suppliers.FindByID(ctx, in.EventID, supplierID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.New(dErrors.CodeNotFound, "supplier not found")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "supplier lookup failed")
		}
		if !sup.Active {
			return nil, dErrors.New(dErrors.CodeForbidden, "supplier is inactive")
		}
		if !sup.CoversSectors(in.Sectors) {
			return nil, dErrors.New(dErrors.CodeForbidden, "supplier may not register into the requested sectors")
		}
		if subCompany != "" && !coversSubCompany(sup, subCompany) {
			return nil, dErrors.New(dErrors.CodeValidation, "unknown sub-company for this supplier")
		}
		limit = sup.RegistrationLimit
	}

	a, err := models.NewAttendee(in.EventID, in.Name, cpf, in.PhotoRef, in.Sectors, initial, now)
	if err != nil {
		return nil, err
	}
	a.SupplierID = supplierID
	a.SubCompany = subCompany

	wristbands, err := normalizeWristbands(in.Wristbands)
	if err != nil {
		return nil, err
	}
	if err := a.AssignWristbands(wristbands); err != nil {
		return nil, err
	}

	if initial == models.StatusPendingApproval {
		a.Proposal = &models.Proposal{
			Kind:        models.ProposalNewRegistration,
			SubmittedBy: actor.Name,
			SubmittedAt: now,
		}
	}

	if err := s.claimCPF(ctx, cpf, a); err != nil {
		return nil, err
	}
	if err := s.store.CreateWithinLimit(ctx, a, limit); err != nil {
		s.releaseCPF(ctx, cpf, a.ID)
		if errors.Is(err, sentinel.ErrLimitReached) {
			s.metrics.IncrementCapacityRejections()
		}
		return nil, translateStoreErr(err)
	}

	span.SetAttributes(attribute.String("attendee.id", a.ID.String()))
	s.metrics.IncrementRegistrations()
	s.emit(ctx, audit.Event{
		Kind:       audit.KindAttendeeRegistered,
		EventID:    a.EventID,
		AttendeeID: a.ID,
		Actor:      actor.Name,
		ActorRole:  actor.Role,
		Timestamp:  now,
		Detail: map[string]string{
			"status": string(a.Status),
			"cpf":    cpf.Masked(),
		},
	})
	s.logger.InfoContext(ctx, "attendee registered",
		"event_id", a.EventID, "attendee_id", a.ID, "status", a.Status)
	return a, nil
}

// claimCPF consults the cross-event index under the global policy. The claim
// is taken before the store insert and rolled back if the insert fails.
func (s *Service) claimCPF(ctx context.Context, cpf domain.CPF, a *models.Attendee) error {
	if s.policy != DedupGlobal || s.index == nil {
		return nil
	}
	err := s.index.Claim(ctx, cpf, dedup.Claim{
		EventID:    a.EventID,
		AttendeeID: a.ID,
		Name:       a.Name,
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, sentinel.ErrConflict) {
		de := dErrors.New(dErrors.CodeDuplicateCPF, "cpf already held by an active registration")
		if existing, lookupErr := s.index.Lookup(ctx, cpf); lookupErr == nil {
			de = de.WithDetail("event_id", existing.EventID.String()).
				WithDetail("attendee_id", existing.AttendeeID.String()).
				WithDetail("holder_name", existing.Name)
		}
		return de
	}
	// The index is advisory; an unavailable index must not block the gate.
	s.logger.WarnContext(ctx, "cpf index unavailable, falling back to event-scoped dedup", "error", err)
	return nil
}

func (s *Service) releaseCPF(ctx context.Context, cpf domain.CPF, attendeeID domain.AttendeeID) {
	if s.policy != DedupGlobal || s.index == nil {
		return
	}
	if err := s.index.Release(ctx, cpf, attendeeID); err != nil {
		s.logger.WarnContext(ctx, "cpf index release failed", "error", err)
	}
}

func coversSubCompany(sup *supplier.Supplier, name string) bool {
	for _, sc := range sup.SubCompanies {
		if sc.Name == name {
			return true
		}
	}
	return false
}
