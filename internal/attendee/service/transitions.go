package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"gatepass/internal/attendee/models"
	"gatepass/internal/dedup"
	"gatepass/pkg/domain"
	dErrors "gatepass/pkg/domain-errors"
	"gatepass/pkg/platform/audit"
	"gatepass/pkg/requestcontext"
)

// StatusChangeInput carries one transition request. Wristbands is required
// only for first-admission check-ins; Reason only for blocks.
type StatusChangeInput struct {
	Target     models.CheckinStatus
	Wristbands map[domain.SectorID]domain.WristbandCode
	Reason     string
}

// UpdateStatus drives a single credential through the transition table. The
// legality check and the mutation run in one store critical section, so two
// desks racing the same record cannot both win.
func (s *Service) UpdateStatus(ctx context.Context, eventID domain.EventID, attendeeID domain.AttendeeID, in StatusChangeInput) (*models.Attendee, error) {
	actor := requestcontext.Actor(ctx)
	now := requestcontext.Now(ctx)

	if in.Target == models.StatusCheckedIn {
		return s.checkIn(ctx, eventID, attendeeID, in.Wristbands)
	}
	if in.Target == models.StatusBlocked {
		return s.Block(ctx, eventID, attendeeID, in.Reason)
	}

	// Reactivation re-enters the active CPF namespace; under the global
	// policy the cross-event index must not already hold the CPF elsewhere.
	if in.Target == models.StatusPending && s.policy == DedupGlobal && s.index != nil {
		current, err := s.store.FindByID(ctx, eventID, attendeeID)
		if err != nil {
			return nil, translateStoreErr(err)
		}
		if current.Status.IsTerminal() {
			if claim, err := s.index.Lookup(ctx, current.CPF); err == nil && claim.AttendeeID != attendeeID {
				return nil, dErrors.New(dErrors.CodeDuplicateCPF, "cpf already held by an active registration").
					WithDetail("event_id", claim.EventID.String()).
					WithDetail("attendee_id", claim.AttendeeID.String()).
					WithDetail("holder_name", claim.Name)
			}
		}
	}

	var from models.CheckinStatus
	var apply func(*models.Attendee)
	updated, err := s.store.Execute(ctx, eventID, attendeeID,
		func(a *models.Attendee) error {
			from = a.Status
			switch in.Target {
			case models.StatusCheckedOut:
				apply = func(a *models.Attendee) { a.ApplyCheckOut(actor.Name, now) }
				return a.CanCheckOut(actor.Role)
			case models.StatusMissed:
				apply = func(a *models.Attendee) { a.ApplyMarkMissed(now) }
				return a.CanMarkMissed(actor.Role)
			case models.StatusCancelled:
				apply = func(a *models.Attendee) { a.ApplyCancel(now) }
				return a.CanCancel(actor.Role)
			case models.StatusPending:
				// PENDING is reachable from several states with different
				// side effects; dispatch on where the record sits now.
				switch a.Status {
				case models.StatusCheckedIn:
					apply = func(a *models.Attendee) { a.ApplyUndoCheckIn(now) }
					return a.CanUndoCheckIn(actor.Role)
				case models.StatusBlocked:
					apply = func(a *models.Attendee) { a.ApplyUnblock(now) }
					return a.CanUnblock(actor.Role)
				case models.StatusCancelled, models.StatusRejected:
					apply = func(a *models.Attendee) { a.ApplyReactivate(now) }
					return a.CanReactivate(actor.Role)
				default:
					if a.HasPendingProposal() {
						// Request states leave via approve or reject, not a
						// direct status write.
						return dErrors.New(dErrors.CodeConflict,
							"attendee has a pending proposal awaiting approval")
					}
					apply = func(a *models.Attendee) {
						a.Status = models.StatusPending
						a.UpdatedAt = now
					}
					return models.CanTransition(a.Status, in.Target, actor.Role)
				}
			default:
				return dErrors.Newf(dErrors.CodeValidation,
					"status %s is not directly assignable", in.Target)
			}
		},
		func(a *models.Attendee) { apply(a) },
	)
	if err != nil {
		return nil, translateStoreErr(err)
	}

	// Keep the cross-event index in step with the active set: cancellation
	// frees the CPF, reactivation out of a terminal state claims it back.
	if updated.Status == models.StatusCancelled {
		s.releaseCPF(ctx, updated.CPF, attendeeID)
	}
	if from.IsTerminal() && updated.Status == models.StatusPending && s.policy == DedupGlobal && s.index != nil {
		claim := dedup.Claim{EventID: eventID, AttendeeID: attendeeID, Name: updated.Name}
		if err := s.index.Claim(ctx, updated.CPF, claim); err != nil {
			s.logger.WarnContext(ctx, "cpf index claim failed after reactivation", "error", err)
		}
	}

	s.emit(ctx, audit.Event{
		Kind:       audit.KindStatusChanged,
		EventID:    eventID,
		AttendeeID: attendeeID,
		Actor:      actor.Name,
		ActorRole:  actor.Role,
		Timestamp:  now,
		Detail:     map[string]string{"from": string(from), "to": string(updated.Status)},
	})
	return updated, nil
}

// normalizeWristbands parses every incoming code so issuance stores the same
// canonical form the scan path looks up. Empty codes are rejected.
func normalizeWristbands(in map[domain.SectorID]domain.WristbandCode) (map[domain.SectorID]domain.WristbandCode, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(map[domain.SectorID]domain.WristbandCode, len(in))
	for sectorID, code := range in {
		parsed, err := domain.ParseWristbandCode(code.String())
		if err != nil {
			return nil, err
		}
		out[sectorID] = parsed
	}
	return out, nil
}

// checkIn commits an admission through the store's wristband-aware path.
func (s *Service) checkIn(ctx context.Context, eventID domain.EventID, attendeeID domain.AttendeeID, wristbands map[domain.SectorID]domain.WristbandCode) (*models.Attendee, error) {
	ctx, span := s.tracer.Start(ctx, "attendee.checkin")
	defer span.End()

	wristbands, err := normalizeWristbands(wristbands)
	if err != nil {
		return nil, err
	}

	actor := requestcontext.Actor(ctx)
	now := requestcontext.Now(ctx)

	updated, err := s.store.CheckIn(ctx, eventID, attendeeID, wristbands, actor.Role, actor.Name, now)
	if err != nil {
		return nil, translateStoreErr(err)
	}

	span.SetAttributes(attribute.String("attendee.id", attendeeID.String()))
	s.metrics.IncrementCheckIns()
	s.emit(ctx, audit.Event{
		Kind:       audit.KindStatusChanged,
		EventID:    eventID,
		AttendeeID: attendeeID,
		Actor:      actor.Name,
		ActorRole:  actor.Role,
		Timestamp:  now,
		Detail:     map[string]string{"to": string(models.StatusCheckedIn)},
	})
	s.logger.InfoContext(ctx, "attendee checked in",
		"event_id", eventID, "attendee_id", attendeeID, "by", actor.Name)
	return updated, nil
}

// Block freezes a credential with a mandatory reason. Promoters may only
// block their own supplier's attendees.
func (s *Service) Block(ctx context.Context, eventID domain.EventID, attendeeID domain.AttendeeID, reason string) (*models.Attendee, error) {
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "block reason is required")
	}
	actor := requestcontext.Actor(ctx)
	now := requestcontext.Now(ctx)

	if actor.Role == domain.RolePromoter {
		if err := s.checkPromoterScope(ctx, eventID, attendeeID, actor.SupplierID, nil); err != nil {
			return nil, err
		}
	}

	updated, err := s.store.Execute(ctx, eventID, attendeeID,
		func(a *models.Attendee) error { return a.CanBlock(actor.Role) },
		func(a *models.Attendee) { a.ApplyBlock(reason, now) },
	)
	if err != nil {
		return nil, translateStoreErr(err)
	}

	s.emit(ctx, audit.Event{
		Kind:       audit.KindAttendeeBlocked,
		EventID:    eventID,
		AttendeeID: attendeeID,
		Actor:      actor.Name,
		ActorRole:  actor.Role,
		Timestamp:  now,
		Detail:     map[string]string{"reason": reason},
	})
	return updated, nil
}

// Unblock returns a blocked credential to PENDING. Admin only.
func (s *Service) Unblock(ctx context.Context, eventID domain.EventID, attendeeID domain.AttendeeID) (*models.Attendee, error) {
	return s.UpdateStatus(ctx, eventID, attendeeID, StatusChangeInput{Target: models.StatusPending})
}

// Delete physically removes a credential, freeing its CPF in both the event
// namespace and the cross-event index.
func (s *Service) Delete(ctx context.Context, eventID domain.EventID, attendeeID domain.AttendeeID) error {
	actor := requestcontext.Actor(ctx)
	if actor.Role != domain.RoleAdmin {
		return dErrors.New(dErrors.CodeForbidden, "only admins may delete attendees")
	}

	a, err := s.store.FindByID(ctx, eventID, attendeeID)
	if err != nil {
		return translateStoreErr(err)
	}
	if err := s.store.Delete(ctx, eventID, attendeeID); err != nil {
		return translateStoreErr(err)
	}
	s.releaseCPF(ctx, a.CPF, attendeeID)

	s.emit(ctx, audit.Event{
		Kind:       audit.KindAttendeeDeleted,
		EventID:    eventID,
		AttendeeID: attendeeID,
		Actor:      actor.Name,
		ActorRole:  actor.Role,
		Timestamp:  requestcontext.Now(ctx),
		Detail:     map[string]string{"cpf": a.CPF.Masked()},
	})
	return nil
}
