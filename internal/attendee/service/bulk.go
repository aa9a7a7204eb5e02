package service

import (
	"context"
	"strconv"

	"golang.org/x/sync/errgroup"

	"gatepass/internal/attendee/models"
	"gatepass/pkg/domain"
	dErrors "gatepass/pkg/domain-errors"
	"gatepass/pkg/platform/audit"
	"gatepass/pkg/requestcontext"
)

// bulkConcurrency caps the workers applying a bulk operation. Each item runs
// its own store critical section, so the ceiling only bounds load.
const bulkConcurrency = 8

// BulkResult reports the outcome for one attendee in a bulk operation.
// A nil Err means the item was applied.
type BulkResult struct {
	AttendeeID domain.AttendeeID
	Err        error
}

// BulkUpdateSectors replaces the sector set of many attendees. Admin only;
// items fail or succeed independently.
func (s *Service) BulkUpdateSectors(ctx context.Context, eventID domain.EventID, attendeeIDs []domain.AttendeeID, sectors []domain.SectorID) ([]BulkResult, error) {
	actor := requestcontext.Actor(ctx)
	if actor.Role != domain.RoleAdmin {
		return nil, dErrors.New(dErrors.CodeForbidden, "bulk sector updates are admin only")
	}
	if len(sectors) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "bulk sector update needs at least one sector")
	}
	now := requestcontext.Now(ctx)

	results := s.forEach(ctx, attendeeIDs, func(ctx context.Context, id domain.AttendeeID) error {
		_, err := s.store.Execute(ctx, eventID, id,
			func(a *models.Attendee) error {
				if !a.Status.IsActive() {
					return dErrors.New(dErrors.CodeNotActive, "attendee is not active")
				}
				if a.HasPendingProposal() {
					return dErrors.New(dErrors.CodeConflict, "attendee has a pending proposal")
				}
				return nil
			},
			func(a *models.Attendee) {
				a.Sectors = append([]domain.SectorID{}, sectors...)
				a.UpdatedAt = now
			},
		)
		if err != nil {
			return translateStoreErr(err)
		}
		return nil
	})

	s.emitBulk(ctx, eventID, "sectors", results)
	return results, nil
}

// BulkBlock freezes many credentials with one reason.
func (s *Service) BulkBlock(ctx context.Context, eventID domain.EventID, attendeeIDs []domain.AttendeeID, reason string) ([]BulkResult, error) {
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "block reason is required")
	}
	actor := requestcontext.Actor(ctx)
	now := requestcontext.Now(ctx)

	results := s.forEach(ctx, attendeeIDs, func(ctx context.Context, id domain.AttendeeID) error {
		_, err := s.store.Execute(ctx, eventID, id,
			func(a *models.Attendee) error { return a.CanBlock(actor.Role) },
			func(a *models.Attendee) { a.ApplyBlock(reason, now) },
		)
		if err != nil {
			return translateStoreErr(err)
		}
		return nil
	})

	s.emitBulk(ctx, eventID, "block", results)
	return results, nil
}

// BulkUnblock returns many blocked credentials to PENDING.
func (s *Service) BulkUnblock(ctx context.Context, eventID domain.EventID, attendeeIDs []domain.AttendeeID) ([]BulkResult, error) {
	actor := requestcontext.Actor(ctx)
	now := requestcontext.Now(ctx)

	results := s.forEach(ctx, attendeeIDs, func(ctx context.Context, id domain.AttendeeID) error {
		_, err := s.store.Execute(ctx, eventID, id,
			func(a *models.Attendee) error { return a.CanUnblock(actor.Role) },
			func(a *models.Attendee) { a.ApplyUnblock(now) },
		)
		if err != nil {
			return translateStoreErr(err)
		}
		return nil
	})

	s.emitBulk(ctx, eventID, "unblock", results)
	return results, nil
}

// forEach applies one operation to every ID concurrently, collecting a
// result per item in input order. Item failures never abort the batch.
func (s *Service) forEach(ctx context.Context, attendeeIDs []domain.AttendeeID, op func(ctx context.Context, id domain.AttendeeID) error) []BulkResult {
	results := make([]BulkResult, len(attendeeIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bulkConcurrency)
	for i, id := range attendeeIDs {
		g.Go(func() error {
			results[i] = BulkResult{AttendeeID: id, Err: op(gctx, id)}
			return nil
		})
	}
	// Workers always return nil; errors live in the per-item results.
	_ = g.Wait()
	return results
}

func (s *Service) emitBulk(ctx context.Context, eventID domain.EventID, operation string, results []BulkResult) {
	applied := 0
	for _, r := range results {
		if r.Err == nil {
			applied++
		}
	}
	actor := requestcontext.Actor(ctx)
	s.emit(ctx, audit.Event{
		Kind:      audit.KindBulkApplied,
		EventID:   eventID,
		Actor:     actor.Name,
		ActorRole: actor.Role,
		Timestamp: requestcontext.Now(ctx),
		Detail: map[string]string{
			"operation": operation,
			"total":     strconv.Itoa(len(results)),
			"applied":   strconv.Itoa(applied),
		},
	})
}
