// Package service implements the attendee credential lifecycle: registration
// under supplier capacity and CPF uniqueness, the approval gate for promoter
// mutations, status transitions, and bulk operations.
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"gatepass/internal/attendee/metrics"
	"gatepass/internal/attendee/models"
	"gatepass/internal/attendee/store"
	"gatepass/internal/dedup"
	"gatepass/internal/supplier"
	"gatepass/pkg/domain"
	dErrors "gatepass/pkg/domain-errors"
	"gatepass/pkg/platform/audit"
	"gatepass/pkg/platform/sentinel"
)

// DedupPolicy selects the scope of CPF uniqueness at registration time.
type DedupPolicy string

const (
	// DedupEvent enforces uniqueness among one event's active attendees.
	DedupEvent DedupPolicy = "event"
	// DedupGlobal additionally consults the cross-event CPF index.
	DedupGlobal DedupPolicy = "global"
)

// Service drives all attendee credential mutations.
type Service struct {
	store     store.Store
	suppliers supplier.Store
	index     dedup.Index
	auditor   audit.Publisher
	metrics   *metrics.Metrics
	policy    DedupPolicy
	logger    *slog.Logger
	tracer    trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditor(p audit.Publisher) Option {
	return func(s *Service) { s.auditor = p }
}

// WithDedupIndex enables the cross-event CPF index. Without it the global
// policy degrades to per-event uniqueness.
func WithDedupIndex(idx dedup.Index) Option {
	return func(s *Service) { s.index = idx }
}

func WithDedupPolicy(p DedupPolicy) Option {
	return func(s *Service) { s.policy = p }
}

func New(st store.Store, suppliers supplier.Store, opts ...Option) *Service {
	svc := &Service{
		store:     st,
		suppliers: suppliers,
		policy:    DedupEvent,
		tracer:    otel.Tracer("gatepass/attendee"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc
}

func (s *Service) Get(ctx context.Context, eventID domain.EventID, attendeeID domain.AttendeeID) (*models.Attendee, error) {
	a, err := s.store.FindByID(ctx, eventID, attendeeID)
	if err != nil {
		return nil, translateStoreErr(err)
	}
	return a, nil
}

func (s *Service) List(ctx context.Context, eventID domain.EventID, filter store.Filter) ([]*models.Attendee, error) {
	attendees, err := s.store.List(ctx, eventID, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list attendees")
	}
	return attendees, nil
}

// SearchByCPF finds every record holding a CPF across all events, for the
// operator-invoked duplicate check before a manual registration.
func (s *Service) SearchByCPF(ctx context.Context, rawCPF string) ([]*models.Attendee, error) {
	cpf, err := domain.ParseCPF(rawCPF)
	if err != nil {
		return nil, err
	}
	matches, err := s.store.SearchByCPF(ctx, cpf)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "cpf search failed")
	}
	return matches, nil
}

// emit publishes an audit event, fail-open. A lost audit record must never
// fail the mutation it describes.
func (s *Service) emit(ctx context.Context, ev audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, ev); err != nil {
		s.logger.ErrorContext(ctx, "audit emit failed", "kind", ev.Kind, "error", err)
	}
}

// emitStrict publishes an audit event, fail-closed. Approval decisions are
// compliance records; losing one is surfaced to the caller.
func (s *Service) emitStrict(ctx context.Context, ev audit.Event) error {
	if s.auditor == nil {
		return nil
	}
	if err := s.auditor.Emit(ctx, ev); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "audit record could not be written")
	}
	return nil
}

// translateStoreErr maps store sentinels and typed errors to coded domain
// errors carrying the conflict details operators need.
func translateStoreErr(err error) error {
	var dup *store.DuplicateCPFError
	if errors.As(err, &dup) {
		return dErrors.New(dErrors.CodeDuplicateCPF, "cpf already registered in this event").
			WithDetail("event_id", dup.EventID.String()).
			WithDetail("attendee_id", dup.AttendeeID.String()).
			WithDetail("holder_name", dup.Name)
	}
	var wb *store.WristbandConflictError
	if errors.As(err, &wb) {
		return dErrors.New(dErrors.CodeWristbandCollision, "wristband code already issued in this sector").
			WithDetail("sector_id", wb.SectorID.String()).
			WithDetail("code", wb.Code.String()).
			WithDetail("holder_id", wb.HolderID.String())
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "attendee not found")
	}
	if errors.Is(err, sentinel.ErrLimitReached) {
		return dErrors.New(dErrors.CodeCapacityExceeded, "supplier registration limit reached")
	}
	// Validation closures already return coded errors; pass them through.
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "attendee store failure")
}
