// Package scan resolves wristband scans into actions: the general checkpoint
// toggles admission state, sector validation points verify zone access and
// record interior movement.
package scan

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gatepass/internal/attendee/metrics"
	"gatepass/internal/attendee/models"
	attendeesvc "gatepass/internal/attendee/service"
	"gatepass/internal/attendee/store"
	"gatepass/internal/facematch"
	"gatepass/internal/sector"
	"gatepass/pkg/domain"
	dErrors "gatepass/pkg/domain-errors"
	"gatepass/pkg/platform/audit"
	"gatepass/pkg/platform/sentinel"
	"gatepass/pkg/requestcontext"
)

// GeneralResult is the outcome of a general-checkpoint scan.
type GeneralResult struct {
	Action   models.CheckinStatus `json:"action"`
	Attendee *models.Attendee     `json:"attendee"`
}

// SectorResult is the outcome of a validation-point scan. FaceResult is
// advisory: a NO_MATCH does not deny entry, it flags the gate operator.
type SectorResult struct {
	Attendee   *models.Attendee `json:"attendee"`
	SectorID   domain.SectorID  `json:"sector_id"`
	FaceResult facematch.Result `json:"face_result,omitempty"`
}

// Service resolves scans. The general path delegates the transition to the
// attendee service so both entry points share one legality check.
type Service struct {
	attendees *attendeesvc.Service
	store     store.Store
	sectors   sector.Store
	oracle    facematch.Oracle
	auditor   audit.Publisher
	metrics   *metrics.Metrics
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

// WithOracle enables face verification at validation points.
func WithOracle(o facematch.Oracle) Option {
	return func(s *Service) { s.oracle = o }
}

func New(attendees *attendeesvc.Service, st store.Store, sectors sector.Store, opts ...Option) *Service {
	svc := &Service{
		attendees: attendees,
		store:     st,
		sectors:   sectors,
		tracer:    otel.Tracer("gatepass/scan"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc
}

// ResolveGeneral maps a scanned code to its next admission action and applies
// it: PENDING, MISSED, and CHECKED_OUT admit; CHECKED_IN releases.
func (s *Service) ResolveGeneral(ctx context.Context, eventID domain.EventID, rawCode string) (*GeneralResult, error) {
	start := time.Now()
	defer s.metrics.ObserveScan(start)

	ctx, span := s.tracer.Start(ctx, "scan.resolve")
	defer span.End()

	code, err := domain.ParseWristbandCode(rawCode)
	if err != nil {
		return nil, err
	}

	a, err := s.store.FindByWristband(ctx, eventID, code)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "wristband not recognized")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "wristband lookup failed")
	}

	target, ok := models.NextScanAction(a.Status)
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotActive, "credential cannot be scanned in its current status").
			WithDetail("status", string(a.Status))
	}

	updated, err := s.attendees.UpdateStatus(ctx, eventID, a.ID, attendeesvc.StatusChangeInput{Target: target})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.String("attendee.id", a.ID.String()),
		attribute.String("scan.action", string(target)),
	)
	return &GeneralResult{Action: target, Attendee: updated}, nil
}

// ResolveSector validates a scan at a sector validation point. The credential
// must be inside the venue, cover the point's sector, and present the
// wristband issued for that sector. capturedRef, when present, is compared
// against the registered photo before the entry is recorded: NO_MATCH denies
// unless the operator sets the override flag, ERROR never denies.
func (s *Service) ResolveSector(ctx context.Context, eventID domain.EventID, pointID domain.ValidationPointID, rawCode, capturedRef string, override bool) (*SectorResult, error) {
	start := time.Now()
	defer s.metrics.ObserveScan(start)

	ctx, span := s.tracer.Start(ctx, "scan.resolve")
	defer span.End()

	code, err := domain.ParseWristbandCode(rawCode)
	if err != nil {
		return nil, err
	}

	point, err := s.sectors.FindPoint(ctx, eventID, pointID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "validation point not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "validation point lookup failed")
	}

	a, err := s.store.FindByWristband(ctx, eventID, code)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "wristband not recognized")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "wristband lookup failed")
	}

	var faceResult facematch.Result
	if s.oracle != nil && capturedRef != "" {
		verdict, err := s.oracle.Compare(ctx, a.PhotoRef, capturedRef)
		if err != nil {
			// Advisory on failure: a broken oracle must not close the gate.
			s.logger.WarnContext(ctx, "facematch unavailable", "error", err)
			verdict = facematch.ResultError
		}
		faceResult = verdict
		if verdict == facematch.ResultNoMatch && !override {
			return nil, dErrors.New(dErrors.CodeForbidden, "face verification failed").
				WithDetail("face_result", string(verdict))
		}
	}

	now := requestcontext.Now(ctx)
	updated, err := s.store.Execute(ctx, eventID, a.ID,
		func(a *models.Attendee) error {
			if a.Status != models.StatusCheckedIn {
				return dErrors.New(dErrors.CodeNotActive, "credential is not inside the venue").
					WithDetail("status", string(a.Status))
			}
			issuedFor, ok := a.WristbandSector(code)
			if !ok || issuedFor != point.SectorID {
				return dErrors.New(dErrors.CodeForbidden, "wristband was not issued for this sector").
					WithDetail("sector_id", point.SectorID.String())
			}
			if !a.HasSector(point.SectorID) {
				return dErrors.New(dErrors.CodeForbidden, "credential does not cover this sector").
					WithDetail("sector_id", point.SectorID.String())
			}
			return nil
		},
		func(a *models.Attendee) { a.ApplySectorEntry(point.SectorID, now) },
	)
	if err != nil {
		var de *dErrors.Error
		if errors.As(err, &de) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "sector entry failed")
	}

	result := &SectorResult{Attendee: updated, SectorID: point.SectorID, FaceResult: faceResult}

	actor := requestcontext.Actor(ctx)
	if s.auditor != nil {
		detail := map[string]string{
			"sector_id": point.SectorID.String(),
			"point_id":  pointID.String(),
			"code":      code.String(),
		}
		if result.FaceResult != "" {
			detail["face_result"] = string(result.FaceResult)
			if override {
				detail["override"] = "true"
			}
		}
		if err := s.auditor.Emit(ctx, audit.Event{
			Kind:       audit.KindSectorEntry,
			EventID:    eventID,
			AttendeeID: a.ID,
			Actor:      actor.Name,
			ActorRole:  actor.Role,
			Timestamp:  now,
			Detail:     detail,
		}); err != nil {
			s.logger.ErrorContext(ctx, "audit emit failed", "kind", audit.KindSectorEntry, "error", err)
		}
	}

	span.SetAttributes(
		attribute.String("attendee.id", a.ID.String()),
		attribute.String("scan.sector", point.SectorID.String()),
	)
	return result, nil
}
