package sector

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"gatepass/pkg/domain"
	dErrors "gatepass/pkg/domain-errors"
	"gatepass/pkg/platform/sentinel"
	"gatepass/pkg/requestcontext"
)

// AttendeeCounter reports how many active attendees reference a sector.
// Satisfied by the attendee store.
type AttendeeCounter interface {
	CountBySector(ctx context.Context, eventID domain.EventID, sectorID domain.SectorID) (int, error)
}

// SupplierCounter reports how many suppliers may register into a sector.
// Satisfied by the supplier store.
type SupplierCounter interface {
	CountBySector(ctx context.Context, eventID domain.EventID, sectorID domain.SectorID) (int, error)
}

// Service manages sectors and validation points. Deleting a sector is
// guarded: it must not be referenced by attendees, suppliers, or points.
type Service struct {
	store     Store
	attendees AttendeeCounter
	suppliers SupplierCounter
	logger    *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(store Store, attendees AttendeeCounter, suppliers SupplierCounter, opts ...Option) *Service {
	svc := &Service{store: store, attendees: attendees, suppliers: suppliers}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc
}

func (s *Service) CreateSector(ctx context.Context, eventID domain.EventID, label, color string) (*Sector, error) {
	sec, err := NewSector(eventID, label, color, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateSector(ctx, sec); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create sector")
	}
	return sec, nil
}

func (s *Service) GetSector(ctx context.Context, eventID domain.EventID, sectorID domain.SectorID) (*Sector, error) {
	sec, err := s.store.FindSector(ctx, eventID, sectorID)
	if err != nil {
		return nil, wrapStoreErr(err, "sector")
	}
	return sec, nil
}

func (s *Service) ListSectors(ctx context.Context, eventID domain.EventID) ([]*Sector, error) {
	sectors, err := s.store.ListSectors(ctx, eventID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list sectors")
	}
	return sectors, nil
}

func (s *Service) UpdateSector(ctx context.Context, eventID domain.EventID, sectorID domain.SectorID, label, color string) (*Sector, error) {
	if label == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "sector label is required")
	}
	sec, err := s.store.FindSector(ctx, eventID, sectorID)
	if err != nil {
		return nil, wrapStoreErr(err, "sector")
	}
	sec.Label = label
	sec.Color = color
	sec.UpdatedAt = requestcontext.Now(ctx)
	if err := s.store.UpdateSector(ctx, sec); err != nil {
		return nil, wrapStoreErr(err, "sector")
	}
	return sec, nil
}

// DeleteSector removes a sector only when nothing references it.
func (s *Service) DeleteSector(ctx context.Context, eventID domain.EventID, sectorID domain.SectorID) error {
	if _, err := s.store.FindSector(ctx, eventID, sectorID); err != nil {
		return wrapStoreErr(err, "sector")
	}

	attendeeCount, err := s.attendees.CountBySector(ctx, eventID, sectorID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to count sector attendees")
	}
	if attendeeCount > 0 {
		return dErrors.New(dErrors.CodeConflict, "sector has registered attendees").
			WithDetail("attendees", strconv.Itoa(attendeeCount))
	}

	supplierCount, err := s.suppliers.CountBySector(ctx, eventID, sectorID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to count sector suppliers")
	}
	if supplierCount > 0 {
		return dErrors.New(dErrors.CodeConflict, "sector is assigned to suppliers").
			WithDetail("suppliers", strconv.Itoa(supplierCount))
	}

	pointCount, err := s.store.CountPointsBySector(ctx, eventID, sectorID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to count validation points")
	}
	if pointCount > 0 {
		return dErrors.New(dErrors.CodeConflict, "sector has validation points").
			WithDetail("validation_points", strconv.Itoa(pointCount))
	}

	if err := s.store.DeleteSector(ctx, eventID, sectorID); err != nil {
		return wrapStoreErr(err, "sector")
	}
	s.logger.InfoContext(ctx, "sector deleted", "event_id", eventID, "sector_id", sectorID)
	return nil
}

func (s *Service) CreatePoint(ctx context.Context, eventID domain.EventID, sectorID domain.SectorID, label string) (*ValidationPoint, error) {
	if _, err := s.store.FindSector(ctx, eventID, sectorID); err != nil {
		return nil, wrapStoreErr(err, "sector")
	}
	p, err := NewValidationPoint(eventID, sectorID, label, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.CreatePoint(ctx, p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create validation point")
	}
	return p, nil
}

func (s *Service) GetPoint(ctx context.Context, eventID domain.EventID, pointID domain.ValidationPointID) (*ValidationPoint, error) {
	p, err := s.store.FindPoint(ctx, eventID, pointID)
	if err != nil {
		return nil, wrapStoreErr(err, "validation point")
	}
	return p, nil
}

func (s *Service) ListPoints(ctx context.Context, eventID domain.EventID) ([]*ValidationPoint, error) {
	points, err := s.store.ListPoints(ctx, eventID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list validation points")
	}
	return points, nil
}

func (s *Service) DeletePoint(ctx context.Context, eventID domain.EventID, pointID domain.ValidationPointID) error {
	if err := s.store.DeletePoint(ctx, eventID, pointID); err != nil {
		return wrapStoreErr(err, "validation point")
	}
	return nil
}

func wrapStoreErr(err error, what string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, what+" not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, what+" store failure")
}
