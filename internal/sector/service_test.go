package sector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"gatepass/pkg/domain"
	dErrors "gatepass/pkg/domain-errors"
)

type stubCounter struct{ n int }

func (c stubCounter) CountBySector(context.Context, domain.EventID, domain.SectorID) (int, error) {
	return c.n, nil
}

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	store   *InMemoryStore
	eventID domain.EventID
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemoryStore()
	s.eventID = domain.NewEventID()
}

func (s *ServiceSuite) newService(attendees, suppliers int) *Service {
	return New(s.store, stubCounter{attendees}, stubCounter{suppliers})
}

func (s *ServiceSuite) TestSectorLifecycle() {
	svc := s.newService(0, 0)

	sec, err := svc.CreateSector(s.ctx, s.eventID, "Backstage", "#ff6600")
	s.Require().NoError(err)

	got, err := svc.GetSector(s.ctx, s.eventID, sec.ID)
	s.Require().NoError(err)
	s.Equal("Backstage", got.Label)

	updated, err := svc.UpdateSector(s.ctx, s.eventID, sec.ID, "Backstage A", "#ff0000")
	s.Require().NoError(err)
	s.Equal("Backstage A", updated.Label)

	s.Require().NoError(svc.DeleteSector(s.ctx, s.eventID, sec.ID))

	_, err = svc.GetSector(s.ctx, s.eventID, sec.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestCreateSectorRequiresLabel() {
	svc := s.newService(0, 0)
	_, err := svc.CreateSector(s.ctx, s.eventID, "", "")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestDeleteGuardedByAttendees() {
	svc := s.newService(3, 0)
	sec, err := svc.CreateSector(s.ctx, s.eventID, "Pit", "")
	s.Require().NoError(err)

	err = svc.DeleteSector(s.ctx, s.eventID, sec.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.Equal("3", dErrors.DetailsOf(err)["attendees"])
}

func (s *ServiceSuite) TestDeleteGuardedBySuppliers() {
	svc := s.newService(0, 2)
	sec, err := svc.CreateSector(s.ctx, s.eventID, "Pit", "")
	s.Require().NoError(err)

	err = svc.DeleteSector(s.ctx, s.eventID, sec.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.Equal("2", dErrors.DetailsOf(err)["suppliers"])
}

func (s *ServiceSuite) TestDeleteGuardedByValidationPoints() {
	svc := s.newService(0, 0)
	sec, err := svc.CreateSector(s.ctx, s.eventID, "Pit", "")
	s.Require().NoError(err)
	_, err = svc.CreatePoint(s.ctx, s.eventID, sec.ID, "Gate 1")
	s.Require().NoError(err)

	err = svc.DeleteSector(s.ctx, s.eventID, sec.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.Equal("1", dErrors.DetailsOf(err)["validation_points"])
}

func (s *ServiceSuite) TestPointLifecycle() {
	svc := s.newService(0, 0)
	sec, err := svc.CreateSector(s.ctx, s.eventID, "VIP", "")
	s.Require().NoError(err)

	p, err := svc.CreatePoint(s.ctx, s.eventID, sec.ID, "VIP entrance")
	s.Require().NoError(err)
	s.Equal(sec.ID, p.SectorID)

	points, err := svc.ListPoints(s.ctx, s.eventID)
	s.Require().NoError(err)
	s.Len(points, 1)

	s.Require().NoError(svc.DeletePoint(s.ctx, s.eventID, p.ID))

	_, err = svc.GetPoint(s.ctx, s.eventID, p.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestCreatePointUnknownSector() {
	svc := s.newService(0, 0)
	_, err := svc.CreatePoint(s.ctx, s.eventID, domain.NewSectorID(), "Gate")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
