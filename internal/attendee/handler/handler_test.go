package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"gatepass/internal/attendee/models"
	"gatepass/internal/attendee/service"
	"gatepass/internal/attendee/store"
	"gatepass/internal/supplier"
	"gatepass/pkg/domain"
	"gatepass/pkg/requestcontext"
)

type HandlerSuite struct {
	suite.Suite
	router  *chi.Mux
	store   *store.InMemoryStore
	eventID domain.EventID
	sectorA domain.SectorID
	actor   requestcontext.ActorIdentity
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.store = store.NewInMemoryStore()
	svc := service.New(s.store, supplier.NewInMemoryStore())
	h := New(svc, nil)

	s.eventID = domain.NewEventID()
	s.sectorA = domain.NewSectorID()
	s.actor = requestcontext.ActorIdentity{Name: "Ops Admin", Role: domain.RoleAdmin}

	s.router = chi.NewRouter()
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithActor(r.Context(), s.actor)
			ctx = requestcontext.WithTime(ctx, time.Date(2026, 8, 30, 18, 0, 0, 0, time.UTC))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	s.router.Route("/events/{eventID}", h.Register)
	h.RegisterSearch(s.router)
}

func (s *HandlerSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) registerOne(cpf string) models.Attendee {
	rec := s.do(http.MethodPost, fmt.Sprintf("/events/%s/attendees", s.eventID), map[string]any{
		"name":       "Maria Souza",
		"cpf":        cpf,
		"photo_ref":  "photos/maria.jpg",
		"sector_ids": []string{s.sectorA.String()},
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	var a models.Attendee
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &a))
	return a
}

func (s *HandlerSuite) TestRegisterReturnsCreated() {
	a := s.registerOne("52998224725")
	s.Equal(models.StatusPending, a.Status)
	s.Equal(domain.CPF("52998224725"), a.CPF)
	s.Equal([]domain.SectorID{s.sectorA}, a.Sectors)
}

func (s *HandlerSuite) TestRegisterRejectsMissingFields() {
	rec := s.do(http.MethodPost, fmt.Sprintf("/events/%s/attendees", s.eventID), map[string]any{
		"name": "Maria Souza",
	})
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestRegisterRejectsMalformedJSON() {
	req := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/events/%s/attendees", s.eventID),
		bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestDuplicateCPFReturnsConflictWithDetails() {
	first := s.registerOne("52998224725")

	rec := s.do(http.MethodPost, fmt.Sprintf("/events/%s/attendees", s.eventID), map[string]any{
		"name":       "Other Person",
		"cpf":        "52998224725",
		"photo_ref":  "photos/other.jpg",
		"sector_ids": []string{s.sectorA.String()},
	})
	s.Equal(http.StatusConflict, rec.Code)

	var body struct {
		Error   string            `json:"error"`
		Details map[string]string `json:"details"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Equal("duplicate_cpf", body.Error)
	s.Equal(first.ID.String(), body.Details["attendee_id"])
}

func (s *HandlerSuite) TestStatusTransitionAndWristbands() {
	a := s.registerOne("52998224725")

	rec := s.do(http.MethodPost,
		fmt.Sprintf("/events/%s/attendees/%s/status", s.eventID, a.ID),
		map[string]any{
			"status":     "CHECKED_IN",
			"wristbands": map[string]string{s.sectorA.String(): "WB-001"},
		})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var updated models.Attendee
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &updated))
	s.Equal(models.StatusCheckedIn, updated.Status)
	s.Equal(domain.WristbandCode("WB-001"), updated.Wristbands[s.sectorA])
	s.Equal("Ops Admin", updated.CheckedInBy)
}

func (s *HandlerSuite) TestIllegalTransitionReturnsConflict() {
	a := s.registerOne("52998224725")

	rec := s.do(http.MethodPost,
		fmt.Sprintf("/events/%s/attendees/%s/status", s.eventID, a.ID),
		map[string]any{"status": "CHECKED_OUT"})
	s.Equal(http.StatusConflict, rec.Code)

	var body struct {
		Error string `json:"error"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Equal("invalid_transition", body.Error)
}

func (s *HandlerSuite) TestUnknownStatusRejected() {
	a := s.registerOne("52998224725")
	rec := s.do(http.MethodPost,
		fmt.Sprintf("/events/%s/attendees/%s/status", s.eventID, a.ID),
		map[string]any{"status": "TELEPORTED"})
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestGetAndList() {
	a := s.registerOne("52998224725")

	rec := s.do(http.MethodGet, fmt.Sprintf("/events/%s/attendees/%s", s.eventID, a.ID), nil)
	s.Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, fmt.Sprintf("/events/%s/attendees?status=PENDING", s.eventID), nil)
	s.Equal(http.StatusOK, rec.Code)
	var list []models.Attendee
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &list))
	s.Len(list, 1)

	rec = s.do(http.MethodGet, fmt.Sprintf("/events/%s/attendees?status=CHECKED_IN", s.eventID), nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &list))
	s.Empty(list)
}

func (s *HandlerSuite) TestGetUnknownAttendee() {
	rec := s.do(http.MethodGet,
		fmt.Sprintf("/events/%s/attendees/%s", s.eventID, domain.NewAttendeeID()), nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlerSuite) TestMalformedAttendeeID() {
	rec := s.do(http.MethodGet,
		fmt.Sprintf("/events/%s/attendees/not-a-uuid", s.eventID), nil)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestBlockAndUnblock() {
	a := s.registerOne("52998224725")

	rec := s.do(http.MethodPost,
		fmt.Sprintf("/events/%s/attendees/%s/block", s.eventID, a.ID),
		map[string]any{"reason": "credential reported stolen"})
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodPost,
		fmt.Sprintf("/events/%s/attendees/%s/unblock", s.eventID, a.ID), nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var updated models.Attendee
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &updated))
	s.Equal(models.StatusPending, updated.Status)
}

func (s *HandlerSuite) TestSubstitutionFlow() {
	a := s.registerOne("52998224725")

	rec := s.do(http.MethodPost,
		fmt.Sprintf("/events/%s/attendees/%s/substitution", s.eventID, a.ID),
		map[string]any{
			"name":      "Pedro Alves",
			"cpf":       "11144477735",
			"photo_ref": "photos/pedro.jpg",
		})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost,
		fmt.Sprintf("/events/%s/attendees/%s/approve", s.eventID, a.ID), nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var updated models.Attendee
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &updated))
	s.Equal("Pedro Alves", updated.Name)
	s.Equal(models.StatusPending, updated.Status)
}

func (s *HandlerSuite) TestBulkBlockPartialFailure() {
	a := s.registerOne("52998224725")
	missing := domain.NewAttendeeID()

	rec := s.do(http.MethodPost,
		fmt.Sprintf("/events/%s/attendees/bulk/block", s.eventID),
		map[string]any{
			"ids":    []string{a.ID.String(), missing.String()},
			"reason": "sweep",
		})
	s.Require().Equal(http.StatusOK, rec.Code)

	var body bulkResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Require().Len(body.Results, 2)
	s.True(body.Results[0].OK)
	s.False(body.Results[1].OK)
	s.Equal("not_found", body.Results[1].Error)
}

func (s *HandlerSuite) TestDeleteReturnsNoContent() {
	a := s.registerOne("52998224725")
	rec := s.do(http.MethodDelete,
		fmt.Sprintf("/events/%s/attendees/%s", s.eventID, a.ID), nil)
	s.Equal(http.StatusNoContent, rec.Code)
}

func (s *HandlerSuite) TestSearchCPF() {
	s.registerOne("52998224725")

	rec := s.do(http.MethodGet, "/search/cpf?cpf=529.982.247-25", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var matches []models.Attendee
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &matches))
	s.Len(matches, 1)

	rec = s.do(http.MethodGet, "/search/cpf", nil)
	s.Equal(http.StatusBadRequest, rec.Code)
}
