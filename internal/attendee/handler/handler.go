// Package handler exposes the attendee lifecycle over HTTP.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gatepass/internal/attendee/models"
	"gatepass/internal/attendee/service"
	"gatepass/internal/attendee/store"
	"gatepass/pkg/domain"
	dErrors "gatepass/pkg/domain-errors"
	"gatepass/pkg/platform/httputil"
	"gatepass/pkg/requestcontext"
)

type Handler struct {
	svc    *service.Service
	logger *slog.Logger
}

func New(svc *service.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the attendee routes onto a router already scoped to
// /events/{eventID}.
func (h *Handler) Register(r chi.Router) {
	r.Route("/attendees", func(r chi.Router) {
		r.Post("/", h.register)
		r.Get("/", h.list)
		r.Post("/bulk/sectors", h.bulkSectors)
		r.Post("/bulk/block", h.bulkBlock)
		r.Post("/bulk/unblock", h.bulkUnblock)
		r.Route("/{attendeeID}", func(r chi.Router) {
			r.Get("/", h.get)
			r.Delete("/", h.delete)
			r.Post("/status", h.updateStatus)
			r.Post("/substitution", h.requestSubstitution)
			r.Post("/sector-change", h.requestSectorChange)
			r.Post("/approve", h.approve)
			r.Post("/reject", h.reject)
			r.Post("/block", h.block)
			r.Post("/unblock", h.unblock)
		})
	})
}

// RegisterSearch mounts the cross-event CPF search at the API root.
func (h *Handler) RegisterSearch(r chi.Router) {
	r.Get("/search/cpf", h.searchCPF)
}

func pathIDs(r *http.Request) (domain.EventID, domain.AttendeeID, error) {
	eventID, err := domain.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		return domain.EventID{}, domain.AttendeeID{}, dErrors.New(dErrors.CodeBadRequest, "malformed event id")
	}
	attendeeID, err := domain.ParseAttendeeID(chi.URLParam(r, "attendeeID"))
	if err != nil {
		return domain.EventID{}, domain.AttendeeID{}, dErrors.New(dErrors.CodeBadRequest, "malformed attendee id")
	}
	return eventID, attendeeID, nil
}

func eventIDFromPath(r *http.Request) (domain.EventID, error) {
	eventID, err := domain.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		return domain.EventID{}, dErrors.New(dErrors.CodeBadRequest, "malformed event id")
	}
	return eventID, nil
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, err := eventIDFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[registerRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	a, err := h.svc.Register(ctx, service.RegisterInput{
		EventID:    eventID,
		Name:       req.Name,
		CPF:        req.CPF,
		PhotoRef:   req.PhotoRef,
		Sectors:    req.Sectors,
		SupplierID: req.SupplierID,
		SubCompany: req.SubCompany,
		Wristbands: req.Wristbands,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, a)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	eventID, attendeeID, err := pathIDs(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	a, err := h.svc.Get(r.Context(), eventID, attendeeID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	eventID, err := eventIDFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	filter := store.Filter{}
	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = models.CheckinStatus(status)
		if !filter.Status.IsValid() {
			httputil.WriteError(w, dErrors.Newf(dErrors.CodeValidation, "unknown status %q", status))
			return
		}
	}
	if raw := r.URL.Query().Get("supplier_id"); raw != "" {
		id, err := domain.ParseSupplierID(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed supplier id"))
			return
		}
		filter.SupplierID = id
	}
	if raw := r.URL.Query().Get("sector_id"); raw != "" {
		id, err := domain.ParseSectorID(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed sector id"))
			return
		}
		filter.SectorID = id
	}

	attendees, err := h.svc.List(r.Context(), eventID, filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if attendees == nil {
		attendees = []*models.Attendee{}
	}
	httputil.WriteJSON(w, http.StatusOK, attendees)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	eventID, attendeeID, err := pathIDs(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.svc.Delete(r.Context(), eventID, attendeeID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, attendeeID, err := pathIDs(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[statusRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	a, err := h.svc.UpdateStatus(ctx, eventID, attendeeID, service.StatusChangeInput{
		Target:     req.Status,
		Wristbands: req.Wristbands,
		Reason:     req.Reason,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) requestSubstitution(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, attendeeID, err := pathIDs(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[substitutionRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	a, err := h.svc.RequestSubstitution(ctx, eventID, attendeeID, service.SubstitutionInput{
		Name:     req.Name,
		CPF:      req.CPF,
		PhotoRef: req.PhotoRef,
		Sectors:  req.Sectors,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) requestSectorChange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, attendeeID, err := pathIDs(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[sectorChangeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	a, err := h.svc.RequestSectorChange(ctx, eventID, attendeeID, req.Sectors)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	eventID, attendeeID, err := pathIDs(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	a, err := h.svc.Approve(r.Context(), eventID, attendeeID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	eventID, attendeeID, err := pathIDs(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	a, err := h.svc.Reject(r.Context(), eventID, attendeeID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) block(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, attendeeID, err := pathIDs(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[blockRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	a, err := h.svc.Block(ctx, eventID, attendeeID, req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) unblock(w http.ResponseWriter, r *http.Request) {
	eventID, attendeeID, err := pathIDs(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	a, err := h.svc.Unblock(r.Context(), eventID, attendeeID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) bulkSectors(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, err := eventIDFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[bulkSectorsRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	results, err := h.svc.BulkUpdateSectors(ctx, eventID, req.IDs, req.Sectors)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toBulkResponse(results))
}

func (h *Handler) bulkBlock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, err := eventIDFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[bulkBlockRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	results, err := h.svc.BulkBlock(ctx, eventID, req.IDs, req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toBulkResponse(results))
}

func (h *Handler) bulkUnblock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, err := eventIDFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[bulkUnblockRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	results, err := h.svc.BulkUnblock(ctx, eventID, req.IDs)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toBulkResponse(results))
}

func (h *Handler) searchCPF(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("cpf")
	if raw == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "cpf query parameter is required"))
		return
	}
	matches, err := h.svc.SearchByCPF(r.Context(), raw)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if matches == nil {
		matches = []*models.Attendee{}
	}
	httputil.WriteJSON(w, http.StatusOK, matches)
}
