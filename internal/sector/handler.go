package sector

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gatepass/pkg/domain"
	dErrors "gatepass/pkg/domain-errors"
	"gatepass/pkg/platform/httputil"
	"gatepass/pkg/requestcontext"
)

type Handler struct {
	svc    *Service
	logger *slog.Logger
}

func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the sector and validation point routes onto a router
// already scoped to /events/{eventID}.
func (h *Handler) Register(r chi.Router) {
	r.Route("/sectors", func(r chi.Router) {
		r.Post("/", h.createSector)
		r.Get("/", h.listSectors)
		r.Route("/{sectorID}", func(r chi.Router) {
			r.Get("/", h.getSector)
			r.Put("/", h.updateSector)
			r.Delete("/", h.deleteSector)
		})
	})
	r.Route("/points", func(r chi.Router) {
		r.Post("/", h.createPoint)
		r.Get("/", h.listPoints)
		r.Delete("/{pointID}", h.deletePoint)
	})
}

type sectorRequest struct {
	Label string `json:"label"`
	Color string `json:"color,omitempty"`
}

func (r *sectorRequest) Validate() error {
	if r.Label == "" {
		return dErrors.New(dErrors.CodeValidation, "label is required")
	}
	return nil
}

type pointRequest struct {
	SectorID domain.SectorID `json:"sector_id"`
	Label    string          `json:"label"`
}

func (r *pointRequest) Validate() error {
	if r.Label == "" {
		return dErrors.New(dErrors.CodeValidation, "label is required")
	}
	if r.SectorID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "sector_id is required")
	}
	return nil
}

func eventIDFromPath(r *http.Request) (domain.EventID, error) {
	eventID, err := domain.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		return domain.EventID{}, dErrors.New(dErrors.CodeBadRequest, "malformed event id")
	}
	return eventID, nil
}

func (h *Handler) createSector(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, err := eventIDFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[sectorRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	sec, err := h.svc.CreateSector(ctx, eventID, req.Label, req.Color)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, sec)
}

func (h *Handler) getSector(w http.ResponseWriter, r *http.Request) {
	eventID, err := eventIDFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	sectorID, err := domain.ParseSectorID(chi.URLParam(r, "sectorID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed sector id"))
		return
	}
	sec, err := h.svc.GetSector(r.Context(), eventID, sectorID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sec)
}

func (h *Handler) listSectors(w http.ResponseWriter, r *http.Request) {
	eventID, err := eventIDFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	sectors, err := h.svc.ListSectors(r.Context(), eventID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if sectors == nil {
		sectors = []*Sector{}
	}
	httputil.WriteJSON(w, http.StatusOK, sectors)
}

func (h *Handler) updateSector(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, err := eventIDFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	sectorID, err := domain.ParseSectorID(chi.URLParam(r, "sectorID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed sector id"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[sectorRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	sec, err := h.svc.UpdateSector(ctx, eventID, sectorID, req.Label, req.Color)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sec)
}

func (h *Handler) deleteSector(w http.ResponseWriter, r *http.Request) {
	eventID, err := eventIDFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	sectorID, err := domain.ParseSectorID(chi.URLParam(r, "sectorID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed sector id"))
		return
	}
	if err := h.svc.DeleteSector(r.Context(), eventID, sectorID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) createPoint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, err := eventIDFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[pointRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	p, err := h.svc.CreatePoint(ctx, eventID, req.SectorID, req.Label)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) listPoints(w http.ResponseWriter, r *http.Request) {
	eventID, err := eventIDFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	points, err := h.svc.ListPoints(r.Context(), eventID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if points == nil {
		points = []*ValidationPoint{}
	}
	httputil.WriteJSON(w, http.StatusOK, points)
}

func (h *Handler) deletePoint(w http.ResponseWriter, r *http.Request) {
	eventID, err := eventIDFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	pointID, err := domain.ParseValidationPointID(chi.URLParam(r, "pointID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed validation point id"))
		return
	}
	if err := h.svc.DeletePoint(r.Context(), eventID, pointID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
