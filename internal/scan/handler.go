package scan

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

// Register mounts the scan routes onto a router already scoped to
// /events/{eventID}.
func (h *Handler) Register(r chi.Router) {
	r.Route("/scan", func(r chi.Router) {
		r.Post("/general", h.general)
		r.Post("/points/{pointID}", h.point)
	})
}

type generalScanRequest struct {
	Code string `json:"code"`
}

func (r *generalScanRequest) Validate() error {
	if r.Code == "" {
		return dErrors.New(dErrors.CodeValidation, "code is required")
	}
	return nil
}

type pointScanRequest struct {
	Code        string `json:"code"`
	CapturedRef string `json:"captured_ref,omitempty"`
	Override    bool   `json:"override,omitempty"`
}

func (r *pointScanRequest) Validate() error {
	if r.Code == "" {
		return dErrors.New(dErrors.CodeValidation, "code is required")
	}
	return nil
}

func (h *Handler) general(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, err := domain.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed event id"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[generalScanRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	result, err := h.svc.ResolveGeneral(ctx, eventID, req.Code)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) point(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, err := domain.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed event id"))
		return
	}
	pointID, err := domain.ParseValidationPointID(chi.URLParam(r, "pointID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed validation point id"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[pointScanRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	result, err := h.svc.ResolveSector(ctx, eventID, pointID, req.Code, req.CapturedRef, req.Override)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}
