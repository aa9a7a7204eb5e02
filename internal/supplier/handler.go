package supplier

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

// Register mounts the supplier routes onto a router already scoped to
// /events/{eventID}.
func (h *Handler) Register(r chi.Router) {
	r.Route("/suppliers", func(r chi.Router) {
		r.Post("/", h.create)
		r.Get("/", h.list)
		r.Route("/{supplierID}", func(r chi.Router) {
			r.Get("/", h.get)
			r.Post("/active", h.setActive)
			r.Post("/token", h.mintToken)
		})
	})
}

type createSupplierRequest struct {
	Name              string            `json:"name"`
	Sectors           []domain.SectorID `json:"sector_ids"`
	RegistrationLimit int               `json:"registration_limit"`
	SubCompanies      []SubCompany      `json:"sub_companies,omitempty"`
}

func (r *createSupplierRequest) Validate() error {
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if len(r.Sectors) == 0 {
		return dErrors.New(dErrors.CodeValidation, "sector_ids must not be empty")
	}
	if r.RegistrationLimit < 0 {
		return dErrors.New(dErrors.CodeValidation, "registration_limit must not be negative")
	}
	return nil
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

func (r *setActiveRequest) Validate() error { return nil }

func pathIDs(r *http.Request) (domain.EventID, domain.SupplierID, error) {
	eventID, err := domain.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		return domain.EventID{}, domain.SupplierID{}, dErrors.New(dErrors.CodeBadRequest, "malformed event id")
	}
	supplierID, err := domain.ParseSupplierID(chi.URLParam(r, "supplierID"))
	if err != nil {
		return domain.EventID{}, domain.SupplierID{}, dErrors.New(dErrors.CodeBadRequest, "malformed supplier id")
	}
	return eventID, supplierID, nil
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, err := domain.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed event id"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[createSupplierRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	sup, err := h.svc.Create(ctx, CreateInput{
		EventID:           eventID,
		Name:              req.Name,
		Sectors:           req.Sectors,
		RegistrationLimit: req.RegistrationLimit,
		SubCompanies:      req.SubCompanies,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, sup)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	eventID, supplierID, err := pathIDs(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	sup, err := h.svc.Get(r.Context(), eventID, supplierID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sup)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	eventID, err := domain.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed event id"))
		return
	}
	suppliers, err := h.svc.List(r.Context(), eventID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if suppliers == nil {
		suppliers = []*Supplier{}
	}
	httputil.WriteJSON(w, http.StatusOK, suppliers)
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, supplierID, err := pathIDs(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[setActiveRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	sup, err := h.svc.SetActive(ctx, eventID, supplierID, req.Active)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sup)
}

func (h *Handler) mintToken(w http.ResponseWriter, r *http.Request) {
	eventID, supplierID, err := pathIDs(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	token, err := h.svc.MintToken(r.Context(), eventID, supplierID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	// The plaintext token is shown exactly once.
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"token": token})
}
