// Package http assembles the public router: middleware chain, role guards,
// and the per-module handler mounts.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	attendeehandler "gatepass/internal/attendee/handler"
	"gatepass/internal/scan"
	"gatepass/internal/sector"
	"gatepass/internal/supplier"
	"gatepass/pkg/domain"
	"gatepass/pkg/platform/middleware/actor"
	"gatepass/pkg/platform/middleware/metadata"
	"gatepass/pkg/platform/middleware/requesttime"
)

// Deps carries everything the router mounts.
type Deps struct {
	Attendees *attendeehandler.Handler
	Suppliers *supplier.Handler
	Sectors   *sector.Handler
	Scans     *scan.Handler

	Keys          actor.StaticKeys
	Authenticator actor.Authenticator

	// Health reports readiness of the backing stores; nil means always ok.
	Health func(r *http.Request) error
}

// NewRouter builds the full route tree. Everything under /events requires an
// authenticated actor; scans additionally require a gate-capable role.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requesttime.Middleware)
	r.Use(metadata.Middleware)
	r.Use(actor.Middleware(d.Keys, d.Authenticator))

	r.Get("/healthz", healthHandler(d.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(actor.RequireActor)

		d.Attendees.RegisterSearch(r)

		r.Route("/events/{eventID}", func(r chi.Router) {
			d.Attendees.Register(r)

			r.Group(func(r chi.Router) {
				r.Use(actor.RequireRole(domain.RoleAdmin))
				d.Suppliers.Register(r)
				d.Sectors.Register(r)
			})

			r.Group(func(r chi.Router) {
				r.Use(actor.RequireRole(domain.RoleAdmin, domain.RoleStaff, domain.RoleCheckpoint))
				d.Scans.Register(r)
			})
		})
	})

	return r
}

func healthHandler(health func(r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if health != nil {
			if err := health(r); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
