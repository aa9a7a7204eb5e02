package testutil

import (
	"net/http"
	"time"

	"gatepass/pkg/domain"
	"gatepass/pkg/requestcontext"
)

// WithActor stamps an acting identity onto the request context, simulating
// what the actor middleware does for authenticated requests.
func WithActor(req *http.Request, name string, role domain.Role) *http.Request {
	ctx := requestcontext.WithActor(req.Context(), requestcontext.ActorIdentity{Name: name, Role: role})
	return req.WithContext(ctx)
}

// WithPromoter stamps a promoter identity scoped to the given supplier.
func WithPromoter(req *http.Request, name string, supplierID domain.SupplierID) *http.Request {
	ctx := requestcontext.WithActor(req.Context(), requestcontext.ActorIdentity{
		Name:       name,
		Role:       domain.RolePromoter,
		SupplierID: supplierID,
	})
	return req.WithContext(ctx)
}

// WithTime pins the request-scoped clock so assertions on timestamps are
// deterministic.
func WithTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
