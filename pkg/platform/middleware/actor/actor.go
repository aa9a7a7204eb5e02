// Package actor resolves request credentials into the acting identity the
// services authorize against. Two credential forms exist: static API keys for
// venue roles (admin, staff, checkpoint devices) and supplier capability
// tokens (JWT) for promoters.
package actor

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"gatepass/pkg/domain"
	dErrors "gatepass/pkg/domain-errors"
	"gatepass/pkg/platform/httputil"
	"gatepass/pkg/requestcontext"
)

// StaticKeys are the pre-shared keys for venue roles. Empty keys disable the
// role.
type StaticKeys struct {
	Admin      string
	Staff      string
	Checkpoint string
}

// Authenticator resolves a supplier capability token. Satisfied by the
// supplier service.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (requestcontext.ActorIdentity, error)
}

// Middleware resolves X-Api-Key or an Authorization bearer token into the
// request-context actor. Requests without credentials pass through with no
// actor; RequireActor enforces presence where it matters.
func Middleware(keys StaticKeys, suppliers Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if key := r.Header.Get("X-Api-Key"); key != "" {
				role, ok := keys.match(key)
				if !ok {
					httputil.WriteError(w,
						dErrors.New(dErrors.CodeUnauthorized, "unknown api key"))
					return
				}
				name := r.Header.Get("X-Actor-Name")
				if name == "" {
					name = string(role)
				}
				ctx = requestcontext.WithActor(ctx, requestcontext.ActorIdentity{
					Name: name, Role: role,
				})
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			if auth := r.Header.Get("Authorization"); auth != "" {
				token, ok := strings.CutPrefix(auth, "Bearer ")
				if !ok || suppliers == nil {
					httputil.WriteError(w,
						dErrors.New(dErrors.CodeUnauthorized, "malformed authorization header"))
					return
				}
				identity, err := suppliers.Authenticate(ctx, token)
				if err != nil {
					httputil.WriteError(w, err)
					return
				}
				ctx = requestcontext.WithActor(ctx, identity)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireActor rejects requests that reached a protected route without a
// resolved identity.
func RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requestcontext.Actor(r.Context()).Role == "" {
			httputil.WriteError(w,
				dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects requests whose actor is not one of the given roles.
func RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := requestcontext.Actor(r.Context())
			for _, role := range roles {
				if actor.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			httputil.WriteError(w,
				dErrors.New(dErrors.CodeForbidden, "insufficient role"))
		})
	}
}

func (k StaticKeys) match(key string) (domain.Role, bool) {
	if equal(key, k.Admin) {
		return domain.RoleAdmin, true
	}
	if equal(key, k.Staff) {
		return domain.RoleStaff, true
	}
	if equal(key, k.Checkpoint) {
		return domain.RoleCheckpoint, true
	}
	return "", false
}

func equal(a, b string) bool {
	return b != "" && subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
