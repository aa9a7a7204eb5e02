// Package metadata captures client details (IP, browser, device class) for
// checkpoint troubleshooting: when a gate device misbehaves, the audit trail
// and logs identify which scanner sent what.
package metadata

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/mssola/useragent"
)

// ClientMetadata describes the device behind a request.
type ClientMetadata struct {
	IP      string
	Browser string
	OS      string
	Mobile  bool
}

type contextKey struct{}

// FromContext retrieves the client metadata, or the zero value.
func FromContext(ctx context.Context) ClientMetadata {
	if md, ok := ctx.Value(contextKey{}).(ClientMetadata); ok {
		return md
	}
	return ClientMetadata{}
}

// Middleware parses the User-Agent and client IP into the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua := useragent.New(r.UserAgent())
		browser, version := ua.Browser()

		md := ClientMetadata{
			IP:      clientIP(r),
			Browser: strings.TrimSpace(browser + " " + version),
			OS:      ua.OS(),
			Mobile:  ua.Mobile(),
		}
		ctx := context.WithValue(r.Context(), contextKey{}, md)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// clientIP prefers the first X-Forwarded-For hop, falling back to the
// connection's remote address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
