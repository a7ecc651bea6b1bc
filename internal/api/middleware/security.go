package middleware

import (
	"net/http"

	"github.com/sunsetscout/sunsetscout/internal/api/models"
)

// securityHeaders is set on every response. The API serves JSON only, so
// the content policy forbids everything.
var securityHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Strict-Transport-Security", "max-age=31536000; includeSubDomains"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	{"Referrer-Policy", "strict-origin-when-cross-origin"},
	{"Permissions-Policy", "geolocation=(), camera=(), microphone=()"},
}

// SecurityHeaders sets the hardening headers before the handler runs.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for _, kv := range securityHeaders {
			h.Set(kv[0], kv[1])
		}
		next.ServeHTTP(w, r)
	})
}

// RequireTLS answers 403 when the load balancer reports the client spoke
// plain HTTP. Without X-Forwarded-Proto the request is trusted, which keeps
// direct connections and local runs working.
func RequireTLS(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			proto := r.Header.Get("X-Forwarded-Proto")
			if proto == "" || proto == "https" {
				next.ServeHTTP(w, r)
				return
			}
			models.NewTLSRequired(GetRequestID(r.Context()), "This endpoint requires HTTPS").
				WithInstance(r.URL.Path).
				Write(w)
		})
	}
}
