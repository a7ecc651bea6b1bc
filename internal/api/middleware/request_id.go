// Package middleware provides HTTP middleware for the SunsetScout API.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-Id"

const (
	requestIDPrefix    = "req_"
	maxRequestIDLength = 128
)

type requestIDKey struct{}

// RequestID adopts the caller's X-Request-Id when it is usable, or issues a
// new one, and exposes it through the context and the response header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if !usableRequestID(id) {
			id = newRequestID()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// GetRequestID returns the request ID stored by RequestID, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// newRequestID returns "req_" followed by 22 hex digits of a random UUID.
func newRequestID() string {
	u := uuid.New()
	return requestIDPrefix + strings.ReplaceAll(u.String(), "-", "")[:22]
}

// usableRequestID accepts short, printable ASCII IDs so they are safe to log.
func usableRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
