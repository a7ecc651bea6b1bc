package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"

	"github.com/sunsetscout/sunsetscout/internal/api/models"
)

// Recovery converts a handler panic into a logged 500 problem. The panic
// value never reaches the client. http.ErrAbortHandler keeps propagating
// so the server can drop the connection.
func Recovery(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					handlePanic(log, w, r, v)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func handlePanic(log zerolog.Logger, w http.ResponseWriter, r *http.Request, v any) {
	if v == http.ErrAbortHandler { //nolint:errorlint // sentinel panic value
		panic(v)
	}

	id := GetRequestID(r.Context())
	log.Error().
		Str("request_id", id).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Interface("panic", v).
		Bytes("stack", debug.Stack()).
		Msg("panic recovered")

	models.NewInternalError(id, "an unexpected error occurred").
		WithInstance(r.URL.Path).
		Write(w)
}
