package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Logger writes one line per completed request, correlated with the request
// ID and the active trace.
func Logger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)

			next.ServeHTTP(rec, r)

			event := log.WithLevel(levelFor(rec.statusCode)).
				Str("request_id", GetRequestID(r.Context()))
			if sc := trace.SpanContextFromContext(r.Context()); sc.IsValid() {
				event = event.
					Str("trace_id", sc.TraceID().String()).
					Str("span_id", sc.SpanID().String())
			}

			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("route", routePattern(r)).
				Int("status", rec.statusCode).
				Int64("bytes", rec.written).
				Dur("duration", time.Since(start)).
				Str("remote_addr", r.RemoteAddr).
				Str("user_agent", r.UserAgent()).
				Msg("request completed")
		})
	}
}

// levelFor logs server errors at error, client errors at warn and the rest at info.
func levelFor(status int) zerolog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zerolog.ErrorLevel
	case status >= http.StatusBadRequest:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}
