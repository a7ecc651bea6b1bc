package middleware

import (
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/sunsetscout/sunsetscout/internal/api/middleware"

// Tracing starts a server span per request, continuing a trace propagated
// in the headers. The span is named "METHOD /path" until routing completes
// and is then renamed to "METHOD <route pattern>".
func Tracing(serviceName string) func(http.Handler) http.Handler {
	tracer := otel.Tracer(tracerName)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			parent := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

			ctx, span := tracer.Start(parent, r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(serverAttributes(r, serviceName)...),
			)
			defer span.End()

			if id := GetRequestID(ctx); id != "" {
				span.SetAttributes(attribute.String("request.id", id))
			}

			rec := newStatusRecorder(w)
			r = r.WithContext(ctx)
			next.ServeHTTP(rec, r)

			route := routePattern(r)
			span.SetName(r.Method + " " + route)
			span.SetAttributes(
				attribute.String("http.route", route),
				attribute.Int("http.response.status_code", rec.statusCode),
				attribute.Int64("http.response.body.size", rec.written),
			)
			if rec.statusCode >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(rec.statusCode))
			}
		})
	}
}

func serverAttributes(r *http.Request, serviceName string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("service.name", serviceName),
		attribute.String("http.request.method", r.Method),
		attribute.String("url.scheme", scheme(r)),
		attribute.String("url.path", r.URL.Path),
		attribute.String("server.address", r.Host),
		attribute.String("client.address", r.RemoteAddr),
	}
	if r.URL.RawQuery != "" {
		attrs = append(attrs, attribute.String("url.query", r.URL.RawQuery))
	}
	if ua := r.UserAgent(); ua != "" {
		attrs = append(attrs, attribute.String("user_agent.original", ua))
	}
	return attrs
}

func scheme(r *http.Request) string {
	switch {
	case r.TLS != nil:
		return "https"
	case r.Header.Get("X-Forwarded-Proto") != "":
		return r.Header.Get("X-Forwarded-Proto")
	default:
		return "http"
	}
}
