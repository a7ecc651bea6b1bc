package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/sunsetscout/sunsetscout/internal/api/middleware"

// instruments creates instruments on one meter and collects the first error
// of each, so constructors can check once at the end.
type instruments struct {
	meter metric.Meter
	errs  []error
}

func newInstruments() *instruments {
	return &instruments{meter: otel.Meter(meterName)}
}

func (in *instruments) counter(name, desc, unit string) metric.Int64Counter {
	c, err := in.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	in.errs = append(in.errs, err)
	return c
}

func (in *instruments) upDown(name, desc, unit string) metric.Int64UpDownCounter {
	c, err := in.meter.Int64UpDownCounter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	in.errs = append(in.errs, err)
	return c
}

func (in *instruments) seconds(name, desc string) metric.Float64Histogram {
	h, err := in.meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("s"))
	in.errs = append(in.errs, err)
	return h
}

func (in *instruments) bytes(name, desc string) metric.Int64Histogram {
	h, err := in.meter.Int64Histogram(name, metric.WithDescription(desc), metric.WithUnit("By"))
	in.errs = append(in.errs, err)
	return h
}

func (in *instruments) err() error {
	return errors.Join(in.errs...)
}

// Metrics holds the HTTP server instruments.
type Metrics struct {
	duration metric.Float64Histogram
	total    metric.Int64Counter
	inFlight metric.Int64UpDownCounter
	size     metric.Int64Histogram
}

// NewMetrics creates the HTTP server instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	in := newInstruments()
	m := &Metrics{
		duration: in.seconds("http.server.request.duration", "Duration of HTTP server requests"),
		total:    in.counter("http.server.request.total", "HTTP server requests", "{request}"),
		inFlight: in.upDown("http.server.requests_in_flight", "HTTP requests being served", "{request}"),
		size:     in.bytes("http.server.response.size", "Size of HTTP response bodies"),
	}
	if err := in.err(); err != nil {
		return nil, err
	}
	return m, nil
}

// Middleware records duration, count and size per request. Requests are
// labelled by chi route pattern, so coordinates in the query or path never
// become label values.
func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			start := time.Now()

			method := metric.WithAttributes(attribute.String("http.request.method", r.Method))
			m.inFlight.Add(ctx, 1, method)
			defer m.inFlight.Add(ctx, -1, method)

			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)

			labels := metric.WithAttributes(requestLabels(r, rec.statusCode)...)
			m.duration.Record(ctx, time.Since(start).Seconds(), labels)
			m.total.Add(ctx, 1, labels)
			m.size.Record(ctx, rec.written, labels)
		})
	}
}

func requestLabels(r *http.Request, status int) []attribute.KeyValue {
	labels := []attribute.KeyValue{
		attribute.String("http.request.method", r.Method),
		attribute.String("http.route", routePattern(r)),
		attribute.String("http.response.status_code", strconv.Itoa(status)),
	}
	if status >= http.StatusBadRequest {
		labels = append(labels, attribute.Bool("error", true))
	}
	return labels
}

// ForecastMetrics records forecast provider calls and grid cache lookups.
// It satisfies forecast.MetricsRecorder.
type ForecastMetrics struct {
	fetchDuration metric.Float64Histogram
	fetches       metric.Int64Counter
	lookups       metric.Int64Counter
}

// NewForecastMetrics creates the forecast instruments on the global meter provider.
func NewForecastMetrics() (*ForecastMetrics, error) {
	in := newInstruments()
	m := &ForecastMetrics{
		fetchDuration: in.seconds("sunsetscout.forecast.fetch.duration", "Duration of forecast provider calls"),
		fetches:       in.counter("sunsetscout.forecast.fetches", "Forecast provider calls", "{call}"),
		lookups:       in.counter("sunsetscout.forecast.cache.lookups", "Forecast grid cache lookups", "{lookup}"),
	}
	if err := in.err(); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordRequest records one provider call. Recording uses a background
// context since the caller's may already be canceled.
func (m *ForecastMetrics) RecordRequest(provider, operation string, duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	labels := metric.WithAttributes(
		attribute.String("provider.name", provider),
		attribute.String("provider.operation", operation),
		attribute.String("outcome", outcome),
	)
	m.fetchDuration.Record(context.Background(), duration.Seconds(), labels)
	m.fetches.Add(context.Background(), 1, labels)
}

// RecordCacheHit records a lookup served from the grid cache.
func (m *ForecastMetrics) RecordCacheHit(provider, operation string) {
	m.lookup(provider, operation, "hit")
}

// RecordCacheMiss records a lookup that had to go to the provider.
func (m *ForecastMetrics) RecordCacheMiss(provider, operation string) {
	m.lookup(provider, operation, "miss")
}

func (m *ForecastMetrics) lookup(provider, operation, result string) {
	m.lookups.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("provider.name", provider),
		attribute.String("provider.operation", operation),
		attribute.String("result", result),
	))
}
