package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/sunsetscout/sunsetscout/internal/api/middleware"
)

// setupMeter installs a manual reader on the global meter provider.
func setupMeter(t *testing.T) *sdkmetric.ManualReader {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(mp)
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return reader
}

func collectSum(t *testing.T, reader *sdkmetric.ManualReader, name string) []metricdata.DataPoint[int64] {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is not an int64 sum", name)
			return sum.DataPoints
		}
	}
	return nil
}

func TestNewMetrics(t *testing.T) {
	metrics, err := middleware.NewMetrics()
	require.NoError(t, err)
	assert.NotNil(t, metrics)
}

func TestMetrics_Middleware_LabelsByRoute(t *testing.T) {
	reader := setupMeter(t)
	metrics, err := middleware.NewMetrics()
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(metrics.Middleware())
	r.Get("/v1/spots/{name}", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})

	for _, path := range []string{"/v1/spots/mori-point", "/v1/spots/sweeney-ridge"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
		assert.Equal(t, http.StatusOK, w.Code)
	}

	points := collectSum(t, reader, "http.server.request.total")
	require.Len(t, points, 1)
	assert.Equal(t, int64(2), points[0].Value)

	route, ok := points[0].Attributes.Value(attribute.Key("http.route"))
	require.True(t, ok)
	assert.Equal(t, "/v1/spots/{name}", route.AsString())

	status, ok := points[0].Attributes.Value(attribute.Key("http.response.status_code"))
	require.True(t, ok)
	assert.Equal(t, "200", status.AsString())
}

func TestMetrics_Middleware_MarksErrors(t *testing.T) {
	reader := setupMeter(t)
	metrics, err := middleware.NewMetrics()
	require.NoError(t, err)

	handler := metrics.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("error"))
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/scan", http.NoBody))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	points := collectSum(t, reader, "http.server.request.total")
	require.Len(t, points, 1)
	flag, ok := points[0].Attributes.Value(attribute.Key("error"))
	require.True(t, ok)
	assert.True(t, flag.AsBool())

	// Without a chi route the raw path is used.
	route, _ := points[0].Attributes.Value(attribute.Key("http.route"))
	assert.Equal(t, "/v1/scan", route.AsString())
}

func TestMetrics_Middleware_DefaultStatusCode(t *testing.T) {
	metrics, err := middleware.NewMetrics()
	require.NoError(t, err)

	handler := metrics.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("response"))
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", http.NoBody))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestForecastMetrics_Records(t *testing.T) {
	reader := setupMeter(t)
	fm, err := middleware.NewForecastMetrics()
	require.NoError(t, err)

	fm.RecordRequest("sunsethue", "forecast", 120*time.Millisecond, nil)
	fm.RecordRequest("sunsethue", "forecast", 80*time.Millisecond, errors.New("boom"))
	fm.RecordCacheHit("sunsethue", "forecast")
	fm.RecordCacheHit("sunsethue", "forecast")
	fm.RecordCacheMiss("sunsethue", "forecast")

	byOutcome := map[string]int64{}
	for _, dp := range collectSum(t, reader, "sunsetscout.forecast.fetches") {
		v, _ := dp.Attributes.Value(attribute.Key("outcome"))
		byOutcome[v.AsString()] += dp.Value
	}
	assert.Equal(t, map[string]int64{"ok": 1, "error": 1}, byOutcome)

	byResult := map[string]int64{}
	for _, dp := range collectSum(t, reader, "sunsetscout.forecast.cache.lookups") {
		v, _ := dp.Attributes.Value(attribute.Key("result"))
		name, _ := dp.Attributes.Value(attribute.Key("provider.name"))
		assert.Equal(t, "sunsethue", name.AsString())
		byResult[v.AsString()] += dp.Value
	}
	assert.Equal(t, map[string]int64{"hit": 2, "miss": 1}, byResult)
}
