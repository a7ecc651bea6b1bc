package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/sunsetscout/sunsetscout/internal/telemetry"
)

func TestInit_Disabled(t *testing.T) {
	ctx := context.Background()

	p, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:  "sunsetscout-test",
		OTLPEndpoint: "localhost:4317",
	})

	require.NoError(t, err)
	assert.False(t, p.Exporting())
	assert.NotNil(t, p.Tracer)
	assert.NotNil(t, p.Meter)
	assert.NoError(t, p.Shutdown(ctx))
}

// The gRPC exporters connect lazily, so Init succeeds without a collector.
func TestInit_Enabled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	p, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    "sunsetscout-test",
		ServiceVersion: "test",
		Environment:    "development",
		OTLPEndpoint:   "127.0.0.1:1",
		Enabled:        true,
		SampleRatio:    0.5,
		MetricInterval: time.Hour,
	})
	require.NoError(t, err)
	assert.True(t, p.Exporting())

	_ = p.Shutdown(ctx) //nolint:errcheck // nothing listens on the endpoint
	assert.False(t, p.Exporting())
	assert.NoError(t, p.Shutdown(ctx), "second shutdown is a no-op")
}

func TestProvider_ZeroValueShutdown(t *testing.T) {
	var p telemetry.Provider
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{1, sdktrace.AlwaysSample().Description()},
		{2, sdktrace.AlwaysSample().Description()},
		{0.25, "TraceIDRatioBased{0.25}"},
		{0, "AlwaysOffSampler"},
		{-1, "AlwaysOffSampler"},
	}
	for _, tt := range tests {
		assert.Contains(t, telemetry.Sampler(tt.ratio).Description(), tt.want, "ratio %v", tt.ratio)
	}
}
