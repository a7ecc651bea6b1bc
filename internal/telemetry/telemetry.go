// Package telemetry wires OpenTelemetry trace and metric export over OTLP/gRPC.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// DefaultMetricInterval is the push period when Config.MetricInterval is unset.
const DefaultMetricInterval = 15 * time.Second

type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string
	Enabled        bool

	// SampleRatio is the share of root traces kept. Child spans follow
	// their parent's decision.
	SampleRatio float64

	MetricInterval time.Duration
}

// Provider is the result of Init. Tracer and Meter are always usable; when
// export is disabled they are the global no-op implementations.
type Provider struct {
	Tracer trace.Tracer
	Meter  metric.Meter

	shutdowns []func(context.Context) error
}

// Exporting reports whether spans and metrics leave the process.
func (p *Provider) Exporting() bool {
	return len(p.shutdowns) > 0
}

// Shutdown flushes pending telemetry, newest provider first. It is safe to
// call more than once.
func (p *Provider) Shutdown(ctx context.Context) error {
	var err error
	for i := len(p.shutdowns) - 1; i >= 0; i-- {
		err = errors.Join(err, p.shutdowns[i](ctx))
	}
	p.shutdowns = nil
	return err
}

// Init installs global tracer and meter providers that export to
// cfg.OTLPEndpoint, plus the W3C trace-context and baggage propagators.
// The caller must Shutdown the returned Provider on exit.
func Init(ctx context.Context, cfg Config) (*Provider, error) {
	p := &Provider{}
	if !cfg.Enabled {
		p.Tracer = otel.Tracer(cfg.ServiceName)
		p.Meter = otel.Meter(cfg.ServiceName)
		return p, nil
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironment(cfg.Environment),
	))
	if err != nil {
		return nil, fmt.Errorf("building resource: %w", err)
	}

	tp, err := newTracerProvider(ctx, cfg, res)
	if err != nil {
		return nil, err
	}
	p.shutdowns = append(p.shutdowns, tp.Shutdown)

	mp, err := newMeterProvider(ctx, cfg, res)
	if err != nil {
		_ = p.Shutdown(ctx) //nolint:errcheck // already failing
		return nil, err
	}
	p.shutdowns = append(p.shutdowns, mp.Shutdown)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	p.Tracer = tp.Tracer(cfg.ServiceName)
	p.Meter = mp.Meter(cfg.ServiceName)
	return p, nil
}

// Sampler maps a ratio to a sampler: 1 or more keeps every trace, 0 or
// less keeps only children of sampled parents.
func Sampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.AlwaysSample()
	case ratio <= 0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

func newTracerProvider(ctx context.Context, cfg Config, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(Sampler(cfg.SampleRatio)),
	), nil
}

func newMeterProvider(ctx context.Context, cfg Config, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	exp, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	interval := cfg.MetricInterval
	if interval <= 0 {
		interval = DefaultMetricInterval
	}
	reader := sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(interval))

	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(res),
	), nil
}
