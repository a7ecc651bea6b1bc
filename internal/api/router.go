// Package api provides the HTTP API for SunsetScout.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/sunsetscout/sunsetscout/internal/api/handler"
	"github.com/sunsetscout/sunsetscout/internal/api/middleware"
	"github.com/sunsetscout/sunsetscout/internal/scan"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics

	Forecasts handler.ForecastChecker
	Resolver  handler.LocationResolver
	Scanner   handler.ScanRunner

	// DefaultLocations is the list scanned by GET /v1/scan.
	DefaultLocations []scan.Location

	// ForecastProvider is the registry name readiness depends on.
	ForecastProvider string
	Providers        handler.HealthReporter
	Cache            handler.CacheReporter
	Scans            handler.ScanReporter

	// RateLimit applies per client IP to forecast lookups, ScanRateLimit to
	// scans. A zero config disables limiting.
	RateLimit     middleware.RateLimitConfig
	ScanRateLimit middleware.RateLimitConfig

	RequireTLS bool
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "sunsetscout-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(serviceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.ContentTypeJSON)

	opsHandler := handler.NewOpsHandler(handler.OpsConfig{
		Version:          cfg.Version,
		BuildTime:        cfg.BuildTime,
		ForecastProvider: cfg.ForecastProvider,
		Providers:        cfg.Providers,
		Cache:            cfg.Cache,
		Scans:            cfg.Scans,
	})
	forecastHandler := handler.NewForecastHandler(cfg.Forecasts, cfg.Resolver, cfg.Logger)
	scanHandler := handler.NewScanHandler(cfg.Scanner, cfg.DefaultLocations, cfg.Logger)

	standardRateLimit := middleware.RateLimitByIP(cfg.RateLimit)
	scanRateLimit := middleware.RateLimitByIP(cfg.ScanRateLimit)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		r.With(standardRateLimit).Get("/forecast", forecastHandler.GetForecast)

		// Scans fan out to the forecast provider, so they get a tighter limit.
		r.Route("/scan", func(r chi.Router) {
			r.Use(scanRateLimit)
			r.Get("/", scanHandler.ScanDefaults)
			r.With(middleware.RequireJSON).Post("/", scanHandler.ScanCustom)
		})
	})

	return r
}
