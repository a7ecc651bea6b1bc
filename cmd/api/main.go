// Package main provides the entrypoint for the SunsetScout API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sunsetscout/sunsetscout/internal/api"
	"github.com/sunsetscout/sunsetscout/internal/api/middleware"
	"github.com/sunsetscout/sunsetscout/internal/app"
	"github.com/sunsetscout/sunsetscout/internal/config"
	"github.com/sunsetscout/sunsetscout/internal/forecast/sunsethue"
	"github.com/sunsetscout/sunsetscout/internal/scan"
	"github.com/sunsetscout/sunsetscout/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "sunsetscout-api"

	cfg, err := config.Load()
	if err != nil {
		// No logger config yet; fall back to the JSON default.
		boot := config.LogConfig{Level: "info", Format: "json"}.NewLogger(os.Stderr, serviceName, Version)
		boot.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := cfg.Log.NewLogger(os.Stdout, serviceName, Version)

	log.Info().
		Str("build_time", BuildTime).
		Str("environment", cfg.Server.Environment).
		Msg("starting SunsetScout API")

	// Initialize OpenTelemetry
	ctx := context.Background()
	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: Version,
		Environment:    cfg.Server.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if tp.Exporting() {
		log.Info().
			Str("otlp_endpoint", cfg.Telemetry.OTLPEndpoint).
			Float64("sample_ratio", cfg.Telemetry.SampleRatio).
			Msg("OpenTelemetry initialized")
	}

	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}
	forecastMetrics, err := middleware.NewForecastMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize forecast metrics")
		os.Exit(1)
	}

	services, err := app.New(cfg, log, forecastMetrics)
	if err != nil {
		log.Error().Err(err).Msg("failed to build services")
		os.Exit(1)
	}
	log.Info().
		Strs("upstreams", services.Registry.Names()).
		Dur("cache_ttl", cfg.Cache.TTL).
		Float64("provider_rps", cfg.SunsetHue.RequestsPerSecond).
		Msg("forecast services initialized")

	router := api.NewRouter(api.RouterConfig{
		Version:          Version,
		BuildTime:        BuildTime,
		Logger:           log,
		ServiceName:      serviceName,
		Metrics:          metrics,
		Forecasts:        services.Forecasts,
		Resolver:         services.Resolver,
		Scanner:          services.Orchestrator,
		DefaultLocations: scan.DefaultLocations(),
		ForecastProvider: sunsethue.ProviderName,
		Providers:        services.Registry,
		Cache:            services.Forecasts.Cache(),
		Scans:            services.Orchestrator,
		RateLimit: middleware.RateLimitConfig{
			RequestLimit: cfg.Server.RateLimitRequests,
			WindowLength: cfg.Server.RateLimitWindow,
		},
		ScanRateLimit: middleware.ScanRateLimit,
		RequireTLS:    cfg.Server.IsProduction(),
	})

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().
		Interface("scans", services.Orchestrator.MetricsSnapshot()).
		Msg("server stopped")
}
