// Package app wires the forecast provider, cache, scanner and location
// resolver from configuration. It is shared by the API server and the
// scanner command.
package app

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/sunsetscout/sunsetscout/internal/config"
	"github.com/sunsetscout/sunsetscout/internal/forecast"
	"github.com/sunsetscout/sunsetscout/internal/forecast/sunsethue"
	"github.com/sunsetscout/sunsetscout/internal/locate"
	"github.com/sunsetscout/sunsetscout/internal/provider/resilience"
	"github.com/sunsetscout/sunsetscout/internal/scan"
)

// App holds the long-lived services of a process.
type App struct {
	Registry     *resilience.Registry
	Forecasts    *forecast.Service
	Orchestrator *scan.Orchestrator
	Resolver     *locate.Resolver
}

// New builds the services described by cfg. metrics may be nil.
func New(cfg *config.Config, logger zerolog.Logger, metrics forecast.MetricsRecorder) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}

	registry := resilience.NewRegistry()

	var provider forecast.Provider = sunsethue.NewClient(sunsethue.ClientConfig{
		APIKey:     cfg.SunsetHue.APIKey,
		BaseURL:    cfg.SunsetHue.BaseURL,
		UserAgent:  cfg.SunsetHue.UserAgent,
		HTTPClient: sunsethue.NewHTTPClient(cfg.SunsetHue.Timeout, registry, logger),
		Logger:     logger,
	})
	if cfg.SunsetHue.RequestsPerSecond > 0 {
		provider = forecast.NewRateLimitedProvider(provider, cfg.SunsetHue.RequestsPerSecond, cfg.SunsetHue.Burst)
	}

	forecasts := forecast.NewService(forecast.ServiceConfig{
		Provider: provider,
		Cache: forecast.NewCache(forecast.CacheConfig{
			TTL:    cfg.Cache.TTL,
			Logger: logger,
		}),
		Logger:  logger,
		Metrics: metrics,
	})

	orchestrator := scan.NewOrchestrator(scan.OrchestratorConfig{
		Config: scan.Config{
			PacingDelay: cfg.Scan.PacingDelay,
			Concurrency: cfg.Scan.Concurrency,
		},
		Forecasts: forecasts,
		Logger:    logger,
	})

	geoCfg := resilience.DefaultClientConfig(locate.NominatimName)
	geoCfg.Registry = registry
	geoCfg.Logger = logger
	geocoder := locate.NewNominatim(locate.NominatimConfig{
		BaseURL:    cfg.Nominatim.BaseURL,
		UserAgent:  cfg.Nominatim.UserAgent,
		HTTPClient: resilience.NewClient(geoCfg),
		Logger:     logger,
	})

	pageCfg := resilience.DefaultClientConfig(locate.TrailsName)
	pageCfg.Registry = registry
	pageCfg.Logger = logger
	pages := locate.NewTrailLocator(locate.TrailLocatorConfig{
		HTTPClient: resilience.NewClient(pageCfg),
		Geocoder:   geocoder,
		Logger:     logger,
	})

	return &App{
		Registry:     registry,
		Forecasts:    forecasts,
		Orchestrator: orchestrator,
		Resolver: locate.NewResolver(locate.ResolverConfig{
			Geocoder: geocoder,
			Pages:    pages,
			Logger:   logger,
		}),
	}, nil
}
