// Package forecast provides sunrise/sunset quality forecasts with grid-cell
// caching and in-flight request deduplication.
package forecast

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/sunsetscout/sunsetscout/internal/grid"
)

// Provider defines the interface for forecast data providers.
type Provider interface {
	// GetForecast fetches the sunrise/sunset forecast for a location.
	GetForecast(ctx context.Context, coord grid.Coordinate) (*Payload, error)

	// Name returns the provider name for logging.
	Name() string
}

// MetricsRecorder receives provider call and cache metrics.
type MetricsRecorder interface {
	RecordRequest(provider, operation string, duration time.Duration, err error)
	RecordCacheHit(provider, operation string)
	RecordCacheMiss(provider, operation string)
}

const operationForecast = "forecast"

// ServiceConfig holds configuration for the forecast service.
type ServiceConfig struct {
	// Provider is the forecast data provider.
	Provider Provider

	// Cache stores payloads per grid cell. If nil, a cache with default TTL is created.
	Cache *Cache

	// Logger for service operations.
	Logger zerolog.Logger

	// Metrics is optional.
	Metrics MetricsRecorder
}

// Service fetches forecasts, consulting the cache before the provider.
type Service struct {
	provider Provider
	cache    *Cache
	logger   zerolog.Logger
	metrics  MetricsRecorder

	inflight singleflight.Group
}

// NewService creates a new forecast service.
func NewService(cfg ServiceConfig) *Service {
	cache := cfg.Cache
	if cache == nil {
		cache = NewCache(CacheConfig{Logger: cfg.Logger})
	}

	return &Service{
		provider: cfg.Provider,
		cache:    cache,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
	}
}

// Cache returns the service's forecast cache.
func (s *Service) Cache() *Cache {
	return s.cache
}

// ProviderName returns the name of the underlying provider.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}

// Fetch returns the forecast for coord. fromCache is true when no remote call
// was made by this caller, either because the cache held a fresh entry or
// because a concurrent caller fetched the same cell.
// Provider failures are returned as *RemoteError or *NetworkError and are never retried.
//
// The shared remote call is detached from any single caller's cancellation and
// is bounded by the provider's own timeouts. A caller whose ctx ends while
// waiting gets ctx.Err(); the others still receive the flight's result.
func (s *Service) Fetch(ctx context.Context, coord grid.Coordinate) (payload *Payload, fromCache bool, err error) {
	if err := coord.Validate(); err != nil {
		return nil, false, err
	}

	if cached, ok := s.cache.Get(coord); ok {
		if s.metrics != nil {
			s.metrics.RecordCacheHit(s.provider.Name(), operationForecast)
		}
		return cached, true, nil
	}
	if s.metrics != nil {
		s.metrics.RecordCacheMiss(s.provider.Name(), operationForecast)
	}

	cell := grid.CellFor(coord)
	flightCtx := context.WithoutCancel(ctx)
	executed := false
	ch := s.inflight.DoChan(cell.String(), func() (interface{}, error) {
		// A flight that finished between our cache miss and DoChan has already stored it.
		if cached, ok := s.cache.peek(cell); ok {
			return cached, nil
		}
		executed = true
		return s.fetchRemote(flightCtx, coord, cell)
	})

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.(*Payload), !executed, nil
	}
}

// fetchRemote fetches a forecast from the provider and updates the cache.
func (s *Service) fetchRemote(ctx context.Context, coord grid.Coordinate, cell grid.Cell) (*Payload, error) {
	s.logger.Debug().
		Float64("lat", coord.Lat).
		Float64("lng", coord.Lng).
		Str("cell", cell.String()).
		Str("provider", s.provider.Name()).
		Msg("fetching forecast from provider")

	start := time.Now()
	payload, err := s.provider.GetForecast(ctx, coord)
	if s.metrics != nil {
		s.metrics.RecordRequest(s.provider.Name(), operationForecast, time.Since(start), err)
	}
	if err != nil {
		s.logger.Error().Err(err).
			Float64("lat", coord.Lat).
			Float64("lng", coord.Lng).
			Msg("failed to fetch forecast")
		return nil, err
	}

	s.cache.Put(payload)
	return payload, nil
}
