package scan

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/sunsetscout/sunsetscout/internal/forecast"
	"github.com/sunsetscout/sunsetscout/internal/grid"
)

// Fetcher returns the forecast for a coordinate and whether it was served
// without a remote call. *forecast.Service implements it.
type Fetcher interface {
	Fetch(ctx context.Context, coord grid.Coordinate) (*forecast.Payload, bool, error)
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Orchestrator fetches forecasts for many locations and ranks them.
type Orchestrator struct {
	config    Config
	forecasts Fetcher
	logger    zerolog.Logger
	sleep     SleepFunc

	// pace is held across a fetch and its pacing wait, so remote calls
	// leave at least PacingDelay apart whatever the concurrency.
	pace sync.Mutex

	metricsMu sync.RWMutex
	metrics   Metrics
}

// Metrics tracks scan statistics across runs.
type Metrics struct {
	TotalScans     int64
	TotalLocations int64
	TotalAPICalls  int64
	TotalCacheHits int64
	TotalFailed    int64

	LastScanAt       time.Time
	LastScanDuration time.Duration
}

// OrchestratorConfig holds configuration for creating an Orchestrator.
type OrchestratorConfig struct {
	Config    Config
	Forecasts Fetcher
	Logger    zerolog.Logger

	// Sleep overrides the pacing wait, mainly for tests.
	Sleep SleepFunc
}

// NewOrchestrator creates a new scan orchestrator.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	config := cfg.Config
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}

	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	return &Orchestrator{
		config:    config,
		forecasts: cfg.Forecasts,
		logger:    cfg.Logger,
		sleep:     sleep,
	}
}

// Ranked is the best event found for one location.
type Ranked struct {
	Location    Location
	Cell        grid.Cell
	Best        forecast.Event
	BestQuality float64
}

// LocationError records a location that was skipped because its fetch failed.
type LocationError struct {
	Location Location
	Err      error
}

// Result contains the outcome of a scan.
type Result struct {
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	// Ranked is sorted by BestQuality, highest first. Locations with equal
	// quality keep their input order.
	Ranked []Ranked

	// APICalls counts remote forecast calls made by this scan.
	APICalls int

	// CacheHits counts locations served without a remote call.
	CacheHits int

	// DistinctCells is the number of grid cells the scanned locations fall into.
	DistinctCells int

	// Failed counts locations whose fetch failed; details are in Errors.
	Failed int
	Errors []LocationError

	// Canceled is true when the context ended before every location was started.
	Canceled bool
}

type outcome struct {
	scheduled bool
	fromCache bool
	payload   *forecast.Payload
	err       error
}

// Run scans locations and returns the ranked result. A failing location is
// recorded and skipped; it never aborts the scan. If ctx is canceled, no new
// locations are started and the partial result is returned.
func (o *Orchestrator) Run(ctx context.Context, locations []Location) *Result {
	result := &Result{StartTime: time.Now()}

	o.logger.Info().
		Int("locations", len(locations)).
		Int("concurrency", o.config.Concurrency).
		Msg("starting forecast scan")

	cells := make(map[grid.Cell]struct{}, len(locations))
	for _, loc := range locations {
		cells[grid.CellFor(loc.Coordinate)] = struct{}{}
	}
	result.DistinctCells = len(cells)

	outcomes := make([]outcome, len(locations))

	var g errgroup.Group
	g.SetLimit(o.config.Concurrency)

	for i := range locations {
		if ctx.Err() != nil {
			break
		}

		i := i
		g.Go(func() error {
			// Re-checked here since Go may have blocked on the limit.
			if ctx.Err() != nil {
				return nil
			}
			outcomes[i] = o.scanLocation(ctx, locations[i])
			return nil
		})
	}
	_ = g.Wait()

	for i, out := range outcomes {
		if !out.scheduled {
			result.Canceled = true
			continue
		}

		loc := locations[i]
		if out.err != nil {
			result.Failed++
			result.Errors = append(result.Errors, LocationError{Location: loc, Err: out.err})
			continue
		}

		if out.fromCache {
			result.CacheHits++
		} else {
			result.APICalls++
		}

		best, ok := forecast.BestEvent(out.payload.Data)
		if !ok {
			continue
		}
		result.Ranked = append(result.Ranked, Ranked{
			Location:    loc,
			Cell:        grid.CellFor(loc.Coordinate),
			Best:        best,
			BestQuality: best.QualityValue(),
		})
	}

	sort.SliceStable(result.Ranked, func(a, b int) bool {
		return result.Ranked[a].BestQuality > result.Ranked[b].BestQuality
	})

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	o.updateMetrics(len(locations), result)

	o.logger.Info().
		Dur("duration", result.Duration).
		Int("ranked", len(result.Ranked)).
		Int("api_calls", result.APICalls).
		Int("cache_hits", result.CacheHits).
		Int("distinct_cells", result.DistinctCells).
		Int("failed", result.Failed).
		Bool("canceled", result.Canceled).
		Msg("forecast scan completed")

	return result
}

func (o *Orchestrator) scanLocation(ctx context.Context, loc Location) outcome {
	payload, fromCache, err := o.fetchPaced(ctx, loc.Coordinate)
	if err != nil {
		o.logger.Warn().Err(err).
			Str("location", loc.Name).
			Msg("skipping location, forecast fetch failed")
		return outcome{scheduled: true, err: err}
	}
	return outcome{scheduled: true, fromCache: fromCache, payload: payload}
}

// fetchPaced fetches coord and, after a true miss, waits PacingDelay before
// letting the next location fetch. Cache hits return without waiting.
func (o *Orchestrator) fetchPaced(ctx context.Context, coord grid.Coordinate) (*forecast.Payload, bool, error) {
	if o.config.PacingDelay <= 0 {
		return o.forecasts.Fetch(ctx, coord)
	}

	o.pace.Lock()
	defer o.pace.Unlock()

	payload, fromCache, err := o.forecasts.Fetch(ctx, coord)
	if err == nil && !fromCache {
		// Cancellation during the pause does not discard the fetched forecast.
		_ = o.sleep(ctx, o.config.PacingDelay)
	}
	return payload, fromCache, err
}

func (o *Orchestrator) updateMetrics(locations int, result *Result) {
	o.metricsMu.Lock()
	defer o.metricsMu.Unlock()

	o.metrics.TotalScans++
	o.metrics.TotalLocations += int64(locations)
	o.metrics.TotalAPICalls += int64(result.APICalls)
	o.metrics.TotalCacheHits += int64(result.CacheHits)
	o.metrics.TotalFailed += int64(result.Failed)
	o.metrics.LastScanAt = result.EndTime
	o.metrics.LastScanDuration = result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (o *Orchestrator) GetMetrics() Metrics {
	o.metricsMu.RLock()
	defer o.metricsMu.RUnlock()
	return o.metrics
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (o *Orchestrator) MetricsSnapshot() map[string]interface{} {
	m := o.GetMetrics()
	return map[string]interface{}{
		"total_scans":        m.TotalScans,
		"total_locations":    m.TotalLocations,
		"total_api_calls":    m.TotalAPICalls,
		"total_cache_hits":   m.TotalCacheHits,
		"total_failed":       m.TotalFailed,
		"last_scan_at":       m.LastScanAt,
		"last_scan_duration": m.LastScanDuration.String(),
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
