package scan_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunsetscout/sunsetscout/internal/forecast"
	"github.com/sunsetscout/sunsetscout/internal/grid"
	"github.com/sunsetscout/sunsetscout/internal/scan"
)

// cellProvider returns a fixed quality per grid cell and counts calls.
type cellProvider struct {
	mu        sync.Mutex
	calls     map[grid.Cell]int
	quality   map[grid.Cell]float64
	failing   map[grid.Cell]error
	noModel   map[grid.Cell]bool
	delay     time.Duration
	totalCall int
	started   []time.Time
}

func newCellProvider() *cellProvider {
	return &cellProvider{
		calls:   make(map[grid.Cell]int),
		quality: make(map[grid.Cell]float64),
		failing: make(map[grid.Cell]error),
		noModel: make(map[grid.Cell]bool),
	}
}

func (p *cellProvider) Name() string {
	return "cells"
}

func (p *cellProvider) GetForecast(_ context.Context, coord grid.Coordinate) (*forecast.Payload, error) {
	cell := grid.CellFor(coord)

	p.mu.Lock()
	p.calls[cell]++
	p.totalCall++
	p.started = append(p.started, time.Now())
	q := p.quality[cell]
	err := p.failing[cell]
	noModel := p.noModel[cell]
	delay := p.delay
	p.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return nil, err
	}

	return &forecast.Payload{
		Location: &forecast.Position{Lat: coord.Lat, Lng: coord.Lng},
		Data: []forecast.Event{
			{
				Type:      forecast.EventSunrise,
				Time:      time.Date(2024, 6, 1, 13, 0, 0, 0, time.UTC),
				ModelData: !noModel,
				Quality:   floatPtr(q / 2),
			},
			{
				Type:      forecast.EventSunset,
				Time:      time.Date(2024, 6, 2, 3, 0, 0, 0, time.UTC),
				ModelData: !noModel,
				Quality:   floatPtr(q),
			},
		},
	}, nil
}

func (p *cellProvider) total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalCall
}

func (p *cellProvider) starts() []time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]time.Time(nil), p.started...)
}

func (p *cellProvider) callsFor(coord grid.Coordinate) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[grid.CellFor(coord)]
}

func floatPtr(v float64) *float64 {
	return &v
}

// recordingSleep records pacing waits without sleeping.
type recordingSleep struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *recordingSleep) Sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.waits = append(r.waits, d)
	return nil
}

func (r *recordingSleep) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waits)
}

func loc(name string, lat, lng float64) scan.Location {
	return scan.Location{Name: name, Coordinate: grid.Coordinate{Lat: lat, Lng: lng}}
}

func newOrchestrator(provider forecast.Provider, sleeper *recordingSleep, concurrency int) *scan.Orchestrator {
	service := forecast.NewService(forecast.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
	})
	return scan.NewOrchestrator(scan.OrchestratorConfig{
		Config: scan.Config{
			PacingDelay: 150 * time.Millisecond,
			Concurrency: concurrency,
		},
		Forecasts: service,
		Logger:    zerolog.Nop(),
		Sleep:     sleeper.Sleep,
	})
}

func TestOrchestrator_Run_TwoPointsOneCell(t *testing.T) {
	provider := newCellProvider()
	sleeper := &recordingSleep{}
	orch := newOrchestrator(provider, sleeper, 1)

	result := orch.Run(context.Background(), []scan.Location{
		loc("a", 37.81, -122.41),
		loc("b", 37.99, -122.49),
	})

	assert.Equal(t, 1, provider.total())
	assert.Equal(t, 1, result.APICalls)
	assert.Equal(t, 1, result.CacheHits)
	assert.Equal(t, 1, result.DistinctCells)
	assert.Len(t, result.Ranked, 2)
}

func TestOrchestrator_Run_DedupByCell(t *testing.T) {
	provider := newCellProvider()
	sleeper := &recordingSleep{}
	orch := newOrchestrator(provider, sleeper, 1)

	// Five locations in two cells.
	locations := []scan.Location{
		loc("a1", 37.60, -122.40),
		loc("b1", 37.10, -122.10),
		loc("a2", 37.70, -122.30),
		loc("b2", 37.20, -122.20),
		loc("a3", 37.90, -122.01),
	}

	result := orch.Run(context.Background(), locations)

	assert.Equal(t, 2, provider.total())
	assert.Equal(t, 2, result.APICalls)
	assert.Equal(t, 3, result.CacheHits)
	assert.Equal(t, 2, result.DistinctCells)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 2, sleeper.count(), "pacing applies only to remote calls")
	for _, w := range sleeper.waits {
		assert.Equal(t, 150*time.Millisecond, w)
	}
}

func TestOrchestrator_Run_WarmCacheMakesNoCalls(t *testing.T) {
	provider := newCellProvider()
	sleeper := &recordingSleep{}
	orch := newOrchestrator(provider, sleeper, 1)

	locations := []scan.Location{loc("a", 37.81, -122.41), loc("b", 36.6, -121.9)}

	first := orch.Run(context.Background(), locations)
	require.Equal(t, 2, first.APICalls)

	second := orch.Run(context.Background(), locations)
	assert.Equal(t, 0, second.APICalls)
	assert.Equal(t, 2, second.CacheHits)
	assert.Equal(t, 2, provider.total())
	assert.Equal(t, 2, sleeper.count())
}

func TestOrchestrator_Run_RankingStable(t *testing.T) {
	provider := newCellProvider()
	low := grid.Coordinate{Lat: 36.6, Lng: -121.9}
	high := grid.Coordinate{Lat: 38.3, Lng: -123.06}
	mid := grid.Coordinate{Lat: 37.81, Lng: -122.41}
	provider.quality[grid.CellFor(low)] = 0.2
	provider.quality[grid.CellFor(high)] = 0.9
	provider.quality[grid.CellFor(mid)] = 0.5

	orch := newOrchestrator(provider, &recordingSleep{}, 1)

	result := orch.Run(context.Background(), []scan.Location{
		{Name: "low", Coordinate: low},
		{Name: "mid-first", Coordinate: mid},
		{Name: "high", Coordinate: high},
		{Name: "mid-second", Coordinate: grid.Coordinate{Lat: 37.95, Lng: -122.45}},
	})

	require.Len(t, result.Ranked, 4)
	names := make([]string, 0, len(result.Ranked))
	for _, r := range result.Ranked {
		names = append(names, r.Location.Name)
	}
	assert.Equal(t, []string{"high", "mid-first", "mid-second", "low"}, names)

	top := result.Ranked[0]
	assert.Equal(t, forecast.EventSunset, top.Best.Type)
	assert.InDelta(t, 0.9, top.BestQuality, 1e-9)
	assert.Equal(t, grid.CellFor(high), top.Cell)
}

func TestOrchestrator_Run_SkipsFailedLocations(t *testing.T) {
	provider := newCellProvider()
	bad := grid.Coordinate{Lat: 36.5, Lng: -121.2}
	provider.failing[grid.CellFor(bad)] = &forecast.RemoteError{StatusCode: 500, Message: "boom"}
	provider.quality[grid.CellFor(grid.Coordinate{Lat: 37.81, Lng: -122.41})] = 0.6

	sleeper := &recordingSleep{}
	orch := newOrchestrator(provider, sleeper, 1)

	result := orch.Run(context.Background(), []scan.Location{
		loc("good", 37.81, -122.41),
		{Name: "bad", Coordinate: bad},
		loc("also-good", 37.82, -122.42),
	})

	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "bad", result.Errors[0].Location.Name)

	var remoteErr *forecast.RemoteError
	assert.ErrorAs(t, result.Errors[0].Err, &remoteErr)

	require.Len(t, result.Ranked, 2)
	assert.Equal(t, "good", result.Ranked[0].Location.Name)
	assert.Equal(t, 1, result.APICalls)
	assert.Equal(t, 1, result.CacheHits)
	assert.Equal(t, 1, sleeper.count(), "failed fetches are not paced")
}

func TestOrchestrator_Run_NoModelDataNotRanked(t *testing.T) {
	provider := newCellProvider()
	placeholder := grid.Coordinate{Lat: 36.5, Lng: -121.2}
	provider.noModel[grid.CellFor(placeholder)] = true

	orch := newOrchestrator(provider, &recordingSleep{}, 1)

	result := orch.Run(context.Background(), []scan.Location{
		{Name: "placeholder", Coordinate: placeholder},
		loc("real", 37.81, -122.41),
	})

	require.Len(t, result.Ranked, 1)
	assert.Equal(t, "real", result.Ranked[0].Location.Name)
	assert.Equal(t, 2, result.APICalls)
	assert.Equal(t, 0, result.Failed)
}

func TestOrchestrator_Run_Concurrent(t *testing.T) {
	provider := newCellProvider()
	provider.delay = 20 * time.Millisecond
	sleeper := &recordingSleep{}
	orch := newOrchestrator(provider, sleeper, 4)

	locations := scan.DefaultLocations()
	cells := make(map[grid.Cell]struct{})
	for _, l := range locations {
		cells[grid.CellFor(l.Coordinate)] = struct{}{}
	}

	result := orch.Run(context.Background(), locations)

	assert.Equal(t, len(cells), provider.total(), "at most one remote call per cell")
	assert.Equal(t, len(cells), result.APICalls)
	assert.Equal(t, len(locations)-len(cells), result.CacheHits)
	assert.Equal(t, len(cells), result.DistinctCells)
	assert.Equal(t, len(cells), sleeper.count())
	assert.Len(t, result.Ranked, len(locations))

	for _, l := range locations {
		assert.LessOrEqual(t, provider.callsFor(l.Coordinate), 1, l.Name)
	}
}

func TestOrchestrator_Run_ConcurrentCallsArePaced(t *testing.T) {
	provider := newCellProvider()
	service := forecast.NewService(forecast.ServiceConfig{Provider: provider, Logger: zerolog.Nop()})

	const pacing = 40 * time.Millisecond
	orch := scan.NewOrchestrator(scan.OrchestratorConfig{
		Config:    scan.Config{PacingDelay: pacing, Concurrency: 4},
		Forecasts: service,
		Logger:    zerolog.Nop(),
	})

	result := orch.Run(context.Background(), []scan.Location{
		loc("ocean-beach", 37.76, -122.51),
		loc("monterey", 36.6, -121.9),
		loc("point-reyes", 38.04, -122.8),
		loc("big-sur", 36.27, -121.81),
		loc("lands-end", 37.78, -122.52),
	})

	require.Equal(t, 4, result.APICalls)
	starts := provider.starts()
	require.Len(t, starts, 4)
	for i := 1; i < len(starts); i++ {
		assert.GreaterOrEqual(t, starts[i].Sub(starts[i-1]), pacing, "gap before call %d", i)
	}
}

func TestOrchestrator_Run_CanceledBeforeStart(t *testing.T) {
	provider := newCellProvider()
	orch := newOrchestrator(provider, &recordingSleep{}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := orch.Run(ctx, scan.DefaultLocations())

	assert.True(t, result.Canceled)
	assert.Equal(t, 0, provider.total())
	assert.Empty(t, result.Ranked)
}

func TestOrchestrator_Run_CanceledMidScan(t *testing.T) {
	provider := newCellProvider()
	service := forecast.NewService(forecast.ServiceConfig{Provider: provider, Logger: zerolog.Nop()})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancel during the pacing wait after the first remote call.
	orch := scan.NewOrchestrator(scan.OrchestratorConfig{
		Config:    scan.DefaultConfig(),
		Forecasts: service,
		Logger:    zerolog.Nop(),
		Sleep: func(context.Context, time.Duration) error {
			cancel()
			return context.Canceled
		},
	})

	result := orch.Run(ctx, []scan.Location{
		loc("first", 37.81, -122.41),
		loc("second", 36.6, -121.9),
	})

	assert.True(t, result.Canceled)
	assert.Equal(t, 1, provider.total())
	require.Len(t, result.Ranked, 1)
	assert.Equal(t, "first", result.Ranked[0].Location.Name)
}

func TestOrchestrator_Run_Empty(t *testing.T) {
	orch := newOrchestrator(newCellProvider(), &recordingSleep{}, 1)

	result := orch.Run(context.Background(), nil)

	assert.Empty(t, result.Ranked)
	assert.Equal(t, 0, result.APICalls)
	assert.Equal(t, 0, result.DistinctCells)
	assert.False(t, result.Canceled)
}

func TestOrchestrator_Metrics(t *testing.T) {
	provider := newCellProvider()
	orch := newOrchestrator(provider, &recordingSleep{}, 1)

	locations := []scan.Location{loc("a", 37.81, -122.41), loc("b", 37.82, -122.42)}
	orch.Run(context.Background(), locations)
	orch.Run(context.Background(), locations)

	m := orch.GetMetrics()
	assert.Equal(t, int64(2), m.TotalScans)
	assert.Equal(t, int64(4), m.TotalLocations)
	assert.Equal(t, int64(1), m.TotalAPICalls)
	assert.Equal(t, int64(3), m.TotalCacheHits)
	assert.False(t, m.LastScanAt.IsZero())

	snapshot := orch.MetricsSnapshot()
	assert.Equal(t, int64(2), snapshot["total_scans"])
	assert.Contains(t, snapshot, "last_scan_duration")
}

func TestDefaultConfig(t *testing.T) {
	cfg := scan.DefaultConfig()
	assert.Equal(t, 150*time.Millisecond, cfg.PacingDelay)
	assert.Equal(t, 1, cfg.Concurrency)
}

func TestDefaultLocations(t *testing.T) {
	locations := scan.DefaultLocations()
	require.Len(t, locations, 28)

	names := make(map[string]bool)
	for _, l := range locations {
		assert.NoError(t, l.Coordinate.Validate(), l.Name)
		assert.Positive(t, l.DriveMinutes, l.Name)
		assert.NotEmpty(t, l.Description, l.Name)
		assert.False(t, names[l.Name], "duplicate name %s", l.Name)
		names[l.Name] = true
	}

	assert.Equal(t, "Marin Headlands", locations[0].Name)
	assert.Equal(t, "Fremont Peak", locations[27].Name)
}
