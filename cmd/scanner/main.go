// Package main runs a forecast scan over the default spots, or a single
// location check, and logs the result. With -interval the scan repeats
// until the process is interrupted.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/sunsetscout/sunsetscout/internal/app"
	"github.com/sunsetscout/sunsetscout/internal/config"
	"github.com/sunsetscout/sunsetscout/internal/forecast"
	"github.com/sunsetscout/sunsetscout/internal/grid"
	"github.com/sunsetscout/sunsetscout/internal/scan"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "sunsetscout-scanner"

	var (
		check = flag.Bool("check", false, "check a single location instead of scanning the default spots")
		query = flag.String("q", "", "place name or trail page link (with -check)")
		lat   = flag.Float64("lat", 0, "latitude (with -check)")
		lng   = flag.Float64("lng", 0, "longitude (with -check)")

		interval = flag.Duration("interval", 0, "repeat the scan at this interval (0 runs once)")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		boot := config.LogConfig{Level: "info", Format: "console"}.NewLogger(os.Stderr, serviceName, Version)
		boot.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := cfg.Log.NewLogger(os.Stdout, serviceName, Version)
	log.Debug().Str("build_time", BuildTime).Msg("starting scanner")

	services, err := app.New(cfg, log, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build services")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch {
	case *check:
		err = runCheck(ctx, log, services, *query, grid.Coordinate{Lat: *lat, Lng: *lng})
	case *interval > 0:
		runLoop(ctx, log, services, *interval)
	default:
		runScan(ctx, log, services)
	}
	stop()
	if err != nil {
		log.Error().Err(err).Msg("check failed")
		os.Exit(1)
	}
}

// runLoop scans immediately and then on every tick. Entries cached by an
// earlier pass are reused while they are fresh.
func runLoop(ctx context.Context, log zerolog.Logger, services *app.App, interval time.Duration) {
	log.Info().Dur("interval", interval).Msg("scanner started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		runScan(ctx, log, services)

		select {
		case <-ctx.Done():
			log.Info().
				Interface("scans", services.Orchestrator.MetricsSnapshot()).
				Msg("scanner stopped")
			return
		case <-ticker.C:
		}
	}
}

func runScan(ctx context.Context, log zerolog.Logger, services *app.App) {
	services.Forecasts.Cache().ResetStats()

	result := services.Orchestrator.Run(ctx, scan.DefaultLocations())

	for i, r := range result.Ranked {
		offset := forecast.UTCOffsetForLongitude(r.Location.Coordinate.Lng)
		best := r.Best

		log.Info().
			Int("rank", i+1).
			Str("location", r.Location.Name).
			Int("drive_minutes", r.Location.DriveMinutes).
			Str("event", string(best.Type)).
			Str("when", forecast.FormatLocalTime(best.Time, offset)).
			Str("quality", best.QualityLabel()).
			Str("description", r.Location.Description).
			Msg("ranked location")
	}

	for _, failure := range result.Errors {
		log.Warn().Err(failure.Err).Str("location", failure.Location.Name).Msg("location skipped")
	}

	stats := services.Forecasts.Cache().Stats()
	log.Info().
		Int("ranked", len(result.Ranked)).
		Int("api_calls", result.APICalls).
		Int("cache_hits", result.CacheHits).
		Int("distinct_cells", result.DistinctCells).
		Int("failed", result.Failed).
		Bool("canceled", result.Canceled).
		Int("cache_entries", stats.Entries).
		Dur("duration", result.Duration).
		Msg("scan complete")
}

func runCheck(ctx context.Context, log zerolog.Logger, services *app.App, query string, coord grid.Coordinate) error {
	display := ""
	if query != "" {
		place, err := services.Resolver.Resolve(ctx, query)
		if err != nil {
			return err
		}
		coord = place.Coordinate
		display = place.Display
	}

	report, err := services.Forecasts.Check(ctx, coord)
	if err != nil {
		return err
	}

	log.Info().
		Str("location", display).
		Float64("lat", coord.Lat).
		Float64("lng", coord.Lng).
		Str("cell", report.Cell.String()).
		Int("utc_offset", report.UTCOffsetHours).
		Bool("from_cache", report.FromCache).
		Msg("forecast")

	for _, day := range report.Days {
		for _, ev := range []*forecast.Event{day.Sunrise, day.Sunset} {
			if ev == nil {
				continue
			}
			logEvent(log.Info(), ev, report.UTCOffsetHours).Str("day", day.Label).Msg("event")
		}
	}

	if report.Best != nil {
		logEvent(log.Info(), report.Best, report.UTCOffsetHours).Msg("best upcoming event")
	}
	return nil
}

func logEvent(e *zerolog.Event, ev *forecast.Event, offset int) *zerolog.Event {
	e = e.
		Str("event", string(ev.Type)).
		Str("when", forecast.FormatLocalTime(ev.Time, offset)).
		Str("quality", ev.QualityLabel())
	if ev.Direction != nil {
		e = e.Str("direction", forecast.Compass(*ev.Direction))
	}
	if ev.CloudCover != nil {
		e = e.Float64("cloud_cover", *ev.CloudCover)
	}
	return e
}
