package handler

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/sunsetscout/sunsetscout/internal/api/models"
	"github.com/sunsetscout/sunsetscout/internal/api/response"
	"github.com/sunsetscout/sunsetscout/internal/forecast"
	"github.com/sunsetscout/sunsetscout/internal/grid"
	"github.com/sunsetscout/sunsetscout/internal/scan"
)

const maxScanBodyBytes = 64 << 10

// ScanRunner scans a set of locations. *scan.Orchestrator implements it.
type ScanRunner interface {
	Run(ctx context.Context, locations []scan.Location) *scan.Result
}

// ScanHandler handles multi-location scans.
type ScanHandler struct {
	runner    ScanRunner
	locations []scan.Location
	logger    zerolog.Logger
}

// NewScanHandler creates a new ScanHandler. defaults is the list scanned by
// GET /v1/scan.
func NewScanHandler(runner ScanRunner, defaults []scan.Location, logger zerolog.Logger) *ScanHandler {
	return &ScanHandler{
		runner:    runner,
		locations: defaults,
		logger:    logger.With().Str("handler", "scan").Logger(),
	}
}

// ScanDefaults handles GET /v1/scan - scan the built-in location list.
func (h *ScanHandler) ScanDefaults(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.locations)
}

// ScanCustom handles POST /v1/scan - scan caller supplied locations.
func (h *ScanHandler) ScanCustom(w http.ResponseWriter, r *http.Request) {
	var input models.ScanRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxScanBodyBytes)).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	if errs := validateStruct(input); len(errs) > 0 {
		response.BadRequest(w, r, "invalid scan request", errs)
		return
	}

	locations := make([]scan.Location, 0, len(input.Locations))
	for _, loc := range input.Locations {
		locations = append(locations, scan.Location{
			Name:         loc.Name,
			Coordinate:   grid.Coordinate{Lat: *loc.Lat, Lng: *loc.Lng},
			DriveMinutes: loc.DriveMinutes,
			Description:  loc.Description,
		})
	}

	h.run(w, r, locations)
}

func (h *ScanHandler) run(w http.ResponseWriter, r *http.Request, locations []scan.Location) {
	result := h.runner.Run(r.Context(), locations)

	if result.Canceled && len(result.Ranked) == 0 {
		writeError(w, r, h.logger, r.Context().Err())
		return
	}

	h.logger.Info().
		Int("locations", len(locations)).
		Int("ranked", len(result.Ranked)).
		Int("api_calls", result.APICalls).
		Int("cache_hits", result.CacheHits).
		Int("failed", result.Failed).
		Dur("duration", result.Duration).
		Msg("scan served")

	response.JSON(w, r, http.StatusOK, scanResponse(result, len(locations)))
}

func scanResponse(result *scan.Result, locations int) models.ScanResponse {
	resp := models.ScanResponse{
		Ranked: make([]models.RankedLocation, 0, len(result.Ranked)),
		Stats: models.ScanStats{
			Locations:     locations,
			DistinctCells: result.DistinctCells,
			APICalls:      result.APICalls,
			CacheHits:     result.CacheHits,
			Failed:        result.Failed,
			Canceled:      result.Canceled,
			Duration:      result.Duration.String(),
		},
	}

	for i, ranked := range result.Ranked {
		offset := forecast.UTCOffsetForLongitude(ranked.Location.Coordinate.Lng)
		best := ranked.Best
		view := eventView(&best, offset)

		resp.Ranked = append(resp.Ranked, models.RankedLocation{
			Rank:         i + 1,
			Name:         ranked.Location.Name,
			Point:        models.Coordinate{Lat: ranked.Location.Coordinate.Lat, Lng: ranked.Location.Coordinate.Lng},
			Cell:         ranked.Cell.String(),
			DriveMinutes: ranked.Location.DriveMinutes,
			Description:  ranked.Location.Description,
			Best:         *view,
		})
	}

	for _, failure := range result.Errors {
		resp.Failures = append(resp.Failures, models.ScanFailure{
			Name:  failure.Location.Name,
			Error: failure.Err.Error(),
		})
	}

	return resp
}
