// Package handler provides HTTP handlers for the SunsetScout API.
package handler

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sunsetscout/sunsetscout/internal/api/models"
	"github.com/sunsetscout/sunsetscout/internal/api/response"
	"github.com/sunsetscout/sunsetscout/internal/forecast"
	"github.com/sunsetscout/sunsetscout/internal/grid"
	"github.com/sunsetscout/sunsetscout/internal/locate"
)

// ForecastChecker returns the grouped forecast for a coordinate.
// *forecast.Service implements it.
type ForecastChecker interface {
	Check(ctx context.Context, coord grid.Coordinate) (*forecast.Report, error)
}

// LocationResolver turns free text or a trail page link into a coordinate.
// *locate.Resolver implements it.
type LocationResolver interface {
	Resolve(ctx context.Context, raw string) (*locate.Place, error)
}

// ForecastHandler handles single location forecast lookups.
type ForecastHandler struct {
	forecasts ForecastChecker
	resolver  LocationResolver
	logger    zerolog.Logger
}

// NewForecastHandler creates a new ForecastHandler. resolver may be nil, in
// which case only lat/lng queries are accepted.
func NewForecastHandler(forecasts ForecastChecker, resolver LocationResolver, logger zerolog.Logger) *ForecastHandler {
	return &ForecastHandler{
		forecasts: forecasts,
		resolver:  resolver,
		logger:    logger.With().Str("handler", "forecast").Logger(),
	}
}

// GetForecast handles GET /v1/forecast.
//
// The location is given either as lat and lng query parameters, or as q,
// which may be a place name or a trail page link.
func (h *ForecastHandler) GetForecast(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	q := strings.TrimSpace(query.Get("q"))

	info := models.LocationInfo{Query: q}
	var coord grid.Coordinate

	switch {
	case q != "":
		if h.resolver == nil {
			response.BadRequest(w, r, "location search is not enabled", []models.FieldError{
				{Field: "q", Message: "not supported, use lat and lng", Code: "UNSUPPORTED"},
			})
			return
		}
		place, err := h.resolver.Resolve(r.Context(), q)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		coord = place.Coordinate
		info.Display = place.Display

	default:
		var fieldErrs []models.FieldError
		coord, fieldErrs = parseCoordinate(query.Get("lat"), query.Get("lng"))
		if len(fieldErrs) > 0 {
			response.BadRequest(w, r, "a location is required: pass lat and lng, or q", fieldErrs)
			return
		}
	}

	report, err := h.forecasts.Check(r.Context(), coord)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	info.Point = models.Coordinate{Lat: coord.Lat, Lng: coord.Lng}
	resp := models.ForecastResponse{
		Location:       info,
		Cell:           report.Cell.String(),
		UTCOffsetHours: report.UTCOffsetHours,
		FromCache:      report.FromCache,
		Days:           dayViews(report.Days, report.UTCOffsetHours),
		Best:           eventView(report.Best, report.UTCOffsetHours),
	}
	if report.Payload != nil {
		resp.GeneratedAt = models.TimestampPtr(report.Payload.Time)
	}

	h.logger.Debug().
		Str("cell", resp.Cell).
		Bool("from_cache", report.FromCache).
		Int("days", len(resp.Days)).
		Msg("forecast served")

	w.Header().Set("Cache-Control", "public, max-age=900")
	response.JSON(w, r, http.StatusOK, resp)
}

// parseCoordinate parses and range-checks the lat/lng query parameters.
func parseCoordinate(rawLat, rawLng string) (grid.Coordinate, []models.FieldError) {
	var (
		coord grid.Coordinate
		errs  []models.FieldError
	)

	lat, err := parseFloatParam(rawLat)
	switch {
	case rawLat == "":
		errs = append(errs, models.FieldError{Field: "lat", Message: "is required", Code: "REQUIRED"})
	case err != nil:
		errs = append(errs, models.FieldError{Field: "lat", Message: "must be a number", Code: "INVALID"})
	case lat < -90 || lat > 90:
		errs = append(errs, models.FieldError{Field: "lat", Message: "must be between -90 and 90", Code: "OUT_OF_RANGE"})
	default:
		coord.Lat = lat
	}

	lng, err := parseFloatParam(rawLng)
	switch {
	case rawLng == "":
		errs = append(errs, models.FieldError{Field: "lng", Message: "is required", Code: "REQUIRED"})
	case err != nil:
		errs = append(errs, models.FieldError{Field: "lng", Message: "must be a number", Code: "INVALID"})
	case lng < -180 || lng > 180:
		errs = append(errs, models.FieldError{Field: "lng", Message: "must be between -180 and 180", Code: "OUT_OF_RANGE"})
	default:
		coord.Lng = lng
	}

	return coord, errs
}

func parseFloatParam(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) {
		return 0, strconv.ErrSyntax
	}
	return v, nil
}
