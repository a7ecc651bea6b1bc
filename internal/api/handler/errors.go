package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/sunsetscout/sunsetscout/internal/api/models"
	"github.com/sunsetscout/sunsetscout/internal/api/response"
	"github.com/sunsetscout/sunsetscout/internal/forecast"
	"github.com/sunsetscout/sunsetscout/internal/grid"
	"github.com/sunsetscout/sunsetscout/internal/locate"
)

// writeError maps domain errors onto problem responses:
//
//	invalid coordinates / empty query  -> 400
//	location not found                 -> 404
//	provider answered with an error    -> 502
//	provider unreachable               -> 503
func writeError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	var remote *forecast.RemoteError

	switch {
	case errors.Is(err, grid.ErrInvalidCoordinates):
		response.BadRequest(w, r, "coordinates out of range", []models.FieldError{
			{Field: "lat", Message: "must be between -90 and 90", Code: "OUT_OF_RANGE"},
			{Field: "lng", Message: "must be between -180 and 180", Code: "OUT_OF_RANGE"},
		})
	case errors.Is(err, locate.ErrEmptyQuery):
		response.BadRequest(w, r, "location query is empty", []models.FieldError{
			{Field: "q", Message: "is required", Code: "REQUIRED"},
		})
	case errors.Is(err, locate.ErrNotFound):
		response.NotFound(w, r, "could not find coordinates for that location")
	case errors.As(err, &remote):
		logger.Warn().Err(err).Int("upstream_status", remote.StatusCode).Msg("forecast provider error")
		response.BadGateway(w, r, remote.Error())
	case errors.Is(err, forecast.ErrProviderUnavailable):
		logger.Warn().Err(err).Msg("forecast provider unavailable")
		response.ServiceUnavailable(w, r, "forecast provider is unavailable, try again later")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		response.ServiceUnavailable(w, r, "request canceled")
	default:
		logger.Error().Err(err).Msg("unhandled error")
		response.InternalError(w, r, "an unexpected error occurred")
	}
}
