package sunsethue

import (
	"strings"
	"time"

	"github.com/sunsetscout/sunsetscout/internal/forecast"
)

// SunsetHue API response types.

type forecastResponse struct {
	Time         string       `json:"time"`
	Location     *apiPosition `json:"location"`
	GridLocation *apiPosition `json:"grid_location"`
	Data         []apiEvent   `json:"data"`
}

type apiPosition struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type apiEvent struct {
	Type           string    `json:"type"`
	Time           string    `json:"time"`
	ModelData      bool      `json:"model_data"`
	Quality        *float64  `json:"quality"`
	QualityPercent *float64  `json:"quality_percent"`
	QualityText    string    `json:"quality_text"`
	CloudCover     *float64  `json:"cloud_cover"`
	Direction      *float64  `json:"direction"`
	Magics         apiMagics `json:"magics"`
}

type apiMagics struct {
	GoldenHour []*string `json:"golden_hour"`
	BlueHour   []*string `json:"blue_hour"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// toPayload converts the SunsetHue response to the domain model.
// Unparseable timestamps become the zero time rather than failing the payload.
func (r *forecastResponse) toPayload() *forecast.Payload {
	payload := &forecast.Payload{
		Time:         parseTime(r.Time),
		Location:     r.Location.toPosition(),
		GridLocation: r.GridLocation.toPosition(),
		Data:         make([]forecast.Event, 0, len(r.Data)),
	}

	for i := range r.Data {
		payload.Data = append(payload.Data, r.Data[i].toEvent())
	}

	return payload
}

// toPosition returns nil unless both coordinates are present; the API
// reports an unresolvable location as null latitude/longitude.
func (p *apiPosition) toPosition() *forecast.Position {
	if p == nil || p.Latitude == nil || p.Longitude == nil {
		return nil
	}
	return &forecast.Position{Lat: *p.Latitude, Lng: *p.Longitude}
}

func (e *apiEvent) toEvent() forecast.Event {
	return forecast.Event{
		Type:           forecast.EventType(strings.ToLower(e.Type)),
		Time:           parseTime(e.Time),
		ModelData:      e.ModelData,
		Quality:        e.Quality,
		QualityPercent: e.QualityPercent,
		QualityText:    forecast.QualityText(e.QualityText),
		CloudCover:     e.CloudCover,
		Direction:      e.Direction,
		Magics: forecast.MagicHours{
			GoldenHour: toInterval(e.Magics.GoldenHour),
			BlueHour:   toInterval(e.Magics.BlueHour),
		},
	}
}

// toInterval converts a [start, end] pair; missing or unparseable bounds yield nil.
func toInterval(pair []*string) *forecast.Interval {
	if len(pair) != 2 || pair[0] == nil || pair[1] == nil {
		return nil
	}
	start, end := parseTime(*pair[0]), parseTime(*pair[1])
	if start.IsZero() || end.IsZero() {
		return nil
	}
	return &forecast.Interval{Start: start, End: end}
}

// timeLayouts are tried in order. Timestamps without an offset are read as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseTime parses an ISO 8601 timestamp, returning the zero time on failure.
func parseTime(s string) time.Time {
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}
