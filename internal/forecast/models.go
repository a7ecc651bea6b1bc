package forecast

import (
	"errors"
	"fmt"
	"time"

	"github.com/sunsetscout/sunsetscout/internal/grid"
)

// Forecast errors.
var (
	ErrProviderUnavailable = errors.New("forecast provider unavailable")
	ErrInvalidCoordinates  = grid.ErrInvalidCoordinates
)

// RemoteError is returned when the upstream provider rejected or failed the request.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("forecast provider returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("forecast provider returned status %d: %s", e.StatusCode, e.Message)
}

// NetworkError is returned when the provider could not be reached at all
// (connection failure, timeout, open circuit breaker).
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return "forecast provider unreachable: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrProviderUnavailable) match transport failures.
func (e *NetworkError) Is(target error) bool {
	return target == ErrProviderUnavailable
}

// EventType distinguishes sunrise from sunset events.
type EventType string

const (
	EventSunrise EventType = "sunrise"
	EventSunset  EventType = "sunset"
)

// QualityText is the provider's categorical label for a quality score.
type QualityText string

const (
	QualityPoor      QualityText = "Poor"
	QualityFair      QualityText = "Fair"
	QualityGood      QualityText = "Good"
	QualityGreat     QualityText = "Great"
	QualityExcellent QualityText = "Excellent"
)

// Position is a latitude/longitude pair reported by the provider.
type Position struct {
	Lat float64
	Lng float64
}

// Payload is a forecast response for one grid cell.
type Payload struct {
	// Time the provider generated the forecast, zero if not reported.
	Time time.Time

	// Location is the resolved request location.
	Location *Position

	// GridLocation is the provider's own grid corner for this forecast, if echoed.
	GridLocation *Position

	// Data holds sunrise/sunset events in chronological order.
	Data []Event
}

// Event is a single sunrise or sunset forecast.
type Event struct {
	Type      EventType
	Time      time.Time
	ModelData bool

	// Quality is a 0-1 score, nil when absent.
	Quality        *float64
	QualityPercent *float64
	QualityText    QualityText

	// CloudCover is a 0-1 fraction.
	CloudCover *float64

	// Direction of the sun in degrees [0,360).
	Direction *float64

	Magics MagicHours
}

// MagicHours holds the golden and blue hour windows around an event.
type MagicHours struct {
	GoldenHour *Interval
	BlueHour   *Interval
}

// Interval is a start/end time window.
type Interval struct {
	Start time.Time
	End   time.Time
}

// QualityValue returns the raw quality score, 0 when absent.
func (e *Event) QualityValue() float64 {
	if e.Quality == nil {
		return 0
	}
	return *e.Quality
}

// EffectiveQuality returns the quality for display, preferring the
// provider's percentage when present. The second return is false when the
// event has no quality at all.
func (e *Event) EffectiveQuality() (float64, bool) {
	if e.Quality == nil {
		return 0, false
	}
	if e.QualityPercent != nil {
		return *e.QualityPercent / 100, true
	}
	return *e.Quality, true
}

// Cell returns the cache cell for a payload: the echoed grid location when
// present, otherwise the cell of the resolved location. ok is false when the
// payload carries neither.
func (p *Payload) Cell() (cell grid.Cell, ok bool) {
	if p.GridLocation != nil {
		return grid.CellFromEcho(p.GridLocation.Lat, p.GridLocation.Lng), true
	}
	if p.Location != nil {
		return grid.CellFor(grid.Coordinate{Lat: p.Location.Lat, Lng: p.Location.Lng}), true
	}
	return grid.Cell{}, false
}
