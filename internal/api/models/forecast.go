package models

// ForecastResponse is the response of GET /v1/forecast.
type ForecastResponse struct {
	Location       LocationInfo  `json:"location"`
	Cell           string        `json:"cell"`
	UTCOffsetHours int           `json:"utcOffsetHours"`
	FromCache      bool          `json:"fromCache"`
	GeneratedAt    *Timestamp    `json:"generatedAt,omitempty"`
	Days           []DayForecast `json:"days"`
	Best           *EventView    `json:"best,omitempty"`
}

// LocationInfo describes the point a forecast was fetched for.
type LocationInfo struct {
	Query   string     `json:"query,omitempty"`
	Display string     `json:"display,omitempty"`
	Point   Coordinate `json:"point"`
}

// DayForecast pairs the sunrise and sunset of one local day.
type DayForecast struct {
	Label   string     `json:"label"`
	Sunrise *EventView `json:"sunrise,omitempty"`
	Sunset  *EventView `json:"sunset,omitempty"`
}

// EventView is a sunrise or sunset forecast prepared for display.
type EventView struct {
	Type           string        `json:"type"`
	Time           *Timestamp    `json:"time,omitempty"`
	LocalTime      string        `json:"localTime,omitempty"`
	Quality        *float64      `json:"quality,omitempty"`
	QualityPercent *float64      `json:"qualityPercent,omitempty"`
	QualityText    string        `json:"qualityText,omitempty"`
	QualityDisplay string        `json:"qualityDisplay"`
	CloudCover     *float64      `json:"cloudCover,omitempty"`
	Direction      *float64      `json:"direction,omitempty"`
	Compass        string        `json:"compass,omitempty"`
	GoldenHour     *IntervalView `json:"goldenHour,omitempty"`
	BlueHour       *IntervalView `json:"blueHour,omitempty"`
}

// IntervalView is a time window.
type IntervalView struct {
	Start Timestamp `json:"start"`
	End   Timestamp `json:"end"`
}
