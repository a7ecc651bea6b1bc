// Package models holds the JSON request and response bodies of the
// SunsetScout API.
package models

import (
	"time"

	"github.com/goccy/go-json"
)

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// HealthStatus is the overall or per-upstream state on ops endpoints.
type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "OK"
	HealthStatusDegraded HealthStatus = "DEGRADED"
	HealthStatusFail     HealthStatus = "FAIL"
)

// Timestamp encodes as an RFC 3339 string, or null for the zero time.
type Timestamp time.Time

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.Time().IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time().Format(time.RFC3339))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return err
	}
	*t = Timestamp(parsed)
	return nil
}

func (t Timestamp) Time() time.Time {
	return time.Time(t)
}

// TimestampPtr lets optional times drop out of a body via omitempty.
func TimestampPtr(t time.Time) *Timestamp {
	if t.IsZero() {
		return nil
	}
	ts := Timestamp(t)
	return &ts
}
