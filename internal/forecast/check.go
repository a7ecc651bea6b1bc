package forecast

import (
	"context"

	"github.com/sunsetscout/sunsetscout/internal/grid"
)

// Report is the result of checking a single location.
type Report struct {
	Coordinate     grid.Coordinate
	Cell           grid.Cell
	UTCOffsetHours int
	FromCache      bool
	Payload        *Payload
	Days           []DayBucket
	Best           *Event
}

// Check fetches the forecast for one location and groups it by local day,
// using an offset derived from the coordinate's longitude.
func (s *Service) Check(ctx context.Context, coord grid.Coordinate) (*Report, error) {
	payload, fromCache, err := s.Fetch(ctx, coord)
	if err != nil {
		return nil, err
	}

	offset := UTCOffsetForLongitude(coord.Lng)
	report := &Report{
		Coordinate:     coord,
		Cell:           grid.CellFor(coord),
		UTCOffsetHours: offset,
		FromCache:      fromCache,
		Payload:        payload,
		Days:           GroupByDay(payload.Data, offset),
	}

	if best, ok := BestEvent(payload.Data); ok {
		report.Best = &best
	}

	return report, nil
}

// BestEvent returns the model-data event with the highest quality.
// Ties keep the first event encountered; ok is false if no event qualifies.
func BestEvent(events []Event) (best Event, ok bool) {
	bestQuality := -1.0
	for _, ev := range events {
		if !ev.ModelData {
			continue
		}
		q := ev.QualityValue()
		if q > bestQuality {
			bestQuality = q
			best = ev
			ok = true
		}
	}
	return best, ok
}
