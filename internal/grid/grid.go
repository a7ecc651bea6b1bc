// Package grid maps coordinates onto the 0.5° forecast grid used by the
// upstream forecast provider. Every coordinate inside one cell receives the
// same forecast, so the cell is the unit of caching and deduplication.
package grid

import (
	"errors"
	"fmt"
	"math"
)

// Resolution is the size of a grid cell in degrees.
const Resolution = 0.5

// ErrInvalidCoordinates is returned for coordinates outside the valid range.
var ErrInvalidCoordinates = errors.New("invalid coordinates")

// Coordinate is a geographic point in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate checks that the coordinate lies in lat [-90,90] and lng [-180,180].
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) ||
		c.Lat < -90 || c.Lat > 90 || c.Lng < -180 || c.Lng > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}

// Cell identifies a grid cell by integer indices, so that two logically
// equal cells always compare equal regardless of float rounding.
// The south-west corner of the cell is (LatIndex*Resolution, LngIndex*Resolution).
type Cell struct {
	LatIndex int
	LngIndex int
}

// CellFor returns the cell containing c.
func CellFor(c Coordinate) Cell {
	return Cell{
		LatIndex: int(math.Floor(c.Lat / Resolution)),
		LngIndex: int(math.Floor(c.Lng / Resolution)),
	}
}

// CellFromEcho converts a grid corner echoed back by the provider into a Cell.
// The echo is already snapped, so it is rounded rather than floored.
func CellFromEcho(lat, lng float64) Cell {
	return Cell{
		LatIndex: int(math.Round(lat / Resolution)),
		LngIndex: int(math.Round(lng / Resolution)),
	}
}

// Lat returns the latitude of the cell's south-west corner.
func (c Cell) Lat() float64 {
	return float64(c.LatIndex) * Resolution
}

// Lng returns the longitude of the cell's south-west corner.
func (c Cell) Lng() float64 {
	return float64(c.LngIndex) * Resolution
}

// String formats the cell corner, e.g. "37.5,-122.5".
func (c Cell) String() string {
	return fmt.Sprintf("%.1f,%.1f", c.Lat(), c.Lng())
}
