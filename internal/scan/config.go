// Package scan ranks many locations by their best upcoming sunrise or sunset.
package scan

import (
	"time"

	"github.com/sunsetscout/sunsetscout/internal/grid"
)

// Location is a named place to include in a scan.
type Location struct {
	// Name is the human-readable name of the location.
	Name string `json:"name" validate:"required,max=200"`

	// Coordinate is where the forecast is requested for.
	Coordinate grid.Coordinate `json:"coordinate"`

	// DriveMinutes is the approximate drive time from home, 0 if unknown.
	DriveMinutes int `json:"drive_minutes,omitempty" validate:"gte=0"`

	// Description is a short blurb about the location.
	Description string `json:"description,omitempty" validate:"max=500"`
}

// Config holds configuration for the scan orchestrator.
type Config struct {
	// PacingDelay is waited after every remote forecast call; cache hits are not paced.
	// Default: 150ms (see DefaultConfig). Zero disables pacing.
	PacingDelay time.Duration

	// Concurrency is the number of locations fetched in parallel.
	// Default: 1 (sequential)
	Concurrency int
}

// DefaultConfig returns the default scan configuration.
func DefaultConfig() Config {
	return Config{
		PacingDelay: 150 * time.Millisecond,
		Concurrency: 1,
	}
}

// DefaultLocations returns the built-in list of Bay Area hiking spots,
// with drive times measured from Menlo Park.
func DefaultLocations() []Location {
	return []Location{
		spot("Marin Headlands", 37.8270, -122.4990, 50, "Coastal bluffs with epic Pacific sunset views"),
		spot("Mt. Tamalpais", 37.9235, -122.5965, 55, "2,571 ft peak above the fog, panoramic sunsets"),
		spot("Point Reyes", 38.0682, -122.8783, 80, "Dramatic coastal cliffs & lighthouse"),
		spot("Muir Beach Overlook", 37.8602, -122.5722, 45, "Classic coastal overlook facing due west"),
		spot("Lands End, SF", 37.7878, -122.5046, 40, "Urban trail with Golden Gate sunset views"),
		spot("Twin Peaks, SF", 37.7544, -122.4477, 35, "360-degree city & ocean panorama"),
		spot("Pacifica (Mori Point)", 37.6180, -122.4930, 25, "Coastal headland, whale-watching & sunsets"),
		spot("Montara Mountain", 37.5685, -122.5035, 30, "McNee Ranch summit, sweeping ocean views"),
		spot("Half Moon Bay", 37.4636, -122.4286, 25, "Coastal bluff trails above the beach"),
		spot("Windy Hill", 37.3715, -122.2250, 15, "Midpeninsula ridge with bay & ocean views"),
		spot("Russian Ridge", 37.3230, -122.2050, 20, "Rolling grasslands on Skyline ridge"),
		spot("Skyline Ridge", 37.3110, -122.1830, 25, "Alpine-feel ridge above Silicon Valley"),
		spot("Black Mountain", 37.3210, -122.1530, 20, "Rancho San Antonio to summit panorama"),
		spot("Castle Rock State Park", 37.2310, -122.0945, 45, "Sandstone formations in redwood forest"),
		spot("Big Basin Redwoods", 37.1720, -122.2190, 55, "Old-growth redwoods near coast"),
		spot("Santa Cruz (West Cliff)", 36.9505, -122.0580, 60, "Oceanfront path with wide sunset horizon"),
		spot("Ano Nuevo State Park", 37.1085, -122.3378, 45, "Wild coastal bluffs, elephant seal habitat"),
		spot("Pinnacles National Park", 36.4906, -121.1825, 110, "Volcanic spires, condors, dark sky sunsets"),
		spot("Point Lobos", 36.5152, -121.9420, 100, "Crown jewel of CA coast, cypress & coves"),
		spot("Garrapata State Park", 36.4638, -121.9142, 105, "Big Sur northern gateway, dramatic cliffs"),
		spot("Mt. Diablo", 37.8816, -121.9142, 55, "East Bay summit with 360-degree views"),
		spot("Sunol Regional Wilderness", 37.5130, -121.8310, 35, "Little Yosemite gorge, rolling hills"),
		spot("Mission Peak", 37.5126, -121.8806, 35, "Iconic Bay Area summit hike"),
		spot("Mt. Hamilton / Lick Obs.", 37.3414, -121.6426, 60, "High-altitude views above South Bay"),
		spot("Henry Coe State Park", 37.1850, -121.4470, 70, "Rugged backcountry, sweeping valleys"),
		spot("Bodega Head", 38.2990, -123.0650, 110, "Dramatic Sonoma Coast headland"),
		spot("Stinson Beach / Steep Ravine", 37.8988, -122.6370, 65, "Beach & coastal canyon trails"),
		spot("Fremont Peak", 36.7570, -121.5000, 90, "3,169 ft summit with Monterey Bay views"),
	}
}

func spot(name string, lat, lng float64, driveMinutes int, desc string) Location {
	return Location{
		Name:         name,
		Coordinate:   grid.Coordinate{Lat: lat, Lng: lng},
		DriveMinutes: driveMinutes,
		Description:  desc,
	}
}
