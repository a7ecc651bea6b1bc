package models

// MaxScanLocations bounds a custom scan request.
const MaxScanLocations = 50

// ScanRequest is the body of POST /v1/scan.
type ScanRequest struct {
	Locations []ScanLocation `json:"locations" validate:"required,min=1,max=50,dive"`
}

// ScanLocation is one location of a custom scan.
type ScanLocation struct {
	Name         string   `json:"name" validate:"required,max=200"`
	Lat          *float64 `json:"lat" validate:"required,latitude"`
	Lng          *float64 `json:"lng" validate:"required,longitude"`
	DriveMinutes int      `json:"driveMinutes,omitempty" validate:"gte=0"`
	Description  string   `json:"description,omitempty" validate:"max=500"`
}

// ScanResponse is the result of a scan.
type ScanResponse struct {
	Ranked   []RankedLocation `json:"ranked"`
	Failures []ScanFailure    `json:"failures,omitempty"`
	Stats    ScanStats        `json:"stats"`
}

// RankedLocation is a location with its best upcoming event.
type RankedLocation struct {
	Rank         int        `json:"rank"`
	Name         string     `json:"name"`
	Point        Coordinate `json:"point"`
	Cell         string     `json:"cell"`
	DriveMinutes int        `json:"driveMinutes,omitempty"`
	Description  string     `json:"description,omitempty"`
	Best         EventView  `json:"best"`
}

// ScanFailure is a location that could not be fetched.
type ScanFailure struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// ScanStats summarizes how a scan was served.
type ScanStats struct {
	Locations     int    `json:"locations"`
	DistinctCells int    `json:"distinctCells"`
	APICalls      int    `json:"apiCalls"`
	CacheHits     int    `json:"cacheHits"`
	Failed        int    `json:"failed"`
	Canceled      bool   `json:"canceled"`
	Duration      string `json:"duration"`
}
