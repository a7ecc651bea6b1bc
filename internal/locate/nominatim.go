package locate

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/sunsetscout/sunsetscout/internal/grid"
	"github.com/sunsetscout/sunsetscout/internal/provider/resilience"
)

const (
	// NominatimName identifies the geocoder in the health registry.
	NominatimName = "nominatim"

	// DefaultNominatimURL is the OpenStreetMap search endpoint.
	DefaultNominatimURL = "https://nominatim.openstreetmap.org/search"

	// DefaultUserAgent identifies this application to upstream services.
	DefaultUserAgent = "SunsetScout/1.0 (+https://github.com/sunsetscout/sunsetscout)"
)

// NominatimConfig holds configuration for the Nominatim geocoder.
type NominatimConfig struct {
	// BaseURL is the search endpoint (optional, defaults to DefaultNominatimURL).
	BaseURL string

	// UserAgent is required by the Nominatim usage policy.
	UserAgent string

	// HTTPClient is the HTTP client to use (optional).
	HTTPClient *resilience.Client

	Logger zerolog.Logger
}

// Nominatim geocodes free text with OpenStreetMap Nominatim.
type Nominatim struct {
	baseURL    string
	userAgent  string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewNominatim creates a new Nominatim geocoder.
func NewNominatim(cfg NominatimConfig) *Nominatim {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpCfg := resilience.DefaultClientConfig(NominatimName)
		httpCfg.Logger = cfg.Logger
		httpClient = resilience.NewClient(httpCfg)
	}

	return &Nominatim{
		baseURL:    baseURL,
		userAgent:  userAgent,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode returns the best match for query, or ErrNotFound if there is none.
func (n *Nominatim) Geocode(ctx context.Context, query string) (*Place, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if len(results) == 0 {
		return nil, fmt.Errorf("geocoding %q: %w", query, ErrNotFound)
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing latitude %q: %w", results[0].Lat, err)
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing longitude %q: %w", results[0].Lon, err)
	}

	display := results[0].DisplayName
	if display == "" {
		display = query
	}

	n.logger.Debug().
		Str("query", query).
		Float64("lat", lat).
		Float64("lng", lng).
		Msg("geocoded location")

	return &Place{
		Coordinate: grid.Coordinate{Lat: lat, Lng: lng},
		Display:    display,
	}, nil
}

var _ Geocoder = (*Nominatim)(nil)
