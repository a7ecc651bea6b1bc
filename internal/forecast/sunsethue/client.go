// Package sunsethue implements the forecast provider backed by the SunsetHue API.
package sunsethue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/sunsetscout/sunsetscout/internal/forecast"
	"github.com/sunsetscout/sunsetscout/internal/grid"
	"github.com/sunsetscout/sunsetscout/internal/provider/resilience"
)

const (
	// ProviderName identifies this forecast provider.
	ProviderName = "sunsethue"

	// DefaultBaseURL is the SunsetHue forecast endpoint.
	DefaultBaseURL = "https://api.sunsethue.com/forecast"

	// DefaultUserAgent is sent with every request.
	DefaultUserAgent = "SunsetScout/1.0 (+https://github.com/sunsetscout/sunsetscout)"

	// DefaultTimeout bounds a single forecast request.
	DefaultTimeout = 15 * time.Second

	apiKeyHeader = "x-api-key"

	// maxErrorBody caps how much of an error response is read for its message.
	maxErrorBody = 64 << 10
)

// ClientConfig holds configuration for the SunsetHue client.
type ClientConfig struct {
	// APIKey is the SunsetHue API key (required).
	APIKey string

	// BaseURL is the forecast endpoint (optional, defaults to DefaultBaseURL).
	BaseURL string

	// UserAgent overrides DefaultUserAgent.
	UserAgent string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, a resilient client without retries is created.
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a SunsetHue API client.
type Client struct {
	apiKey     string
	baseURL    string
	userAgent  string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewHTTPClient returns the resilient HTTP client used for SunsetHue.
// Failures are surfaced to the caller and never retried. A non-positive
// timeout means DefaultTimeout.
func NewHTTPClient(timeout time.Duration, registry *resilience.Registry, logger zerolog.Logger) *resilience.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	cfg := resilience.DefaultClientConfig(ProviderName)
	cfg.Timeout = timeout
	cfg.MaxRetries = 0
	cfg.Registry = registry
	cfg.Logger = logger
	return resilience.NewClient(cfg)
}

// NewClient creates a new SunsetHue client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = NewHTTPClient(DefaultTimeout, nil, cfg.Logger)
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		userAgent:  userAgent,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// GetForecast fetches the sunrise/sunset forecast for a coordinate.
// Non-2xx responses become *forecast.RemoteError; transport failures and an
// open circuit become *forecast.NetworkError.
func (c *Client) GetForecast(ctx context.Context, coord grid.Coordinate) (*forecast.Payload, error) {
	params := url.Values{}
	params.Set("latitude", fmt.Sprintf("%.4f", coord.Lat))
	params.Set("longitude", fmt.Sprintf("%.4f", coord.Lng))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &forecast.NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &forecast.RemoteError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp),
		}
	}

	var body forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, &forecast.NetworkError{Err: fmt.Errorf("reading response: %w", err)}
		}
		return nil, &forecast.RemoteError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("decoding response: %v", err),
		}
	}

	payload := body.toPayload()

	c.logger.Debug().
		Float64("lat", coord.Lat).
		Float64("lng", coord.Lng).
		Int("events", len(payload.Data)).
		Msg("fetched sunsethue forecast")

	return payload, nil
}

// errorMessage extracts the "message" field of an error body, falling back
// to the raw body text or the status text.
func errorMessage(resp *http.Response) string {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return http.StatusText(resp.StatusCode)
	}

	var body errorResponse
	if err := json.Unmarshal(raw, &body); err == nil && body.Message != "" {
		return body.Message
	}

	if text := strings.TrimSpace(string(raw)); text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}

var _ forecast.Provider = (*Client)(nil)
