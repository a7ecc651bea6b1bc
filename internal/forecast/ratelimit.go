package forecast

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/sunsetscout/sunsetscout/internal/grid"
)

// RateLimitedProvider wraps a Provider with a client-side request rate limit.
type RateLimitedProvider struct {
	provider Provider
	limiter  *rate.Limiter
	name     string
}

// NewRateLimitedProvider creates a rate limited provider.
// rps is the maximum requests per second (can be fractional), burst the maximum burst size.
func NewRateLimitedProvider(provider Provider, rps float64, burst int) *RateLimitedProvider {
	return &RateLimitedProvider{
		provider: provider,
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
		name:     provider.Name(),
	}
}

// GetForecast waits for limiter permission, then forwards to the wrapped provider.
// A cancelled wait is reported as a NetworkError since no request was sent.
func (r *RateLimitedProvider) GetForecast(ctx context.Context, coord grid.Coordinate) (*Payload, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, &NetworkError{Err: fmt.Errorf("rate limit wait canceled: %w", err)}
	}
	return r.provider.GetForecast(ctx, coord)
}

// Name returns the wrapped provider's name.
func (r *RateLimitedProvider) Name() string {
	return r.name
}

var _ Provider = (*RateLimitedProvider)(nil)
