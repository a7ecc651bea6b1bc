// Package resilience wraps upstream HTTP calls (forecast, geocoding, trail
// pages) with a circuit breaker, timeouts and bounded retries, and tracks
// each upstream's health.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
)

const (
	// DefaultOpenTimeout is how long a tripped breaker rejects calls before probing.
	DefaultOpenTimeout = 60 * time.Second

	// DefaultCountInterval clears closed-state counts so that failures from a
	// previous scan do not count toward tripping in a later one.
	DefaultCountInterval = 10 * time.Minute

	minTripRequests = 5
	tripRatio       = 0.5
)

// CircuitBreakerConfig holds configuration for the circuit breaker.
type CircuitBreakerConfig struct {
	// Name identifies the circuit breaker in logs and the health registry.
	Name string

	// MaxRequests is the number of probe requests allowed while half-open.
	MaxRequests uint32

	// Interval is the cyclic period for clearing counts while closed. Zero never clears.
	Interval time.Duration

	// Timeout is the period of open state before switching to half-open.
	Timeout time.Duration

	// ReadyToTrip decides when to open the breaker (default: DefaultReadyToTrip).
	ReadyToTrip func(counts gobreaker.Counts) bool

	// IsSuccessful classifies a call's error (default: DefaultIsSuccessful).
	IsSuccessful func(err error) bool

	OnStateChange func(name string, from gobreaker.State, to gobreaker.State)
}

// DefaultCircuitBreakerConfig returns the configuration used for every upstream.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     DefaultCountInterval,
		Timeout:      DefaultOpenTimeout,
		ReadyToTrip:  DefaultReadyToTrip,
		IsSuccessful: DefaultIsSuccessful,
	}
}

// DefaultReadyToTrip opens the breaker once at least 5 requests were made
// and half or more of them failed.
func DefaultReadyToTrip(counts gobreaker.Counts) bool {
	if counts.Requests < minTripRequests {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= tripRatio
}

// DefaultIsSuccessful treats a call abandoned by its caller as a success:
// a canceled scan says nothing about the upstream.
func DefaultIsSuccessful(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}

// NewCircuitBreaker creates a new circuit breaker with the given configuration.
func NewCircuitBreaker[T any](cfg CircuitBreakerConfig) *gobreaker.CircuitBreaker[T] {
	settings := gobreaker.Settings{
		Name:          cfg.Name,
		MaxRequests:   cfg.MaxRequests,
		Interval:      cfg.Interval,
		Timeout:       cfg.Timeout,
		ReadyToTrip:   cfg.ReadyToTrip,
		IsSuccessful:  cfg.IsSuccessful,
		OnStateChange: cfg.OnStateChange,
	}
	if settings.ReadyToTrip == nil {
		settings.ReadyToTrip = DefaultReadyToTrip
	}
	if settings.IsSuccessful == nil {
		settings.IsSuccessful = DefaultIsSuccessful
	}

	return gobreaker.NewCircuitBreaker[T](settings)
}
