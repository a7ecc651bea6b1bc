package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/sunsetscout/sunsetscout/internal/api/models"
)

// RateLimitConfig allows RequestLimit requests per WindowLength per client.
type RateLimitConfig struct {
	RequestLimit int
	WindowLength time.Duration
}

var (
	// ScanRateLimit guards multi-location scans, each of which can fan out
	// to several forecast lookups.
	ScanRateLimit = RateLimitConfig{RequestLimit: 10, WindowLength: time.Minute}

	// StandardRateLimit guards single-location lookups.
	StandardRateLimit = RateLimitConfig{RequestLimit: 100, WindowLength: time.Minute}
)

// Enabled is false for a zero limit or window.
func (c RateLimitConfig) Enabled() bool {
	return c.RequestLimit > 0 && c.WindowLength > 0
}

// retryAfter is the window in whole seconds, rounded up.
func (c RateLimitConfig) retryAfter() string {
	return strconv.Itoa(int(math.Ceil(c.WindowLength.Seconds())))
}

// RateLimitByIP limits each client IP, honouring X-Real-IP and
// X-Forwarded-For. A disabled config passes requests straight through.
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if !cfg.Enabled() {
		return func(next http.Handler) http.Handler { return next }
	}

	retryAfter := cfg.retryAfter()
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		// httprate does not report when the window resets, so clients are
		// told to wait a full window.
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", retryAfter)
			models.NewTooManyRequests(GetRequestID(r.Context()), "Rate limit exceeded. Please try again later.").
				WithInstance(r.URL.Path).
				Write(w)
		}),
	)
}
