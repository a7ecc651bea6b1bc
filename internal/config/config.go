// Package config loads service configuration from defaults, an optional YAML
// file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Config is the complete service configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	SunsetHue SunsetHueConfig `koanf:"sunsethue"`
	Nominatim NominatimConfig `koanf:"nominatim"`
	Cache     CacheConfig     `koanf:"cache"`
	Scan      ScanConfig      `koanf:"scan"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Log       LogConfig       `koanf:"log"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	Environment     string        `koanf:"environment" validate:"oneof=development staging production"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	IdleTimeout     time.Duration `koanf:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`

	// RateLimitRequests per RateLimitWindow per client IP. Zero disables limiting.
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"gte=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
}

// SunsetHueConfig configures the forecast provider.
type SunsetHueConfig struct {
	APIKey    string        `koanf:"api_key" validate:"required"`
	BaseURL   string        `koanf:"base_url" validate:"required,url"`
	UserAgent string        `koanf:"user_agent" validate:"required"`
	Timeout   time.Duration `koanf:"timeout" validate:"gt=0"`

	// RequestsPerSecond caps outgoing forecast calls. Zero disables the limiter.
	RequestsPerSecond float64 `koanf:"requests_per_second" validate:"gte=0"`
	Burst             int     `koanf:"burst" validate:"gte=1"`
}

// NominatimConfig configures free-text geocoding.
type NominatimConfig struct {
	BaseURL   string `koanf:"base_url" validate:"required,url"`
	UserAgent string `koanf:"user_agent" validate:"required"`
}

// CacheConfig configures the forecast cache.
type CacheConfig struct {
	TTL time.Duration `koanf:"ttl" validate:"gt=0"`
}

// ScanConfig configures multi-location scans.
type ScanConfig struct {
	PacingDelay time.Duration `koanf:"pacing_delay" validate:"gte=0"`
	Concurrency int           `koanf:"concurrency" validate:"min=1,max=16"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled      bool    `koanf:"enabled"`
	ServiceName  string  `koanf:"service_name" validate:"required"`
	OTLPEndpoint string  `koanf:"otlp_endpoint" validate:"required_if=Enabled true"`
	SampleRatio  float64 `koanf:"sample_ratio" validate:"gte=0,lte=1"`
}

// LogConfig configures the root logger.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// Validate checks the configuration against its struct constraints.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	err := v.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required", "required_if":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "url":
		return field + " must be a valid URL"
	default:
		if fe.Param() != "" {
			return fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param())
		}
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

// IsProduction reports whether the service runs in production, where plain
// HTTP behind the load balancer is rejected.
func (c ServerConfig) IsProduction() bool {
	return c.Environment == "production"
}

// NewLogger builds the root logger for a service.
func (c LogConfig) NewLogger(w io.Writer, service, version string) zerolog.Logger {
	if w == nil {
		w = os.Stdout
	}
	if c.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	level, err := zerolog.ParseLevel(c.Level)
	if err != nil || c.Level == "" {
		level = zerolog.InfoLevel
	}

	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("service", service).
		Str("version", version).
		Logger()
}
