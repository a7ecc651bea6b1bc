package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/sunsetscout/sunsetscout/internal/forecast"
	"github.com/sunsetscout/sunsetscout/internal/forecast/sunsethue"
	"github.com/sunsetscout/sunsetscout/internal/locate"
	"github.com/sunsetscout/sunsetscout/internal/scan"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/sunsetscout/config.yaml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	scanDefaults := scan.DefaultConfig()

	return &Config{
		Server: ServerConfig{
			Port:              8080,
			Environment:       "development",
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      60 * time.Second, // a cold scan of every default spot is slow
			IdleTimeout:       60 * time.Second,
			ShutdownTimeout:   30 * time.Second,
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
		},
		SunsetHue: SunsetHueConfig{
			BaseURL:           sunsethue.DefaultBaseURL,
			UserAgent:         sunsethue.DefaultUserAgent,
			Timeout:           sunsethue.DefaultTimeout,
			RequestsPerSecond: 0,
			Burst:             1,
		},
		Nominatim: NominatimConfig{
			BaseURL:   locate.DefaultNominatimURL,
			UserAgent: locate.DefaultUserAgent,
		},
		Cache: CacheConfig{
			TTL: forecast.DefaultCacheTTL,
		},
		Scan: ScanConfig{
			PacingDelay: scanDefaults.PacingDelay,
			Concurrency: scanDefaults.Concurrency,
		},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			ServiceName:  "sunsetscout",
			OTLPEndpoint: "localhost:4317",
			SampleRatio:  1.0,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from defaults, then the first config file found,
// then environment variables, and validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

var envMappings = map[string]string{
	// Server
	"app_port":            "server.port",
	"app_env":             "server.environment",
	"http_read_timeout":   "server.read_timeout",
	"http_write_timeout":  "server.write_timeout",
	"http_idle_timeout":   "server.idle_timeout",
	"shutdown_timeout":    "server.shutdown_timeout",
	"rate_limit_requests": "server.rate_limit_requests",
	"rate_limit_window":   "server.rate_limit_window",

	// Forecast provider
	"sunsethue_api_key":             "sunsethue.api_key",
	"sunsethue_base_url":            "sunsethue.base_url",
	"sunsethue_user_agent":          "sunsethue.user_agent",
	"sunsethue_timeout":             "sunsethue.timeout",
	"sunsethue_requests_per_second": "sunsethue.requests_per_second",
	"sunsethue_burst":               "sunsethue.burst",

	// Geocoding
	"nominatim_base_url":   "nominatim.base_url",
	"nominatim_user_agent": "nominatim.user_agent",

	"cache_ttl": "cache.ttl",

	"scan_pacing_delay": "scan.pacing_delay",
	"scan_concurrency":  "scan.concurrency",

	// Telemetry
	"otel_enabled":                "telemetry.enabled",
	"otel_service_name":           "telemetry.service_name",
	"otel_exporter_otlp_endpoint": "telemetry.otlp_endpoint",
	"otel_sample_ratio":           "telemetry.sample_ratio",

	"log_level":  "log.level",
	"log_format": "log.format",
}

// envTransformFunc maps known environment variables onto config keys.
// Unmapped variables are dropped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
