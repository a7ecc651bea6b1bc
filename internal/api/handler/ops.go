package handler

import (
	"net/http"
	"time"

	"github.com/sunsetscout/sunsetscout/internal/api/models"
	"github.com/sunsetscout/sunsetscout/internal/api/response"
	"github.com/sunsetscout/sunsetscout/internal/forecast"
	"github.com/sunsetscout/sunsetscout/internal/provider/resilience"
	"github.com/sunsetscout/sunsetscout/internal/scan"
)

// HealthReporter exposes upstream health. *resilience.Registry implements it.
type HealthReporter interface {
	Health(name string) (resilience.UpstreamHealth, bool)
	All() []resilience.UpstreamHealth
}

// CacheReporter exposes forecast cache statistics. *forecast.Cache implements it.
type CacheReporter interface {
	Stats() forecast.CacheStats
	TTL() time.Duration
}

// ScanReporter exposes scan totals. *scan.Orchestrator implements it.
type ScanReporter interface {
	GetMetrics() scan.Metrics
}

// OpsConfig holds the dependencies of OpsHandler. Any reporter may be nil.
type OpsConfig struct {
	Version   string
	BuildTime string

	// ForecastProvider names the registry entry that readiness depends on.
	ForecastProvider string

	Providers HealthReporter
	Cache     CacheReporter
	Scans     ScanReporter
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	cfg OpsConfig
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	return &OpsHandler{cfg: cfg}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.cfg.Version,
			"buildTime": h.cfg.BuildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready. The service is not ready while
// the forecast provider's circuit breaker is open.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	}

	if h.cfg.Providers != nil && h.cfg.ForecastProvider != "" {
		if uh, ok := h.cfg.Providers.Health(h.cfg.ForecastProvider); ok && uh.Condition() == resilience.ConditionDown {
			health.Status = models.HealthStatusFail
			health.Details = map[string]interface{}{
				"provider":     uh.Name,
				"circuitState": uh.State.String(),
			}
			response.JSON(w, r, http.StatusServiceUnavailable, health)
			return
		}
	}

	response.JSON(w, r, http.StatusOK, health)
}

// SystemStatus handles GET /v1/ops/status - provider, cache and scan status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:    models.HealthStatusOK,
		Time:      models.Timestamp(time.Now()),
		Providers: []models.ProviderStatus{},
	}

	if h.cfg.Providers != nil {
		for _, uh := range h.cfg.Providers.All() {
			ps := providerStatus(uh)
			status.Status = worse(status.Status, ps.Status)
			status.Providers = append(status.Providers, ps)
		}
	}

	if h.cfg.Cache != nil {
		stats := h.cfg.Cache.Stats()
		status.Cache = models.CacheStatus{
			Entries:    stats.Entries,
			Hits:       stats.Hits,
			Misses:     stats.Misses,
			TTLSeconds: int64(h.cfg.Cache.TTL().Seconds()),
		}
		if total := stats.Hits + stats.Misses; total > 0 {
			status.Cache.HitRatio = float64(stats.Hits) / float64(total)
		}
	}

	if h.cfg.Scans != nil {
		m := h.cfg.Scans.GetMetrics()
		status.Scans = models.ScanTotals{
			Scans:     m.TotalScans,
			Locations: m.TotalLocations,
			APICalls:  m.TotalAPICalls,
			CacheHits: m.TotalCacheHits,
			Failed:    m.TotalFailed,
		}
		if !m.LastScanAt.IsZero() {
			status.Scans.LastScanAt = models.TimestampPtr(m.LastScanAt)
			status.Scans.LastScanDuration = m.LastScanDuration.String()
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}

func providerStatus(uh resilience.UpstreamHealth) models.ProviderStatus {
	ps := models.ProviderStatus{
		Provider:            uh.Name,
		Status:              conditionStatus[uh.Condition()],
		CircuitState:        uh.State.String(),
		Requests:            uh.Counts.Requests,
		ConsecutiveFailures: uh.Counts.ConsecutiveFailures,
		Successes:           uh.Successes,
		Failures:            uh.Failures,
	}
	if !uh.LastSuccess.IsZero() {
		ps.LastSuccessAt = models.TimestampPtr(uh.LastSuccess)
	}
	if !uh.LastFailure.IsZero() {
		ps.LastFailureAt = models.TimestampPtr(uh.LastFailure)
	}
	if uh.LastError != "" {
		msg := uh.LastError
		ps.Message = &msg
	}
	return ps
}

var conditionStatus = map[resilience.Condition]models.HealthStatus{
	resilience.ConditionUp:       models.HealthStatusOK,
	resilience.ConditionDegraded: models.HealthStatusDegraded,
	resilience.ConditionDown:     models.HealthStatusFail,
}

// worse returns the more severe of two statuses.
func worse(a, b models.HealthStatus) models.HealthStatus {
	rank := func(s models.HealthStatus) int {
		switch s {
		case models.HealthStatusFail:
			return 2
		case models.HealthStatusDegraded:
			return 1
		default:
			return 0
		}
	}
	if rank(b) > rank(a) {
		return b
	}
	return a
}
