package models

// Health represents the health status of the service.
type Health struct {
	Status  HealthStatus           `json:"status"`
	Time    Timestamp              `json:"time"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SystemStatus is the response of GET /v1/ops/status.
type SystemStatus struct {
	Status    HealthStatus     `json:"status"`
	Time      Timestamp        `json:"time"`
	Providers []ProviderStatus `json:"providers"`
	Cache     CacheStatus      `json:"cache"`
	Scans     ScanTotals       `json:"scans"`
}

// ProviderStatus represents the status of an upstream provider.
type ProviderStatus struct {
	Provider            string       `json:"provider"`
	Status              HealthStatus `json:"status"`
	CircuitState        string       `json:"circuitState"`
	Requests            uint32       `json:"requests"`
	ConsecutiveFailures uint32       `json:"consecutiveFailures"`
	Successes           int64        `json:"successes"`
	Failures            int64        `json:"failures"`
	LastSuccessAt       *Timestamp   `json:"lastSuccessAt,omitempty"`
	LastFailureAt       *Timestamp   `json:"lastFailureAt,omitempty"`
	Message             *string      `json:"message,omitempty"`
}

// CacheStatus reports the forecast grid cache.
type CacheStatus struct {
	Entries    int     `json:"entries"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRatio   float64 `json:"hitRatio"`
	TTLSeconds int64   `json:"ttlSeconds"`
}

// ScanTotals aggregates every scan since startup.
type ScanTotals struct {
	Scans            int64      `json:"scans"`
	Locations        int64      `json:"locations"`
	APICalls         int64      `json:"apiCalls"`
	CacheHits        int64      `json:"cacheHits"`
	Failed           int64      `json:"failed"`
	LastScanAt       *Timestamp `json:"lastScanAt,omitempty"`
	LastScanDuration string     `json:"lastScanDuration,omitempty"`
}
