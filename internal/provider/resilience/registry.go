package resilience

import (
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Condition summarizes an upstream's breaker state for status reporting.
type Condition string

const (
	ConditionUp       Condition = "up"
	ConditionDegraded Condition = "degraded"
	ConditionDown     Condition = "down"
)

// UpstreamHealth is a point-in-time view of one tracked upstream.
type UpstreamHealth struct {
	Name   string
	State  gobreaker.State
	Counts gobreaker.Counts

	// Successes and Failures count completed calls since the upstream was tracked.
	Successes int64
	Failures  int64

	// LastSuccess and LastFailure are zero until the first such outcome.
	LastSuccess time.Time
	LastFailure time.Time
	LastError   string
}

// Condition maps the breaker state: closed is up, half-open is degraded and
// open is down.
func (h UpstreamHealth) Condition() Condition {
	switch h.State {
	case gobreaker.StateOpen:
		return ConditionDown
	case gobreaker.StateHalfOpen:
		return ConditionDegraded
	default:
		return ConditionUp
	}
}

// Registry tracks the resilient clients of a process (forecast, geocoder,
// trail pages) and the outcome of their calls.
type Registry struct {
	mu        sync.RWMutex
	upstreams map[string]*tracked
	now       func() time.Time
}

type tracked struct {
	client *Client
	health UpstreamHealth
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		upstreams: make(map[string]*tracked),
		now:       time.Now,
	}
}

// Track adds client under its name, replacing any client tracked under the same name.
func (r *Registry) Track(client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upstreams[client.Name()] = &tracked{
		client: client,
		health: UpstreamHealth{Name: client.Name()},
	}
}

// Forget stops tracking name.
func (r *Registry) Forget(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.upstreams, name)
}

// Succeeded records a completed call. Unknown names are ignored.
func (r *Registry) Succeeded(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.upstreams[name]; ok {
		t.health.Successes++
		t.health.LastSuccess = r.now()
	}
}

// Failed records a failed call and its error. Unknown names are ignored.
func (r *Registry) Failed(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.upstreams[name]
	if !ok {
		return
	}
	t.health.Failures++
	t.health.LastFailure = r.now()
	if err != nil {
		t.health.LastError = err.Error()
	}
}

// Health returns the current view of name.
func (r *Registry) Health(name string) (UpstreamHealth, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.upstreams[name]
	if !ok {
		return UpstreamHealth{}, false
	}
	return t.snapshot(), true
}

// All returns every tracked upstream ordered by name.
func (r *Registry) All() []UpstreamHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]UpstreamHealth, 0, len(r.upstreams))
	for _, name := range r.names() {
		out = append(out, r.upstreams[name].snapshot())
	}
	return out
}

// Names returns the tracked upstream names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.names()
}

// Len returns the number of tracked upstreams.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.upstreams)
}

func (r *Registry) names() []string {
	names := make([]string, 0, len(r.upstreams))
	for name := range r.upstreams {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (t *tracked) snapshot() UpstreamHealth {
	h := t.health
	h.State = t.client.CircuitBreakerState()
	h.Counts = t.client.CircuitBreakerCounts()
	return h
}
