package resilience

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned without contacting the upstream while its breaker
// is open or already probing.
var ErrCircuitOpen = errors.New("circuit breaker is open")

const (
	defaultTimeout         = 10 * time.Second
	defaultMaxRetries      = 3
	defaultInitialInterval = 100 * time.Millisecond
	defaultMaxInterval     = 5 * time.Second
)

// ClientConfig configures a Client. Zero durations fall back to the defaults
// of DefaultClientConfig.
type ClientConfig struct {
	// Name identifies the upstream in logs, the breaker and the Registry.
	Name string

	// Timeout bounds a single attempt, including reading the headers.
	Timeout time.Duration

	// MaxRetries is the number of extra attempts after a 5xx or transport
	// failure. Zero sends every request exactly once.
	MaxRetries uint64

	InitialInterval time.Duration
	MaxInterval     time.Duration

	// CircuitBreaker overrides DefaultCircuitBreakerConfig(Name).
	CircuitBreaker *CircuitBreakerConfig

	// Headers are added to every request that does not set them itself.
	Headers map[string]string

	// Registry, if set, tracks this client and the outcome of each call.
	Registry *Registry

	Transport http.RoundTripper
	Logger    zerolog.Logger
}

// DefaultClientConfig returns the configuration used for geocoding and page
// fetches: three retries with exponential backoff behind the default breaker.
func DefaultClientConfig(name string) ClientConfig {
	breaker := DefaultCircuitBreakerConfig(name)
	return ClientConfig{
		Name:            name,
		Timeout:         defaultTimeout,
		MaxRetries:      defaultMaxRetries,
		InitialInterval: defaultInitialInterval,
		MaxInterval:     defaultMaxInterval,
		CircuitBreaker:  &breaker,
		Logger:          zerolog.Nop(),
	}
}

// Client sends HTTP requests to one upstream through a circuit breaker and
// a bounded retry loop.
type Client struct {
	name    string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
	cfg     ClientConfig
	logger  zerolog.Logger
}

// NewClient builds a Client and, when cfg.Registry is set, tracks it there.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = defaultInitialInterval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = defaultMaxInterval
	}

	logger := cfg.Logger.With().Str("upstream", cfg.Name).Logger()

	breakerCfg := DefaultCircuitBreakerConfig(cfg.Name)
	if cfg.CircuitBreaker != nil {
		breakerCfg = *cfg.CircuitBreaker
	}
	if breakerCfg.OnStateChange == nil {
		breakerCfg.OnStateChange = func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Stringer("from", from).
				Stringer("to", to).
				Msg("circuit breaker state changed")
		}
	}

	c := &Client{
		name:    cfg.Name,
		http:    &http.Client{Timeout: cfg.Timeout, Transport: cfg.Transport},
		breaker: NewCircuitBreaker[*http.Response](breakerCfg), //nolint:bodyclose // type parameter
		cfg:     cfg,
		logger:  logger,
	}
	if cfg.Registry != nil {
		cfg.Registry.Track(c)
	}
	return c
}

// Name returns the upstream name.
func (c *Client) Name() string {
	return c.name
}

// Do sends req using its own context. See DoWithContext.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.DoWithContext(req.Context(), req)
}

// DoWithContext sends req, retrying 5xx responses and transport failures up
// to MaxRetries times. ErrCircuitOpen is returned while the breaker is open.
// A 5xx response that outlives every attempt is returned with a nil error so
// the caller can read the upstream's message; the caller closes the body.
func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	for k, v := range c.cfg.Headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}

	var last *http.Response
	operation := func() error {
		if last != nil {
			_ = last.Body.Close()
			last = nil
		}

		resp, err := c.attempt(ctx, req)
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return backoff.Permanent(ErrCircuitOpen)
		case err != nil:
			last = resp
			return err
		}
		last = resp
		return nil
	}

	onRetry := func(err error, wait time.Duration) {
		c.logger.Debug().Err(err).Dur("wait", wait).Str("url", req.URL.Redacted()).Msg("retrying upstream request")
	}

	if err := backoff.RetryNotify(operation, c.policy(ctx), onRetry); err != nil {
		if last != nil {
			c.failed(&ServerError{StatusCode: last.StatusCode})
			return last, nil
		}
		if !errors.Is(err, context.Canceled) {
			c.failed(err)
		}
		return nil, err
	}

	if c.cfg.Registry != nil {
		c.cfg.Registry.Succeeded(c.name)
	}
	return last, nil
}

// attempt runs one request through the breaker. A 5xx response is returned
// together with a *ServerError so that it counts as a breaker failure.
func (c *Client) attempt(ctx context.Context, req *http.Request) (*http.Response, error) {
	return c.breaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // returned to the caller
		resp, err := c.http.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, &ServerError{StatusCode: resp.StatusCode}
		}
		return resp, nil
	})
}

func (c *Client) policy(ctx context.Context) backoff.BackOffContext {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.cfg.InitialInterval
	exp.MaxInterval = c.cfg.MaxInterval
	exp.MaxElapsedTime = 0 // bounded by MaxRetries
	return backoff.WithContext(backoff.WithMaxRetries(exp, c.cfg.MaxRetries), ctx)
}

func (c *Client) failed(err error) {
	if c.cfg.Registry != nil {
		c.cfg.Registry.Failed(c.name, err)
	}
}

// ServerError is a 5xx response from the upstream.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return "server error: " + http.StatusText(e.StatusCode)
}

// CircuitBreakerState returns the breaker's current state.
func (c *Client) CircuitBreakerState() gobreaker.State {
	return c.breaker.State()
}

// CircuitBreakerCounts returns the breaker's counts for the current generation.
func (c *Client) CircuitBreakerCounts() gobreaker.Counts {
	return c.breaker.Counts()
}
