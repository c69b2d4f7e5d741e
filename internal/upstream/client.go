// Package upstream talks to the catalog and pricing APIs. Every call goes
// through a retry policy, and every attempt through a per-upstream circuit breaker.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/fairyhunter13/product-price-aggregator/internal/obs"
	"github.com/fairyhunter13/product-price-aggregator/internal/retry"
)

// maxBodyBytes bounds how much of an upstream body is read.
const maxBodyBytes = 8 << 20

// ClientConfig holds shared HTTP client configuration.
type ClientConfig struct {
	Timeout             time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	Transport           http.RoundTripper
}

// DefaultClientConfig returns default HTTP client configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:             10 * time.Second,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 32,
		IdleConnTimeout:     90 * time.Second,
	}
}

// ClientOption modifies ClientConfig.
type ClientOption func(*ClientConfig)

// WithTimeout sets the per-attempt client timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.Timeout = timeout
	}
}

// WithMaxIdleConnsPerHost sets the idle pool size per upstream host.
func WithMaxIdleConnsPerHost(n int) ClientOption {
	return func(c *ClientConfig) {
		c.MaxIdleConnsPerHost = n
	}
}

// WithTransport sets a custom transport.
func WithTransport(transport http.RoundTripper) ClientOption {
	return func(c *ClientConfig) {
		c.Transport = transport
	}
}

// NewHTTPClient creates the HTTP client shared by all upstream calls.
func NewHTTPClient(opts ...ClientOption) *http.Client {
	cfg := DefaultClientConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	transport := cfg.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        cfg.MaxIdleConns,
			MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
			IdleConnTimeout:     cfg.IdleConnTimeout,
		}
	}
	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
	}
}

// EndpointOptions configures retry and breaker behavior for one upstream.
type EndpointOptions struct {
	Retry retry.Config
	// BreakerMaxFailures is the count of consecutive exhausted calls that
	// opens the breaker. Zero disables tripping.
	BreakerMaxFailures int
	BreakerOpenTimeout time.Duration
	// BreakerHalfOpenRequests is how many calls a half-open breaker lets
	// through. Defaults to 1.
	BreakerHalfOpenRequests int
}

// endpoint is one upstream API reached through the shared client.
type endpoint struct {
	name    string
	base    string
	http    *http.Client
	policy  *retry.Policy
	breaker *gobreaker.CircuitBreaker
	maxBody int64
}

func newEndpoint(name, base string, hc *http.Client, opts EndpointOptions) *endpoint {
	rc := opts.Retry
	hook := rc.OnRetry
	rc.Retryable = Retryable
	rc.OnRetry = func(ev retry.Event) {
		obs.UpstreamRetries.WithLabelValues(name).Inc()
		obs.Logger.Warnw("upstream_retry",
			"upstream", name,
			"status", StatusCode(ev.Err),
			"attempt", ev.Attempt,
			"delay_sec", ev.Delay.Seconds(),
			"error", ev.Err,
		)
		if hook != nil {
			hook(ev)
		}
	}

	maxFailures := uint32(0)
	if opts.BreakerMaxFailures > 0 {
		maxFailures = uint32(opts.BreakerMaxFailures)
	}
	halfOpen := uint32(1)
	if opts.BreakerHalfOpenRequests > 1 {
		halfOpen = uint32(opts.BreakerHalfOpenRequests)
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: halfOpen,
		Timeout:     opts.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return maxFailures > 0 && counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			obs.BreakerState.WithLabelValues(name).Set(float64(to))
			obs.Logger.Warnw("upstream_breaker_state", "upstream", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			// The caller giving up is not the upstream's fault.
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	obs.BreakerState.WithLabelValues(name).Set(float64(gobreaker.StateClosed))

	return &endpoint{
		name:    name,
		base:    base,
		http:    hc,
		policy:  retry.New(rc),
		breaker: breaker,
		maxBody: maxBodyBytes,
	}
}

// getJSON fetches url and decodes the body into out. The breaker wraps the
// whole retried call, so it only counts calls whose retries were exhausted.
func (e *endpoint) getJSON(ctx context.Context, url string, out any) error {
	res, err := e.breaker.Execute(func() (interface{}, error) {
		var body []byte
		err := e.policy.Do(ctx, func(ctx context.Context) error {
			b, err := e.attempt(ctx, url)
			if err != nil {
				return err
			}
			body = b
			return nil
		})
		return body, err
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			obs.UpstreamRequests.WithLabelValues(e.name, "breaker_open").Inc()
		}
		return fmt.Errorf("%s: %w", e.name, err)
	}
	if err := json.Unmarshal(res.([]byte), out); err != nil {
		return fmt.Errorf("%s: %w: %v", e.name, ErrMalformedBody, err)
	}
	return nil
}

// attempt performs a single GET.
func (e *endpoint) attempt(ctx context.Context, url string) ([]byte, error) {
	start := time.Now()
	b, err := e.fetch(ctx, url)
	obs.UpstreamRequestDuration.WithLabelValues(e.name).Observe(time.Since(start).Seconds())
	obs.UpstreamRequests.WithLabelValues(e.name, outcome(err)).Inc()
	return b, err
}

func (e *endpoint) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBuildRequest, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := e.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, e.maxBody))
		return nil, &StatusError{Upstream: e.name, URL: url, StatusCode: resp.StatusCode}
	}
	// One byte past the limit tells a cut-off body from one that fits exactly.
	b, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(b)) > e.maxBody {
		return nil, fmt.Errorf("GET %s: %w (%d bytes)", url, ErrBodyTooLarge, e.maxBody)
	}
	return b, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case StatusCode(err) != 0:
		return "bad_status"
	case errors.Is(err, ErrBodyTooLarge):
		return "body_too_large"
	default:
		return "transport_error"
	}
}
