package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"

	apperrors "github.com/utafrali/agromarket-storefront/pkg/errors"
)

// CircuitBreakerConfig holds configuration for the circuit breaker.
type CircuitBreakerConfig struct {
	// Name identifies this breaker in metrics and logs.
	Name string

	// MaxRequests is the number of requests let through while half-open.
	MaxRequests uint32

	// Interval clears the closed-state counts.
	Interval time.Duration

	// Timeout is how long the breaker stays open.
	Timeout time.Duration

	// FailureRatio trips the breaker once reached over at least MinRequests.
	FailureRatio float64
	MinRequests  uint32
}

// DefaultCircuitBreakerConfig returns the breaker settings used in front of
// the marketplace backend.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

// FallbackFunc replaces the error of a request the breaker rejected.
type FallbackFunc func(ctx context.Context, err error) (*http.Response, error)

// ErrCircuitOpen is returned when the breaker rejects a request.
var ErrCircuitOpen = gobreaker.ErrOpenState

var (
	breakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "storefront",
			Subsystem: "backend",
			Name:      "breaker_state",
			Help:      "Breaker state per upstream (0=closed, 1=half-open, 2=open).",
		},
		[]string{"name"},
	)

	breakerRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "backend",
			Name:      "breaker_rejected_total",
			Help:      "Requests rejected without reaching the upstream, by reason.",
		},
		[]string{"name", "reason"},
	)
)

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// upstreamFailure reports whether a backend status says the backend itself
// is in trouble. Other 4xx responses are the shopper's problem.
func upstreamFailure(status int) bool {
	return status >= http.StatusInternalServerError || status == http.StatusTooManyRequests
}

// CircuitBreakerClient wraps a Client with circuit breaker protection.
type CircuitBreakerClient struct {
	client   *Client
	breaker  *gobreaker.CircuitBreaker[*http.Response]
	logger   *slog.Logger
	fallback FallbackFunc
	name     string
}

// NewCircuitBreakerClient wraps client with a circuit breaker.
func NewCircuitBreakerClient(client *Client, cfg CircuitBreakerConfig, logger *slog.Logger) *CircuitBreakerClient {
	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.Requests >= cfg.MinRequests &&
				float64(c.TotalFailures)/float64(c.Requests) >= cfg.FailureRatio
		},
		// A shopper who navigated away says nothing about backend health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("backend breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			breakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})
	breakerState.WithLabelValues(cfg.Name).Set(0)

	return &CircuitBreakerClient{client: client, breaker: breaker, logger: logger, name: cfg.Name}
}

// WithFallback returns a copy that hands rejected requests to fn.
func (c *CircuitBreakerClient) WithFallback(fn FallbackFunc) *CircuitBreakerClient {
	cpy := *c
	cpy.fallback = fn
	return &cpy
}

// CircuitOpenFallback turns a rejected request into a 503 AppError with a
// message the shopper can act on.
func CircuitOpenFallback(_ context.Context, _ error) (*http.Response, error) {
	return nil, apperrors.ServiceUnavailable("the marketplace is temporarily unavailable, please retry in a moment")
}

// Do executes req through the breaker. 5xx and 429 responses count as
// failures and come back as *StatusError with the body already read.
func (c *CircuitBreakerClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		resp, err := c.client.Do(ctx, req)
		if err != nil {
			return nil, err
		}
		if !upstreamFailure(resp.StatusCode) {
			return resp, nil
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = resp.Body.Close()
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: body}
	})
	if err == nil {
		return resp, nil
	}

	var reason string
	switch {
	case errors.Is(err, gobreaker.ErrOpenState):
		reason = "open"
	case errors.Is(err, gobreaker.ErrTooManyRequests):
		reason = "half_open"
	default:
		return nil, err
	}
	breakerRejected.WithLabelValues(c.name, reason).Inc()
	c.logger.WarnContext(ctx, "backend request rejected by breaker",
		slog.String("breaker", c.name),
		slog.String("reason", reason),
		slog.String("path", req.URL.Path),
	)
	if c.fallback != nil {
		return c.fallback(ctx, err)
	}
	return nil, err
}

// Check reports an error while the breaker is open. It backs the
// non-critical readiness check of the upstream.
func (c *CircuitBreakerClient) Check(_ context.Context) error {
	if s := c.breaker.State(); s == gobreaker.StateOpen {
		return fmt.Errorf("%s breaker is %s", c.name, s)
	}
	return nil
}

// State returns the current state of the circuit breaker.
func (c *CircuitBreakerClient) State() gobreaker.State {
	return c.breaker.State()
}
