package integration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	pkgerrors "github.com/dealerworks/dms-backend/pkg/errors"
	"github.com/dealerworks/dms-backend/pkg/logger"
)

const (
	tracerName      = "dms-integration"
	maxErrorBodyLen = 512
)

// ClientConfig configures one upstream module.
type ClientConfig struct {
	Name            string
	BaseURL         string
	Timeout         time.Duration
	BreakerFailures uint32
	BreakerOpenFor  time.Duration
}

// Client issues JSON GETs against a sibling module behind a circuit breaker.
type Client struct {
	name    string
	baseURL string
	timeout time.Duration
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	tracer  trace.Tracer
	logg    *logger.Logger
}

// notFound travels through the breaker as a successful result so upstream
// 404s never count toward tripping it.
type notFound struct{ status int }

func NewClient(cfg ClientConfig, httpClient *http.Client, logg *logger.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("%s base url required", cfg.Name)
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	c := &Client{
		name:    cfg.Name,
		baseURL: base,
		timeout: cfg.Timeout,
		http:    httpClient,
		tracer:  otel.Tracer(tracerName),
		logg:    logg,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if c.logg == nil {
				return
			}
			ctx := c.logg.WithFields(context.Background(), map[string]any{
				"upstream": name,
				"from":     from.String(),
				"to":       to.String(),
			})
			c.logg.Warn(ctx, "integration.breaker.state_changed")
		},
	})
	return c, nil
}

// State reports the breaker state, mostly for readiness output and tests.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	url := c.baseURL + path
	ctx, span := c.tracer.Start(ctx, c.name+" GET "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", http.MethodGet),
			attribute.String("http.url", url),
			attribute.String("peer.service", c.name),
		),
	)
	defer span.End()

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.do(ctx, url, out)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return c.dependencyError(ctx, err)
	}
	if nf, ok := result.(notFound); ok {
		span.SetAttributes(attribute.Int("http.status_code", nf.status))
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "%s resource not found", c.name)
	}
	span.SetAttributes(attribute.Int("http.status_code", http.StatusOK))
	return nil
}

func (c *Client) do(ctx context.Context, url string, out any) (interface{}, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	otel.GetTextMapPropagator().Inject(callCtx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return notFound{status: resp.StatusCode}, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return nil, nil
}

func (c *Client) dependencyError(ctx context.Context, err error) error {
	msg := fmt.Sprintf("%s unavailable", c.name)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		msg = fmt.Sprintf("%s circuit open", c.name)
	}
	if c.logg != nil {
		c.logg.Error(c.logg.WithField(ctx, "upstream", c.name), "integration.call.failed", err)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
