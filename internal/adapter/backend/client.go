// Package backend is the HTTP adapter for the agricultural prediction API.
// Every call runs through one circuit breaker and fails with *APIError.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"

	"github.com/couchcryptid/agri-dashboard/internal/observability"
)

const (
	defaultUserAgent = "agridash/1.0"
	maxErrorBody     = 64 << 10
)

// Client talks to the backend over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	userAgent  string
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithBreakerThreshold trips the breaker after n consecutive failures and
// keeps it open for openFor.
func WithBreakerThreshold(n uint32, openFor time.Duration) Option {
	return func(c *Client) { c.breaker = c.newBreaker(n, openFor) }
}

// NewClient creates a backend client rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  defaultUserAgent,
		logger:     logger,
		metrics:    metrics,
	}
	c.breaker = c.newBreaker(5, 30*time.Second)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) newBreaker(threshold uint32, openFor time.Duration) *gobreaker.CircuitBreaker[*http.Response] {
	return gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "backend",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			if c.metrics == nil {
				return
			}
			if to == gobreaker.StateOpen {
				c.metrics.BreakerOpen.Set(1)
			} else {
				c.metrics.BreakerOpen.Set(0)
			}
		},
	})
}

// CheckReadiness fails while the circuit breaker is open.
func (c *Client) CheckReadiness(_ context.Context) error {
	if c.breaker.State() == gobreaker.StateOpen {
		return errors.New("backend circuit breaker is open")
	}
	return nil
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string { return c.baseURL }

type request struct {
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, request{method: http.MethodGet, path: path, query: query}, out)
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &APIError{Kind: KindTransport, Endpoint: http.MethodPost + " " + path, Err: fmt.Errorf("encode request: %w", err)}
	}
	return c.do(ctx, request{method: http.MethodPost, path: path, body: body, contentType: "application/json"}, out)
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	endpoint := r.method + " " + r.path
	fullURL := c.baseURL + r.path
	if len(r.query) > 0 {
		fullURL += "?" + r.query.Encode()
	}
	requestID := uuid.NewString()

	start := time.Now()
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		var body io.Reader
		if r.body != nil {
			body = bytes.NewReader(r.body)
		}
		req, err := http.NewRequestWithContext(ctx, r.method, fullURL, body)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("X-Request-ID", requestID)
		if r.contentType != "" {
			req.Header.Set("Content-Type", r.contentType)
		}

		res, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		if res.StatusCode >= http.StatusInternalServerError {
			return res, fmt.Errorf("backend returned %d", res.StatusCode)
		}
		return res, nil
	})
	if c.metrics != nil {
		c.metrics.BackendDuration.WithLabelValues(r.path).Observe(time.Since(start).Seconds())
	}

	apiErr := c.classify(endpoint, resp, err)
	if apiErr == nil && out != nil {
		if decodeErr := json.NewDecoder(resp.Body).Decode(out); decodeErr != nil {
			apiErr = &APIError{Kind: KindDecode, Endpoint: endpoint, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", decodeErr)}
		}
	}
	if resp != nil {
		resp.Body.Close()
	}

	outcome := "success"
	if apiErr != nil {
		outcome = string(apiErr.Kind)
		c.logger.Warn("backend request failed",
			"endpoint", endpoint, "request_id", requestID, "kind", apiErr.Kind, "status", apiErr.Status, "error", apiErr)
	} else {
		c.logger.Debug("backend request", "endpoint", endpoint, "request_id", requestID, "duration", time.Since(start))
	}
	if c.metrics != nil {
		c.metrics.BackendRequests.WithLabelValues(r.path, outcome).Inc()
	}

	if apiErr != nil {
		return apiErr
	}
	return nil
}

// classify maps a breaker result onto an APIError. It returns nil for 2xx/3xx.
func (c *Client) classify(endpoint string, resp *http.Response, err error) *APIError {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &APIError{Kind: KindUnavailable, Endpoint: endpoint, Err: err}
	}
	if resp == nil {
		if err == nil {
			err = errors.New("no response")
		}
		return &APIError{Kind: KindTransport, Endpoint: endpoint, Err: err}
	}
	if resp.StatusCode < http.StatusBadRequest {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &APIError{
		Kind:     kindForStatus(resp.StatusCode),
		Endpoint: endpoint,
		Status:   resp.StatusCode,
		Detail:   parseDetail(body),
		Err:      fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
	}
}
