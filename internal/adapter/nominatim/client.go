// Package nominatim searches places through a Nominatim-compatible geocoder.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/couchcryptid/agri-dashboard/internal/domain"
	"github.com/couchcryptid/agri-dashboard/internal/observability"
)

// MinQueryLength is the shortest query, in runes, that is sent to the geocoder.
const MinQueryLength = 3

const resultLimit = 5

// Client implements domain.PlaceSearcher against the Nominatim search API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a geocoding client. Nominatim's usage policy requires an
// identifying User-Agent.
func NewClient(baseURL, userAgent string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		logger:    logger,
		metrics:   metrics,
	}
}

// Search returns up to five places matching query. Queries shorter than
// MinQueryLength return no places without a request.
func (c *Client) Search(ctx context.Context, query string) ([]domain.Place, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinQueryLength {
		return nil, nil
	}

	params := url.Values{
		"format": {"json"},
		"q":      {query},
		"limit":  {strconv.Itoa(resultLimit)},
	}
	return c.doRequest(ctx, c.baseURL+"/search?"+params.Encode())
}

func (c *Client) doRequest(ctx context.Context, fullURL string) ([]domain.Place, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.GeocodeAPIDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("place search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("geocoder API error: status %d: %s", resp.StatusCode, body)
	}

	var hits []hit
	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("decode response: %w", err)
	}

	places := make([]domain.Place, 0, len(hits))
	for _, h := range hits {
		p, ok := h.place()
		if !ok {
			c.logger.Debug("skipping place with bad coordinates", "display_name", h.DisplayName)
			continue
		}
		places = append(places, p)
	}

	if len(places) == 0 {
		c.metrics.GeocodeRequests.WithLabelValues("empty").Inc()
	} else {
		c.metrics.GeocodeRequests.WithLabelValues("success").Inc()
	}
	return places, nil
}

// Nominatim API response types. Coordinates arrive as strings.

type hit struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (h hit) place() (domain.Place, bool) {
	lat, err1 := strconv.ParseFloat(h.Lat, 64)
	lon, err2 := strconv.ParseFloat(h.Lon, 64)
	if err1 != nil || err2 != nil {
		return domain.Place{}, false
	}
	return domain.Place{Lat: lat, Lon: lon, DisplayName: h.DisplayName}, true
}
