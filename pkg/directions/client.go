// Package directions fetches candidate walking routes from a Google
// Directions-style API and converts them into rankable candidates.
package directions

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dwellsafe/dwellsafe-cli/internal/resilience"
	"github.com/dwellsafe/dwellsafe-cli/internal/safety"
)

const defaultDirectionsURL = "https://maps.googleapis.com/maps/api/directions/json"

// Client fetches route alternatives between two coordinates.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	retry   resilience.RetryConfig
}

// Option configures the directions client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithRetry overrides the retry settings.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithBreaker sets the circuit breaker guarding the API.
func WithBreaker(b *resilience.Breaker) Option {
	return func(c *Client) { c.breaker = b }
}

// NewClient creates a directions client.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultDirectionsURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(10, 10),
		breaker: resilience.NewBreaker(5, 30*time.Second),
		retry:   resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type directionsResponse struct {
	Routes []struct {
		Summary          string `json:"summary"`
		OverviewPolyline struct {
			Points string `json:"points"`
		} `json:"overview_polyline"`
		Legs []struct {
			Duration struct {
				Value int `json:"value"` // seconds
			} `json:"duration"`
			Distance struct {
				Value int `json:"value"` // meters
			} `json:"distance"`
		} `json:"legs"`
	} `json:"routes"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

// Routes fetches walking route alternatives from origin to destination as
// candidates ready for safety annotation. IDs are assigned in API response
// order: route_0, route_1, ...
func (c *Client) Routes(ctx context.Context, origin, destination safety.Point) ([]safety.RouteCandidate, error) {
	if c.apiKey == "" {
		return nil, eris.New("directions: api key not configured")
	}

	parsed, err := resilience.CallVal(ctx, c.breaker,
		func(ctx context.Context) (*directionsResponse, error) {
			return resilience.DoVal(ctx, c.retry, "directions.routes",
				func(ctx context.Context) (*directionsResponse, error) {
					return c.fetch(ctx, origin, destination)
				})
		})
	if err != nil {
		return nil, eris.Wrap(err, "directions: fetch routes")
	}

	switch parsed.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, nil
	default:
		return nil, eris.Errorf("directions: api status %s: %s", parsed.Status, parsed.ErrorMessage)
	}

	candidates := make([]safety.RouteCandidate, 0, len(parsed.Routes))
	for i, route := range parsed.Routes {
		path, err := DecodePolyline(route.OverviewPolyline.Points)
		if err != nil {
			zap.L().Warn("directions: skipping undecodable route",
				zap.Int("index", i),
				zap.Error(err),
			)
			continue
		}

		var duration, distance float64
		for _, leg := range route.Legs {
			duration += float64(leg.Duration.Value)
			distance += float64(leg.Distance.Value)
		}

		candidates = append(candidates, safety.RouteCandidate{
			ID:              fmt.Sprintf("route_%d", i),
			Summary:         route.Summary,
			Path:            path,
			DurationSeconds: duration,
			DistanceMeters:  distance,
		})
	}

	zap.L().Info("directions: fetched routes",
		zap.Int("candidates", len(candidates)),
	)
	return candidates, nil
}

func (c *Client) fetch(ctx context.Context, origin, destination safety.Point) (*directionsResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "directions: rate limit")
	}

	params := url.Values{
		"origin":       {fmt.Sprintf("%f,%f", origin.Lat, origin.Lon)},
		"destination":  {fmt.Sprintf("%f,%f", destination.Lat, destination.Lon)},
		"mode":         {"walking"},
		"alternatives": {"true"},
		"key":          {c.apiKey},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "directions: build request")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, resilience.Transient(eris.Wrap(err, "directions: request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, resilience.Transient(
			eris.Errorf("directions: status %d", resp.StatusCode), resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("directions: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.Transient(eris.Wrap(err, "directions: read body"), 0)
	}

	var parsed directionsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "directions: parse response")
	}
	return &parsed, nil
}
