package osrm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/dpup/wayfinder/internal/lib/geo"
	"github.com/dpup/wayfinder/internal/lib/routing"
)

const (
	// ProviderName identifies this tier in results, logs and metrics.
	ProviderName = "osrm"

	// DefaultBaseURL is the public OSRM demo server.
	DefaultBaseURL = "https://router.project-osrm.org"

	httpMaxIdleConns    = 10
	httpIdleConnTimeout = 30 * time.Second
)

// HTTPDoer is the subset of *http.Client used by Client
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client provides access to an OSRM-compatible routing service. It sets no
// timeout of its own; callers bound requests through the context.
type Client struct {
	baseURL    string
	httpClient HTTPDoer
	logger     *zap.Logger
}

// NewClient creates a new OSRM client
func NewClient(baseURL string, logger *zap.Logger) *Client {
	transport := &http.Transport{
		MaxIdleConns:        httpMaxIdleConns,
		MaxIdleConnsPerHost: httpMaxIdleConns,
		IdleConnTimeout:     httpIdleConnTimeout,
	}
	return NewClientWithHTTPDoer(baseURL, &http.Client{Transport: transport}, logger)
}

// NewClientWithHTTPDoer creates a client with a custom HTTP implementation
func NewClientWithHTTPDoer(baseURL string, doer HTTPDoer, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: doer,
		logger:     logger.With(zap.String("provider", ProviderName)),
	}
}

// Name implements routing.Provider
func (c *Client) Name() string {
	return ProviderName
}

// GetRoute returns a road route, the straight-line estimate when the service
// fails and req.AllowFallback is set, or nil otherwise.
func (c *Client) GetRoute(ctx context.Context, req routing.Request) *routing.Result {
	return routing.GetRoute(ctx, c, req, c.logger)
}

// AttemptRoute implements routing.Provider
func (c *Client) AttemptRoute(ctx context.Context, req routing.Request) (*routing.Result, error) {
	requestURL := c.routeURL(req)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("rate limit exceeded")
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	var response RouteResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if response.Code != "Ok" {
		return nil, fmt.Errorf("service status %q: %s", response.Code, response.Message)
	}
	if len(response.Routes) == 0 {
		return nil, fmt.Errorf("%w: empty route list", routing.ErrNoRoute)
	}

	return c.processRoute(response.Routes[0]), nil
}

// routeURL builds the route request. OSRM takes lon,lat pairs, the reverse
// of geo.Point's ordering.
func (c *Client) routeURL(req routing.Request) string {
	return fmt.Sprintf("%s/route/v1/%s/%.6f,%.6f;%.6f,%.6f?overview=full&geometries=geojson",
		c.baseURL, profile(req.Mode),
		req.Origin.Longitude, req.Origin.Latitude,
		req.Destination.Longitude, req.Destination.Latitude)
}

func profile(mode routing.Mode) string {
	switch mode {
	case routing.Walking:
		return "foot"
	case routing.Cycling:
		return "cycling"
	default:
		return "driving"
	}
}

// processRoute converts an OSRM route to a routing.Result
func (c *Client) processRoute(route Route) *routing.Result {
	geometry := lineStringPoints(route.Geometry)
	if len(geometry) == 0 {
		geometry = stepPoints(route.Legs)
	}
	if len(geometry) == 0 {
		c.logger.Warn("route has no geometry, returning distance and duration only")
	}

	var summaries []string
	for _, leg := range route.Legs {
		if leg.Summary != "" {
			summaries = append(summaries, leg.Summary)
		}
	}

	return &routing.Result{
		DistanceKm:  math.Round(route.Distance/100) / 10,
		DurationMin: math.Round(route.Duration / 60),
		Geometry:    geometry,
		IsFallback:  false,
		Summary:     strings.Join(summaries, ", "),
		Provider:    ProviderName,
	}
}

// stepPoints walks every leg's steps in order and concatenates their
// geometries. Shared boundary points are kept exactly as the service sent them.
func stepPoints(legs []Leg) []geo.Point {
	var points []geo.Point
	for _, leg := range legs {
		for _, step := range leg.Steps {
			points = append(points, lineStringPoints(step.Geometry)...)
		}
	}
	return points
}

func lineStringPoints(g *geojson.Geometry) []geo.Point {
	if g == nil || g.Coordinates == nil {
		return nil
	}

	switch coords := g.Coordinates.(type) {
	case orb.LineString:
		points := make([]geo.Point, len(coords))
		for i, p := range coords {
			points[i] = geo.FromOrb(p)
		}
		return points
	case orb.Point:
		return []geo.Point{geo.FromOrb(coords)}
	}
	return nil
}

// RouteResponse represents the OSRM /route response
type RouteResponse struct {
	Code    string  `json:"code"`
	Message string  `json:"message,omitempty"`
	Routes  []Route `json:"routes"`
}

// Route is a single OSRM route. Distance is meters, duration seconds.
type Route struct {
	Distance float64           `json:"distance"`
	Duration float64           `json:"duration"`
	Geometry *geojson.Geometry `json:"geometry,omitempty"`
	Legs     []Leg             `json:"legs"`
}

// Leg is the part of a route between two waypoints
type Leg struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
	Summary  string  `json:"summary"`
	Steps    []Step  `json:"steps"`
}

// Step is a single maneuver within a leg
type Step struct {
	Distance float64           `json:"distance"`
	Duration float64           `json:"duration"`
	Geometry *geojson.Geometry `json:"geometry,omitempty"`
}
