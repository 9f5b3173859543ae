package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dpup/wayfinder/internal/lib/geo"
	"github.com/dpup/wayfinder/internal/lib/routing"
)

const (
	// ProviderName identifies this tier in results, logs and metrics.
	ProviderName = "google"

	// DefaultBaseURL is the Google Maps Platform host.
	DefaultBaseURL = "https://maps.googleapis.com"

	directionsPath = "/maps/api/directions/json"

	// Score targets: routes under an hour and under 50 km are preferred.
	scoreDurationSeconds = 3600.0
	scoreDistanceMeters  = 50000.0

	httpMaxIdleConns    = 10
	httpIdleConnTimeout = 30 * time.Second
)

// HTTPDoer is the subset of *http.Client used by Client
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options configures the Directions API client
type Options struct {
	APIKey  string
	BaseURL string

	// Region biases results, e.g. "lk".
	Region string

	AvoidTolls    bool
	AvoidHighways bool

	// PreferMainRoads scores alternatives instead of taking the first route.
	PreferMainRoads bool
}

// Client provides access to the Google Directions API. It sets no timeout of
// its own; callers bound requests through the context.
type Client struct {
	opts       Options
	httpClient HTTPDoer
	logger     *zap.Logger
}

// NewClient creates a new Google Directions API client
func NewClient(opts Options, logger *zap.Logger) *Client {
	transport := &http.Transport{
		MaxIdleConns:        httpMaxIdleConns,
		MaxIdleConnsPerHost: httpMaxIdleConns,
		IdleConnTimeout:     httpIdleConnTimeout,
	}
	return NewClientWithHTTPDoer(opts, &http.Client{Transport: transport}, logger)
}

// NewClientWithHTTPDoer creates a client with a custom HTTP implementation
func NewClientWithHTTPDoer(opts Options, doer HTTPDoer, logger *zap.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		opts:       opts,
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
	requestURL := c.opts.BaseURL + directionsPath + "?" + c.queryParams(req).Encode()

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

	var response DirectionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if response.Status != "OK" {
		return nil, fmt.Errorf("service status %q: %s", response.Status, response.ErrorMessage)
	}
	if len(response.Routes) == 0 {
		return nil, fmt.Errorf("%w: empty route list", routing.ErrNoRoute)
	}

	idx := 0
	if c.opts.PreferMainRoads {
		idx = SelectRoute(response.Routes)
	}
	return c.processRoute(response.Routes[idx]), nil
}

func (c *Client) queryParams(req routing.Request) url.Values {
	params := url.Values{}
	params.Set("origin", fmt.Sprintf("%.6f,%.6f", req.Origin.Latitude, req.Origin.Longitude))
	params.Set("destination", fmt.Sprintf("%.6f,%.6f", req.Destination.Latitude, req.Destination.Longitude))
	params.Set("mode", travelMode(req.Mode))
	params.Set("alternatives", "true")
	if c.opts.Region != "" {
		params.Set("region", c.opts.Region)
	}

	var avoid []string
	if req.AvoidTolls || c.opts.AvoidTolls {
		avoid = append(avoid, "tolls")
	}
	if req.AvoidHighways || c.opts.AvoidHighways {
		avoid = append(avoid, "highways")
	}
	if len(avoid) > 0 {
		params.Set("avoid", strings.Join(avoid, "|"))
	}

	params.Set("key", c.opts.APIKey)
	return params
}

func travelMode(mode routing.Mode) string {
	switch mode {
	case routing.Walking:
		return "walking"
	case routing.Cycling:
		return "bicycling"
	default:
		return "driving"
	}
}

// Score rates a candidate route. Every second under an hour and every meter
// under 50 km adds one point; longer routes saturate at zero.
func Score(durationSeconds, distanceMeters float64) float64 {
	return math.Max(0, scoreDurationSeconds-durationSeconds) + math.Max(0, scoreDistanceMeters-distanceMeters)
}

// SelectRoute returns the index of the highest scoring route. The first route
// wins ties.
func SelectRoute(routes []DirectionsRoute) int {
	best := 0
	bestScore := math.Inf(-1)
	for i, route := range routes {
		distance, duration := route.totals()
		score := Score(duration, distance)
		if score > bestScore {
			best = i
			bestScore = score
		}
	}
	return best
}

// processRoute converts a Directions API route to a routing.Result
func (c *Client) processRoute(route DirectionsRoute) *routing.Result {
	distanceM, durationS := route.totals()

	geometry := c.overviewPoints(route)
	if len(geometry) == 0 {
		geometry = c.stepPoints(route.Legs)
	}
	if len(geometry) == 0 {
		c.logger.Warn("route has no geometry, returning distance and duration only")
	}

	return &routing.Result{
		DistanceKm:  math.Round(distanceM/100) / 10,
		DurationMin: math.Round(durationS / 60),
		Geometry:    geometry,
		IsFallback:  false,
		Summary:     route.Summary,
		Provider:    ProviderName,
	}
}

func (c *Client) overviewPoints(route DirectionsRoute) []geo.Point {
	if route.OverviewPolyline == nil || route.OverviewPolyline.Points == "" {
		return nil
	}
	points, err := geo.DecodePolyline(route.OverviewPolyline.Points)
	if err != nil {
		c.logger.Warn("overview polyline unusable, walking steps", zap.Error(err))
		return nil
	}
	return points
}

// stepPoints walks each leg's steps emitting the start point, the step's own
// decoded polyline, then the end point. Boundary points are not deduplicated.
func (c *Client) stepPoints(legs []DirectionsLeg) []geo.Point {
	var points []geo.Point
	for _, leg := range legs {
		for _, step := range leg.Steps {
			points = append(points, step.StartLocation.point())
			if step.Polyline != nil && step.Polyline.Points != "" {
				detail, err := geo.DecodePolyline(step.Polyline.Points)
				if err != nil {
					c.logger.Debug("skipping undecodable step polyline", zap.Error(err))
				} else {
					points = append(points, detail...)
				}
			}
			points = append(points, step.EndLocation.point())
		}
	}
	return points
}

// DirectionsResponse represents the Directions API response structure
type DirectionsResponse struct {
	Status       string            `json:"status"`
	ErrorMessage string            `json:"error_message,omitempty"`
	Routes       []DirectionsRoute `json:"routes"`
}

// DirectionsRoute represents a single candidate route
type DirectionsRoute struct {
	Summary          string           `json:"summary"`
	Legs             []DirectionsLeg  `json:"legs"`
	OverviewPolyline *EncodedPolyline `json:"overview_polyline,omitempty"`
}

// totals sums distance (meters) and duration (seconds) across legs
func (r DirectionsRoute) totals() (distanceM, durationS float64) {
	for _, leg := range r.Legs {
		distanceM += leg.Distance.Value
		durationS += leg.Duration.Value
	}
	return distanceM, durationS
}

// DirectionsLeg represents travel between two waypoints
type DirectionsLeg struct {
	Distance TextValue        `json:"distance"`
	Duration TextValue        `json:"duration"`
	Steps    []DirectionsStep `json:"steps"`
}

// DirectionsStep represents a single instruction within a leg
type DirectionsStep struct {
	StartLocation LatLng           `json:"start_location"`
	EndLocation   LatLng           `json:"end_location"`
	Polyline      *EncodedPolyline `json:"polyline,omitempty"`
}

// TextValue pairs a display string with its numeric value
type TextValue struct {
	Text  string  `json:"text"`
	Value float64 `json:"value"`
}

// LatLng is the Directions API coordinate shape
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (l LatLng) point() geo.Point {
	return geo.Point{Latitude: l.Lat, Longitude: l.Lng}
}

// EncodedPolyline holds a Google encoded polyline string
type EncodedPolyline struct {
	Points string `json:"points"`
}
