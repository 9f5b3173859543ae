package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/dpup/wayfinder/internal/cache"
	"github.com/dpup/wayfinder/internal/config"
	"github.com/dpup/wayfinder/internal/lib/district"
	"github.com/dpup/wayfinder/internal/lib/geo"
	"github.com/dpup/wayfinder/internal/lib/mapdoc"
	"github.com/dpup/wayfinder/internal/lib/routing"
)

const (
	noRouteMessage   = "No route could be found between these points."
	sessionCacheName = "sessions"
)

// DirectionsService serves routes, map documents and district distance labels
type DirectionsService struct {
	router   routing.Router
	sessions *cache.Cache[*routing.Session]
	resolver *district.Resolver
	maps     *mapdoc.Generator
	config   *config.Config
	logger   *zap.Logger
}

// NewDirectionsService creates a new directions service
func NewDirectionsService(router routing.Router, sessions *cache.Cache[*routing.Session], resolver *district.Resolver, maps *mapdoc.Generator, cfg *config.Config, logger *zap.Logger) *DirectionsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectionsService{
		router:   router,
		sessions: sessions,
		resolver: resolver,
		maps:     maps,
		config:   cfg,
		logger:   logger,
	}
}

// DirectionsResponse is the JSON body of /api/v1/directions
type DirectionsResponse struct {
	DistanceKm  float64     `json:"distance_km"`
	DurationMin float64     `json:"duration_min"`
	IsFallback  bool        `json:"is_fallback"`
	Summary     string      `json:"summary,omitempty"`
	Provider    string      `json:"provider"`
	Geometry    []geo.Point `json:"geometry"`
	Polyline    string      `json:"polyline,omitempty"`
	Bounds      *geo.Bounds `json:"bounds,omitempty"`
	Session     string      `json:"session,omitempty"`
	Sequence    uint64      `json:"sequence,omitempty"`
}

// badRequestError marks errors caused by the caller's input
type badRequestError struct {
	err error
}

func (e badRequestError) Error() string { return e.err.Error() }
func (e badRequestError) Unwrap() error { return e.err }

func badRequest(format string, args ...interface{}) error {
	return badRequestError{err: fmt.Errorf(format, args...)}
}

// HandleDirections serves GET /api/v1/directions
func (s *DirectionsService) HandleDirections(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseRouteRequest(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	session := r.URL.Query().Get("session")
	result, seq, err := s.route(r.Context(), session, req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := DirectionsResponse{
		DistanceKm:  result.DistanceKm,
		DurationMin: result.DurationMin,
		IsFallback:  result.IsFallback,
		Summary:     result.Summary,
		Provider:    result.Provider,
		Geometry:    result.Geometry,
		Session:     session,
		Sequence:    seq,
	}
	if resp.Geometry == nil {
		resp.Geometry = []geo.Point{}
	}
	if len(result.Geometry) > 0 {
		resp.Polyline = geo.EncodePolyline(result.Geometry)
		if b, ok := geo.BoundingBox(result.Geometry); ok {
			resp.Bounds = &b
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleMap serves GET /api/v1/directions/map as a self-contained HTML page
func (s *DirectionsService) HandleMap(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.mapConfig(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := fmt.Fprint(w, s.maps.Render(cfg)); err != nil {
		s.logger.Error("Failed to write map document", zap.Error(err))
	}
}

// HandleKML serves GET /api/v1/directions/kml
func (s *DirectionsService) HandleKML(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.mapConfig(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	doc, err := s.maps.RenderKML(cfg)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.google-earth.kml+xml")
	w.Header().Set("Content-Disposition", `attachment; filename="directions.kml"`)
	if _, err := fmt.Fprint(w, doc); err != nil {
		s.logger.Error("Failed to write KML document", zap.Error(err))
	}
}

// HandleDistance serves GET /api/v1/distance?district=&lat=&lon=
func (s *DirectionsService) HandleDistance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := strings.TrimSpace(q.Get("district"))
	if name == "" {
		s.writeError(w, badRequest("district is required"))
		return
	}
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		s.writeError(w, badRequest("lat: %v", err))
		return
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil {
		s.writeError(w, badRequest("lon: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"district": name,
		"label":    s.resolver.AutoCalculateDistance(name, lat, lon),
	})
}

// HandleDistricts serves GET /api/v1/districts
func (s *DirectionsService) HandleDistricts(w http.ResponseWriter, r *http.Request) {
	g := s.resolver.Gazetteer()
	centers := make([]district.Center, 0, len(g.Names()))
	for _, name := range g.Names() {
		if c, ok := g.Resolve(name); ok {
			centers = append(centers, c)
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"districts": centers})
}

// mapConfig builds a map document config from the request. The origin is
// optional and doubles as the user location; without it only the destination
// is shown.
func (s *DirectionsService) mapConfig(r *http.Request) (mapdoc.Config, error) {
	q := r.URL.Query()
	dest, err := s.parsePoint(q.Get("destination"), "destination")
	if err != nil {
		return mapdoc.Config{}, err
	}

	label := q.Get("label")
	if label == "" {
		label = "Destination"
	}
	cfg := mapdoc.Config{
		Destination: mapdoc.Destination{
			Point:       dest,
			Label:       label,
			Description: q.Get("description"),
		},
	}
	if q.Get("origin") == "" {
		return cfg, nil
	}

	req, err := s.parseRouteRequest(r)
	if err != nil {
		return mapdoc.Config{}, err
	}
	origin := req.Origin
	cfg.UserLocation = &origin

	result, _, err := s.route(r.Context(), q.Get("session"), req)
	switch {
	case errors.Is(err, routing.ErrNoRoute):
		cfg.ShowFallbackBanner = true
		cfg.FallbackMessage = noRouteMessage
	case err != nil:
		return mapdoc.Config{}, err
	default:
		cfg.RouteGeometry = result.Geometry
		cfg.ShowFallbackBanner = result.IsFallback
	}
	return cfg, nil
}

// route runs req through the caller's session when one is named, so that a
// response overtaken by a newer request in the same session is discarded.
func (s *DirectionsService) route(ctx context.Context, sessionID string, req routing.Request) (*routing.Result, uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	if sessionID == "" {
		result := s.router.Route(ctx, req)
		if result == nil {
			return nil, 0, routing.ErrNoRoute
		}
		return result, 0, nil
	}

	session := s.sessions.GetOrCreate(sessionID, s.config.SessionTTL, "directions_session", func() *routing.Session {
		return routing.NewSession(s.router)
	})
	observeCache(sessionCacheName, s.sessions.Stats())
	return session.Route(ctx, req)
}

func (s *DirectionsService) parseRouteRequest(r *http.Request) (routing.Request, error) {
	q := r.URL.Query()
	req := routing.Request{AllowFallback: s.config.AllowFallback}

	var err error
	if req.Origin, err = s.parsePoint(q.Get("origin"), "origin"); err != nil {
		return req, err
	}
	if req.Destination, err = s.parsePoint(q.Get("destination"), "destination"); err != nil {
		return req, err
	}
	if req.Mode, err = routing.ParseMode(q.Get("mode")); err != nil {
		return req, badRequestError{err: err}
	}

	if avoid := q.Get("avoid"); avoid != "" {
		for _, item := range strings.Split(avoid, ",") {
			switch strings.TrimSpace(strings.ToLower(item)) {
			case "tolls":
				req.AvoidTolls = true
			case "highways":
				req.AvoidHighways = true
			case "":
			default:
				return req, badRequest("avoid: unknown feature %q", item)
			}
		}
	}

	if v := q.Get("fallback"); v != "" {
		allow, err := strconv.ParseBool(v)
		if err != nil {
			return req, badRequest("fallback: %v", err)
		}
		req.AllowFallback = allow
	}
	return req, nil
}

// parsePoint parses "lat,lon". Points outside the configured bounds are
// accepted with a warning.
func (s *DirectionsService) parsePoint(value, field string) (geo.Point, error) {
	if value == "" {
		return geo.Point{}, badRequest("%s is required", field)
	}
	latStr, lonStr, ok := strings.Cut(value, ",")
	if !ok {
		return geo.Point{}, badRequest("%s must be \"lat,lon\"", field)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return geo.Point{}, badRequest("%s latitude: %v", field, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return geo.Point{}, badRequest("%s longitude: %v", field, err)
	}
	p, err := geo.NewPoint(lat, lon)
	if err != nil {
		return geo.Point{}, badRequestError{err: fmt.Errorf("%s: %w", field, err)}
	}
	if !s.config.Bounds.Contains(p) {
		s.logger.Warn("coordinate outside configured bounds",
			zap.String("field", field), zap.Float64("lat", lat), zap.Float64("lon", lon))
	}
	return p, nil
}

func (s *DirectionsService) writeError(w http.ResponseWriter, err error) {
	var bad badRequestError
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &bad):
		status = http.StatusBadRequest
	case errors.Is(err, routing.ErrSuperseded):
		status = http.StatusConflict
	case errors.Is(err, routing.ErrNoRoute):
		status = http.StatusNotFound
	default:
		s.logger.Error("directions request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
