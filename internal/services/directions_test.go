package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpup/wayfinder/internal/cache"
	"github.com/dpup/wayfinder/internal/config"
	"github.com/dpup/wayfinder/internal/lib/district"
	"github.com/dpup/wayfinder/internal/lib/geo"
	"github.com/dpup/wayfinder/internal/lib/mapdoc"
	"github.com/dpup/wayfinder/internal/lib/routing"
	"github.com/dpup/wayfinder/internal/metrics"
)

var (
	colombo = geo.Point{Latitude: 6.9271, Longitude: 79.8612}
	kandy   = geo.Point{Latitude: 7.2906, Longitude: 80.6337}
)

const colomboToKandy = "origin=6.9271,79.8612&destination=7.2906,80.6337"

// stubProvider returns a canned result or error
type stubProvider struct {
	name   string
	result *routing.Result
	err    error
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) AttemptRoute(ctx context.Context, req routing.Request) (*routing.Result, error) {
	return s.result, s.err
}

func roadProvider(name string) *stubProvider {
	return &stubProvider{name: name, result: &routing.Result{
		DistanceKm:  115.2,
		DurationMin: 175,
		Geometry:    []geo.Point{colombo, {Latitude: 7.1, Longitude: 80.2}, kandy},
		Summary:     "A1",
		Provider:    name,
	}}
}

func downProvider(name string) *stubProvider {
	return &stubProvider{name: name, err: errors.New("connection refused")}
}

func newTestService(providers ...routing.Provider) *DirectionsService {
	cfg := config.DefaultConfig()
	return NewDirectionsService(
		routing.NewChain(nil, providers...),
		cache.NewCache[*routing.Session](),
		district.NewResolver(district.Default(), cfg.Bounds, nil),
		mapdoc.NewGenerator(mapdoc.Options{}),
		cfg,
		nil,
	)
}

func serve(handler http.HandlerFunc, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decodeDirections(t *testing.T, rec *httptest.ResponseRecorder) DirectionsResponse {
	t.Helper()
	var resp DirectionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHandleDirections_Success(t *testing.T) {
	s := newTestService(downProvider("osrm"), roadProvider("google"))

	rec := serve(s.HandleDirections, "/api/v1/directions?"+colomboToKandy)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	resp := decodeDirections(t, rec)
	assert.Equal(t, "google", resp.Provider)
	assert.False(t, resp.IsFallback)
	assert.Equal(t, 115.2, resp.DistanceKm)
	assert.Equal(t, "A1", resp.Summary)
	assert.Len(t, resp.Geometry, 3)
	assert.NotEmpty(t, resp.Polyline)
	require.NotNil(t, resp.Bounds)
	assert.Equal(t, colombo.Latitude, resp.Bounds.MinLat)
	assert.Equal(t, kandy.Longitude, resp.Bounds.MaxLon)
	assert.Zero(t, resp.Sequence)
}

func TestHandleDirections_Fallback(t *testing.T) {
	s := newTestService(downProvider("osrm"))

	rec := serve(s.HandleDirections, "/api/v1/directions?"+colomboToKandy+"&mode=walking")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeDirections(t, rec)
	assert.True(t, resp.IsFallback)
	assert.Equal(t, routing.FallbackProvider, resp.Provider)
	require.GreaterOrEqual(t, len(resp.Geometry), 2)
	assert.Equal(t, colombo, resp.Geometry[0])
	assert.Equal(t, kandy, resp.Geometry[len(resp.Geometry)-1])
}

func TestHandleDirections_NoRouteWithoutFallback(t *testing.T) {
	s := newTestService(downProvider("osrm"))

	rec := serve(s.HandleDirections, "/api/v1/directions?"+colomboToKandy+"&fallback=false")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "no route found")
}

func TestHandleDirections_BadRequests(t *testing.T) {
	s := newTestService(roadProvider("osrm"))

	for name, query := range map[string]string{
		"missing origin":      "destination=7.2906,80.6337",
		"missing destination": "origin=6.9271,79.8612",
		"not a pair":          "origin=colombo&destination=7.2906,80.6337",
		"bad latitude":        "origin=abc,79.8612&destination=7.2906,80.6337",
		"out of range":        "origin=95,79.8612&destination=7.2906,80.6337",
		"nan":                 "origin=NaN,79.8612&destination=7.2906,80.6337",
		"unknown mode":        colomboToKandy + "&mode=hovercraft",
		"unknown avoid":       colomboToKandy + "&avoid=ferries",
		"bad fallback flag":   colomboToKandy + "&fallback=maybe",
	} {
		t.Run(name, func(t *testing.T) {
			rec := serve(s.HandleDirections, "/api/v1/directions?"+query)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestHandleDirections_OutsideBoundsStillRoutes(t *testing.T) {
	s := newTestService(roadProvider("osrm"))
	rec := serve(s.HandleDirections, "/api/v1/directions?origin=13.0827,80.2707&destination=7.2906,80.6337")
	assert.Equal(t, http.StatusOK, rec.Code)
}

// gatedProvider holds call n until gates[n] is closed
type gatedProvider struct {
	mu      sync.Mutex
	calls   int
	entered chan int
	gates   []chan struct{}
}

func (g *gatedProvider) Name() string { return "gated" }

func (g *gatedProvider) AttemptRoute(ctx context.Context, req routing.Request) (*routing.Result, error) {
	g.mu.Lock()
	n := g.calls
	g.calls++
	g.mu.Unlock()

	g.entered <- n
	<-g.gates[n]
	return roadProvider("gated").result, nil
}

func TestHandleDirections_SupersededInSession(t *testing.T) {
	gated := &gatedProvider{
		entered: make(chan int),
		gates:   []chan struct{}{make(chan struct{}), make(chan struct{})},
	}
	s := newTestService(gated)
	target := "/api/v1/directions?" + colomboToKandy + "&session=trip-42"

	first := make(chan *httptest.ResponseRecorder, 1)
	go func() { first <- serve(s.HandleDirections, target) }()
	require.Equal(t, 0, <-gated.entered)

	second := make(chan *httptest.ResponseRecorder, 1)
	go func() { second <- serve(s.HandleDirections, target) }()
	require.Equal(t, 1, <-gated.entered)

	// Let the older request finish first
	close(gated.gates[0])
	stale := <-first
	assert.Equal(t, http.StatusConflict, stale.Code)

	close(gated.gates[1])
	fresh := <-second
	require.Equal(t, http.StatusOK, fresh.Code)
	resp := decodeDirections(t, fresh)
	assert.Equal(t, "trip-42", resp.Session)
	assert.Equal(t, uint64(2), resp.Sequence)
}

func TestHandleDirections_SessionsAreIndependent(t *testing.T) {
	s := newTestService(roadProvider("osrm"))

	a := decodeDirections(t, serve(s.HandleDirections, "/api/v1/directions?"+colomboToKandy+"&session=a"))
	b := decodeDirections(t, serve(s.HandleDirections, "/api/v1/directions?"+colomboToKandy+"&session=b"))
	a2 := decodeDirections(t, serve(s.HandleDirections, "/api/v1/directions?"+colomboToKandy+"&session=a"))

	assert.Equal(t, uint64(1), a.Sequence)
	assert.Equal(t, uint64(1), b.Sequence)
	assert.Equal(t, uint64(2), a2.Sequence)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.CacheEntries.WithLabelValues(sessionCacheName, "fresh")))
}

func TestHandleMap_DestinationOnly(t *testing.T) {
	s := newTestService(roadProvider("osrm"))

	rec := serve(s.HandleMap, "/api/v1/directions/map?destination=7.2906,80.6337&label=Temple+of+the+Tooth")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "<title>Temple of the Tooth</title>")
	assert.Equal(t, 1, strings.Count(body, `"kind":"destination"`))
	assert.NotContains(t, body, `"kind":"user"`)
	assert.NotContains(t, body, `"route":`)
}

func TestHandleMap_WithRoute(t *testing.T) {
	s := newTestService(roadProvider("osrm"))

	body := serve(s.HandleMap, "/api/v1/directions/map?"+colomboToKandy).Body.String()
	assert.Contains(t, body, `"kind":"user"`)
	assert.Contains(t, body, `"route":[`)
	assert.NotContains(t, body, `"banner":`)
}

func TestHandleMap_FallbackBanner(t *testing.T) {
	s := newTestService(downProvider("osrm"))

	body := serve(s.HandleMap, "/api/v1/directions/map?"+colomboToKandy).Body.String()
	assert.Contains(t, body, `"banner":{"message":`)
	assert.Contains(t, body, `"route":[`)

	body = serve(s.HandleMap, "/api/v1/directions/map?"+colomboToKandy+"&fallback=false").Body.String()
	assert.Contains(t, body, noRouteMessage)
	assert.NotContains(t, body, `"route":`)
}

func TestHandleMap_BadDestination(t *testing.T) {
	s := newTestService(roadProvider("osrm"))
	rec := serve(s.HandleMap, "/api/v1/directions/map?destination=somewhere")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleKML(t *testing.T) {
	s := newTestService(roadProvider("osrm"))

	rec := serve(s.HandleKML, "/api/v1/directions/kml?"+colomboToKandy+"&label=Kandy")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.google-earth.kml+xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<LineString>")
	assert.Equal(t, 2, strings.Count(rec.Body.String(), "<Point>"))
}

func TestHandleDistance(t *testing.T) {
	s := newTestService()

	rec := serve(s.HandleDistance, "/api/v1/distance?district=kandy&lat=6.9271&lon=79.8612")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, strings.HasSuffix(body["label"], " km from Kandy"), body["label"])

	rec = serve(s.HandleDistance, "/api/v1/distance?district=Atlantis&lat=6.9&lon=79.8")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Distance from Atlantis", body["label"])

	assert.Equal(t, http.StatusBadRequest, serve(s.HandleDistance, "/api/v1/distance?lat=6.9&lon=79.8").Code)
	assert.Equal(t, http.StatusBadRequest, serve(s.HandleDistance, "/api/v1/distance?district=Kandy&lat=north&lon=79.8").Code)
}

func TestHandleDistricts(t *testing.T) {
	s := newTestService()

	rec := serve(s.HandleDistricts, "/api/v1/districts")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Districts []district.Center `json:"districts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Districts, 25)
}

func TestNewProviders(t *testing.T) {
	cfg := config.DefaultConfig()

	providers := NewProviders(cfg, nil)
	require.Len(t, providers, 1, "google is skipped without an API key")
	assert.Equal(t, "osrm", providers[0].Name())

	cfg.Google.APIKey = "key"
	cfg.Providers = []string{"google", "osrm"}
	providers = NewProviders(cfg, nil)
	require.Len(t, providers, 2)
	assert.Equal(t, "google", providers[0].Name())
	assert.Equal(t, "osrm", providers[1].Name())
}

func TestRoute_AppliesRequestTimeout(t *testing.T) {
	s := newTestService(&deadlineProvider{})
	s.config.RequestTimeout = 20 * time.Millisecond

	rec := serve(s.HandleDirections, "/api/v1/directions?"+colomboToKandy)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeDirections(t, rec).IsFallback)
}

// deadlineProvider blocks until the request context is done
type deadlineProvider struct{}

func (deadlineProvider) Name() string { return "slow" }

func (deadlineProvider) AttemptRoute(ctx context.Context, req routing.Request) (*routing.Result, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
