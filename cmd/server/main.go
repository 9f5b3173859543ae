package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/dpup/prefab"
	"go.uber.org/zap"

	"github.com/dpup/wayfinder/internal/cache"
	"github.com/dpup/wayfinder/internal/config"
	"github.com/dpup/wayfinder/internal/lib/district"
	"github.com/dpup/wayfinder/internal/lib/mapdoc"
	"github.com/dpup/wayfinder/internal/lib/routing"
	"github.com/dpup/wayfinder/internal/metrics"
	"github.com/dpup/wayfinder/internal/services"
)

const sessionCleanupInterval = time.Minute

func main() {
	// Load configuration using Prefab's config system
	appConfig, err := config.Load(prefab.Config)
	if err != nil {
		log.Fatalf("Failed to load %s config: %v", config.Section, err)
	}

	logger, err := appConfig.Log.NewLogger()
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	providers := services.NewProviders(appConfig, logger)
	chain := routing.NewChain(logger, providers...)

	sessions := cache.NewCache[*routing.Session]()
	sessions.StartPeriodicCleanup(ctx, sessionCleanupInterval)

	directions := services.NewDirectionsService(
		chain,
		sessions,
		district.NewResolver(district.Default(), appConfig.Bounds, logger),
		mapdoc.NewGenerator(mapdoc.Options{
			TileURL:     appConfig.Map.TileURL,
			Attribution: appConfig.Map.Attribution,
			Logger:      logger,
		}),
		appConfig,
		logger,
	)

	monitor := services.NewConnectivityMonitor(chain.Providers(), cache.NewCache[services.ProbeStatus](), appConfig.Connectivity, logger)
	monitor.Start(ctx)
	defer monitor.Stop()

	names := make([]string, 0, len(providers))
	for _, p := range chain.Providers() {
		names = append(names, p.Name())
	}
	logger.Info("Wayfinder directions server starting",
		zap.Strings("providers", names),
		zap.Bool("allow_fallback", appConfig.AllowFallback),
		zap.Duration("request_timeout", appConfig.RequestTimeout))

	// Server configuration (port, etc.) will be loaded from prefab.yaml/env vars
	server := prefab.New(
		prefab.WithHTTPHandlerFunc("/", homepageHandler),
		prefab.WithHTTPHandlerFunc("/api/v1/directions", directions.HandleDirections),
		prefab.WithHTTPHandlerFunc("/api/v1/directions/map", directions.HandleMap),
		prefab.WithHTTPHandlerFunc("/api/v1/directions/kml", directions.HandleKML),
		prefab.WithHTTPHandlerFunc("/api/v1/distance", directions.HandleDistance),
		prefab.WithHTTPHandlerFunc("/api/v1/districts", directions.HandleDistricts),
		prefab.WithHTTPHandlerFunc("/api/v1/connectivity", monitor.HandleConnectivity),
		prefab.WithHTTPHandlerFunc("/metrics", metrics.Handler().ServeHTTP),
	)

	// Start the server (blocks until shutdown)
	if err := server.Start(); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

// homepageHandler serves a simple HTML homepage at the server root
func homepageHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	html := `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>wayfinder</title>
    <style>
        body {
            font-family: 'Courier New', Consolas, monospace;
            background: #000;
            color: #0f0;
            padding: 20px;
            line-height: 1.4;
        }
        a { color: #0ff; text-decoration: none; }
        a:hover { text-decoration: underline; }
        pre { margin: 0; }
        .header { color: #ff0; }
    </style>
</head>
<body>
<pre>
<span class="header">wayfinder</span>

Directions and map server for travel around Sri Lanka. Routes come from
OSRM or Google Directions; when neither answers, a straight-line estimate
is returned and flagged.

<span class="header">API Endpoints:</span>

Directions:
  <a href="/api/v1/directions?origin=6.9271,79.8612&destination=7.2906,80.6337">GET /api/v1/directions</a>       - Route as JSON (origin, destination, mode, avoid, session)
  <a href="/api/v1/directions/map?origin=6.9271,79.8612&destination=7.2906,80.6337&label=Kandy">GET /api/v1/directions/map</a>   - Interactive map document
  <a href="/api/v1/directions/kml?origin=6.9271,79.8612&destination=7.2906,80.6337&label=Kandy">GET /api/v1/directions/kml</a>   - KML export

Districts:
  <a href="/api/v1/districts">GET /api/v1/districts</a>                 - District centers
  <a href="/api/v1/distance?district=Kandy&lat=7.2936&lon=80.6413">GET /api/v1/distance</a>                  - "N km from District" label

Status:
  <a href="/api/v1/connectivity">GET /api/v1/connectivity</a>              - Routing provider self-test
  <a href="/metrics">GET /metrics</a>                          - Prometheus metrics

<span class="header">Data Sources:</span>
  • OSRM                   - Open road routing
  • Google Directions API  - Commercial routing with alternatives
  • OpenStreetMap          - Map tiles
</pre>
</body>
</html>`

	if _, err := fmt.Fprint(w, html); err != nil {
		log.Printf("Failed to write homepage HTML: %v", err)
	}
}
