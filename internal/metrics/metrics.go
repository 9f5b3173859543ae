// Package metrics holds the Prometheus collectors for routing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RouteAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wayfinder_route_attempts_total",
		Help: "Total routing attempts per provider",
	}, []string{"provider"})
	RouteFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wayfinder_route_failures_total",
		Help: "Total routing failures per provider (transport, status or empty result)",
	}, []string{"provider"})
	RouteDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wayfinder_route_duration_ms",
		Help:    "Provider call duration in milliseconds",
		Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	}, []string{"provider"})
	FallbackRoutesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wayfinder_fallback_routes_total",
		Help: "Total straight-line fallback routes served",
	})
	NoRouteTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wayfinder_no_route_total",
		Help: "Total requests with fallback disabled that found no route",
	})
	SupersededTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wayfinder_superseded_responses_total",
		Help: "Total routing responses discarded because a newer request was issued in the same session",
	})
	CacheEntries = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "wayfinder_cache_entries",
		Help: "Entries held by an in-memory cache, by freshness",
	}, []string{"cache", "state"})
	ProviderReachable = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "wayfinder_provider_reachable",
		Help: "1 when the last connectivity self-test returned a genuine route",
	}, []string{"provider"})
)

func init() {
	prometheus.MustRegister(RouteAttemptsTotal)
	prometheus.MustRegister(RouteFailuresTotal)
	prometheus.MustRegister(RouteDurationMs)
	prometheus.MustRegister(FallbackRoutesTotal)
	prometheus.MustRegister(NoRouteTotal)
	prometheus.MustRegister(SupersededTotal)
	prometheus.MustRegister(CacheEntries)
	prometheus.MustRegister(ProviderReachable)
}

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
