package services

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dpup/wayfinder/internal/cache"
	"github.com/dpup/wayfinder/internal/config"
	"github.com/dpup/wayfinder/internal/lib/routing"
	"github.com/dpup/wayfinder/internal/metrics"
)

const statusCacheName = "connectivity"

// ProbeStatus is the last connectivity self-test result for one provider
type ProbeStatus struct {
	Provider  string    `json:"provider"`
	Reachable bool      `json:"reachable"`
	LatencyMs int64     `json:"latency_ms"`
	CheckedAt time.Time `json:"checked_at"`
	// Expired is set when the result is older than two probe intervals
	Expired bool `json:"expired,omitempty"`
}

// ConnectivityMonitor probes every routing provider on an interval and keeps
// the latest results in a cache so status requests never hit the network.
type ConnectivityMonitor struct {
	providers []routing.Provider
	statuses  *cache.Cache[ProbeStatus]
	config    config.ConnectivityConfig
	logger    *zap.Logger

	mu       sync.Mutex
	stopChan chan struct{}
	running  bool
}

// NewConnectivityMonitor creates a new connectivity monitor
func NewConnectivityMonitor(providers []routing.Provider, statuses *cache.Cache[ProbeStatus], cfg config.ConnectivityConfig, logger *zap.Logger) *ConnectivityMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConnectivityMonitor{
		providers: providers,
		statuses:  statuses,
		config:    cfg,
		logger:    logger,
	}
}

// Start begins probing in the background. Calling Start on a running
// monitor is a no-op.
func (m *ConnectivityMonitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.running = true
	m.stopChan = make(chan struct{})

	m.logger.Info("Starting connectivity monitor",
		zap.Duration("interval", m.config.Interval), zap.Int("providers", len(m.providers)))
	go m.probeLoop(ctx, m.stopChan)
}

// Stop halts background probing
func (m *ConnectivityMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	m.running = false
	close(m.stopChan)
	m.logger.Info("Stopped connectivity monitor")
}

// IsRunning returns whether background probing is active
func (m *ConnectivityMonitor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *ConnectivityMonitor) probeLoop(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	m.CheckNow(ctx)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Connectivity monitor stopping due to context cancellation")
			return
		case <-stop:
			return
		case <-ticker.C:
			m.CheckNow(ctx)
		}
	}
}

// CheckNow probes every provider once, stores and returns the results in
// provider order.
func (m *ConnectivityMonitor) CheckNow(ctx context.Context) []ProbeStatus {
	out := make([]ProbeStatus, 0, len(m.providers))
	for _, p := range m.providers {
		probeCtx, cancel := context.WithTimeout(ctx, m.config.Timeout)
		start := time.Now()
		ok := routing.Probe(probeCtx, p, m.logger)
		cancel()

		status := ProbeStatus{
			Provider:  p.Name(),
			Reachable: ok,
			LatencyMs: time.Since(start).Milliseconds(),
			CheckedAt: start,
		}
		m.statuses.Set(p.Name(), status, 2*m.config.Interval, "connectivity_probe")
		out = append(out, status)

		if !ok {
			m.logger.Warn("Routing provider unreachable", zap.String("provider", p.Name()))
		}
	}
	observeCache(statusCacheName, m.statuses.Stats())
	return out
}

// Statuses returns the cached results in provider order. Providers that have
// not been probed yet are omitted; results past their expiry are returned
// with Expired set.
func (m *ConnectivityMonitor) Statuses() []ProbeStatus {
	now := time.Now()
	out := make([]ProbeStatus, 0, len(m.providers))
	for _, p := range m.providers {
		entry, ok := m.statuses.GetWithMetadata(p.Name())
		if !ok {
			continue
		}
		status := entry.Value
		status.Expired = entry.Stale(now)
		out = append(out, status)
	}
	return out
}

func needsProbe(statuses []ProbeStatus, providers int) bool {
	if len(statuses) < providers {
		return true
	}
	for _, s := range statuses {
		if s.Expired {
			return true
		}
	}
	return false
}

func observeCache(name string, stats cache.Stats) {
	metrics.CacheEntries.WithLabelValues(name, "fresh").Set(float64(stats.FreshEntries))
	metrics.CacheEntries.WithLabelValues(name, "stale").Set(float64(stats.StaleEntries))
}

// HandleConnectivity serves GET /api/v1/connectivity. Cached results are
// returned unless ?refresh=true is given or a provider has no fresh result.
func (m *ConnectivityMonitor) HandleConnectivity(w http.ResponseWriter, r *http.Request) {
	statuses := m.Statuses()
	if r.URL.Query().Get("refresh") == "true" || needsProbe(statuses, len(m.providers)) {
		statuses = m.CheckNow(r.Context())
	}

	anyReachable := false
	for _, s := range statuses {
		anyReachable = anyReachable || s.Reachable
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"providers": statuses,
		// Only straight-line estimates can be served
		"degraded": !anyReachable,
		"cache":    m.statuses.Stats(),
	})
}
