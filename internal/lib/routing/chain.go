package routing

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dpup/wayfinder/internal/metrics"
)

// Router produces a route for a request, or nil when none exists and fallback
// is disabled.
type Router interface {
	Route(ctx context.Context, req Request) *Result
}

// Chain tries an ordered list of providers until one returns a route. The
// straight-line estimate is always the implicit last link.
type Chain struct {
	providers []Provider
	logger    *zap.Logger
}

// NewChain creates a provider chain. A nil logger discards output.
func NewChain(logger *zap.Logger, providers ...Provider) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{
		providers: providers,
		logger:    logger,
	}
}

// Providers returns the providers in the order they are tried
func (c *Chain) Providers() []Provider {
	out := make([]Provider, len(c.providers))
	copy(out, c.providers)
	return out
}

// Route tries each provider in order and returns the first route. When all
// providers fail it returns StraightLine if req.AllowFallback, otherwise nil.
func (c *Chain) Route(ctx context.Context, req Request) *Result {
	for _, p := range c.providers {
		if ctx.Err() != nil {
			c.logger.Debug("routing: context done, skipping remaining providers", zap.Error(ctx.Err()))
			break
		}
		if result, ok := attempt(ctx, p, req, c.logger); ok {
			return result
		}
	}
	return fallbackOrNone(req, c.logger)
}

// GetRoute runs a single provider with the same degradation contract as a
// Chain: on failure the straight line when fallback is allowed, else nil.
func GetRoute(ctx context.Context, p Provider, req Request, logger *zap.Logger) *Result {
	if logger == nil {
		logger = zap.NewNop()
	}
	if result, ok := attempt(ctx, p, req, logger); ok {
		return result
	}
	return fallbackOrNone(req, logger)
}

func attempt(ctx context.Context, p Provider, req Request, logger *zap.Logger) (*Result, bool) {
	name := p.Name()
	metrics.RouteAttemptsTotal.WithLabelValues(name).Inc()

	start := time.Now()
	result, err := p.AttemptRoute(ctx, req)
	metrics.RouteDurationMs.WithLabelValues(name).Observe(float64(time.Since(start).Milliseconds()))

	if err != nil {
		metrics.RouteFailuresTotal.WithLabelValues(name).Inc()
		logger.Warn("routing: provider failed", zap.String("provider", name), zap.Error(err))
		return nil, false
	}
	if result == nil {
		metrics.RouteFailuresTotal.WithLabelValues(name).Inc()
		logger.Warn("routing: provider returned no result", zap.String("provider", name))
		return nil, false
	}
	return result, true
}

func fallbackOrNone(req Request, logger *zap.Logger) *Result {
	if !req.AllowFallback {
		metrics.NoRouteTotal.Inc()
		return nil
	}
	metrics.FallbackRoutesTotal.Inc()
	logger.Info("routing: using straight-line fallback",
		zap.Float64("origin_lat", req.Origin.Latitude),
		zap.Float64("origin_lon", req.Origin.Longitude),
		zap.Float64("destination_lat", req.Destination.Latitude),
		zap.Float64("destination_lon", req.Destination.Longitude))
	return StraightLine(req.Origin, req.Destination)
}
