package routing

import (
	"context"

	"go.uber.org/zap"

	"github.com/dpup/wayfinder/internal/lib/geo"
	"github.com/dpup/wayfinder/internal/metrics"
)

// Fixed short trip used by connectivity self-tests: Colombo Fort railway
// station to Colombo Town Hall.
var (
	ProbeOrigin      = geo.Point{Latitude: 6.9344, Longitude: 79.8500}
	ProbeDestination = geo.Point{Latitude: 6.9157, Longitude: 79.8636}
)

// Probe reports whether p currently returns a genuine road network route.
// Fallback is disabled so a straight line can never count as success.
func Probe(ctx context.Context, p Provider, logger *zap.Logger) bool {
	result := GetRoute(ctx, p, Request{
		Origin:        ProbeOrigin,
		Destination:   ProbeDestination,
		Mode:          Driving,
		AllowFallback: false,
	}, logger)

	ok := result != nil && !result.IsFallback
	gauge := metrics.ProviderReachable.WithLabelValues(p.Name())
	if ok {
		gauge.Set(1)
	} else {
		gauge.Set(0)
	}
	return ok
}
