package routing

import (
	"math"

	"github.com/dpup/wayfinder/internal/lib/geo"
)

const (
	// FallbackProvider names results produced by StraightLine.
	FallbackProvider = "straight_line"

	// fallbackSpeedKmh is the assumed average speed for straight-line estimates.
	fallbackSpeedKmh = 50.0

	minFallbackSteps = 5
	maxFallbackSteps = 20
)

// FallbackSteps returns the number of interpolation steps for a straight line
// of the given length: round(distance*2) clamped to [5, 20].
func FallbackSteps(distanceKm float64) int {
	steps := math.Round(distanceKm * 2)
	if math.IsNaN(steps) || steps < minFallbackSteps {
		return minFallbackSteps
	}
	if steps > maxFallbackSteps {
		return maxFallbackSteps
	}
	return int(steps)
}

// StraightLine returns a straight-line estimate between origin and destination.
// It cannot fail and is the last resort of every routing tier.
func StraightLine(origin, destination geo.Point) *Result {
	distanceKm := geo.DistanceKm(origin, destination)
	steps := FallbackSteps(distanceKm)

	geometry := make([]geo.Point, steps+1)
	geometry[0] = origin
	for i := 1; i < steps; i++ {
		geometry[i] = geo.Interpolate(origin, destination, float64(i)/float64(steps))
	}
	geometry[steps] = destination

	return &Result{
		DistanceKm:  distanceKm,
		DurationMin: distanceKm / fallbackSpeedKmh * 60,
		Geometry:    geometry,
		IsFallback:  true,
		Summary:     "Straight-line estimate",
		Provider:    FallbackProvider,
	}
}
