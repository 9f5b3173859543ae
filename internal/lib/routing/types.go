package routing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dpup/wayfinder/internal/lib/geo"
)

// Mode is the travel mode for a routing request
type Mode string

const (
	Driving Mode = "driving"
	Walking Mode = "walking"
	Cycling Mode = "cycling"
)

// ParseMode parses a travel mode, accepting a few common aliases. An empty
// string means driving.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "driving", "drive", "car":
		return Driving, nil
	case "walking", "walk", "foot":
		return Walking, nil
	case "cycling", "bicycling", "bike":
		return Cycling, nil
	}
	return "", fmt.Errorf("unknown travel mode %q", s)
}

var (
	// ErrNoRoute is returned by providers that answered but found no route.
	ErrNoRoute = errors.New("no route found")

	// ErrSuperseded is returned by a Session when a newer request was issued
	// before this one completed.
	ErrSuperseded = errors.New("routing response superseded by a newer request")
)

// Request holds the origin and destination for a route calculation
type Request struct {
	Origin      geo.Point `json:"origin"`
	Destination geo.Point `json:"destination"`
	Mode        Mode      `json:"mode"`

	// AllowFallback permits the straight-line estimate when no provider
	// returns a route. Only connectivity probes disable it.
	AllowFallback bool `json:"allow_fallback"`

	AvoidTolls    bool `json:"avoid_tolls,omitempty"`
	AvoidHighways bool `json:"avoid_highways,omitempty"`
}

// Result holds the outcome of a route calculation. Results are built fresh
// for every request and never mutated afterwards.
type Result struct {
	DistanceKm  float64     `json:"distance_km"`
	DurationMin float64     `json:"duration_min"`
	Geometry    []geo.Point `json:"geometry"`

	// IsFallback is true when Geometry is a straight-line interpolation
	// rather than a road network route.
	IsFallback bool   `json:"is_fallback"`
	Summary    string `json:"summary,omitempty"`
	Provider   string `json:"provider"`
}

// Provider is one routing tier. AttemptRoute returns an error for transport
// failures, service-reported failures and empty route lists; it never
// substitutes a fallback itself.
type Provider interface {
	Name() string
	AttemptRoute(ctx context.Context, req Request) (*Result, error)
}
