// Package district resolves named administrative districts to reference
// coordinates and renders "distance from district center" labels.
package district

import (
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/dpup/wayfinder/internal/lib/geo"
)

// Center is the nominal center of a named district
type Center struct {
	Name  string    `json:"name"`
	Point geo.Point `json:"point"`
}

// Gazetteer is an immutable lookup table of district centers. It is safe for
// concurrent use.
type Gazetteer struct {
	exact  map[string]Center
	folded map[string]Center
	names  []string
}

// NewGazetteer builds a gazetteer from centers. Later duplicates of a name are
// ignored.
func NewGazetteer(centers []Center) *Gazetteer {
	g := &Gazetteer{
		exact:  make(map[string]Center, len(centers)),
		folded: make(map[string]Center, len(centers)),
		names:  make([]string, 0, len(centers)),
	}
	for _, c := range centers {
		if _, ok := g.exact[c.Name]; ok {
			continue
		}
		g.exact[c.Name] = c
		g.names = append(g.names, c.Name)
		key := normalize(c.Name)
		if _, ok := g.folded[key]; !ok {
			g.folded[key] = c
		}
	}
	return g
}

// Resolve looks a district up by exact name, then case-insensitively.
func (g *Gazetteer) Resolve(name string) (Center, bool) {
	if c, ok := g.exact[name]; ok {
		return c, true
	}
	c, ok := g.folded[normalize(name)]
	return c, ok
}

// Names returns district names in table order.
func (g *Gazetteer) Names() []string {
	out := make([]string, len(g.names))
	copy(out, g.names)
	return out
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// FormatDistance renders a distance as meters below 1 km and as kilometers with
// one decimal otherwise, suffixed with the center name.
func FormatDistance(distanceKm float64, centerName string) string {
	if meters := int(math.Round(distanceKm * 1000)); meters < 1000 {
		return fmt.Sprintf("%d m from %s", meters, centerName)
	}
	return fmt.Sprintf("%.1f km from %s", distanceKm, centerName)
}

// Resolver composes the gazetteer, bounds validation and formatting into
// distance labels for sites without a user location fix.
type Resolver struct {
	gazetteer *Gazetteer
	bounds    geo.Bounds
	logger    *zap.Logger
}

// NewResolver creates a Resolver. A nil logger discards output.
func NewResolver(gazetteer *Gazetteer, bounds geo.Bounds, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		gazetteer: gazetteer,
		bounds:    bounds,
		logger:    logger,
	}
}

// Gazetteer returns the underlying lookup table
func (r *Resolver) Gazetteer() *Gazetteer {
	return r.gazetteer
}

// AutoCalculateDistance returns a label such as "3.2 km from Kandy" for the
// site at lat/lon. It never panics: unknown districts produce
// "Distance from <name>" and any internal failure produces "<name> District".
func (r *Resolver) AutoCalculateDistance(districtName string, lat, lon float64) (label string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("district distance: recovered from panic",
				zap.String("district", districtName), zap.Any("panic", rec))
			label = genericLabel(districtName)
		}
	}()

	center, ok := r.gazetteer.Resolve(districtName)
	if !ok {
		return "Distance from " + districtName
	}

	site := geo.Point{Latitude: lat, Longitude: lon}
	if err := geo.Validate(site); err != nil {
		r.logger.Warn("district distance: invalid site coordinates",
			zap.String("district", districtName), zap.Error(err))
		return genericLabel(districtName)
	}
	if !r.bounds.Contains(site) {
		r.logger.Warn("district distance: site outside national bounds",
			zap.String("district", districtName),
			zap.Float64("lat", lat), zap.Float64("lon", lon))
	}

	return FormatDistance(geo.DistanceKm(center.Point, site), center.Name)
}

func genericLabel(districtName string) string {
	return districtName + " District"
}
