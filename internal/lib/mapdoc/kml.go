package mapdoc

import (
	"bytes"
	"fmt"

	kml "github.com/twpayne/go-kml"
)

// RenderKML exports the same markers and route as Render in KML, for opening
// in offline map apps.
func (g *Generator) RenderKML(cfg Config) (string, error) {
	payload := g.BuildPayload(cfg)

	name := cfg.Destination.Label
	if name == "" {
		name = "Directions"
	}
	children := []kml.Element{kml.Name(name)}

	for _, m := range payload.Markers {
		placemark := []kml.Element{
			kml.Name(m.Label),
			kml.Point(kml.Coordinates(kml.Coordinate{Lon: m.Lng, Lat: m.Lat})),
		}
		if m.Description != "" {
			placemark = append(placemark, kml.Description(m.Description))
		}
		children = append(children, kml.Placemark(placemark...))
	}

	if len(payload.Route) > 1 {
		coords := make([]kml.Coordinate, len(payload.Route))
		for i, p := range payload.Route {
			coords[i] = kml.Coordinate{Lon: p.Longitude, Lat: p.Latitude}
		}
		routeName := "Route"
		if payload.Banner != nil {
			routeName = "Straight-line estimate"
		}
		children = append(children, kml.Placemark(
			kml.Name(routeName),
			kml.LineString(
				kml.Tessellate(true),
				kml.Coordinates(coords...),
			),
		))
	}

	var buf bytes.Buffer
	if err := kml.KML(kml.Document(children...)).WriteIndent(&buf, "", "  "); err != nil {
		return "", fmt.Errorf("failed to encode kml: %w", err)
	}
	return buf.String(), nil
}
