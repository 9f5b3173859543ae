package mapdoc

import (
	"bytes"
	"embed"
	"html/template"

	"go.uber.org/zap"

	"github.com/dpup/wayfinder/internal/lib/geo"
)

//go:embed template/map.html.tmpl
var templates embed.FS

var mapTemplate = template.Must(template.ParseFS(templates, "template/map.html.tmpl"))

const (
	DefaultTileURL     = "https://tile.openstreetmap.org/{z}/{x}/{y}.png"
	DefaultAttribution = `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`

	// DefaultFallbackMessage is shown when the banner is requested without text.
	DefaultFallbackMessage = "Road directions are unavailable right now. The line shows a straight-line estimate."
)

// Options configures a Generator
type Options struct {
	TileURL     string
	Attribution string
	Logger      *zap.Logger
}

// Generator renders self-contained Leaflet map documents. It holds no
// per-request state and is safe for concurrent use.
type Generator struct {
	tiles  TileLayer
	logger *zap.Logger
}

// NewGenerator creates a Generator, filling unset options with OpenStreetMap defaults
func NewGenerator(opts Options) *Generator {
	if opts.TileURL == "" {
		opts.TileURL = DefaultTileURL
	}
	if opts.Attribution == "" {
		opts.Attribution = DefaultAttribution
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Generator{
		tiles:  TileLayer{URL: opts.TileURL, Attribution: opts.Attribution},
		logger: opts.Logger,
	}
}

// BuildPayload computes the structured data a map document is rendered from.
// Coordinates that fail validation are left out rather than failing the map.
func (g *Generator) BuildPayload(cfg Config) Payload {
	payload := Payload{
		Zoom:     singlePointZoom,
		Fallback: cfg.ShowFallbackBanner,
		Tiles:    g.tiles,
	}

	dest := cfg.Destination.Point
	destOK := geo.Validate(dest) == nil
	var user *geo.Point
	if cfg.UserLocation != nil && geo.Validate(*cfg.UserLocation) == nil {
		user = cfg.UserLocation
	}

	switch {
	case user != nil && destOK:
		payload.Center = geo.Midpoint(*user, dest)
		payload.Zoom = ZoomForDistance(geo.DistanceKm(*user, dest))
	case destOK:
		payload.Center = dest
	case user != nil:
		payload.Center = *user
	default:
		payload.Center = geo.Point{
			Latitude:  (geo.SriLanka.MinLat + geo.SriLanka.MaxLat) / 2,
			Longitude: (geo.SriLanka.MinLon + geo.SriLanka.MaxLon) / 2,
		}
		payload.Zoom = farZoom
	}

	if user != nil {
		payload.Markers = append(payload.Markers, Marker{
			Kind:  MarkerUser,
			Lat:   user.Latitude,
			Lng:   user.Longitude,
			Label: "Your location",
		})
	}
	if destOK {
		payload.Markers = append(payload.Markers, Marker{
			Kind:        MarkerDestination,
			Lat:         dest.Latitude,
			Lng:         dest.Longitude,
			Label:       cfg.Destination.Label,
			Description: cfg.Destination.Description,
		})
	} else {
		g.logger.Warn("map destination has invalid coordinates",
			zap.String("label", cfg.Destination.Label),
			zap.Float64("lat", dest.Latitude),
			zap.Float64("lon", dest.Longitude))
	}

	for _, p := range cfg.RouteGeometry {
		if geo.Validate(p) == nil {
			payload.Route = append(payload.Route, p)
		}
	}
	if dropped := len(cfg.RouteGeometry) - len(payload.Route); dropped > 0 {
		g.logger.Warn("dropped invalid route points", zap.Int("dropped", dropped))
	}

	if cfg.ShowFallbackBanner {
		msg := cfg.FallbackMessage
		if msg == "" {
			msg = DefaultFallbackMessage
		}
		payload.Banner = &Banner{Message: msg}
	}

	return payload
}

// pageData is what the HTML shell is executed with
type pageData struct {
	Title   string
	Payload Payload
}

// Render produces the complete HTML document. It never fails; if the
// template cannot execute a minimal page naming the destination is returned.
func (g *Generator) Render(cfg Config) string {
	data := pageData{
		Title:   cfg.Destination.Label,
		Payload: g.BuildPayload(cfg),
	}
	if data.Title == "" {
		data.Title = "Directions"
	}

	var buf bytes.Buffer
	if err := mapTemplate.Execute(&buf, data); err != nil {
		g.logger.Error("map template failed", zap.Error(err))
		return "<!DOCTYPE html><html><head><meta charset=\"utf-8\"><title>" +
			template.HTMLEscapeString(data.Title) + "</title></head><body><p>Map unavailable for " +
			template.HTMLEscapeString(data.Title) + ".</p></body></html>"
	}
	return buf.String()
}
