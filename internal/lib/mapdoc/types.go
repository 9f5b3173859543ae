package mapdoc

import "github.com/dpup/wayfinder/internal/lib/geo"

// Destination is the place the map is built around
type Destination struct {
	Point       geo.Point
	Label       string
	Description string
}

// Config describes one "show directions" map. UserLocation and RouteGeometry
// are optional.
type Config struct {
	Destination        Destination
	UserLocation       *geo.Point
	RouteGeometry      []geo.Point
	ShowFallbackBanner bool
	FallbackMessage    string
}

// MarkerKind distinguishes the two markers a map can carry
type MarkerKind string

const (
	MarkerUser        MarkerKind = "user"
	MarkerDestination MarkerKind = "destination"
)

// Marker is a pin on the map
type Marker struct {
	Kind        MarkerKind `json:"kind"`
	Lat         float64    `json:"lat"`
	Lng         float64    `json:"lng"`
	Label       string     `json:"label"`
	Description string     `json:"description,omitempty"`
}

// Banner is the notice shown above the map when the route is an estimate
type Banner struct {
	Message string `json:"message"`
}

// TileLayer configures the base map
type TileLayer struct {
	URL         string `json:"url"`
	Attribution string `json:"attribution"`
}

// Payload is everything the page script needs. It is serialized once into
// the document and never spliced into markup.
type Payload struct {
	Center   geo.Point   `json:"center"`
	Zoom     int         `json:"zoom"`
	Markers  []Marker    `json:"markers"`
	Route    []geo.Point `json:"route,omitempty"`
	Fallback bool        `json:"fallback"`
	Banner   *Banner     `json:"banner,omitempty"`
	Tiles    TileLayer   `json:"tiles"`
}
