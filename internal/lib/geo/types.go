package geo

// Point represents a geographic coordinate
type Point struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// Bounds is a latitude/longitude rectangle
type Bounds struct {
	MinLat float64 `json:"min_lat" koanf:"min_lat"`
	MaxLat float64 `json:"max_lat" koanf:"max_lat"`
	MinLon float64 `json:"min_lon" koanf:"min_lon"`
	MaxLon float64 `json:"max_lon" koanf:"max_lon"`
}

// SriLanka is the approximate national bounding box used to sanity check
// user and destination coordinates.
var SriLanka = Bounds{
	MinLat: 5.9,
	MaxLat: 9.9,
	MinLon: 79.5,
	MaxLon: 82.0,
}

// Contains reports whether p lies inside the rectangle (edges inclusive)
func (b Bounds) Contains(p Point) bool {
	return p.Latitude >= b.MinLat && p.Latitude <= b.MaxLat &&
		p.Longitude >= b.MinLon && p.Longitude <= b.MaxLon
}
