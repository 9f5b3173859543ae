package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/twpayne/go-polyline"
)

// EarthRadiusKm is the mean Earth radius used for all great-circle math.
const EarthRadiusKm = 6371.0

// ErrInvalidCoordinate is returned when latitude or longitude is out of range.
var ErrInvalidCoordinate = errors.New("invalid coordinates: latitude must be [-90, 90], longitude must be [-180, 180]")

// DistanceKm calculates great-circle distance between two points using the
// Haversine formula. Malformed input propagates NaN rather than failing;
// callers validate first.
func DistanceKm(p1, p2 Point) float64 {
	// If points are the same, distance is 0
	if p1.Latitude == p2.Latitude && p1.Longitude == p2.Longitude {
		return 0
	}

	lat1 := p1.Latitude * math.Pi / 180
	lon1 := p1.Longitude * math.Pi / 180
	lat2 := p2.Latitude * math.Pi / 180
	lon2 := p2.Longitude * math.Pi / 180

	dlat := lat2 - lat1
	dlon := lon2 - lon1

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	// Rounding can push a past 1 for antipodal points.
	if a > 1 {
		a = 1
	}
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// Validate checks latitude and longitude ranges
func Validate(p Point) error {
	if math.IsNaN(p.Latitude) || math.IsNaN(p.Longitude) {
		return fmt.Errorf("%w: got NaN", ErrInvalidCoordinate)
	}
	if p.Latitude < -90 || p.Latitude > 90 || p.Longitude < -180 || p.Longitude > 180 {
		return fmt.Errorf("%w: got (%f, %f)", ErrInvalidCoordinate, p.Latitude, p.Longitude)
	}
	return nil
}

// NewPoint creates a Point from latitude and longitude values with validation
func NewPoint(latitude, longitude float64) (Point, error) {
	point := Point{Latitude: latitude, Longitude: longitude}
	if err := Validate(point); err != nil {
		return Point{}, err
	}
	return point, nil
}

// Interpolate returns the point at fraction t along the straight
// latitude/longitude segment from start to end.
func Interpolate(start, end Point, t float64) Point {
	return Point{
		Latitude:  start.Latitude + t*(end.Latitude-start.Latitude),
		Longitude: start.Longitude + t*(end.Longitude-start.Longitude),
	}
}

// Midpoint is the arithmetic midpoint of two coordinates.
func Midpoint(a, b Point) Point {
	return Point{
		Latitude:  (a.Latitude + b.Latitude) / 2,
		Longitude: (a.Longitude + b.Longitude) / 2,
	}
}

// DecodePolyline decodes a Google encoded polyline to a point sequence
func DecodePolyline(encoded string) ([]Point, error) {
	if encoded == "" {
		return nil, errors.New("encoded polyline string is empty")
	}

	coords, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to decode polyline: %w", err)
	}

	points := make([]Point, len(coords))
	for i, coord := range coords {
		points[i] = Point{Latitude: coord[0], Longitude: coord[1]}
		if err := Validate(points[i]); err != nil {
			return nil, fmt.Errorf("decoded polyline contains invalid coordinates: %w", err)
		}
	}

	return points, nil
}

// EncodePolyline encodes points with the Google polyline algorithm
func EncodePolyline(points []Point) string {
	coords := make([][]float64, len(points))
	for i, p := range points {
		coords[i] = []float64{p.Latitude, p.Longitude}
	}
	return string(polyline.EncodeCoords(coords))
}

// FromOrb converts an orb point, which is ordered lon,lat, to a Point.
func FromOrb(p orb.Point) Point {
	return Point{Latitude: p.Lat(), Longitude: p.Lon()}
}

// ToOrb converts a Point to orb's lon,lat ordering.
func ToOrb(p Point) orb.Point {
	return orb.Point{p.Longitude, p.Latitude}
}

// BoundingBox returns the smallest rectangle containing every point.
// ok is false when points is empty.
func BoundingBox(points []Point) (b Bounds, ok bool) {
	if len(points) == 0 {
		return Bounds{}, false
	}

	mp := make(orb.MultiPoint, len(points))
	for i, p := range points {
		mp[i] = ToOrb(p)
	}
	bound := mp.Bound()

	return Bounds{
		MinLat: bound.Bottom(),
		MaxLat: bound.Top(),
		MinLon: bound.Left(),
		MaxLon: bound.Right(),
	}, true
}
