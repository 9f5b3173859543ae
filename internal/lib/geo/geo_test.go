package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	colombo   = Point{Latitude: 6.9271, Longitude: 79.8612}
	kandy     = Point{Latitude: 7.2906, Longitude: 80.6337}
	galle     = Point{Latitude: 6.0535, Longitude: 80.2210}
	jaffna    = Point{Latitude: 9.6615, Longitude: 80.0255}
	sigiriya  = Point{Latitude: 7.9570, Longitude: 80.7603}
	anuradapa = Point{Latitude: 8.3114, Longitude: 80.4037}
)

func TestDistanceKm(t *testing.T) {
	// Colombo to Kandy is roughly 94 km as the crow flies
	assert.InDelta(t, 94.0, DistanceKm(colombo, kandy), 2.0)

	// Angels Camp to Murphys, ~11.0 km
	angelsCamp := Point{Latitude: 38.0675, Longitude: -120.5436}
	murphys := Point{Latitude: 38.1391, Longitude: -120.4561}
	assert.InDelta(t, 11.046, DistanceKm(angelsCamp, murphys), 0.1)
}

func TestDistanceKm_Identity(t *testing.T) {
	for _, p := range []Point{colombo, kandy, galle, jaffna, {Latitude: -90, Longitude: 180}, {}} {
		assert.Equal(t, 0.0, DistanceKm(p, p), "distance from %v to itself", p)
	}
}

func TestDistanceKm_Symmetric(t *testing.T) {
	points := []Point{colombo, kandy, galle, jaffna, sigiriya, anuradapa, {Latitude: 51.5, Longitude: -0.12}}
	for _, a := range points {
		for _, b := range points {
			d1 := DistanceKm(a, b)
			d2 := DistanceKm(b, a)
			assert.InDelta(t, d1, d2, 1e-9)
			assert.GreaterOrEqual(t, d1, 0.0)
		}
	}
}

func TestDistanceKm_TriangleInequality(t *testing.T) {
	points := []Point{colombo, kandy, galle, jaffna, sigiriya, anuradapa}
	for _, a := range points {
		for _, b := range points {
			for _, c := range points {
				assert.LessOrEqual(t, DistanceKm(a, c), DistanceKm(a, b)+DistanceKm(b, c)+1e-9)
			}
		}
	}
}

func TestDistanceKm_NaNPropagates(t *testing.T) {
	d := DistanceKm(Point{Latitude: math.NaN(), Longitude: 80}, colombo)
	assert.True(t, math.IsNaN(d))
}

func TestDistanceKm_Antipodal(t *testing.T) {
	d := DistanceKm(Point{Latitude: 0, Longitude: 0}, Point{Latitude: 0, Longitude: 180})
	assert.InDelta(t, math.Pi*EarthRadiusKm, d, 1e-6)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(colombo))
	assert.ErrorIs(t, Validate(Point{Latitude: 200, Longitude: -300}), ErrInvalidCoordinate)
	assert.ErrorIs(t, Validate(Point{Latitude: math.NaN()}), ErrInvalidCoordinate)

	_, err := NewPoint(91, 0)
	assert.Error(t, err)
	p, err := NewPoint(7.29, 80.63)
	require.NoError(t, err)
	assert.Equal(t, Point{Latitude: 7.29, Longitude: 80.63}, p)
}

func TestBoundsContains(t *testing.T) {
	assert.True(t, SriLanka.Contains(colombo))
	assert.True(t, SriLanka.Contains(jaffna))
	assert.False(t, SriLanka.Contains(Point{Latitude: 13.08, Longitude: 80.27}), "Chennai is outside")
	assert.True(t, SriLanka.Contains(Point{Latitude: 5.9, Longitude: 79.5}), "edges are inclusive")
}

func TestInterpolateAndMidpoint(t *testing.T) {
	assert.Equal(t, colombo, Interpolate(colombo, kandy, 0))
	mid := Interpolate(colombo, kandy, 0.5)
	assert.InDelta(t, (colombo.Latitude+kandy.Latitude)/2, mid.Latitude, 1e-12)
	assert.InDelta(t, (colombo.Longitude+kandy.Longitude)/2, mid.Longitude, 1e-12)
	assert.Equal(t, Midpoint(colombo, kandy), mid)
}

func TestDecodePolyline_ReferenceFixture(t *testing.T) {
	points, err := DecodePolyline("_p~iF~ps|U_ulLnnqC_mqNvxq`@")
	require.NoError(t, err)
	require.Len(t, points, 3)

	want := []Point{
		{Latitude: 38.5, Longitude: -120.2},
		{Latitude: 40.7, Longitude: -120.95},
		{Latitude: 43.252, Longitude: -126.453},
	}
	for i := range want {
		assert.InDelta(t, want[i].Latitude, points[i].Latitude, 1e-9)
		assert.InDelta(t, want[i].Longitude, points[i].Longitude, 1e-9)
	}
}

func TestDecodePolyline_Errors(t *testing.T) {
	_, err := DecodePolyline("")
	assert.Error(t, err)

	// Continuation bit set on the final byte leaves the value unterminated
	_, err = DecodePolyline("_p~iF~ps|U_")
	assert.Error(t, err)
}

func TestEncodePolyline_RoundTrip(t *testing.T) {
	in := []Point{colombo, kandy, sigiriya}
	out, err := DecodePolyline(EncodePolyline(in))
	require.NoError(t, err)
	require.Len(t, out, len(in))
	for i := range in {
		assert.InDelta(t, in[i].Latitude, out[i].Latitude, 1e-5)
		assert.InDelta(t, in[i].Longitude, out[i].Longitude, 1e-5)
	}
}

func TestBoundingBox(t *testing.T) {
	_, ok := BoundingBox(nil)
	assert.False(t, ok)

	b, ok := BoundingBox([]Point{colombo, jaffna, galle})
	require.True(t, ok)
	assert.Equal(t, galle.Latitude, b.MinLat)
	assert.Equal(t, jaffna.Latitude, b.MaxLat)
	assert.Equal(t, colombo.Longitude, b.MinLon)
	assert.Equal(t, galle.Longitude, b.MaxLon)
}
