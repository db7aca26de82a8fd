package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceMeters_SamePointIsZero(t *testing.T) {
	assert.Equal(t, 0.0, DistanceMeters(45.81, 15.98, 45.81, 15.98))
}

func TestDistanceMeters_EquatorHundredthDegree(t *testing.T) {
	// 0.01 degree of longitude on the equator is R * 0.01 * pi / 180.
	want := EarthRadiusMeters * 0.01 * math.Pi / 180
	assert.InDelta(t, want, DistanceMeters(0, 0, 0, 0.01), 1e-6)
	assert.InDelta(t, 1111.95, DistanceMeters(0, 0, 0, 0.01), 0.01)
}

func TestDistanceMeters_Symmetric(t *testing.T) {
	ab := DistanceMeters(44.7866, 20.4489, 45.2671, 19.8335)
	ba := DistanceMeters(45.2671, 19.8335, 44.7866, 20.4489)
	assert.InDelta(t, ab, ba, 1e-9)
	assert.Greater(t, ab, 0.0)
}

func TestDistanceMeters_PureLatitudeOffset(t *testing.T) {
	dLat := 50.0 / EarthRadiusMeters * 180 / math.Pi
	assert.InDelta(t, 50.0, DistanceMeters(10, 20, 10+dLat, 20), 1e-6)
}

func TestDistanceMeters_NaNPropagates(t *testing.T) {
	assert.True(t, math.IsNaN(DistanceMeters(math.NaN(), 0, 0, 0)))
}

func TestDistance_MatchesDistanceMeters(t *testing.T) {
	a := Point{Lat: 51.5007, Lon: -0.1246}
	b := Point{Lat: 40.6892, Lon: -74.0445}
	assert.Equal(t, DistanceMeters(a.Lat, a.Lon, b.Lat, b.Lon), Distance(a, b))
	assert.InDelta(t, 5574840.0, Distance(a, b), 5000)
}

func TestConversions(t *testing.T) {
	assert.Equal(t, 1.5, MetersToKm(1500))
	assert.InDelta(t, 36.0, MpsToKmh(10), 1e-9)
}
