package route

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/icancar/fleet-management-sub000/internal/domain/location"
	"github.com/icancar/fleet-management-sub000/internal/geo"
)

// Stats summarizes one sorted list of fixes.
type Stats struct {
	TotalPoints   int
	TotalDistance float64 // km
	TotalDuration float64 // seconds
	AverageSpeed  float64 // km/h
	MaxSpeed      float64 // km/h
}

// Compute derives route statistics from points sorted by timestamp.
//
// Distance is the path length: the sum of Haversine segments between
// consecutive points. No smoothing or outlier rejection is applied, so one bad
// fix inflates the total. Speeds are the device reported values; readings that
// are absent or not positive are left out of the average and count as zero for
// the maximum.
func Compute(points []location.Fix) Stats {
	s := Stats{TotalPoints: len(points)}
	if len(points) == 0 {
		return s
	}

	if len(points) > 1 {
		segments := make([]float64, 0, len(points)-1)
		for i := 1; i < len(points); i++ {
			prev, cur := points[i-1], points[i]
			segments = append(segments, geo.DistanceMeters(prev.Latitude, prev.Longitude, cur.Latitude, cur.Longitude))
		}
		s.TotalDistance = geo.MetersToKm(floats.Sum(segments))
		s.TotalDuration = points[len(points)-1].Timestamp.Sub(points[0].Timestamp).Seconds()
	}

	speeds := make([]float64, 0, len(points))
	for i := range points {
		if points[i].HasSpeed() {
			speeds = append(speeds, *points[i].Speed)
		}
	}
	if len(speeds) > 0 {
		s.AverageSpeed = stat.Mean(speeds, nil)
		s.MaxSpeed = floats.Max(speeds)
	}

	return s
}
