package route

import (
	"github.com/icancar/fleet-management-sub000/internal/domain/location"
)

// Assemble builds the DailyRoute for points already sorted by timestamp.
func Assemble(date, deviceID string, points []location.Fix) DailyRoute {
	s := Compute(points)
	r := DailyRoute{
		Date:          date,
		DeviceID:      deviceID,
		TotalPoints:   s.TotalPoints,
		TotalDistance: s.TotalDistance,
		TotalDuration: s.TotalDuration,
		AverageSpeed:  s.AverageSpeed,
		MaxSpeed:      s.MaxSpeed,
		RoutePoints:   points,
	}
	if r.RoutePoints == nil {
		r.RoutePoints = []location.Fix{}
	}

	if len(points) > 0 {
		first, last := points[0], points[len(points)-1]
		r.StartLocation = &Location{Latitude: first.Latitude, Longitude: first.Longitude, Timestamp: first.Timestamp}
		r.EndLocation = &Location{Latitude: last.Latitude, Longitude: last.Longitude, Timestamp: last.Timestamp}
	}
	return r
}

// BuildDailyRoutes groups the fixes of one device by day and assembles one
// route per day, ordered by date. An empty date keeps every day. The result is
// never nil.
func BuildDailyRoutes(deviceID string, fixes []location.Fix, date string) []DailyRoute {
	groups := GroupByDay(fixes, date)
	routes := make([]DailyRoute, 0, len(groups))
	for _, day := range SortedDays(groups) {
		routes = append(routes, Assemble(day, deviceID, groups[day]))
	}
	return routes
}
