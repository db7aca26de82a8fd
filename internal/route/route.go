// Package route rebuilds daily routes from raw location fixes: fixes are
// grouped per UTC day, sorted, and summarized into distance, duration and
// speed statistics.
package route

import (
	"time"

	"github.com/google/uuid"

	"github.com/icancar/fleet-management-sub000/internal/domain/location"
)

// Location is a point on the route with the time it was recorded.
type Location struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

// VehicleInfo decorates a driver's route with the vehicle they drive.
type VehicleInfo struct {
	ID           uuid.UUID `json:"id"`
	Make         string    `json:"make"`
	Model        string    `json:"model"`
	Year         int       `json:"year"`
	LicensePlate string    `json:"license_plate"`
}

// DailyRoute is the derived route of one device on one UTC day. Distance is
// in km, duration in seconds and speeds in km/h.
type DailyRoute struct {
	Date          string         `json:"date"`
	DeviceID      string         `json:"device_id"`
	UserID        *uuid.UUID     `json:"user_id,omitempty"`
	TotalPoints   int            `json:"total_points"`
	TotalDistance float64        `json:"total_distance"`
	TotalDuration float64        `json:"total_duration"`
	AverageSpeed  float64        `json:"average_speed"`
	MaxSpeed      float64        `json:"max_speed"`
	StartLocation *Location      `json:"start_location"`
	EndLocation   *Location      `json:"end_location"`
	RoutePoints   []location.Fix `json:"route_points"`
	Vehicle       *VehicleInfo   `json:"vehicle"`
}

// DaySummary is a DailyRoute without its points.
type DaySummary struct {
	Date          string  `json:"date"`
	DeviceID      string  `json:"device_id"`
	TotalPoints   int     `json:"total_points"`
	TotalDistance float64 `json:"total_distance"`
	TotalDuration float64 `json:"total_duration"`
}

// Summary drops the points and vehicle of r.
func (r DailyRoute) Summary() DaySummary {
	return DaySummary{
		Date:          r.Date,
		DeviceID:      r.DeviceID,
		TotalPoints:   r.TotalPoints,
		TotalDistance: r.TotalDistance,
		TotalDuration: r.TotalDuration,
	}
}
