package location

import (
	"time"

	"github.com/google/uuid"
)

// Fix is one GPS sample reported by a device. Fixes are immutable once stored.
// Speed is kept in km/h.
type Fix struct {
	ID        uuid.UUID  `json:"id"`
	DeviceID  string     `json:"device_id"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	CompanyID *uuid.UUID `json:"company_id,omitempty"`
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	Accuracy  float64    `json:"accuracy"`
	Timestamp time.Time  `json:"timestamp"`
	Speed     *float64   `json:"speed,omitempty"`
	Bearing   *float64   `json:"bearing,omitempty"`
	Altitude  *float64   `json:"altitude,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// SpeedOrZero returns the reported speed, or 0 when the fix carries none.
func (f *Fix) SpeedOrZero() float64 {
	if f.Speed == nil {
		return 0
	}
	return *f.Speed
}

// HasSpeed reports whether the fix carries a positive speed reading.
func (f *Fix) HasSpeed() bool {
	return f.Speed != nil && *f.Speed > 0
}
