package tracking

import (
	"time"

	"github.com/google/uuid"

	"github.com/icancar/fleet-management-sub000/internal/domain/location"
	"github.com/icancar/fleet-management-sub000/internal/geo"
	"github.com/icancar/fleet-management-sub000/pkg/utils"
)

const (
	SpeedUnitMPS = "mps"
	SpeedUnitKMH = "kmh"

	MaxBatchSize   = 500
	MaxSummaryDays = 31
)

// IngestRequest is one GPS sample as reported by a device. Speed is in m/s
// unless SpeedUnit says kmh; Android and iOS both report m/s.
type IngestRequest struct {
	DeviceID   string     `json:"device_id" validate:"required,min=1,max=255"`
	UserID     *uuid.UUID `json:"user_id"`
	Latitude   *float64   `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude  *float64   `json:"longitude" validate:"required,gte=-180,lte=180"`
	Accuracy   *float64   `json:"accuracy" validate:"required,gte=0"`
	Timestamp  time.Time  `json:"timestamp" validate:"required"`
	Speed      *float64   `json:"speed"`
	SpeedUnit  string     `json:"speed_unit" validate:"omitempty,speed_unit"`
	Bearing    *float64   `json:"bearing" validate:"omitempty,gte=0,lte=360"`
	Altitude   *float64   `json:"altitude"`
	Platform   *string    `json:"platform" validate:"omitempty,max=50"`
	AppVersion *string    `json:"app_version" validate:"omitempty,max=50"`
}

// toFix normalizes the request: UTC timestamp, speed in km/h, and a missing
// or negative speed dropped as "no reading".
func (r *IngestRequest) toFix(receivedAt time.Time) *location.Fix {
	fix := &location.Fix{
		ID:        uuid.New(),
		DeviceID:  utils.SanitizeIdentifier(r.DeviceID),
		UserID:    r.UserID,
		Latitude:  *r.Latitude,
		Longitude: *r.Longitude,
		Accuracy:  *r.Accuracy,
		Timestamp: r.Timestamp.UTC(),
		Bearing:   r.Bearing,
		Altitude:  r.Altitude,
		CreatedAt: receivedAt,
	}

	if r.Speed != nil && *r.Speed >= 0 {
		kmh := *r.Speed
		if r.SpeedUnit != SpeedUnitKMH {
			kmh = geo.MpsToKmh(kmh)
		}
		fix.Speed = &kmh
	}
	return fix
}

// Ack confirms a fix was stored.
type Ack struct {
	ID         uuid.UUID `json:"id"`
	DeviceID   string    `json:"device_id"`
	Stored     bool      `json:"stored"`
	ReceivedAt time.Time `json:"received_at"`
}

type BatchIngestRequest struct {
	Fixes []IngestRequest `json:"fixes" validate:"required,min=1,max=500"`
}

// BatchItemResult reports the outcome of one element of a batch, by its
// position in the request.
type BatchItemResult struct {
	Index int    `json:"index"`
	Ack   *Ack   `json:"ack,omitempty"`
	Error string `json:"error,omitempty"`
}

type BatchIngestResponse struct {
	Accepted int               `json:"accepted"`
	Rejected int               `json:"rejected"`
	Results  []BatchItemResult `json:"results"`
}
