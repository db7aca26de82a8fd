package vehicle

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive      Status = "active"
	StatusMaintenance Status = "maintenance"
	StatusRetired     Status = "retired"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusMaintenance, StatusRetired:
		return true
	}
	return false
}

// Vehicle is a company vehicle. Odometer is the accumulated distance in km.
type Vehicle struct {
	ID               uuid.UUID
	CompanyID        *uuid.UUID
	Make             string
	Model            string
	Year             int
	LicensePlate     string
	VIN              *string
	Status           Status
	AssignedDriverID *uuid.UUID
	Odometer         float64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// OdometerEntry records one increment applied to a vehicle odometer. FixID is
// unique, so a fix can move the odometer at most once.
type OdometerEntry struct {
	ID         uuid.UUID
	VehicleID  uuid.UUID
	FixID      uuid.UUID
	DistanceKm float64
	AppliedAt  time.Time
}
