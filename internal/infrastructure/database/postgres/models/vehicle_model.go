package models

import (
	"time"

	"github.com/google/uuid"
)

type VehicleModel struct {
	ID               uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CompanyID        *uuid.UUID `gorm:"type:uuid;index"`
	Make             string     `gorm:"type:varchar(100);not null"`
	Model            string     `gorm:"type:varchar(100);not null"`
	Year             int        `gorm:"type:integer;not null"`
	LicensePlate     string     `gorm:"type:varchar(20);not null;uniqueIndex"`
	VIN              *string    `gorm:"column:vin;type:varchar(17)"`
	Status           string     `gorm:"type:varchar(20);not null;default:'active'"`
	AssignedDriverID *uuid.UUID `gorm:"type:uuid"`
	Odometer         float64    `gorm:"type:double precision;not null;default:0"`
	CreatedAt        time.Time  `gorm:"not null"`
	UpdatedAt        time.Time  `gorm:"not null"`
}

func (VehicleModel) TableName() string {
	return "vehicles"
}

// OdometerEntryModel is the ledger row written with every odometer increment.
type OdometerEntryModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	VehicleID  uuid.UUID `gorm:"type:uuid;not null;index"`
	FixID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	DistanceKm float64   `gorm:"type:double precision;not null"`
	AppliedAt  time.Time `gorm:"not null"`
}

func (OdometerEntryModel) TableName() string {
	return "odometer_entries"
}
