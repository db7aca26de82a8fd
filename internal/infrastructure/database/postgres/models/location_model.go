package models

import (
	"time"

	"github.com/google/uuid"
)

// LocationFixModel is one stored GPS sample.
type LocationFixModel struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key"`
	DeviceID   string     `gorm:"type:varchar(255);not null;index:idx_location_fixes_device_recorded,priority:1"`
	UserID     *uuid.UUID `gorm:"type:uuid;index:idx_location_fixes_user_recorded,priority:1"`
	CompanyID  *uuid.UUID `gorm:"type:uuid"`
	Latitude   float64    `gorm:"type:double precision;not null"`
	Longitude  float64    `gorm:"type:double precision;not null"`
	Accuracy   float64    `gorm:"type:double precision;not null"`
	RecordedAt time.Time  `gorm:"not null;index:idx_location_fixes_device_recorded,priority:2;index:idx_location_fixes_user_recorded,priority:2"`
	Speed      *float64   `gorm:"type:double precision"`
	Bearing    *float64   `gorm:"type:double precision"`
	Altitude   *float64   `gorm:"type:double precision"`
	CreatedAt  time.Time  `gorm:"not null"`
}

func (LocationFixModel) TableName() string {
	return "location_fixes"
}
