package models

import (
	"time"

	"github.com/google/uuid"
)

// DeviceModel represents the database model for Devices.
type DeviceModel struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	DeviceID   string     `gorm:"type:varchar(255);not null;uniqueIndex"`
	UserID     *uuid.UUID `gorm:"type:uuid;index"`
	CompanyID  *uuid.UUID `gorm:"type:uuid;index"`
	Platform   *string    `gorm:"type:varchar(50)"`
	AppVersion *string    `gorm:"type:varchar(50)"`
	LastSeenAt *time.Time `gorm:"type:timestamptz"`
	FixCount   int64      `gorm:"type:bigint;not null;default:0"`
	IsActive   bool       `gorm:"not null;default:true"`
	CreatedAt  time.Time  `gorm:"not null"`
	UpdatedAt  time.Time  `gorm:"not null"`
}

func (DeviceModel) TableName() string {
	return "devices"
}
