package device

import (
	"time"

	"github.com/google/uuid"
)

// OnlineWindow is how recently a device must have reported to count as online.
const OnlineWindow = 5 * time.Minute

// Device binds a hardware device id to the driver currently using it.
type Device struct {
	ID         uuid.UUID
	DeviceID   string
	UserID     *uuid.UUID
	CompanyID  *uuid.UUID
	Platform   *string
	AppVersion *string
	LastSeenAt *time.Time
	FixCount   int64
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsOnline checks if the device reported within OnlineWindow.
func (d *Device) IsOnline() bool {
	if d.LastSeenAt == nil {
		return false
	}
	return time.Since(*d.LastSeenAt) < OnlineWindow
}

// Touch describes the device side effect of one ingested fix. The user
// binding is last-write-wins: a non-nil UserID replaces the stored one.
type Touch struct {
	DeviceID   string
	UserID     *uuid.UUID
	CompanyID  *uuid.UUID
	Platform   *string
	AppVersion *string
	SeenAt     time.Time
}
