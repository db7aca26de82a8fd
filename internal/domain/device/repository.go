package device

import (
	"context"

	"github.com/google/uuid"
)

//go:generate mockgen -source=repository.go -destination=mocks/repository_mock.go -package=mocks

// Repository defines the interface for device repository operations
type Repository interface {
	Create(ctx context.Context, device *Device) error
	GetByID(ctx context.Context, id uuid.UUID) (*Device, error)
	GetByDeviceID(ctx context.Context, deviceID string) (*Device, error)
	Update(ctx context.Context, device *Device) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	AssignUser(ctx context.Context, id uuid.UUID, userID *uuid.UUID) error
	// Touch upserts the device row for an ingested fix.
	Touch(ctx context.Context, touch *Touch) (*Device, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Device, error)
	List(ctx context.Context, filter *Filter) ([]*Device, int64, error)
	GetStatistics(ctx context.Context, companyID *uuid.UUID) (*Statistics, error)
}

// Filter represents filtering options for listing devices
type Filter struct {
	UserID    *uuid.UUID
	CompanyID *uuid.UUID
	IsActive  *bool
	IsOnline  *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Statistics represents device statistics
type Statistics struct {
	TotalDevices      int   `json:"total_devices"`
	ActiveDevices     int   `json:"active_devices"`
	OnlineDevices     int   `json:"online_devices"`
	UnassignedDevices int   `json:"unassigned_devices"`
	TotalFixes        int64 `json:"total_fixes"`
}
