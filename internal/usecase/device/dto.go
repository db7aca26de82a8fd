package device

import (
	"time"

	"github.com/google/uuid"

	domainDevice "github.com/icancar/fleet-management-sub000/internal/domain/device"
)

type RegisterDeviceRequest struct {
	DeviceID   string     `json:"device_id" validate:"required,min=1,max=255"`
	UserID     *uuid.UUID `json:"user_id"`
	CompanyID  *uuid.UUID `json:"company_id"`
	Platform   *string    `json:"platform" validate:"omitempty,max=50"`
	AppVersion *string    `json:"app_version" validate:"omitempty,max=50"`
}

// AssignUserRequest binds a device to a driver. A nil UserID unbinds it.
type AssignUserRequest struct {
	UserID *uuid.UUID `json:"user_id"`
}

type DeviceFilterRequest struct {
	UserID    *uuid.UUID `form:"-"`
	IsActive  *bool      `form:"is_active"`
	IsOnline  *bool      `form:"is_online"`
	Search    string     `form:"search"`
	Page      int        `form:"page" validate:"omitempty,min=1"`
	PageSize  int        `form:"page_size" validate:"omitempty,min=1,max=100"`
	SortBy    string     `form:"sort_by" validate:"omitempty,oneof=created_at last_seen_at device_id fix_count"`
	SortOrder string     `form:"sort_order" validate:"omitempty,oneof=asc desc"`
}

type DeviceResponse struct {
	ID         uuid.UUID  `json:"id"`
	DeviceID   string     `json:"device_id"`
	UserID     *uuid.UUID `json:"user_id"`
	CompanyID  *uuid.UUID `json:"company_id"`
	Platform   *string    `json:"platform"`
	AppVersion *string    `json:"app_version"`
	LastSeenAt *time.Time `json:"last_seen_at"`
	FixCount   int64      `json:"fix_count"`
	IsActive   bool       `json:"is_active"`
	IsOnline   bool       `json:"is_online"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type DeviceListResponse struct {
	Devices    []DeviceResponse `json:"devices"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalPages int              `json:"total_pages"`
}

func ToDeviceResponse(d *domainDevice.Device) *DeviceResponse {
	if d == nil {
		return nil
	}
	return &DeviceResponse{
		ID:         d.ID,
		DeviceID:   d.DeviceID,
		UserID:     d.UserID,
		CompanyID:  d.CompanyID,
		Platform:   d.Platform,
		AppVersion: d.AppVersion,
		LastSeenAt: d.LastSeenAt,
		FixCount:   d.FixCount,
		IsActive:   d.IsActive,
		IsOnline:   d.IsOnline(),
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

func ToDomainFilter(req *DeviceFilterRequest) *domainDevice.Filter {
	if req == nil {
		return &domainDevice.Filter{}
	}
	return &domainDevice.Filter{
		UserID:    req.UserID,
		IsActive:  req.IsActive,
		IsOnline:  req.IsOnline,
		Search:    req.Search,
		Page:      req.Page,
		PageSize:  req.PageSize,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}
}
