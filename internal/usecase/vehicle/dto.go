package vehicle

import (
	"time"

	"github.com/google/uuid"

	domainVehicle "github.com/icancar/fleet-management-sub000/internal/domain/vehicle"
)

type CreateVehicleRequest struct {
	Make         string     `json:"make" validate:"required,min=1,max=100"`
	Model        string     `json:"model" validate:"required,min=1,max=100"`
	Year         int        `json:"year" validate:"required,min=1950,max=2100"`
	LicensePlate string     `json:"license_plate" validate:"required,min=2,max=20"`
	VIN          *string    `json:"vin" validate:"omitempty,len=17,alphanum"`
	CompanyID    *uuid.UUID `json:"company_id"`
	Odometer     *float64   `json:"odometer" validate:"omitempty,min=0"`
}

type UpdateVehicleRequest struct {
	Make         *string `json:"make" validate:"omitempty,min=1,max=100"`
	Model        *string `json:"model" validate:"omitempty,min=1,max=100"`
	Year         *int    `json:"year" validate:"omitempty,min=1950,max=2100"`
	LicensePlate *string `json:"license_plate" validate:"omitempty,min=2,max=20"`
	VIN          *string `json:"vin" validate:"omitempty,len=17,alphanum"`
	Status       *string `json:"status" validate:"omitempty,oneof=active maintenance retired"`
}

// AssignDriverRequest assigns a driver to a vehicle. A nil DriverID clears
// the assignment.
type AssignDriverRequest struct {
	DriverID *uuid.UUID `json:"driver_id"`
}

type SetOdometerRequest struct {
	Reading *float64 `json:"reading" validate:"required,min=0"`
}

type VehicleFilterRequest struct {
	Status   *string `form:"status" validate:"omitempty,oneof=active maintenance retired"`
	Search   string  `form:"search"`
	Page     int     `form:"page" validate:"omitempty,min=1"`
	PageSize int     `form:"page_size" validate:"omitempty,min=1,max=100"`
}

type VehicleResponse struct {
	ID               uuid.UUID  `json:"id"`
	CompanyID        *uuid.UUID `json:"company_id"`
	Make             string     `json:"make"`
	Model            string     `json:"model"`
	Year             int        `json:"year"`
	LicensePlate     string     `json:"license_plate"`
	VIN              *string    `json:"vin"`
	Status           string     `json:"status"`
	AssignedDriverID *uuid.UUID `json:"assigned_driver_id"`
	Odometer         float64    `json:"odometer"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type VehicleListResponse struct {
	Vehicles   []VehicleResponse `json:"vehicles"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int               `json:"total_pages"`
}

type OdometerResponse struct {
	VehicleID uuid.UUID `json:"vehicle_id"`
	Odometer  float64   `json:"odometer"`
}

func ToVehicleResponse(v *domainVehicle.Vehicle) *VehicleResponse {
	if v == nil {
		return nil
	}
	return &VehicleResponse{
		ID:               v.ID,
		CompanyID:        v.CompanyID,
		Make:             v.Make,
		Model:            v.Model,
		Year:             v.Year,
		LicensePlate:     v.LicensePlate,
		VIN:              v.VIN,
		Status:           string(v.Status),
		AssignedDriverID: v.AssignedDriverID,
		Odometer:         v.Odometer,
		CreatedAt:        v.CreatedAt,
		UpdatedAt:        v.UpdatedAt,
	}
}
