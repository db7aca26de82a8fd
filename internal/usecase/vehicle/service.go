package vehicle

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domainUser "github.com/icancar/fleet-management-sub000/internal/domain/user"
	domainVehicle "github.com/icancar/fleet-management-sub000/internal/domain/vehicle"
	"github.com/icancar/fleet-management-sub000/internal/logger"
	appErrors "github.com/icancar/fleet-management-sub000/pkg/errors"
	"github.com/icancar/fleet-management-sub000/pkg/utils"
)

// OdometerWriter overwrites odometer readings under the same per-vehicle
// lock the integrator uses for increments.
type OdometerWriter interface {
	SetOdometer(ctx context.Context, vehicleID uuid.UUID, reading float64) (bool, error)
}

// Service implements vehicle management use cases for managers and admins.
type Service struct {
	vehicleRepo domainVehicle.Repository
	userRepo    domainUser.Repository
	odometer    OdometerWriter
}

func NewService(vehicleRepo domainVehicle.Repository, userRepo domainUser.Repository, odometer OdometerWriter) *Service {
	return &Service{
		vehicleRepo: vehicleRepo,
		userRepo:    userRepo,
		odometer:    odometer,
	}
}

func (s *Service) CreateVehicle(ctx context.Context, actor domainUser.Actor, req *CreateVehicleRequest) (*VehicleResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "Invalid input", err)
	}

	companyID := req.CompanyID
	if !actor.IsAdmin() {
		companyID = actor.CompanyID
	}

	v := &domainVehicle.Vehicle{
		CompanyID:    companyID,
		Make:         utils.SanitizeString(req.Make),
		Model:        utils.SanitizeString(req.Model),
		Year:         req.Year,
		LicensePlate: normalizePlate(req.LicensePlate),
		VIN:          req.VIN,
		Status:       domainVehicle.StatusActive,
	}
	if req.Odometer != nil {
		v.Odometer = *req.Odometer
	}

	if err := s.vehicleRepo.Create(ctx, v); err != nil {
		if errors.Is(err, domainVehicle.ErrVehicleAlreadyExists) {
			return nil, appErrors.NewAppError("VEHICLE_EXISTS", err.Error(), err)
		}
		return nil, err
	}

	logger.Info("Vehicle created",
		zap.String("vehicle_id", v.ID.String()),
		zap.String("license_plate", v.LicensePlate),
		zap.String("event", "vehicle_created"),
	)

	return ToVehicleResponse(v), nil
}

func (s *Service) GetVehicle(ctx context.Context, actor domainUser.Actor, id uuid.UUID) (*VehicleResponse, error) {
	v, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return ToVehicleResponse(v), nil
}

func (s *Service) ListVehicles(ctx context.Context, actor domainUser.Actor, req *VehicleFilterRequest) (*VehicleListResponse, error) {
	if req == nil {
		req = &VehicleFilterRequest{}
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "Invalid filter", err)
	}
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 20
	}

	filter := &domainVehicle.Filter{Search: req.Search, Page: req.Page, PageSize: req.PageSize}
	if req.Status != nil {
		status := domainVehicle.Status(*req.Status)
		filter.Status = &status
	}
	if !actor.IsAdmin() {
		if actor.CompanyID == nil {
			return &VehicleListResponse{Vehicles: []VehicleResponse{}, Page: req.Page, PageSize: req.PageSize}, nil
		}
		filter.CompanyID = actor.CompanyID
	}

	vehicles, total, err := s.vehicleRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	responses := make([]VehicleResponse, len(vehicles))
	for i, v := range vehicles {
		responses[i] = *ToVehicleResponse(v)
	}

	totalPages := int(total) / req.PageSize
	if int(total)%req.PageSize > 0 {
		totalPages++
	}

	return &VehicleListResponse{
		Vehicles:   responses,
		Total:      total,
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalPages: totalPages,
	}, nil
}

func (s *Service) UpdateVehicle(ctx context.Context, actor domainUser.Actor, id uuid.UUID, req *UpdateVehicleRequest) (*VehicleResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "Invalid input", err)
	}

	v, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if req.Make != nil {
		v.Make = utils.SanitizeString(*req.Make)
	}
	if req.Model != nil {
		v.Model = utils.SanitizeString(*req.Model)
	}
	if req.Year != nil {
		v.Year = *req.Year
	}
	if req.LicensePlate != nil {
		v.LicensePlate = normalizePlate(*req.LicensePlate)
	}
	if req.VIN != nil {
		v.VIN = req.VIN
	}
	if req.Status != nil {
		status := domainVehicle.Status(*req.Status)
		if !status.IsValid() {
			return nil, appErrors.NewAppError("INVALID_STATUS", "Invalid vehicle status", domainVehicle.ErrInvalidStatus)
		}
		v.Status = status
	}

	if err := s.vehicleRepo.Update(ctx, v); err != nil {
		if errors.Is(err, domainVehicle.ErrVehicleAlreadyExists) {
			return nil, appErrors.NewAppError("VEHICLE_EXISTS", err.Error(), err)
		}
		return nil, err
	}

	return ToVehicleResponse(v), nil
}

func (s *Service) DeleteVehicle(ctx context.Context, actor domainUser.Actor, id uuid.UUID) error {
	if _, err := s.load(ctx, actor, id); err != nil {
		return err
	}
	if err := s.vehicleRepo.Delete(ctx, id); err != nil {
		return err
	}

	logger.Info("Vehicle deleted",
		zap.String("vehicle_id", id.String()),
		zap.String("event", "vehicle_deleted"),
	)
	return nil
}

// AssignDriver gives the vehicle to a driver. A driver holds at most one
// vehicle, so assigning a driver who already has another one fails.
func (s *Service) AssignDriver(ctx context.Context, actor domainUser.Actor, id uuid.UUID, req *AssignDriverRequest) (*VehicleResponse, error) {
	v, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if req.DriverID != nil {
		driver, err := s.userRepo.GetByID(ctx, *req.DriverID)
		if err != nil {
			return nil, err
		}
		if driver.Role != domainUser.RoleDriver {
			return nil, appErrors.NewAppError("INVALID_ROLE", "Vehicles can only be assigned to drivers", appErrors.ErrInvalidUserRole)
		}
		if !actor.Manages(driver) {
			return nil, appErrors.ErrInsufficientPermissions
		}

		current, err := s.vehicleRepo.GetByDriver(ctx, driver.ID)
		switch {
		case err == nil && current.ID != v.ID:
			return nil, appErrors.NewAppError("DRIVER_ASSIGNED", domainVehicle.ErrDriverAlreadyAssigned.Error(), domainVehicle.ErrDriverAlreadyAssigned)
		case err != nil && !errors.Is(err, domainVehicle.ErrVehicleNotFound):
			return nil, err
		}
	}

	if err := s.vehicleRepo.AssignDriver(ctx, id, req.DriverID); err != nil {
		if errors.Is(err, domainVehicle.ErrDriverAlreadyAssigned) {
			return nil, appErrors.NewAppError("DRIVER_ASSIGNED", err.Error(), err)
		}
		return nil, err
	}
	v.AssignedDriverID = req.DriverID

	logger.Info("Vehicle driver changed",
		zap.String("vehicle_id", v.ID.String()),
		zap.Bool("assigned", req.DriverID != nil),
		zap.String("event", "vehicle_driver_assigned"),
	)

	return ToVehicleResponse(v), nil
}

// SetOdometer overwrites the odometer of a vehicle the actor manages.
func (s *Service) SetOdometer(ctx context.Context, actor domainUser.Actor, id uuid.UUID, req *SetOdometerRequest) (*OdometerResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "Invalid input", err)
	}
	if _, err := s.load(ctx, actor, id); err != nil {
		return nil, err
	}

	ok, err := s.odometer.SetOdometer(ctx, id, *req.Reading)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domainVehicle.ErrVehicleNotFound
	}

	return &OdometerResponse{VehicleID: id, Odometer: *req.Reading}, nil
}

func (s *Service) load(ctx context.Context, actor domainUser.Actor, id uuid.UUID) (*domainVehicle.Vehicle, error) {
	v, err := s.vehicleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if actor.IsAdmin() {
		return v, nil
	}
	if actor.IsManager() && actor.CompanyID != nil && v.CompanyID != nil && *actor.CompanyID == *v.CompanyID {
		return v, nil
	}
	return nil, appErrors.ErrInsufficientPermissions
}

func normalizePlate(plate string) string {
	return strings.ToUpper(strings.Join(strings.Fields(plate), ""))
}
