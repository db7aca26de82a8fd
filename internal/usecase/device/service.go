package device

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domainDevice "github.com/icancar/fleet-management-sub000/internal/domain/device"
	domainUser "github.com/icancar/fleet-management-sub000/internal/domain/user"
	"github.com/icancar/fleet-management-sub000/internal/logger"
	appErrors "github.com/icancar/fleet-management-sub000/pkg/errors"
	"github.com/icancar/fleet-management-sub000/pkg/utils"
)

// Service implements device registry use cases.
type Service struct {
	deviceRepo domainDevice.Repository
	userRepo   domainUser.Repository
}

func NewService(deviceRepo domainDevice.Repository, userRepo domainUser.Repository) *Service {
	return &Service{
		deviceRepo: deviceRepo,
		userRepo:   userRepo,
	}
}

// RegisterDevice pre-registers a device before it first reports.
func (s *Service) RegisterDevice(ctx context.Context, actor domainUser.Actor, req *RegisterDeviceRequest) (*DeviceResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "Invalid input", err)
	}

	companyID := req.CompanyID
	if !actor.IsAdmin() {
		companyID = actor.CompanyID
	}

	if req.UserID != nil {
		if _, err := ValidateAssignee(ctx, s.userRepo, actor, *req.UserID); err != nil {
			return nil, err
		}
	}

	d := &domainDevice.Device{
		DeviceID:   utils.SanitizeIdentifier(req.DeviceID),
		UserID:     req.UserID,
		CompanyID:  companyID,
		Platform:   req.Platform,
		AppVersion: req.AppVersion,
		IsActive:   true,
	}
	if err := s.deviceRepo.Create(ctx, d); err != nil {
		if errors.Is(err, domainDevice.ErrDeviceAlreadyExists) {
			return nil, appErrors.NewAppError("DEVICE_EXISTS", "Device with this id already exists", err)
		}
		return nil, err
	}

	logger.Info("Device registered",
		zap.String("device_id", d.DeviceID),
		zap.String("actor_id", actor.UserID.String()),
		zap.String("event", "device_registered"),
	)

	return ToDeviceResponse(d), nil
}

func (s *Service) GetDevice(ctx context.Context, actor domainUser.Actor, id uuid.UUID) (*DeviceResponse, error) {
	d, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return ToDeviceResponse(d), nil
}

// ListDevices lists devices. Managers only see their company's devices.
func (s *Service) ListDevices(ctx context.Context, actor domainUser.Actor, filter *DeviceFilterRequest) (*DeviceListResponse, error) {
	if filter == nil {
		filter = &DeviceFilterRequest{}
	}
	if err := utils.ValidateStruct(filter); err != nil {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "Invalid filter", err)
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	domainFilter := ToDomainFilter(filter)
	if !actor.IsAdmin() {
		if actor.CompanyID == nil {
			return &DeviceListResponse{Devices: []DeviceResponse{}, Page: filter.Page, PageSize: filter.PageSize}, nil
		}
		domainFilter.CompanyID = actor.CompanyID
	}

	devices, total, err := s.deviceRepo.List(ctx, domainFilter)
	if err != nil {
		return nil, err
	}

	responses := make([]DeviceResponse, len(devices))
	for i, d := range devices {
		responses[i] = *ToDeviceResponse(d)
	}

	totalPages := int(total) / filter.PageSize
	if int(total)%filter.PageSize > 0 {
		totalPages++
	}

	return &DeviceListResponse{
		Devices:    responses,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: totalPages,
	}, nil
}

func (s *Service) AssignUser(ctx context.Context, actor domainUser.Actor, id uuid.UUID, req *AssignUserRequest) (*DeviceResponse, error) {
	d, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !d.IsActive {
		return nil, appErrors.NewAppError("DEVICE_INACTIVE", "Device is deactivated", domainDevice.ErrDeviceInactive)
	}

	if req.UserID != nil {
		if _, err := ValidateAssignee(ctx, s.userRepo, actor, *req.UserID); err != nil {
			return nil, err
		}
	}

	if err := s.deviceRepo.AssignUser(ctx, id, req.UserID); err != nil {
		return nil, err
	}
	d.UserID = req.UserID

	fields := []zap.Field{
		zap.String("device_id", d.DeviceID),
		zap.String("actor_id", actor.UserID.String()),
		zap.String("event", "device_assigned"),
	}
	if req.UserID != nil {
		fields = append(fields, zap.String("user_id", req.UserID.String()))
	}
	logger.Info("Device assignment changed", fields...)

	return ToDeviceResponse(d), nil
}

func (s *Service) Deactivate(ctx context.Context, actor domainUser.Actor, id uuid.UUID) error {
	d, err := s.load(ctx, actor, id)
	if err != nil {
		return err
	}

	if err := s.deviceRepo.Deactivate(ctx, id); err != nil {
		return err
	}

	logger.Info("Device deactivated",
		zap.String("device_id", d.DeviceID),
		zap.String("actor_id", actor.UserID.String()),
		zap.String("event", "device_deactivated"),
	)
	return nil
}

// GetStatistics aggregates over every device for admins and over the
// company's devices for managers.
func (s *Service) GetStatistics(ctx context.Context, actor domainUser.Actor) (*domainDevice.Statistics, error) {
	switch {
	case actor.IsAdmin():
		return s.deviceRepo.GetStatistics(ctx, nil)
	case actor.IsManager() && actor.CompanyID != nil:
		return s.deviceRepo.GetStatistics(ctx, actor.CompanyID)
	}
	return nil, appErrors.ErrInsufficientPermissions
}

func (s *Service) load(ctx context.Context, actor domainUser.Actor, id uuid.UUID) (*domainDevice.Device, error) {
	d, err := s.deviceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canAccess(actor, d) {
		return nil, appErrors.ErrInsufficientPermissions
	}
	return d, nil
}
