package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainDevice "github.com/icancar/fleet-management-sub000/internal/domain/device"
	domainUser "github.com/icancar/fleet-management-sub000/internal/domain/user"
	"github.com/icancar/fleet-management-sub000/internal/usecase/device"
	"github.com/icancar/fleet-management-sub000/pkg/utils"
)

type DeviceService interface {
	RegisterDevice(ctx context.Context, actor domainUser.Actor, req *device.RegisterDeviceRequest) (*device.DeviceResponse, error)
	GetDevice(ctx context.Context, actor domainUser.Actor, id uuid.UUID) (*device.DeviceResponse, error)
	ListDevices(ctx context.Context, actor domainUser.Actor, filter *device.DeviceFilterRequest) (*device.DeviceListResponse, error)
	AssignUser(ctx context.Context, actor domainUser.Actor, id uuid.UUID, req *device.AssignUserRequest) (*device.DeviceResponse, error)
	Deactivate(ctx context.Context, actor domainUser.Actor, id uuid.UUID) error
	GetStatistics(ctx context.Context, actor domainUser.Actor) (*domainDevice.Statistics, error)
}

type DeviceHandler struct {
	service DeviceService
}

func NewDeviceHandler(service DeviceService) *DeviceHandler {
	return &DeviceHandler{service: service}
}

func (h *DeviceHandler) RegisterRoutes(router *gin.RouterGroup) {
	devices := router.Group("/devices")
	{
		devices.GET("", h.ListDevices)
		devices.GET("/statistics", h.GetStatistics)
		devices.GET("/:id", h.GetDevice)
	}
}

func (h *DeviceHandler) RegisterAdminRoutes(router *gin.RouterGroup) {
	devices := router.Group("/devices")
	{
		devices.POST("", h.RegisterDevice)
		devices.PUT("/:id/user", h.AssignUser)
		devices.DELETE("/:id", h.Deactivate)
	}
}

func (h *DeviceHandler) RegisterDevice(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req device.RegisterDeviceRequest
	if !bindJSON(c, &req) {
		return
	}

	d, err := h.service.RegisterDevice(c.Request.Context(), actor, &req)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Device registered successfully", d)
}

func (h *DeviceHandler) GetDevice(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "device ID")
	if !ok {
		return
	}

	d, err := h.service.GetDevice(c.Request.Context(), actor, id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Device retrieved successfully", d)
}

func (h *DeviceHandler) ListDevices(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var filter device.DeviceFilterRequest
	if err := c.ShouldBindQuery(&filter); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid query parameters")
		return
	}
	if raw := c.Query("user_id"); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid user ID")
			return
		}
		filter.UserID = &userID
	}

	devices, err := h.service.ListDevices(c.Request.Context(), actor, &filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Devices retrieved successfully", devices)
}

// AssignUser binds the device to a driver, or unbinds it when user_id is null.
func (h *DeviceHandler) AssignUser(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "device ID")
	if !ok {
		return
	}

	var req device.AssignUserRequest
	if !bindJSON(c, &req) {
		return
	}

	d, err := h.service.AssignUser(c.Request.Context(), actor, id, &req)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Device assignment updated", d)
}

func (h *DeviceHandler) Deactivate(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "device ID")
	if !ok {
		return
	}

	if err := h.service.Deactivate(c.Request.Context(), actor, id); err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Device deactivated successfully", nil)
}

func (h *DeviceHandler) GetStatistics(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	stats, err := h.service.GetStatistics(c.Request.Context(), actor)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Device statistics retrieved successfully", stats)
}
