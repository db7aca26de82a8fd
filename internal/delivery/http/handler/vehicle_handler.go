package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainUser "github.com/icancar/fleet-management-sub000/internal/domain/user"
	"github.com/icancar/fleet-management-sub000/internal/usecase/vehicle"
	"github.com/icancar/fleet-management-sub000/pkg/utils"
)

type VehicleService interface {
	CreateVehicle(ctx context.Context, actor domainUser.Actor, req *vehicle.CreateVehicleRequest) (*vehicle.VehicleResponse, error)
	GetVehicle(ctx context.Context, actor domainUser.Actor, id uuid.UUID) (*vehicle.VehicleResponse, error)
	ListVehicles(ctx context.Context, actor domainUser.Actor, req *vehicle.VehicleFilterRequest) (*vehicle.VehicleListResponse, error)
	UpdateVehicle(ctx context.Context, actor domainUser.Actor, id uuid.UUID, req *vehicle.UpdateVehicleRequest) (*vehicle.VehicleResponse, error)
	DeleteVehicle(ctx context.Context, actor domainUser.Actor, id uuid.UUID) error
	AssignDriver(ctx context.Context, actor domainUser.Actor, id uuid.UUID, req *vehicle.AssignDriverRequest) (*vehicle.VehicleResponse, error)
	SetOdometer(ctx context.Context, actor domainUser.Actor, id uuid.UUID, req *vehicle.SetOdometerRequest) (*vehicle.OdometerResponse, error)
}

type VehicleHandler struct {
	service VehicleService
}

func NewVehicleHandler(service VehicleService) *VehicleHandler {
	return &VehicleHandler{service: service}
}

func (h *VehicleHandler) RegisterRoutes(router *gin.RouterGroup) {
	vehicles := router.Group("/vehicles")
	{
		vehicles.GET("", h.ListVehicles)
		vehicles.GET("/:id", h.GetVehicle)
	}
}

func (h *VehicleHandler) RegisterAdminRoutes(router *gin.RouterGroup) {
	vehicles := router.Group("/vehicles")
	{
		vehicles.POST("", h.CreateVehicle)
		vehicles.PUT("/:id", h.UpdateVehicle)
		vehicles.DELETE("/:id", h.DeleteVehicle)
		vehicles.PUT("/:id/driver", h.AssignDriver)
		vehicles.PUT("/:id/odometer", h.SetOdometer)
	}
}

func (h *VehicleHandler) CreateVehicle(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req vehicle.CreateVehicleRequest
	if !bindJSON(c, &req) {
		return
	}
	req.Make = utils.SanitizeString(req.Make)
	req.Model = utils.SanitizeString(req.Model)

	v, err := h.service.CreateVehicle(c.Request.Context(), actor, &req)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Vehicle created successfully", v)
}

func (h *VehicleHandler) GetVehicle(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "vehicle ID")
	if !ok {
		return
	}

	v, err := h.service.GetVehicle(c.Request.Context(), actor, id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Vehicle retrieved successfully", v)
}

func (h *VehicleHandler) ListVehicles(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req vehicle.VehicleFilterRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid query parameters")
		return
	}

	vehicles, err := h.service.ListVehicles(c.Request.Context(), actor, &req)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Vehicles retrieved successfully", vehicles)
}

func (h *VehicleHandler) UpdateVehicle(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "vehicle ID")
	if !ok {
		return
	}

	var req vehicle.UpdateVehicleRequest
	if !bindJSON(c, &req) {
		return
	}

	v, err := h.service.UpdateVehicle(c.Request.Context(), actor, id, &req)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Vehicle updated successfully", v)
}

func (h *VehicleHandler) DeleteVehicle(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "vehicle ID")
	if !ok {
		return
	}

	if err := h.service.DeleteVehicle(c.Request.Context(), actor, id); err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Vehicle deleted successfully", nil)
}

// AssignDriver sets the vehicle's driver; a null driver_id unassigns it.
func (h *VehicleHandler) AssignDriver(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "vehicle ID")
	if !ok {
		return
	}

	var req vehicle.AssignDriverRequest
	if !bindJSON(c, &req) {
		return
	}

	v, err := h.service.AssignDriver(c.Request.Context(), actor, id, &req)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Vehicle driver updated", v)
}

// SetOdometer overwrites the reading, e.g. after a manual dashboard check.
func (h *VehicleHandler) SetOdometer(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "vehicle ID")
	if !ok {
		return
	}

	var req vehicle.SetOdometerRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.service.SetOdometer(c.Request.Context(), actor, id, &req)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Odometer updated successfully", resp)
}
