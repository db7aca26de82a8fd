package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainUser "github.com/icancar/fleet-management-sub000/internal/domain/user"
	"github.com/icancar/fleet-management-sub000/internal/route"
	"github.com/icancar/fleet-management-sub000/internal/usecase/tracking"
	"github.com/icancar/fleet-management-sub000/pkg/utils"
)

type TrackingService interface {
	Ingest(ctx context.Context, req *tracking.IngestRequest) (*tracking.Ack, error)
	IngestBatch(ctx context.Context, req *tracking.BatchIngestRequest) (*tracking.BatchIngestResponse, error)
	GetDriverRoutesForDate(ctx context.Context, actor domainUser.Actor, userID uuid.UUID, date string) ([]route.DailyRoute, error)
	GetDeviceDailyRoutes(ctx context.Context, actor domainUser.Actor, deviceID, date string) ([]route.DailyRoute, error)
	ListDriverRouteDays(ctx context.Context, actor domainUser.Actor, userID uuid.UUID, fromDate, toDate string) ([]route.DaySummary, error)
}

type OdometerReader interface {
	GetOdometerForUser(ctx context.Context, userID uuid.UUID) (*float64, error)
}

// OdometerReading is nil when the driver has no vehicle.
type OdometerReading struct {
	UserID   uuid.UUID `json:"user_id"`
	Odometer *float64  `json:"odometer"`
}

type TrackingHandler struct {
	service  TrackingService
	odometer OdometerReader
	users    domainUser.Repository
	now      func() time.Time
}

func NewTrackingHandler(service TrackingService, odometer OdometerReader, users domainUser.Repository) *TrackingHandler {
	return &TrackingHandler{
		service:  service,
		odometer: odometer,
		users:    users,
		now:      time.Now,
	}
}

func (h *TrackingHandler) RegisterRoutes(router *gin.RouterGroup) {
	t := router.Group("/tracking")
	{
		t.POST("/locations", h.IngestLocation)
		t.POST("/locations/batch", h.IngestBatch)

		t.GET("/routes/me", h.GetMyRoutes)
		t.GET("/routes/driver/:user_id", h.GetDriverRoutes)
		t.GET("/routes/driver/:user_id/days", h.ListDriverRouteDays)

		t.GET("/odometer/me", h.GetMyOdometer)
		t.GET("/odometer/user/:user_id", h.GetOdometerForUser)
	}
}

// RegisterFleetRoutes mounts the per-device views used by fleet tooling.
func (h *TrackingHandler) RegisterFleetRoutes(router *gin.RouterGroup) {
	router.GET("/tracking/routes/device/:device_id", h.GetDeviceRoutes)
}

// IngestLocation stores one fix. A driver always reports as themselves.
func (h *TrackingHandler) IngestLocation(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req tracking.IngestRequest
	if !bindJSON(c, &req) {
		return
	}
	attributeTo(actor, &req)

	ack, err := h.service.Ingest(c.Request.Context(), &req)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Location stored", ack)
}

// IngestBatch stores fixes buffered by an offline device. Items are reported
// individually so one bad fix does not reject the rest.
func (h *TrackingHandler) IngestBatch(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req tracking.BatchIngestRequest
	if !bindJSON(c, &req) {
		return
	}
	for i := range req.Fixes {
		attributeTo(actor, &req.Fixes[i])
	}

	resp, err := h.service.IngestBatch(c.Request.Context(), &req)
	if err != nil {
		respondWithError(c, err)
		return
	}

	status := http.StatusCreated
	if resp.Accepted == 0 {
		status = http.StatusUnprocessableEntity
	}
	utils.SuccessResponse(c, status, "Batch processed", resp)
}

func (h *TrackingHandler) GetMyRoutes(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	h.driverRoutes(c, actor, actor.UserID)
}

func (h *TrackingHandler) GetDriverRoutes(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	userID, ok := uuidParam(c, "user_id", "user ID")
	if !ok {
		return
	}
	h.driverRoutes(c, actor, userID)
}

func (h *TrackingHandler) driverRoutes(c *gin.Context, actor domainUser.Actor, userID uuid.UUID) {
	routes, err := h.service.GetDriverRoutesForDate(c.Request.Context(), actor, userID, h.dateQuery(c))
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Routes retrieved successfully", routes)
}

// ListDriverRouteDays defaults to the last seven days ending today.
func (h *TrackingHandler) ListDriverRouteDays(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	userID, ok := uuidParam(c, "user_id", "user ID")
	if !ok {
		return
	}

	today := h.now().UTC()
	from := c.DefaultQuery("from", route.DayKey(today.AddDate(0, 0, -6)))
	to := c.DefaultQuery("to", route.DayKey(today))

	days, err := h.service.ListDriverRouteDays(c.Request.Context(), actor, userID, from, to)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Route days retrieved successfully", days)
}

// GetDeviceRoutes returns every day of the device when no date is given.
func (h *TrackingHandler) GetDeviceRoutes(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	deviceID := utils.SanitizeIdentifier(c.Param("device_id"))
	if deviceID == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid device ID")
		return
	}

	routes, err := h.service.GetDeviceDailyRoutes(c.Request.Context(), actor, deviceID, c.Query("date"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Routes retrieved successfully", routes)
}

func (h *TrackingHandler) GetMyOdometer(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	h.odometerFor(c, actor.UserID)
}

func (h *TrackingHandler) GetOdometerForUser(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	userID, ok := uuidParam(c, "user_id", "user ID")
	if !ok {
		return
	}
	if err := domainUser.Authorize(c.Request.Context(), h.users, actor, userID); err != nil {
		respondWithError(c, err)
		return
	}
	h.odometerFor(c, userID)
}

func (h *TrackingHandler) odometerFor(c *gin.Context, userID uuid.UUID) {
	reading, err := h.odometer.GetOdometerForUser(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Odometer retrieved successfully", OdometerReading{
		UserID:   userID,
		Odometer: reading,
	})
}

// dateQuery reads ?date= and falls back to the current UTC day.
func (h *TrackingHandler) dateQuery(c *gin.Context) string {
	if date := c.Query("date"); date != "" {
		return date
	}
	return route.DayKey(h.now())
}

func attributeTo(actor domainUser.Actor, req *tracking.IngestRequest) {
	if actor.IsAdmin() || actor.IsManager() {
		return
	}
	userID := actor.UserID
	req.UserID = &userID
}
