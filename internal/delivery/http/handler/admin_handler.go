package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/icancar/fleet-management-sub000/internal/ingestion"
	"github.com/icancar/fleet-management-sub000/pkg/utils"
)

// MetricsSource reports the MQTT ingestion pipeline counters.
type MetricsSource interface {
	GetMetrics() ingestion.IngestMetrics
}

// Pinger checks a backing store is reachable.
type Pinger func(ctx context.Context) error

type AdminHandler struct {
	metrics MetricsSource
	checks  map[string]Pinger
}

// NewAdminHandler takes a nil metrics source when MQTT ingestion is off.
func NewAdminHandler(metrics MetricsSource, checks map[string]Pinger) *AdminHandler {
	return &AdminHandler{metrics: metrics, checks: checks}
}

func (h *AdminHandler) RegisterHealthRoutes(router gin.IRouter) {
	router.GET("/health", h.Health)
}

func (h *AdminHandler) RegisterAdminRoutes(router *gin.RouterGroup) {
	router.GET("/ingestion/metrics", h.IngestionMetrics)
}

func (h *AdminHandler) IngestionMetrics(c *gin.Context) {
	if h.metrics == nil {
		utils.ErrorResponse(c, http.StatusNotFound, "MQTT ingestion is disabled")
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Ingestion metrics retrieved successfully", h.metrics.GetMetrics())
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
	Time   time.Time         `json:"time"`
}

func (h *AdminHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(h.checks)), Time: time.Now().UTC()}
	status := http.StatusOK
	for name, ping := range h.checks {
		if err := ping(ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	c.JSON(status, resp)
}
