package routes

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/icancar/fleet-management-sub000/internal/config"
	"github.com/icancar/fleet-management-sub000/internal/delivery/http/handler"
	"github.com/icancar/fleet-management-sub000/internal/logger"
	"github.com/icancar/fleet-management-sub000/internal/middleware"
)

// Handlers groups every HTTP handler mounted by SetupRoutes.
type Handlers struct {
	User     *handler.UserHandler
	Device   *handler.DeviceHandler
	Vehicle  *handler.VehicleHandler
	Tracking *handler.TrackingHandler
	Live     *handler.LiveHandler
	Admin    *handler.AdminHandler
}

// SetupRoutes builds the engine. ctx bounds the rate limiter's background
// eviction.
func SetupRoutes(ctx context.Context, cfg *config.Config, h Handlers) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	limiter := middleware.NewRateLimiter(ctx, cfg.RateLimit.GeneralRPS, cfg.RateLimit.GeneralBurst)

	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware("/health"))
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.CORSMiddleware(&cfg.CORS))
	router.Use(middleware.RequestSizeLimitMiddleware(middleware.DefaultMaxRequestSize))

	h.Admin.RegisterHealthRoutes(router)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.RateLimitMiddleware(limiter, middleware.ByClientIP))
	{
		h.User.RegisterRoutes(v1, middleware.OptionalAuthMiddleware(cfg))

		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(cfg))
		{
			h.User.RegisterProfileRoutes(protected)
			h.Tracking.RegisterRoutes(protected)
			h.Live.RegisterRoutes(protected)

			fleet := protected.Group("")
			fleet.Use(middleware.ManagerOrAdmin())
			{
				h.User.RegisterFleetRoutes(fleet)
				h.Device.RegisterRoutes(fleet)
				h.Vehicle.RegisterRoutes(fleet)
				h.Tracking.RegisterFleetRoutes(fleet)
			}

			admin := protected.Group("/admin")
			admin.Use(middleware.ManagerOrAdmin())
			{
				h.Device.RegisterAdminRoutes(admin)
				h.Vehicle.RegisterAdminRoutes(admin)
			}

			root := protected.Group("/admin")
			root.Use(middleware.AdminOnly())
			{
				h.User.RegisterAdminRoutes(root)
				h.Admin.RegisterAdminRoutes(root)
			}
		}
	}

	logger.Info("All routes initialized")
	return router
}
