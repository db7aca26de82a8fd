package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/icancar/fleet-management-sub000/internal/domain/device"
	"github.com/icancar/fleet-management-sub000/internal/domain/location"
	domainUser "github.com/icancar/fleet-management-sub000/internal/domain/user"
	"github.com/icancar/fleet-management-sub000/internal/domain/vehicle"
	"github.com/icancar/fleet-management-sub000/internal/logger"
	"github.com/icancar/fleet-management-sub000/internal/middleware"
	appErrors "github.com/icancar/fleet-management-sub000/pkg/errors"
	"github.com/icancar/fleet-management-sub000/pkg/utils"
)

func respondWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, appErrors.ErrUserAlreadyExists),
		errors.Is(err, device.ErrDeviceAlreadyExists),
		errors.Is(err, vehicle.ErrVehicleAlreadyExists),
		errors.Is(err, vehicle.ErrDriverAlreadyAssigned),
		errors.Is(err, location.ErrFixAlreadyExists):
		utils.ErrorResponse(c, http.StatusConflict, message(err))
	case errors.Is(err, appErrors.ErrInvalidCredentials),
		errors.Is(err, appErrors.ErrInvalidToken),
		errors.Is(err, domainUser.ErrTokenInvalid),
		errors.Is(err, domainUser.ErrTokenExpired),
		errors.Is(err, appErrors.ErrUnauthorized):
		utils.ErrorResponse(c, http.StatusUnauthorized, message(err))
	case errors.Is(err, appErrors.ErrUserInactive),
		errors.Is(err, appErrors.ErrInsufficientPermissions):
		utils.ErrorResponse(c, http.StatusForbidden, message(err))
	case errors.Is(err, appErrors.ErrUserNotFound),
		errors.Is(err, domainUser.ErrUserNotFound),
		errors.Is(err, device.ErrDeviceNotFound),
		errors.Is(err, vehicle.ErrVehicleNotFound):
		utils.ErrorResponse(c, http.StatusNotFound, message(err))
	case errors.Is(err, device.ErrDeviceInactive):
		utils.ErrorResponse(c, http.StatusConflict, message(err))
	default:
		var appErr *appErrors.AppError
		if errors.As(err, &appErr) {
			if details := utils.FieldErrors(appErr.Err); details != nil {
				utils.ValidationErrorResponse(c, http.StatusBadRequest, appErr.Message, details)
				return
			}
			utils.ErrorResponse(c, http.StatusBadRequest, appErr.Message)
			return
		}

		logger.Error("Internal server error",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
			zap.Error(err),
		)
		utils.ErrorResponse(c, http.StatusInternalServerError, "Internal server error")
	}
}

// message prefers the outermost AppError message so wrapped sentinels keep
// the wording the service chose.
func message(err error) string {
	var appErr *appErrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// actorFrom aborts with 401 when the request carries no authenticated user.
func actorFrom(c *gin.Context) (domainUser.Actor, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return domainUser.Actor{}, false
	}
	return actor, true
}
