package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/icancar/fleet-management-sub000/internal/config"
	"github.com/icancar/fleet-management-sub000/internal/domain/user"
	"github.com/icancar/fleet-management-sub000/pkg/utils"
)

const (
	ContextUserID    = "userID"
	ContextEmail     = "email"
	ContextRole      = "role"
	ContextCompanyID = "companyID"

	// TokenQueryParam carries the access token for clients that cannot set
	// headers, such as the browser EventSource and WebSocket APIs.
	TokenQueryParam = "token"
)

func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return authenticate(cfg, true)
}

// OptionalAuthMiddleware identifies the caller when a token is present and
// lets anonymous requests through. A present but invalid token is rejected.
func OptionalAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return authenticate(cfg, false)
}

func authenticate(cfg *config.Config, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			if !required && c.GetHeader("Authorization") == "" {
				c.Next()
				return
			}
			utils.ErrorResponse(c, http.StatusUnauthorized, "Authorization header required")
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(token, cfg.JWT.Secret)
		if err != nil || claims.TokenType != utils.TokenTypeAccess {
			utils.ErrorResponse(c, http.StatusUnauthorized, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextEmail, claims.Email)
		c.Set(ContextRole, claims.Role)
		if claims.CompanyID != nil {
			c.Set(ContextCompanyID, *claims.CompanyID)
		}

		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		token := c.Query(TokenQueryParam)
		return token, token != ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// GetActor returns the authenticated caller set by AuthMiddleware.
func GetActor(c *gin.Context) (user.Actor, bool) {
	rawID, exists := c.Get(ContextUserID)
	if !exists {
		return user.Actor{}, false
	}
	userID, ok := rawID.(uuid.UUID)
	if !ok {
		return user.Actor{}, false
	}

	actor := user.Actor{
		UserID: userID,
		Role:   user.Role(c.GetString(ContextRole)),
	}
	if rawCompany, exists := c.Get(ContextCompanyID); exists {
		if companyID, ok := rawCompany.(uuid.UUID); ok {
			actor.CompanyID = &companyID
		}
	}
	return actor, true
}
