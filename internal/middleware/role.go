package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/icancar/fleet-management-sub000/internal/domain/user"
	"github.com/icancar/fleet-management-sub000/pkg/utils"
)

func RoleMiddleware(allowedRoles ...user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextRole)
		if role == "" {
			utils.ErrorResponse(c, http.StatusForbidden, "Role not found in context")
			c.Abort()
			return
		}

		for _, allowedRole := range allowedRoles {
			if user.Role(role) == allowedRole {
				c.Next()
				return
			}
		}

		utils.ErrorResponse(c, http.StatusForbidden, "Insufficient permissions")
		c.Abort()
	}
}

func AdminOnly() gin.HandlerFunc {
	return RoleMiddleware(user.RoleAdmin)
}

// ManagerOrAdmin admits fleet managers and administrators.
func ManagerOrAdmin() gin.HandlerFunc {
	return RoleMiddleware(user.RoleAdmin, user.RoleManager)
}
