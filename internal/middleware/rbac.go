package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/learnpath-api/internal/models"
	appErrors "github.com/noah-isme/learnpath-api/pkg/errors"
	"github.com/noah-isme/learnpath-api/pkg/response"
)

// RBAC enforces role-based access control for routes.
func RBAC(allowed ...models.UserRole) gin.HandlerFunc {
	allowedRoles := make(map[models.UserRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowedRoles[role] = struct{}{}
	}
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowedRoles[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireStaff admits admins and instructors.
func RequireStaff() gin.HandlerFunc {
	return RBAC(models.RoleAdmin, models.RoleInstructor)
}

// RequireAdmin admits admins only.
func RequireAdmin() gin.HandlerFunc {
	return RBAC(models.RoleAdmin)
}
