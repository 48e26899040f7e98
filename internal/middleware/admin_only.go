// admin_only.go
package middleware

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
)

// RequirePermission corre después de AuthMiddleware.
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !slices.Contains(c.GetStringSlice(UserPermissionsKey), permission) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "permiso requerido: " + permission})
			return
		}
		c.Next()
	}
}

func AdminOnly() gin.HandlerFunc {
	return RequirePermission("admin")
}
