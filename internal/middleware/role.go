package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/jengahacks/backend/pkg/response"
)

// RequireRole returns a middleware that gates a route group to the given
// roles. Dashboard routes require the admin role from the login endpoint.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleVal, ok := c.Get(ContextUserRole)
		if !ok {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		role, _ := roleVal.(string)
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		response.Forbidden(c, "insufficient permissions")
		c.Abort()
	}
}
