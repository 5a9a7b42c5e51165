package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jengahacks/backend/internal/auth"
	"github.com/jengahacks/backend/pkg/response"
)

const (
	// ContextUserRole is the key for the session role in gin context.
	ContextUserRole = "user_role"
)

// JWT returns a middleware that validates the session token and sets the
// role in context.
func JWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ContextUserRole, claims.Role)
		c.Next()
	}
}
