package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Context keys set by the middleware.
const (
	ContextUserID = "authUserID"
	ContextRole   = "authRole"
)

// Middleware validates the Authorization header and stores the caller's
// identity on the gin context. Requests without a valid token are rejected.
func (v *Verifier) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Authorization header required",
			})
			return
		}

		tokenString := strings.TrimPrefix(header, "Bearer ")
		if tokenString == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Authorization header must use the Bearer scheme",
			})
			return
		}

		ident, err := v.VerifyToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Invalid or expired token",
			})
			return
		}

		c.Set(ContextUserID, ident.UserID)
		c.Set(ContextRole, string(ident.Role))
		c.Next()
	}
}

// RequireSupervisor rejects callers whose role cannot supervise trades.
// Must run after Middleware.
func RequireSupervisor() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CallerRole(c).CanSupervise() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "unauthorized",
				"message": "Supervising member role required",
			})
			return
		}
		c.Next()
	}
}

// RequireAdmin rejects callers whose role cannot moderate listings.
// Must run after Middleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CallerRole(c).CanModerate() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "unauthorized",
				"message": "Admin role required",
			})
			return
		}
		c.Next()
	}
}

// CallerID returns the authenticated user ID from the gin context.
func CallerID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

// CallerRole returns the authenticated role from the gin context.
func CallerRole(c *gin.Context) Role {
	return Role(c.GetString(ContextRole))
}
