package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	UserContextKey = "userID"
	RoleContextKey = "role"
)

// AuthMiddleware reads identity headers injected by the upstream API
// gateway. Authentication itself happens there; this service only
// trusts and propagates the result.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		role := c.GetHeader("X-User-Role")

		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		c.Set(UserContextKey, userID)
		c.Set(RoleContextKey, role)
		c.Next()
	}
}

// OptionalAuth populates identity when present but lets guests through.
// Checkout and coupon validation accept guest traffic.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID := c.GetHeader("X-User-ID"); userID != "" {
			c.Set(UserContextKey, userID)
			c.Set(RoleContextKey, c.GetHeader("X-User-Role"))
		}
		c.Next()
	}
}

// AdminOnly restricts access to admin role.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(RoleContextKey)
		if !exists || role != "admin" {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin role required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetUserID extracts the user ID from the Gin context; empty for
// guests.
func GetUserID(c *gin.Context) string {
	if val, exists := c.Get(UserContextKey); exists {
		if id, ok := val.(string); ok {
			return id
		}
	}
	return ""
}

// GetUserUUID parses the context user ID as a UUID; nil for guests or
// non-UUID gateway identities.
func GetUserUUID(c *gin.Context) *uuid.UUID {
	id := GetUserID(c)
	if id == "" {
		return nil
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil
	}
	return &parsed
}
