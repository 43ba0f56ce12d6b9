package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/huangang/llmrouter/internal/models"
	"github.com/huangang/llmrouter/internal/utils"
	"gorm.io/gorm"
)

const (
	ContextUserID   = "user_id"
	ContextUsername = "username"
	ContextRole     = "role"
	ContextCaller   = "caller"
	ContextCallerID = "caller_id" // plain uint, picked up by the request logger
)

// APIKeyRequired authenticates the /v1 surface: it resolves the X-API-Key
// header to an active caller and stores the caller in the request context.
func APIKeyRequired(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader("X-API-Key")
		if apiKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "X-API-Key header required"})
			c.Abort()
			return
		}

		var caller models.Caller
		if err := db.Where("api_key = ? AND is_active = ?", apiKey, true).First(&caller).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or inactive API key"})
			c.Abort()
			return
		}

		c.Set(ContextCaller, &caller)
		c.Set(ContextCallerID, caller.ID)
		c.Next()
	}
}

// GetCaller returns the authenticated caller from the request context.
func GetCaller(c *gin.Context) *models.Caller {
	if v, exists := c.Get(ContextCaller); exists {
		return v.(*models.Caller)
	}
	return nil
}

// AuthRequired is a middleware that checks for a valid admin JWT token
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := utils.ParseToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUsername, claims.Username)
		c.Set(ContextRole, claims.Role)

		c.Next()
	}
}

// AdminRequired is a middleware that checks for admin role
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(ContextRole)
		if !exists || role != "admin" {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetUserID gets the current admin user ID from context
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextUserID); exists {
		return id.(uint)
	}
	return 0
}

// GetUsername gets the current admin username from context
func GetUsername(c *gin.Context) string {
	if username, exists := c.Get(ContextUsername); exists {
		return username.(string)
	}
	return ""
}
