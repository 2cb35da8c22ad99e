package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	// ActorIDHeader carries the authenticated user id set by the upstream gateway
	ActorIDHeader = "X-User-ID"

	// ActorRoleHeader optionally marks operator requests
	ActorRoleHeader = "X-User-Role"

	// ActorIDKey and ActorRoleKey store the caller in the gin context
	ActorIDKey   = "actor_id"
	ActorRoleKey = "actor_role"

	// RoleAdmin may apply manual point adjustments and act for any collaborator
	RoleAdmin = "admin"

	// RolePaymentService marks the payment collaborator reporting payment outcomes
	RolePaymentService = "payment_service"
)

// Actor rejects requests without a positive numeric X-User-ID
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID, err := strconv.ParseInt(c.GetHeader(ActorIDHeader), 10, 64)
		if err != nil || actorID <= 0 {
			response := gin.H{
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Missing or invalid " + ActorIDHeader + " header",
				},
			}
			if correlationID := GetCorrelationID(c); correlationID != "" {
				response["correlation_id"] = correlationID
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, response)
			return
		}

		c.Set(ActorIDKey, actorID)
		c.Set(ActorRoleKey, c.GetHeader(ActorRoleHeader))
		c.Next()
	}
}

// GetActorID returns the caller id stored by Actor, or 0 outside of it
func GetActorID(c *gin.Context) int64 {
	return c.GetInt64(ActorIDKey)
}

// IsAdmin reports whether the caller presented the admin role
func IsAdmin(c *gin.Context) bool {
	return c.GetString(ActorRoleKey) == RoleAdmin
}

// IsPaymentService reports whether the caller may record payment outcomes
func IsPaymentService(c *gin.Context) bool {
	role := c.GetString(ActorRoleKey)
	return role == RolePaymentService || role == RoleAdmin
}
