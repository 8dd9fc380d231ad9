package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	// UserIDHeader carries the authenticated user id, set by the API
	// gateway after JWT verification. This service trusts it as the
	// transfer-requesting identity.
	UserIDHeader = "X-User-Id"

	// UserIDKey is the key used to store the user id in the context
	UserIDKey = "user_id"
)

// Identity middleware requires the authenticated-user header on every
// request it guards.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(UserIDHeader)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "UNAUTHENTICATED",
					"message": "Missing authenticated user identity",
				},
			})
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// GetUserID retrieves the authenticated user id from the gin context
func GetUserID(c *gin.Context) string {
	if id, exists := c.Get(UserIDKey); exists {
		if userID, ok := id.(string); ok {
			return userID
		}
	}
	return ""
}
