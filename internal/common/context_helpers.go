// File: internal/common/context_helpers.go
package common

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GetTokenFromContext retrieves the JWT token string from the Authorization header.
// Returns an empty string if not found.
func GetTokenFromContext(c *gin.Context) string {
	authHeader := c.GetHeader(AuthorizationHeader)
	if authHeader == "" {
		return ""
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], AuthorizationTypeBearer) {
		return ""
	}
	return parts[1]
}

// GetAccountIDFromContext retrieves the account ID from the Gin context.
// Returns uuid.Nil if not found or not a UUID.
func GetAccountIDFromContext(c *gin.Context) uuid.UUID {
	val, exists := c.Get(AccountIDKey)
	if !exists {
		return uuid.Nil
	}
	accountID, ok := val.(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return accountID
}

// GetAccountEmailFromContext retrieves the account email from the Gin context.
func GetAccountEmailFromContext(c *gin.Context) string {
	val, exists := c.Get(AccountEmailKey)
	if !exists {
		return ""
	}
	email, ok := val.(string)
	if !ok {
		return ""
	}
	return email
}
