// File: internal/middleware/auth.go
package middleware

import (
	"bookline_backend/internal/common"
	"bookline_backend/internal/shared"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthMiddleware creates a Gin middleware for JWT authentication.
func AuthMiddleware(tokenService shared.TokenService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := common.GetTokenFromContext(c)
		if tokenString == "" {
			logger.Debug("Bearer token missing or malformed")
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("A bearer token is required in the Authorization header."))
			return
		}

		claims, err := tokenService.ValidateToken(tokenString)
		if err != nil {
			logger.Warn("Token validation failed", zap.Error(err))
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails(err.Error()))
			return
		}

		c.Set(common.AccountIDKey, claims.AccountID)
		c.Set(common.AccountEmailKey, claims.Email)
		c.Set(common.AccountPlanKey, claims.Plan)

		logger.Debug("Account authenticated successfully",
			zap.String("accountID", claims.AccountID.String()),
			zap.String("email", claims.Email),
		)

		c.Next()
	}
}
