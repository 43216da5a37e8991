// File: internal/account/handler.go
package account

import (
	"bookline_backend/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for account handlers.
type Handler struct {
	repo   Repository
	logger *zap.Logger
}

// NewHandler creates a new account handler.
func NewHandler(repo Repository, logger *zap.Logger) *Handler {
	return &Handler{
		repo:   repo,
		logger: logger,
	}
}

// RegisterRoutes sets up the routes for account operations.
// It takes the auth middleware function as a parameter.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc) {
	accountGroup := router.Group("/accounts")
	accountGroup.Use(authMW)
	{
		accountGroup.GET("/me", h.getMe)
	}
}

func (h *Handler) getMe(c *gin.Context) {
	accountID := common.GetAccountIDFromContext(c)
	if accountID == uuid.Nil {
		h.logger.Error("Account ID not found in context for /me", zap.String("path", c.Request.URL.Path))
		common.RespondWithError(c, common.ErrInternalServer.WithDetails("Account identifier missing."))
		return
	}
	acct, err := h.repo.FindByID(c.Request.Context(), accountID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Account retrieved successfully.", ToAccountResponse(acct))
}
