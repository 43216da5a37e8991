// File: internal/registration/handler.go
package registration

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bookline_backend/internal/account"
	"bookline_backend/internal/common"
	"bookline_backend/internal/config"
	"bookline_backend/internal/identity"
	"bookline_backend/internal/payment"
	"bookline_backend/internal/plan"
	"bookline_backend/internal/shared"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Handler wires the OAuth registration flow and the payment webhook into the
// HTTP surface.
type Handler struct {
	resolver     identity.Resolver
	evaluator    *IntentEvaluator
	orchestrator *CheckoutOrchestrator
	processor    *WebhookProcessor
	provisioner  AccountProvisioner
	gateway      payment.Gateway
	catalog      *plan.Catalog
	accounts     account.Repository
	tokenService shared.TokenService
	cfg          *config.Config
	logger       *zap.Logger
}

// NewHandler creates a new registration handler.
func NewHandler(
	resolver identity.Resolver,
	evaluator *IntentEvaluator,
	orchestrator *CheckoutOrchestrator,
	processor *WebhookProcessor,
	provisioner AccountProvisioner,
	gateway payment.Gateway,
	catalog *plan.Catalog,
	accounts account.Repository,
	tokenService shared.TokenService,
	cfg *config.Config,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		resolver:     resolver,
		evaluator:    evaluator,
		orchestrator: orchestrator,
		processor:    processor,
		provisioner:  provisioner,
		gateway:      gateway,
		catalog:      catalog,
		accounts:     accounts,
		tokenService: tokenService,
		cfg:          cfg,
		logger:       logger,
	}
}

// RegisterRoutes sets up the auth and webhook routes.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	authGroup := router.Group("/auth/google")
	{
		authGroup.GET("/start", h.start)
		authGroup.GET("/callback", h.callback)
	}
	router.POST("/webhooks/payment", h.paymentWebhook)
}

// oauthIntent is the flow context carried through the OAuth round trip in a
// short-lived cookie.
type oauthIntent struct {
	Flow             Flow   `json:"flow"`
	PlanCode         string `json:"plan,omitempty"`
	ConsentTerms     bool   `json:"consent_terms,omitempty"`
	ConsentMarketing bool   `json:"consent_marketing,omitempty"`
}

// startRequest carries the query parameters of the start endpoint.
type startRequest struct {
	Flow             string `form:"flow,default=login" binding:"oneof=login register"`
	PlanCode         string `form:"plan"`
	ConsentTerms     bool   `form:"consent_terms"`
	ConsentMarketing bool   `form:"consent_marketing"`
}

func (h *Handler) start(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			common.RespondWithError(c, common.NewValidationAPIError(common.FormatValidationErrors(validationErrs)))
			return
		}
		common.RespondWithError(c, common.ErrBadRequest.WithDetails(err.Error()))
		return
	}
	if req.PlanCode == "" {
		req.PlanCode = plan.CodeFree
	}

	intent := oauthIntent{
		Flow:             Flow(req.Flow),
		PlanCode:         req.PlanCode,
		ConsentTerms:     req.ConsentTerms,
		ConsentMarketing: req.ConsentMarketing,
	}
	if intent.Flow == FlowRegister {
		// Fail fast on an unknown or unsellable plan before the round trip.
		if _, err := h.catalog.Resolve(intent.PlanCode); err != nil {
			common.RespondWithError(c, err)
			return
		}
		if !intent.ConsentTerms {
			common.RespondWithError(c, common.ErrBadRequest.WithDetails("Registration requires accepting the terms of service."))
			return
		}
	}

	authURL, err := h.resolver.BeginAuthFlow(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}

	encoded, err := encodeIntent(intent)
	if err != nil {
		h.logger.Error("Failed to encode intent cookie", zap.Error(err))
		common.RespondWithError(c, common.ErrInternalServer)
		return
	}
	identity.SetIntentCookie(c, h.cfg, encoded)

	c.Redirect(http.StatusFound, authURL)
}

func (h *Handler) callback(c *gin.Context) {
	intent := h.takeIntent(c)

	if providerErr := c.Query("error"); providerErr != "" {
		h.logger.Info("Provider returned an error on callback", zap.String("error", providerErr))
		h.redirectWithError(c, intent.Flow, "access_denied")
		return
	}

	if err := h.resolver.CheckCallbackState(c, c.Query("state")); err != nil {
		common.RespondWithError(c, err)
		return
	}

	ident, err := h.resolver.Resolve(c.Request.Context(), c.Query("code"))
	if err != nil {
		h.redirectWithError(c, intent.Flow, errorQueryCode(err))
		return
	}

	pl, err := h.catalog.Resolve(intent.PlanCode)
	if err != nil {
		h.redirectWithError(c, intent.Flow, errorQueryCode(err))
		return
	}

	decision, existing, err := h.evaluator.Evaluate(c.Request.Context(), ident, intent.Flow, pl)
	if err != nil {
		h.redirectWithError(c, intent.Flow, errorQueryCode(err))
		return
	}

	switch decision {
	case DecisionLogin:
		h.completeLogin(c, existing)

	case DecisionProvisionFree:
		acct, err := h.provisioner.Provision(c.Request.Context(), account.ProvisionInput{
			Email:            ident.Email,
			Provider:         ident.Provider,
			ProviderID:       ident.ExternalID,
			FirstName:        ident.FirstName,
			LastName:         ident.LastName,
			ConsentTerms:     intent.ConsentTerms,
			ConsentMarketing: intent.ConsentMarketing,
		}, pl, account.Immediate())
		if err != nil {
			h.redirectWithError(c, intent.Flow, errorQueryCode(err))
			return
		}
		h.redirectWithTokens(c, h.cfg.RegistrationRedirectURL, acct)

	case DecisionCheckoutRequired:
		checkoutURL, err := h.orchestrator.Begin(c.Request.Context(), ident, pl, ConsentInput{
			Terms:     intent.ConsentTerms,
			Marketing: intent.ConsentMarketing,
		})
		if err != nil {
			h.redirectWithError(c, intent.Flow, errorQueryCode(err))
			return
		}
		c.Redirect(http.StatusSeeOther, checkoutURL)
	}
}

func (h *Handler) completeLogin(c *gin.Context, acct *account.Account) {
	now := time.Now().UTC()
	acct.LastLoginAt = &now
	if err := h.accounts.Update(c.Request.Context(), acct); err != nil {
		h.logger.Warn("Failed to record last login time",
			zap.String("account_id", acct.ID.String()),
			zap.Error(err))
	}
	h.redirectWithTokens(c, h.cfg.PostLoginRedirectURL, acct)
}

// redirectWithTokens issues the session tokens and hands them to the
// frontend in the URL fragment, which browsers never send to servers.
func (h *Handler) redirectWithTokens(c *gin.Context, target string, acct *account.Account) {
	accessToken, expiresAt, err := h.tokenService.GenerateAccessToken(acct)
	if err != nil {
		h.logger.Error("Failed to generate access token", zap.Error(err))
		common.RespondWithError(c, common.ErrInternalServer)
		return
	}
	refreshToken, _, err := h.tokenService.GenerateRefreshToken(acct)
	if err != nil {
		h.logger.Error("Failed to generate refresh token", zap.Error(err))
		common.RespondWithError(c, common.ErrInternalServer)
		return
	}

	fragment := url.Values{}
	fragment.Set("access_token", accessToken)
	fragment.Set("refresh_token", refreshToken)
	fragment.Set("expires_at", expiresAt.UTC().Format(time.RFC3339))
	c.Redirect(http.StatusFound, target+"#"+fragment.Encode())
}

func (h *Handler) redirectWithError(c *gin.Context, flow Flow, code string) {
	target := h.cfg.RegistrationRedirectURL
	if flow == FlowLogin {
		target = h.cfg.PostLoginRedirectURL
	}
	separator := "?"
	if strings.Contains(target, "?") {
		separator = "&"
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("%s%serror=%s", target, separator, url.QueryEscape(code)))
}

func (h *Handler) paymentWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Could not read request body."))
		return
	}

	event, err := h.gateway.ParseWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}

	if err := h.processor.Ingest(c.Request.Context(), event); err != nil {
		h.logger.Error("Webhook processing failed, provider will retry",
			zap.String("external_event_id", event.ExternalID),
			zap.Error(err))
		common.RespondWithError(c, common.ErrInternalServer.WithDetails("Event processing failed."))
		return
	}

	c.Status(http.StatusOK)
}

// takeIntent consumes the intent cookie. A missing or malformed cookie
// degrades to a plain login attempt.
func (h *Handler) takeIntent(c *gin.Context) oauthIntent {
	fallback := oauthIntent{Flow: FlowLogin, PlanCode: plan.CodeFree}
	raw, err := identity.TakeIntentCookie(c, h.cfg)
	if err != nil {
		return fallback
	}
	intent, err := decodeIntent(raw)
	if err != nil {
		h.logger.Warn("Malformed intent cookie, treating callback as login", zap.Error(err))
		return fallback
	}
	if intent.PlanCode == "" {
		intent.PlanCode = plan.CodeFree
	}
	return intent
}

func encodeIntent(intent oauthIntent) (string, error) {
	raw, err := json.Marshal(intent)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func decodeIntent(encoded string) (oauthIntent, error) {
	var intent oauthIntent
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return intent, err
	}
	if err := json.Unmarshal(raw, &intent); err != nil {
		return intent, err
	}
	if intent.Flow != FlowLogin && intent.Flow != FlowRegister {
		return intent, errors.New("unknown flow in intent cookie")
	}
	return intent, nil
}

// errorQueryCode maps service errors onto the machine-readable codes the
// frontend reads from the redirect query string.
func errorQueryCode(err error) string {
	if apiErr, ok := common.IsAPIError(err); ok {
		return strings.ToLower(apiErr.Code)
	}
	return "internal_error"
}
