// File: internal/identity/resolver.go
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"bookline_backend/internal/common"
	"bookline_backend/internal/config"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// googleUserInfoURL is a variable for testing.
var googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

const providerGoogle = "google"

var (
	// ErrInvalidGrant is returned when the authorization code is rejected by
	// the provider (expired, replayed, or forged).
	ErrInvalidGrant = common.NewAPIError(http.StatusUnauthorized, "INVALID_GRANT", "The authorization code could not be exchanged.")
	// ErrProviderUnavailable is returned when the identity provider cannot be
	// reached or answers with a server error.
	ErrProviderUnavailable = common.NewAPIError(http.StatusServiceUnavailable, "PROVIDER_UNAVAILABLE", "The identity provider is currently unavailable.")
	// ErrStateMismatch is returned when the callback state does not match the
	// value bound to the browser session.
	ErrStateMismatch = common.NewAPIError(http.StatusBadRequest, "STATE_MISMATCH", "OAuth state mismatch. Possible CSRF attack.")
)

// VerifiedIdentity is the transient result of a successful code exchange.
// It is consumed immediately and never persisted as-is.
type VerifiedIdentity struct {
	Email         string
	Provider      string
	ExternalID    string
	EmailVerified bool
	FirstName     string
	LastName      string
}

// Resolver exchanges an OAuth authorization code for a verified external
// identity. No side effects beyond the external exchange.
type Resolver interface {
	// BeginAuthFlow sets the CSRF state cookie and returns the provider's
	// authorization URL to redirect the user to.
	BeginAuthFlow(c *gin.Context) (string, error)
	// CheckCallbackState validates the state parameter against the cookie
	// set by BeginAuthFlow.
	CheckCallbackState(c *gin.Context, state string) error
	// Resolve performs the code exchange and userinfo fetch.
	Resolve(ctx context.Context, code string) (*VerifiedIdentity, error)
}

type googleResolver struct {
	cfg    *config.Config
	logger *zap.Logger
	// oauthConfig is overridable in tests to point at a fake provider.
	oauthConfig *oauth2.Config
}

// NewGoogleResolver creates the Google-backed identity resolver.
func NewGoogleResolver(cfg *config.Config, logger *zap.Logger) Resolver {
	return &googleResolver{
		cfg:         cfg,
		logger:      logger.Named("IdentityResolver"),
		oauthConfig: getGoogleOAuthConfig(cfg),
	}
}

func (r *googleResolver) BeginAuthFlow(c *gin.Context) (string, error) {
	state, err := generateAndSetOAuthState(c, r.cfg)
	if err != nil {
		r.logger.Error("Failed to generate OAuth state", zap.Error(err))
		return "", common.ErrInternalServer.WithDetails("Could not initiate sign-in.")
	}
	authURL := r.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline)
	return authURL, nil
}

func (r *googleResolver) CheckCallbackState(c *gin.Context, state string) error {
	storedState, err := getOAuthCookie(c, r.cfg, r.cfg.OAuthStateCookieName)
	if err != nil {
		r.logger.Warn("Missing OAuth state cookie on callback", zap.Error(err))
		return ErrStateMismatch.WithDetails("Invalid session or state missing.")
	}
	if state == "" || state != storedState {
		r.logger.Warn("OAuth state mismatch",
			zap.String("received_state", state))
		return ErrStateMismatch
	}
	return nil
}

func (r *googleResolver) Resolve(ctx context.Context, code string) (*VerifiedIdentity, error) {
	exchangeCtx, cancel := context.WithTimeout(ctx, r.cfg.OAuthExchangeTimeout)
	defer cancel()

	token, err := r.oauthConfig.Exchange(exchangeCtx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil && retrieveErr.Response.StatusCode < http.StatusInternalServerError {
			r.logger.Warn("Authorization code rejected by provider", zap.Error(err))
			return nil, ErrInvalidGrant
		}
		r.logger.Error("Failed to exchange authorization code", zap.Error(err))
		return nil, ErrProviderUnavailable
	}
	if !token.Valid() {
		r.logger.Error("Provider returned an invalid token")
		return nil, ErrInvalidGrant
	}

	client := r.oauthConfig.Client(exchangeCtx, token)
	resp, err := client.Get(googleUserInfoURL)
	if err != nil {
		r.logger.Error("Failed to fetch userinfo from provider", zap.Error(err))
		return nil, ErrProviderUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.logger.Error("Userinfo request failed", zap.Int("status", resp.StatusCode))
		return nil, ErrProviderUnavailable.WithDetails(fmt.Sprintf("Provider returned status %d for userinfo.", resp.StatusCode))
	}

	var googleUser struct {
		Sub           string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		GivenName     string `json:"given_name"`
		FamilyName    string `json:"family_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&googleUser); err != nil {
		r.logger.Error("Failed to decode userinfo payload", zap.Error(err))
		return nil, ErrProviderUnavailable.WithDetails("Could not process provider user information.")
	}
	if googleUser.Sub == "" || googleUser.Email == "" {
		r.logger.Error("Userinfo payload missing subject or email")
		return nil, ErrInvalidGrant.WithDetails("Provider identity is incomplete.")
	}

	return &VerifiedIdentity{
		Email:         strings.ToLower(strings.TrimSpace(googleUser.Email)),
		Provider:      providerGoogle,
		ExternalID:    googleUser.Sub,
		EmailVerified: googleUser.EmailVerified,
		FirstName:     googleUser.GivenName,
		LastName:      googleUser.FamilyName,
	}, nil
}
