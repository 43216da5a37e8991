// File: internal/shared/core.go
package shared

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenResponse represents the response containing JWT tokens.
type TokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"`
}

// AccountDataForToken abstracts the account data needed for token generation.
type AccountDataForToken interface {
	GetID() uuid.UUID
	GetEmail() string
	GetPlanCode() string
}

// TokenService defines the interface for JWT operations.
type TokenService interface {
	GenerateAccessToken(data AccountDataForToken) (string, time.Time, error)
	GenerateRefreshToken(data AccountDataForToken) (string, time.Time, error)
	ValidateToken(tokenString string) (*Claims, error)
	ParseRefreshToken(refreshTokenString string) (*Claims, error)
}

// Claims represents the JWT claims structure.
type Claims struct {
	AccountID uuid.UUID `json:"account_id"`
	Email     string    `json:"email"`
	Plan      string    `json:"plan"`
	TokenUse  string    `json:"token_use"`
	jwt.RegisteredClaims
}
