// File: internal/auth/token_service.go
package auth

import (
	"fmt"
	"time"

	"bookline_backend/internal/config"
	"bookline_backend/internal/shared"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	tokenUseAccess  = "access"
	tokenUseRefresh = "refresh"
)

type tokenService struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewTokenService creates a JWT-backed shared.TokenService.
func NewTokenService(cfg *config.Config, logger *zap.Logger) shared.TokenService {
	return &tokenService{
		cfg:    cfg,
		logger: logger.Named("TokenService"),
	}
}

func (s *tokenService) generate(data shared.AccountDataForToken, use string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)

	claims := &shared.Claims{
		AccountID: data.GetID(),
		Email:     data.GetEmail(),
		Plan:      data.GetPlanCode(),
		TokenUse:  use,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.JWTIssuer,
			Subject:   data.GetID().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecretKey))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign %s token: %w", use, err)
	}
	return signed, expiresAt, nil
}

func (s *tokenService) GenerateAccessToken(data shared.AccountDataForToken) (string, time.Time, error) {
	return s.generate(data, tokenUseAccess, s.cfg.JWTAccessTokenTTL)
}

func (s *tokenService) GenerateRefreshToken(data shared.AccountDataForToken) (string, time.Time, error) {
	return s.generate(data, tokenUseRefresh, s.cfg.JWTRefreshTokenTTL)
}

func (s *tokenService) parse(tokenString, expectedUse string) (*shared.Claims, error) {
	claims := &shared.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecretKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("token parsing failed: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is invalid")
	}
	if claims.TokenUse != expectedUse {
		return nil, fmt.Errorf("token use mismatch: expected %s", expectedUse)
	}
	return claims, nil
}

func (s *tokenService) ValidateToken(tokenString string) (*shared.Claims, error) {
	return s.parse(tokenString, tokenUseAccess)
}

func (s *tokenService) ParseRefreshToken(refreshTokenString string) (*shared.Claims, error) {
	return s.parse(refreshTokenString, tokenUseRefresh)
}
