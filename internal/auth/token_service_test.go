package auth

import (
	"testing"
	"time"

	"bookline_backend/internal/config"
	"bookline_backend/internal/shared"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type tokenAccountData struct {
	id    uuid.UUID
	email string
	plan  string
}

func (d tokenAccountData) GetID() uuid.UUID    { return d.id }
func (d tokenAccountData) GetEmail() string    { return d.email }
func (d tokenAccountData) GetPlanCode() string { return d.plan }

func newTestTokenService(ttl time.Duration) shared.TokenService {
	return NewTokenService(&config.Config{
		JWTSecretKey:       "test-secret-key-for-signing",
		JWTAccessTokenTTL:  ttl,
		JWTRefreshTokenTTL: 24 * time.Hour,
		JWTIssuer:          "bookline",
	}, zap.NewNop())
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := newTestTokenService(time.Hour)
	data := tokenAccountData{id: uuid.New(), email: "ada@example.com", plan: "pro"}

	token, expiresAt, err := svc.GenerateAccessToken(data)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, data.id, claims.AccountID)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, "pro", claims.Plan)
	assert.Equal(t, "bookline", claims.Issuer)
}

func TestRefreshTokenIsNotAnAccessToken(t *testing.T) {
	svc := newTestTokenService(time.Hour)
	data := tokenAccountData{id: uuid.New(), email: "ada@example.com", plan: "free"}

	refreshToken, _, err := svc.GenerateRefreshToken(data)
	require.NoError(t, err)

	_, err = svc.ValidateToken(refreshToken)
	assert.Error(t, err)

	claims, err := svc.ParseRefreshToken(refreshToken)
	require.NoError(t, err)
	assert.Equal(t, data.id, claims.AccountID)
}

func TestExpiredTokenIsRejected(t *testing.T) {
	svc := newTestTokenService(-time.Minute)
	data := tokenAccountData{id: uuid.New(), email: "ada@example.com", plan: "free"}

	token, _, err := svc.GenerateAccessToken(data)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestTamperedTokenIsRejected(t *testing.T) {
	svc := newTestTokenService(time.Hour)
	data := tokenAccountData{id: uuid.New(), email: "ada@example.com", plan: "free"}

	token, _, err := svc.GenerateAccessToken(data)
	require.NoError(t, err)

	other := NewTokenService(&config.Config{
		JWTSecretKey:      "a-completely-different-secret",
		JWTAccessTokenTTL: time.Hour,
		JWTIssuer:         "bookline",
	}, zap.NewNop())

	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}
