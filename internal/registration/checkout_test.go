package registration

import (
	"context"
	"errors"
	"testing"
	"time"

	"bookline_backend/internal/config"
	"bookline_backend/internal/identity"
	"bookline_backend/internal/payment"
	"bookline_backend/internal/plan"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func checkoutTestConfig() *config.Config {
	return &config.Config{
		CheckoutSuccessURL:     "https://app.example.com/registration/complete",
		CheckoutCancelURL:      "https://app.example.com/registration/cancelled",
		CheckoutTimeout:        5 * time.Second,
		PendingRegistrationTTL: 24 * time.Hour,
	}
}

func checkoutIdentity() *identity.VerifiedIdentity {
	return &identity.VerifiedIdentity{
		Email:      "grace@example.com",
		Provider:   "google",
		ExternalID: "sub-456",
		FirstName:  "Grace",
		LastName:   "Hopper",
	}
}

func TestBeginCreatesSessionAndPendingRow(t *testing.T) {
	db := newTestDB(t)
	repo := NewGORMRepository(db)
	gateway := &fakeGateway{}
	orchestrator := NewCheckoutOrchestrator(repo, gateway, checkoutTestConfig(), zap.NewNop())

	checkoutURL, err := orchestrator.Begin(context.Background(), checkoutIdentity(), plan.Plan{Code: "pro", Tier: plan.TierPaid, PriceID: "price_pro"}, ConsentInput{Terms: true})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.example.com/cs_test_1", checkoutURL)

	pending, err := repo.FindPendingBySessionID(context.Background(), "cs_test_1")
	require.NoError(t, err)
	assert.Equal(t, "grace@example.com", pending.Email)
	assert.Equal(t, "pro", pending.PlanCode)
	assert.Equal(t, StatusAwaitingPayment, pending.Status)
	assert.True(t, pending.ConsentTerms)
	assert.WithinDuration(t, time.Now().UTC().Add(24*time.Hour), pending.ExpiresAt, time.Minute)

	// The session metadata must carry the row's own id so invoice events
	// can find their way back.
	require.Len(t, gateway.createdParams, 1)
	params := gateway.createdParams[0]
	assert.Equal(t, "price_pro", params.PriceID)
	assert.Equal(t, "grace@example.com", params.CustomerEmail)
	assert.Equal(t, pending.ID.String(), params.Metadata[payment.MetadataPendingRegistrationKey])
	assert.Equal(t, pending.ID.String(), params.IdempotencyKey)
}

func TestBeginGatewayFailureLeavesNoState(t *testing.T) {
	db := newTestDB(t)
	repo := NewGORMRepository(db)
	gateway := &fakeGateway{createErr: payment.ErrProviderUnavailable}
	orchestrator := NewCheckoutOrchestrator(repo, gateway, checkoutTestConfig(), zap.NewNop())

	_, err := orchestrator.Begin(context.Background(), checkoutIdentity(), plan.Plan{Code: "pro", Tier: plan.TierPaid, PriceID: "price_pro"}, ConsentInput{Terms: true})
	assert.True(t, errors.Is(err, payment.ErrProviderUnavailable))

	var count int64
	require.NoError(t, db.Model(&PendingRegistration{}).Count(&count).Error)
	assert.Zero(t, count, "a failed checkout must not leave pending rows behind")
}

func TestBeginNeverTouchesAccounts(t *testing.T) {
	db := newTestDB(t)
	repo := NewGORMRepository(db)
	gateway := &fakeGateway{}
	orchestrator := NewCheckoutOrchestrator(repo, gateway, checkoutTestConfig(), zap.NewNop())

	_, err := orchestrator.Begin(context.Background(), checkoutIdentity(), plan.Plan{Code: "pro", Tier: plan.TierPaid, PriceID: "price_pro"}, ConsentInput{})
	require.NoError(t, err)

	// Only the two registration tables were migrated; if the orchestrator
	// tried to write an account, the insert would have failed loudly.
	assert.False(t, db.Migrator().HasTable("accounts"))
}

func TestTransitionStatusIsConditional(t *testing.T) {
	db := newTestDB(t)
	repo := NewGORMRepository(db)

	pending := &PendingRegistration{
		Email:             "x@example.com",
		PlanCode:          "pro",
		AuthProvider:      "google",
		ProviderID:        "sub-1",
		CheckoutSessionID: "cs_cond_1",
		Status:            StatusAwaitingPayment,
		ExpiresAt:         time.Now().UTC().Add(time.Hour),
	}
	require.NoError(t, repo.CreatePending(context.Background(), pending))

	moved, err := repo.TransitionStatus(context.Background(), pending.ID, StatusAwaitingPayment, StatusProvisioned)
	require.NoError(t, err)
	assert.True(t, moved)

	// Second transition from the same starting status loses.
	moved, err = repo.TransitionStatus(context.Background(), pending.ID, StatusAwaitingPayment, StatusExpired)
	require.NoError(t, err)
	assert.False(t, moved)

	stored, err := repo.FindPendingByID(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusProvisioned, stored.Status)
}

func TestExpireOverdue(t *testing.T) {
	db := newTestDB(t)
	repo := NewGORMRepository(db)
	now := time.Now().UTC()

	overdue := &PendingRegistration{
		Email: "old@example.com", PlanCode: "pro", AuthProvider: "google", ProviderID: "sub-old",
		CheckoutSessionID: "cs_old", Status: StatusAwaitingPayment, ExpiresAt: now.Add(-time.Hour),
	}
	fresh := &PendingRegistration{
		Email: "new@example.com", PlanCode: "pro", AuthProvider: "google", ProviderID: "sub-new",
		CheckoutSessionID: "cs_new", Status: StatusAwaitingPayment, ExpiresAt: now.Add(time.Hour),
	}
	settled := &PendingRegistration{
		Email: "done@example.com", PlanCode: "pro", AuthProvider: "google", ProviderID: "sub-done",
		CheckoutSessionID: "cs_done", Status: StatusProvisioned, ExpiresAt: now.Add(-time.Hour),
	}
	for _, p := range []*PendingRegistration{overdue, fresh, settled} {
		require.NoError(t, repo.CreatePending(context.Background(), p))
	}

	swept, err := repo.ExpireOverdue(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), swept)

	stored, err := repo.FindPendingByID(context.Background(), overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, stored.Status)

	stored, err = repo.FindPendingByID(context.Background(), fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusAwaitingPayment, stored.Status)

	stored, err = repo.FindPendingByID(context.Background(), settled.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusProvisioned, stored.Status)
}

func TestRecordEventDeduplicates(t *testing.T) {
	db := newTestDB(t)
	repo := NewGORMRepository(db)

	first, fresh, err := repo.RecordEvent(context.Background(), &WebhookEvent{ExternalEventID: "evt_1", Type: "checkout.session.completed"})
	require.NoError(t, err)
	assert.True(t, fresh)

	require.NoError(t, repo.MarkEventProcessed(context.Background(), first.ID, time.Now().UTC()))

	replay, fresh, err := repo.RecordEvent(context.Background(), &WebhookEvent{ExternalEventID: "evt_1", Type: "checkout.session.completed"})
	require.NoError(t, err)
	assert.False(t, fresh)
	assert.Equal(t, first.ID, replay.ID)
	assert.NotNil(t, replay.ProcessedAt)
}

func TestFindPendingByUnknownID(t *testing.T) {
	db := newTestDB(t)
	repo := NewGORMRepository(db)

	_, err := repo.FindPendingByID(context.Background(), uuid.New())
	assert.Error(t, err)
}
