// File: internal/registration/checkout.go
package registration

import (
	"context"
	"time"

	"bookline_backend/internal/config"
	"bookline_backend/internal/identity"
	"bookline_backend/internal/payment"
	"bookline_backend/internal/plan"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CheckoutOrchestrator turns a checkout_required decision into a hosted
// checkout session plus a durable pending registration. It never creates
// accounts; if anything fails mid-way, no state is left behind and the user
// simply retries registration.
type CheckoutOrchestrator struct {
	repo    Repository
	gateway payment.Gateway
	cfg     *config.Config
	logger  *zap.Logger
}

// NewCheckoutOrchestrator creates the checkout orchestrator.
func NewCheckoutOrchestrator(repo Repository, gateway payment.Gateway, cfg *config.Config, logger *zap.Logger) *CheckoutOrchestrator {
	return &CheckoutOrchestrator{
		repo:    repo,
		gateway: gateway,
		cfg:     cfg,
		logger:  logger.Named("CheckoutOrchestrator"),
	}
}

// ConsentInput carries the consent checkboxes captured on the registration
// form through the OAuth round trip.
type ConsentInput struct {
	Terms     bool
	Marketing bool
}

// Begin creates the provider checkout session, then persists the pending
// registration bound to it with a TTL.
//
// The registration id is generated up front and attached to the session as
// metadata, because invoice-style webhook events never carry the session id
// and need their own way back to this row. The session is created before the
// row: an orphaned provider session expires harmlessly on its own, whereas a
// row without a session could never be confirmed.
func (o *CheckoutOrchestrator) Begin(ctx context.Context, ident *identity.VerifiedIdentity, pl plan.Plan, consent ConsentInput) (string, error) {
	pendingID := uuid.New()

	checkoutCtx, cancel := context.WithTimeout(ctx, o.cfg.CheckoutTimeout)
	defer cancel()

	sess, err := o.gateway.CreateCheckoutSession(checkoutCtx, payment.CheckoutParams{
		PlanCode:       pl.Code,
		PriceID:        pl.PriceID,
		CustomerEmail:  ident.Email,
		SuccessURL:     o.cfg.CheckoutSuccessURL,
		CancelURL:      o.cfg.CheckoutCancelURL,
		IdempotencyKey: pendingID.String(),
		Metadata: map[string]string{
			payment.MetadataPendingRegistrationKey: pendingID.String(),
		},
	})
	if err != nil {
		o.logger.Warn("Checkout session creation failed, nothing persisted",
			zap.String("plan", pl.Code),
			zap.Error(err))
		return "", err
	}

	pending := &PendingRegistration{
		Email:             ident.Email,
		PlanCode:          pl.Code,
		AuthProvider:      ident.Provider,
		ProviderID:        ident.ExternalID,
		ConsentTerms:      consent.Terms,
		ConsentMarketing:  consent.Marketing,
		CheckoutSessionID: sess.ID,
		Status:            StatusAwaitingPayment,
		ExpiresAt:         time.Now().UTC().Add(o.cfg.PendingRegistrationTTL),
	}
	pending.ID = pendingID
	if ident.FirstName != "" {
		pending.FirstName = &ident.FirstName
	}
	if ident.LastName != "" {
		pending.LastName = &ident.LastName
	}

	if err := o.repo.CreatePending(ctx, pending); err != nil {
		o.logger.Error("Failed to persist pending registration",
			zap.String("session_id", sess.ID),
			zap.Error(err))
		return "", err
	}

	o.logger.Info("Pending registration created",
		zap.String("pending_id", pendingID.String()),
		zap.String("session_id", sess.ID),
		zap.String("plan", pl.Code),
		zap.Time("expires_at", pending.ExpiresAt))

	return sess.URL, nil
}
