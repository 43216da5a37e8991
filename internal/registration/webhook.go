// File: internal/registration/webhook.go
package registration

import (
	"context"
	"errors"
	"time"

	"bookline_backend/internal/account"
	"bookline_backend/internal/common"
	"bookline_backend/internal/payment"
	"bookline_backend/internal/plan"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AccountProvisioner is the slice of the account provisioner the webhook
// path needs.
type AccountProvisioner interface {
	Provision(ctx context.Context, input account.ProvisionInput, pl plan.Plan, src account.ProvisioningSource) (*account.Account, error)
}

// PaymentFailureNotifier lets the webhook path tell an existing account that
// a later charge did not go through.
type PaymentFailureNotifier interface {
	SendPaymentFailed(ctx context.Context, acct *account.Account) error
}

// WebhookProcessor applies verified payment events to pending registrations.
//
// Ordering: events for the same registration are serialized twice over, by
// an in-process keyed lock and by the status-conditional updates in the
// repository. The lock keeps normal operation orderly; the conditional
// update stays correct even across multiple instances.
type WebhookProcessor struct {
	repo        Repository
	provisioner AccountProvisioner
	accounts    AccountLookup
	notifier    PaymentFailureNotifier
	catalog     *plan.Catalog
	locks       *keyedMutex
	logger      *zap.Logger
}

// NewWebhookProcessor creates the webhook processor.
func NewWebhookProcessor(repo Repository, provisioner AccountProvisioner, accounts AccountLookup, notifier PaymentFailureNotifier, catalog *plan.Catalog, logger *zap.Logger) *WebhookProcessor {
	return &WebhookProcessor{
		repo:        repo,
		provisioner: provisioner,
		accounts:    accounts,
		notifier:    notifier,
		catalog:     catalog,
		locks:       newKeyedMutex(),
		logger:      logger.Named("WebhookProcessor"),
	}
}

// Ingest processes one verified event. A nil return acknowledges the event
// to the provider; an error makes the provider redeliver, so only genuinely
// retryable failures return one.
func (p *WebhookProcessor) Ingest(ctx context.Context, event *payment.Event) error {
	if event.Kind == payment.EventIgnored {
		p.logger.Debug("Ignoring unhandled event type", zap.String("type", event.Type))
		return nil
	}

	ledgerRow, fresh, err := p.repo.RecordEvent(ctx, &WebhookEvent{
		ExternalEventID: event.ExternalID,
		Type:            event.Type,
		Payload:         event.Raw,
	})
	if err != nil {
		return err
	}
	if !fresh && ledgerRow.ProcessedAt != nil {
		p.logger.Info("Duplicate event, already processed",
			zap.String("external_event_id", event.ExternalID))
		return nil
	}
	if !fresh {
		// Recorded but never finished; a previous attempt failed. Processing
		// is idempotent past this point, so run it again.
		p.logger.Info("Reprocessing event after earlier failure",
			zap.String("external_event_id", event.ExternalID))
	}

	pending, err := p.loadPending(ctx, event)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			// No registration matches. Either the session belongs to another
			// system or the reference is stale; acknowledge and move on.
			p.logger.Warn("Event references no known registration",
				zap.String("external_event_id", event.ExternalID),
				zap.String("session_id", event.SessionID),
				zap.String("pending_registration_id", event.PendingRegistrationID))
			return p.finishEvent(ctx, ledgerRow.ID)
		}
		return err
	}

	// Checkout and invoice events reference the same registration by
	// different keys, so lock on its row id and re-read inside the lock.
	unlock := p.locks.Lock(pending.ID.String())
	defer unlock()

	pending, err = p.repo.FindPendingByID(ctx, pending.ID)
	if err != nil {
		return err
	}

	switch event.Kind {
	case payment.EventPaymentConfirmed:
		if err := p.handlePaymentConfirmed(ctx, event, pending); err != nil {
			return err
		}
	case payment.EventPaymentFailed:
		p.handlePaymentFailed(ctx, event, pending)
	case payment.EventSessionExpired:
		p.transition(ctx, pending, StatusExpired, event)
	}

	return p.finishEvent(ctx, ledgerRow.ID)
}

// handlePaymentConfirmed provisions the account for a paid registration.
// A confirmation that arrives after the registration window closed is
// acknowledged but never provisions; the charge is left for reconciliation.
func (p *WebhookProcessor) handlePaymentConfirmed(ctx context.Context, event *payment.Event, pending *PendingRegistration) error {
	if pending.Status != StatusAwaitingPayment {
		p.logger.Info("Payment confirmation for a settled registration, nothing to do",
			zap.String("pending_id", pending.ID.String()),
			zap.String("status", string(pending.Status)))
		return nil
	}

	now := time.Now().UTC()
	if now.After(pending.ExpiresAt) {
		moved, err := p.repo.TransitionStatus(ctx, pending.ID, StatusAwaitingPayment, StatusExpired)
		if err != nil {
			return err
		}
		if moved {
			p.logger.Warn("Payment confirmed after registration expiry, not provisioning",
				zap.String("pending_id", pending.ID.String()),
				zap.String("external_event_id", event.ExternalID),
				zap.Time("expired_at", pending.ExpiresAt))
		}
		return nil
	}

	pl, err := p.catalog.Resolve(pending.PlanCode)
	if err != nil {
		p.logger.Error("Pending registration references an unresolvable plan",
			zap.String("pending_id", pending.ID.String()),
			zap.String("plan", pending.PlanCode),
			zap.Error(err))
		return err
	}

	input := account.ProvisionInput{
		Email:            pending.Email,
		Provider:         pending.AuthProvider,
		ProviderID:       pending.ProviderID,
		ConsentTerms:     pending.ConsentTerms,
		ConsentMarketing: pending.ConsentMarketing,
	}
	if pending.FirstName != nil {
		input.FirstName = *pending.FirstName
	}
	if pending.LastName != nil {
		input.LastName = *pending.LastName
	}

	_, err = p.provisioner.Provision(ctx, input, pl, account.PaymentConfirmed(pending.CheckoutSessionID))
	if err != nil && !errors.Is(err, account.ErrDuplicateAccount) {
		return err
	}

	moved, err := p.repo.TransitionStatus(ctx, pending.ID, StatusAwaitingPayment, StatusProvisioned)
	if err != nil {
		return err
	}
	if !moved {
		p.logger.Info("Registration already settled by a concurrent event",
			zap.String("pending_id", pending.ID.String()))
	}
	return nil
}

// handlePaymentFailed fails an open registration. For a registration that
// already provisioned, the failure belongs to a later billing cycle; the
// account keeps its state and gets a payment-failed notice instead.
func (p *WebhookProcessor) handlePaymentFailed(ctx context.Context, event *payment.Event, pending *PendingRegistration) {
	if pending.Status != StatusProvisioned {
		p.transition(ctx, pending, StatusFailed, event)
		return
	}

	acct, err := p.accounts.FindByEmail(ctx, pending.Email)
	if err != nil {
		p.logger.Warn("Payment failed for a provisioned registration but no account was found",
			zap.String("pending_id", pending.ID.String()),
			zap.String("external_event_id", event.ExternalID),
			zap.Error(err))
		return
	}
	if err := p.notifier.SendPaymentFailed(ctx, acct); err != nil {
		p.logger.Warn("Failed to notify account of payment failure",
			zap.String("account_id", acct.ID.String()),
			zap.Error(err))
	}
}

// transition moves an awaiting registration to a terminal status. Events for
// already-settled registrations are logged and dropped.
func (p *WebhookProcessor) transition(ctx context.Context, pending *PendingRegistration, to Status, event *payment.Event) {
	moved, err := p.repo.TransitionStatus(ctx, pending.ID, StatusAwaitingPayment, to)
	if err != nil {
		p.logger.Error("Failed to transition pending registration",
			zap.String("pending_id", pending.ID.String()),
			zap.String("to", string(to)),
			zap.Error(err))
		return
	}
	if moved {
		p.logger.Info("Pending registration transitioned",
			zap.String("pending_id", pending.ID.String()),
			zap.String("to", string(to)),
			zap.String("external_event_id", event.ExternalID))
	}
}

func (p *WebhookProcessor) loadPending(ctx context.Context, event *payment.Event) (*PendingRegistration, error) {
	if event.SessionID != "" {
		return p.repo.FindPendingBySessionID(ctx, event.SessionID)
	}
	if event.PendingRegistrationID != "" {
		id, err := uuid.Parse(event.PendingRegistrationID)
		if err != nil {
			return nil, common.ErrNotFound.WithDetails("Malformed registration reference in event metadata.")
		}
		return p.repo.FindPendingByID(ctx, id)
	}
	return nil, common.ErrNotFound.WithDetails("Event carries no registration reference.")
}

func (p *WebhookProcessor) finishEvent(ctx context.Context, eventID uuid.UUID) error {
	if err := p.repo.MarkEventProcessed(ctx, eventID, time.Now().UTC()); err != nil {
		p.logger.Warn("Failed to stamp event as processed", zap.Error(err))
	}
	return nil
}
