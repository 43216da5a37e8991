// File: internal/account/provisioner.go
package account

import (
	"context"
	"errors"
	"net/http"
	"time"

	"bookline_backend/internal/common"
	"bookline_backend/internal/plan"

	"go.uber.org/zap"
)

var (
	// ErrInvariantViolation is returned when a caller asks for a paid-plan
	// account without a payment-confirmed source. It signals a defect in the
	// calling code, never a user error.
	ErrInvariantViolation = common.NewAPIError(http.StatusInternalServerError, "INVARIANT_VIOLATION", "Account creation rejected: payment confirmation missing for a paid plan.")
	// ErrDuplicateAccount is returned when an account with the same email
	// already exists. Callers on the webhook path treat this as benign.
	ErrDuplicateAccount = common.NewAPIError(http.StatusConflict, "DUPLICATE_ACCOUNT", "An account with this email already exists.")
)

// ProvisionInput is the identity and consent data an account is created from.
type ProvisionInput struct {
	Email            string
	Provider         string
	ProviderID       string
	FirstName        string
	LastName         string
	ConsentTerms     bool
	ConsentMarketing bool
}

// WelcomeNotifier delivers the post-provisioning welcome message. Failures
// never affect the provisioning outcome.
type WelcomeNotifier interface {
	SendWelcome(ctx context.Context, acct *Account) error
}

// Provisioner is the single component allowed to create accounts. Every
// creation path, free or paid, funnels through Provision.
type Provisioner struct {
	repo     Repository
	notifier WelcomeNotifier
	logger   *zap.Logger
}

// NewProvisioner creates the account provisioner.
func NewProvisioner(repo Repository, notifier WelcomeNotifier, logger *zap.Logger) *Provisioner {
	return &Provisioner{
		repo:     repo,
		notifier: notifier,
		logger:   logger.Named("AccountProvisioner"),
	}
}

// Provision creates the account and its entitlement atomically.
//
// The payment guard runs before any write: a plan that requires payment is
// only provisioned from a payment-confirmed source. The guard is redundant
// with the call sites, which is the point; tripping it means a code path
// outside the webhook flow tried to create a paid account, and that must
// surface loudly instead of minting an unpaid account.
func (p *Provisioner) Provision(ctx context.Context, input ProvisionInput, pl plan.Plan, src ProvisioningSource) (*Account, error) {
	if pl.RequiresPayment() && !src.IsPaymentConfirmed() {
		p.logger.Error("BUG: paid-plan provisioning attempted without payment confirmation",
			zap.String("email", input.Email),
			zap.String("plan", pl.Code),
			zap.String("source", src.String()))
		return nil, ErrInvariantViolation
	}

	acct := &Account{
		Email:              input.Email,
		PlanCode:           pl.Code,
		PlanTier:           string(pl.Tier),
		ProvisioningSource: src.String(),
		AuthProvider:       input.Provider,
		ProviderID:         input.ProviderID,
		ConsentTerms:       input.ConsentTerms,
		ConsentMarketing:   input.ConsentMarketing,
	}
	if input.FirstName != "" {
		acct.FirstName = &input.FirstName
	}
	if input.LastName != "" {
		acct.LastName = &input.LastName
	}

	ent := p.buildEntitlement(pl, src)

	if err := p.repo.Create(ctx, acct, ent); err != nil {
		if errors.Is(err, ErrDuplicateAccount) {
			p.logger.Info("Account already exists, skipping provisioning",
				zap.String("email", input.Email))
		} else {
			p.logger.Error("Failed to persist account",
				zap.String("email", input.Email),
				zap.Error(err))
		}
		return nil, err
	}
	acct.Entitlement = ent

	p.logger.Info("Account provisioned",
		zap.String("account_id", acct.ID.String()),
		zap.String("plan", pl.Code),
		zap.String("source", src.String()))

	p.sendWelcome(ctx, acct)

	return acct, nil
}

func (p *Provisioner) buildEntitlement(pl plan.Plan, src ProvisioningSource) *Entitlement {
	ent := &Entitlement{}
	if src.IsPaymentConfirmed() {
		ent.State = EntitlementActive
		sessionID := src.CheckoutSessionID()
		if sessionID != "" {
			ent.CheckoutSessionID = &sessionID
		}
		return ent
	}

	ent.State = EntitlementTrialing
	trialEnd := time.Now().UTC().Add(time.Duration(pl.TrialDays) * 24 * time.Hour)
	ent.TrialEndsAt = &trialEnd
	return ent
}

// sendWelcome is best effort. The account exists regardless of the outcome.
func (p *Provisioner) sendWelcome(ctx context.Context, acct *Account) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.SendWelcome(ctx, acct); err != nil {
		p.logger.Warn("Welcome notification failed",
			zap.String("account_id", acct.ID.String()),
			zap.Error(err))
	}
}
