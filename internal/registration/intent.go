// File: internal/registration/intent.go
package registration

import (
	"context"
	"errors"
	"net/http"

	"bookline_backend/internal/account"
	"bookline_backend/internal/common"
	"bookline_backend/internal/identity"
	"bookline_backend/internal/plan"
)

// Flow is the user's declared intent, captured before the OAuth redirect.
type Flow string

const (
	FlowLogin    Flow = "login"
	FlowRegister Flow = "register"
)

// Decision is the evaluator's verdict on what the callback should do next.
type Decision string

const (
	// DecisionLogin signs the existing account in.
	DecisionLogin Decision = "login"
	// DecisionProvisionFree creates the account immediately, no payment.
	DecisionProvisionFree Decision = "provision_free"
	// DecisionCheckoutRequired defers creation until payment confirms.
	DecisionCheckoutRequired Decision = "checkout_required"
)

var (
	// ErrAccountNotFound is returned for a login flow with no matching account.
	ErrAccountNotFound = common.NewAPIError(http.StatusNotFound, "ACCOUNT_NOT_FOUND", "No account exists for this identity. Register first.")
	// ErrAccountExists is returned for a register flow when the identity
	// already has an account.
	ErrAccountExists = common.NewAPIError(http.StatusConflict, "ACCOUNT_EXISTS", "An account already exists for this identity. Sign in instead.")
)

// AccountLookup is the read-only account access the evaluator needs.
type AccountLookup interface {
	FindByEmail(ctx context.Context, email string) (*account.Account, error)
}

// IntentEvaluator decides, for a verified identity and requested flow, which
// path the callback takes. It performs no writes and creates no sessions.
type IntentEvaluator struct {
	accounts AccountLookup
}

// NewIntentEvaluator creates the intent evaluator.
func NewIntentEvaluator(accounts AccountLookup) *IntentEvaluator {
	return &IntentEvaluator{accounts: accounts}
}

// Evaluate maps (identity, flow, plan) onto a decision. The existing account
// is returned alongside DecisionLogin so the caller can issue tokens without
// a second lookup.
func (e *IntentEvaluator) Evaluate(ctx context.Context, ident *identity.VerifiedIdentity, flow Flow, pl plan.Plan) (Decision, *account.Account, error) {
	existing, err := e.accounts.FindByEmail(ctx, ident.Email)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return "", nil, err
	}

	if flow == FlowLogin {
		if existing == nil {
			return "", nil, ErrAccountNotFound
		}
		return DecisionLogin, existing, nil
	}

	if existing != nil {
		return "", nil, ErrAccountExists
	}
	if pl.RequiresPayment() {
		return DecisionCheckoutRequired, nil, nil
	}
	return DecisionProvisionFree, nil, nil
}
