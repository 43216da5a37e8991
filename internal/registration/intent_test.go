package registration

import (
	"context"
	"errors"
	"testing"

	"bookline_backend/internal/account"
	"bookline_backend/internal/common"
	"bookline_backend/internal/identity"
	"bookline_backend/internal/plan"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAccountLookup struct {
	accounts map[string]*account.Account
	err      error
}

func (f *fakeAccountLookup) FindByEmail(_ context.Context, email string) (*account.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	if acct, ok := f.accounts[email]; ok {
		return acct, nil
	}
	return nil, common.ErrNotFound
}

func testIdentity(email string) *identity.VerifiedIdentity {
	return &identity.VerifiedIdentity{
		Email:      email,
		Provider:   "google",
		ExternalID: "sub-123",
	}
}

func TestEvaluateLoginExistingAccount(t *testing.T) {
	existing := &account.Account{Email: "ada@example.com"}
	evaluator := NewIntentEvaluator(&fakeAccountLookup{
		accounts: map[string]*account.Account{"ada@example.com": existing},
	})

	decision, acct, err := evaluator.Evaluate(context.Background(), testIdentity("ada@example.com"), FlowLogin, plan.Plan{Tier: plan.TierFree, TrialDays: 30})
	require.NoError(t, err)
	assert.Equal(t, DecisionLogin, decision)
	assert.Same(t, existing, acct)
}

func TestEvaluateLoginUnknownAccount(t *testing.T) {
	evaluator := NewIntentEvaluator(&fakeAccountLookup{})

	_, _, err := evaluator.Evaluate(context.Background(), testIdentity("nobody@example.com"), FlowLogin, plan.Plan{Tier: plan.TierFree, TrialDays: 30})
	assert.True(t, errors.Is(err, ErrAccountNotFound))
}

func TestEvaluateRegisterExistingAccount(t *testing.T) {
	evaluator := NewIntentEvaluator(&fakeAccountLookup{
		accounts: map[string]*account.Account{"ada@example.com": {Email: "ada@example.com"}},
	})

	_, _, err := evaluator.Evaluate(context.Background(), testIdentity("ada@example.com"), FlowRegister, plan.Plan{Tier: plan.TierFree, TrialDays: 30})
	assert.True(t, errors.Is(err, ErrAccountExists))
}

func TestEvaluateRegisterDecisions(t *testing.T) {
	testCases := []struct {
		name     string
		plan     plan.Plan
		expected Decision
	}{
		{name: "free plan with trial provisions immediately", plan: plan.Plan{Code: "free", Tier: plan.TierFree, TrialDays: 30}, expected: DecisionProvisionFree},
		{name: "paid plan defers to checkout", plan: plan.Plan{Code: "pro", Tier: plan.TierPaid, PriceID: "price_1"}, expected: DecisionCheckoutRequired},
		{name: "free plan without trial defers to checkout", plan: plan.Plan{Code: "free", Tier: plan.TierFree, TrialDays: 0}, expected: DecisionCheckoutRequired},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			evaluator := NewIntentEvaluator(&fakeAccountLookup{})
			decision, acct, err := evaluator.Evaluate(context.Background(), testIdentity("new@example.com"), FlowRegister, tc.plan)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, decision)
			assert.Nil(t, acct)
		})
	}
}

func TestEvaluatePropagatesLookupFailure(t *testing.T) {
	lookupErr := errors.New("connection refused")
	evaluator := NewIntentEvaluator(&fakeAccountLookup{err: lookupErr})

	_, _, err := evaluator.Evaluate(context.Background(), testIdentity("ada@example.com"), FlowRegister, plan.Plan{Tier: plan.TierFree, TrialDays: 30})
	assert.True(t, errors.Is(err, lookupErr))
}
