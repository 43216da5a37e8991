// File: internal/plan/catalog.go
package plan

import (
	"net/http"
	"strings"

	"bookline_backend/internal/common"
	"bookline_backend/internal/config"
)

// Tier is a named subscription level with an associated payment requirement.
type Tier string

const (
	TierFree Tier = "free"
	TierPaid Tier = "paid"
)

// CodeFree is the default plan when a flow does not name one.
const CodeFree = "free"

var (
	// ErrUnknownPlan is returned when a requested plan code is not in the catalog.
	ErrUnknownPlan = common.NewAPIError(http.StatusBadRequest, "UNKNOWN_PLAN", "The requested plan does not exist.")
	// ErrInvalidPlanConfiguration signals a paid plan that cannot be sold
	// because its payment-provider binding is missing.
	ErrInvalidPlanConfiguration = common.NewAPIError(http.StatusInternalServerError, "PAYMENT_NOT_CONFIGURED", "The requested plan is not configured for payment.")
)

// Plan describes one subscription level resolved from the catalog.
type Plan struct {
	Code      string
	Name      string
	Tier      Tier
	TrialDays int
	// PriceID is the payment provider's price reference. Empty for free plans.
	PriceID string
}

// RequiresPayment reports whether an account on this plan may only be
// provisioned after a confirmed payment. A free plan without a trial window
// has nothing to fall back on and is treated as payment-requiring as well.
func (p Plan) RequiresPayment() bool {
	return p.Tier == TierPaid || p.TrialDays == 0
}

// Catalog holds the configured plans, resolved once at startup.
type Catalog struct {
	plans map[string]Plan
}

// NewCatalog builds the plan catalog from configuration. A payment-requiring
// plan without a price id stays in the catalog but is unsellable; Resolve
// rejects it with PAYMENT_NOT_CONFIGURED instead of letting the flow
// downgrade silently.
func NewCatalog(cfg *config.Config) (*Catalog, error) {
	plans := map[string]Plan{
		"free": {
			Code:      "free",
			Name:      "Starter",
			Tier:      TierFree,
			TrialDays: cfg.FreePlanTrialDays,
		},
		"pro": {
			Code:    "pro",
			Name:    "Pro",
			Tier:    TierPaid,
			PriceID: cfg.ProPlanPriceID,
		},
		"premium": {
			Code:    "premium",
			Name:    "Premium",
			Tier:    TierPaid,
			PriceID: cfg.PremiumPlanPriceID,
		},
	}

	return &Catalog{plans: plans}, nil
}

// Resolve returns the plan for a code, or ErrUnknownPlan /
// ErrInvalidPlanConfiguration. Any payment-requiring plan without a price
// binding is unsellable; that covers unpriced paid plans and a free plan
// whose trial window was configured away.
func (c *Catalog) Resolve(code string) (Plan, error) {
	p, ok := c.plans[strings.ToLower(strings.TrimSpace(code))]
	if !ok {
		return Plan{}, ErrUnknownPlan.WithDetails("No plan with code '" + code + "'.")
	}
	if p.RequiresPayment() && p.PriceID == "" {
		return Plan{}, ErrInvalidPlanConfiguration.WithDetails("Plan '" + p.Code + "' requires payment but has no payment price configured.")
	}
	return p, nil
}
