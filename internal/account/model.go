// File: internal/account/model.go
package account

import (
	"time"

	"bookline_backend/internal/common"

	"github.com/google/uuid"
)

// EntitlementState tracks what an account is currently entitled to.
type EntitlementState string

const (
	// EntitlementTrialing is a free-tier account inside its trial window.
	EntitlementTrialing EntitlementState = "trialing"
	// EntitlementActive is a paid account backed by a subscription.
	EntitlementActive EntitlementState = "active"
)

// Account represents the account model in the database.
type Account struct {
	common.BaseModel
	Email              string  `gorm:"type:varchar(255);not null;uniqueIndex:accounts_email_key"`
	PlanCode           string  `gorm:"type:varchar(50);not null"`
	PlanTier           string  `gorm:"type:varchar(20);not null"`
	ProvisioningSource string  `gorm:"type:varchar(32);not null"`
	AuthProvider       string  `gorm:"type:varchar(50);not null"`
	ProviderID         string  `gorm:"type:varchar(255);not null;index:idx_account_provider_id,unique"`
	FirstName          *string `gorm:"type:varchar(100)"`
	LastName           *string `gorm:"type:varchar(100)"`
	ConsentTerms       bool    `gorm:"not null;default:false"`
	ConsentMarketing   bool    `gorm:"not null;default:false"`
	LastLoginAt        *time.Time

	Entitlement *Entitlement `gorm:"foreignKey:AccountID"`
}

// TableName specifies the table name for the Account model.
func (Account) TableName() string {
	return "accounts"
}

// Entitlement holds the account's initialized entitlement state. It is
// created in the same transaction as its account.
type Entitlement struct {
	common.BaseModel
	AccountID         uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex"`
	State             EntitlementState `gorm:"type:varchar(20);not null"`
	TrialEndsAt       *time.Time
	CheckoutSessionID *string `gorm:"type:varchar(255)"`
}

// TableName specifies the table name for the Entitlement model.
func (Entitlement) TableName() string {
	return "entitlements"
}

// --- shared.AccountDataForToken ---

func (a *Account) GetID() uuid.UUID {
	return a.ID
}

func (a *Account) GetEmail() string {
	return a.Email
}

func (a *Account) GetPlanCode() string {
	return a.PlanCode
}

// AccountResponse defines the structure for account data sent in API responses.
type AccountResponse struct {
	ID                 uuid.UUID  `json:"id"`
	Email              string     `json:"email"`
	PlanCode           string     `json:"plan_code"`
	PlanTier           string     `json:"plan_tier"`
	EntitlementState   string     `json:"entitlement_state,omitempty"`
	TrialEndsAt        *time.Time `json:"trial_ends_at,omitempty"`
	FirstName          *string    `json:"first_name,omitempty"`
	LastName           *string    `json:"last_name,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	LastLoginAt        *time.Time `json:"last_login_at,omitempty"`
}

// ToAccountResponse converts an Account model to an AccountResponse DTO.
func ToAccountResponse(acct *Account) AccountResponse {
	resp := AccountResponse{
		ID:          acct.ID,
		Email:       acct.Email,
		PlanCode:    acct.PlanCode,
		PlanTier:    acct.PlanTier,
		FirstName:   acct.FirstName,
		LastName:    acct.LastName,
		CreatedAt:   acct.CreatedAt,
		LastLoginAt: acct.LastLoginAt,
	}
	if acct.Entitlement != nil {
		resp.EntitlementState = string(acct.Entitlement.State)
		resp.TrialEndsAt = acct.Entitlement.TrialEndsAt
	}
	return resp
}
