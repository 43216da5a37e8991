// File: internal/registration/model.go
package registration

import (
	"time"

	"bookline_backend/internal/common"
)

// Status tracks a pending registration through its lifecycle. Transitions
// only ever move away from StatusAwaitingPayment; the conditional update in
// the repository enforces this at the database level.
type Status string

const (
	StatusAwaitingPayment Status = "awaiting_payment"
	StatusProvisioned     Status = "provisioned"
	StatusExpired         Status = "expired"
	StatusFailed          Status = "failed"
)

// PendingRegistration is the durable record of a registration waiting for
// payment confirmation. It holds everything the provisioner needs, so the
// webhook path never has to re-contact the identity provider.
type PendingRegistration struct {
	common.BaseModel
	Email             string    `gorm:"type:varchar(255);not null;index"`
	PlanCode          string    `gorm:"type:varchar(50);not null"`
	AuthProvider      string    `gorm:"type:varchar(50);not null"`
	ProviderID        string    `gorm:"type:varchar(255);not null"`
	FirstName         *string   `gorm:"type:varchar(100)"`
	LastName          *string   `gorm:"type:varchar(100)"`
	ConsentTerms      bool      `gorm:"not null;default:false"`
	ConsentMarketing  bool      `gorm:"not null;default:false"`
	CheckoutSessionID string    `gorm:"type:varchar(255);not null;uniqueIndex"`
	Status            Status    `gorm:"type:varchar(32);not null;index"`
	ExpiresAt         time.Time `gorm:"not null;index"`
}

// TableName specifies the table name for the PendingRegistration model.
func (PendingRegistration) TableName() string {
	return "pending_registrations"
}

// WebhookEvent is the idempotency ledger row for inbound payment events.
// The unique index on ExternalEventID makes the insert the dedupe arbiter.
type WebhookEvent struct {
	common.BaseModel
	ExternalEventID string `gorm:"type:varchar(255);not null;uniqueIndex"`
	Type            string `gorm:"type:varchar(100);not null"`
	Payload         []byte `gorm:"type:jsonb"`
	ProcessedAt     *time.Time
}

// TableName specifies the table name for the WebhookEvent model.
func (WebhookEvent) TableName() string {
	return "webhook_events"
}
