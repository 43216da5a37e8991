// File: internal/notification/model.go
package notification

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Type defines the type of notification.
type Type string

const (
	AccountWelcome       Type = "account_welcome"
	AccountPaymentFailed Type = "account_payment_failed"
)

// Notification represents a message recorded for an account. Rows are
// immutable once created; delivery state lives in DeliveredAt.
type Notification struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	AccountID   uuid.UUID  `gorm:"type:uuid;not null;index:idx_notification_account" json:"account_id"`
	Type        Type       `gorm:"type:varchar(100);not null" json:"type"`
	Message     string     `gorm:"type:text;not null" json:"message"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	CreatedAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_notification_account" json:"created_at"`
}

// TableName specifies the table name for GORM.
func (Notification) TableName() string {
	return "notifications"
}

// BeforeCreate assigns the primary key unless the caller already set one.
func (n *Notification) BeforeCreate(_ *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
