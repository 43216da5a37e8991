// File: internal/notification/repository.go
package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, notification *Notification) error
	MarkDelivered(ctx context.Context, notificationID uuid.UUID, at time.Time) error
	GetByAccountID(ctx context.Context, accountID uuid.UUID, limit int) ([]Notification, error)
}

// GORMRepository implements the Repository interface using GORM.
type GORMRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM notification repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &GORMRepository{db: db}
}

// Create inserts a new notification into the database.
func (r *GORMRepository) Create(ctx context.Context, notification *Notification) error {
	if err := r.db.WithContext(ctx).Create(notification).Error; err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// MarkDelivered stamps the notification with its delivery time.
func (r *GORMRepository) MarkDelivered(ctx context.Context, notificationID uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&Notification{}).
		Where("id = ?", notificationID).
		Update("delivered_at", at)
	if result.Error != nil {
		return fmt.Errorf("failed to mark notification %s delivered: %w", notificationID, result.Error)
	}
	return nil
}

// GetByAccountID retrieves recent notifications for an account, newest first.
func (r *GORMRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID, limit int) ([]Notification, error) {
	var notifications []Notification
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Limit(limit).
		Find(&notifications).Error
	if err != nil {
		return nil, fmt.Errorf("fetching notifications for account %s failed: %w", accountID, err)
	}
	return notifications, nil
}
