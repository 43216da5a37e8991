// File: internal/registration/repository.go
package registration

import (
	"context"
	"errors"
	"strings"
	"time"

	"bookline_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the interface for pending registration and webhook
// ledger data operations.
type Repository interface {
	CreatePending(ctx context.Context, pending *PendingRegistration) error
	FindPendingBySessionID(ctx context.Context, sessionID string) (*PendingRegistration, error)
	FindPendingByID(ctx context.Context, id uuid.UUID) (*PendingRegistration, error)
	// TransitionStatus moves a pending registration from one status to
	// another. It reports false when the row is no longer in the expected
	// status, which makes it safe under concurrent webhook delivery.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to Status) (bool, error)
	// ExpireOverdue marks awaiting_payment rows past their deadline as
	// expired and returns how many were swept.
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)

	// RecordEvent inserts the ledger row for an inbound event. When the
	// event id was already recorded it returns the existing row and false
	// instead, so callers can tell a replay of a processed event from a
	// redelivery after a failed attempt.
	RecordEvent(ctx context.Context, event *WebhookEvent) (*WebhookEvent, bool, error)
	MarkEventProcessed(ctx context.Context, eventID uuid.UUID, at time.Time) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM registration repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreatePending(ctx context.Context, pending *PendingRegistration) error {
	pending.Email = strings.ToLower(strings.TrimSpace(pending.Email))
	if err := r.db.WithContext(ctx).Create(pending).Error; err != nil {
		if isDuplicateKeyError(err) {
			return common.ErrConflict.WithDetails("A registration for this checkout session already exists.")
		}
		return err
	}
	return nil
}

func (r *gormRepository) FindPendingBySessionID(ctx context.Context, sessionID string) (*PendingRegistration, error) {
	var pending PendingRegistration
	err := r.db.WithContext(ctx).Where("checkout_session_id = ?", sessionID).First(&pending).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("No pending registration for this checkout session.")
		}
		return nil, err
	}
	return &pending, nil
}

func (r *gormRepository) FindPendingByID(ctx context.Context, id uuid.UUID) (*PendingRegistration, error) {
	var pending PendingRegistration
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&pending).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("No pending registration with this ID.")
		}
		return nil, err
	}
	return &pending, nil
}

// TransitionStatus is a conditional update: the WHERE clause on the current
// status means only one of several racing callers observes RowsAffected == 1.
func (r *gormRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to Status) (bool, error) {
	result := r.db.WithContext(ctx).Model(&PendingRegistration{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *gormRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&PendingRegistration{}).
		Where("status = ? AND expires_at <= ?", StatusAwaitingPayment, now).
		Update("status", StatusExpired)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *gormRepository) RecordEvent(ctx context.Context, event *WebhookEvent) (*WebhookEvent, bool, error) {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		if !isDuplicateKeyError(err) {
			return nil, false, err
		}
		var existing WebhookEvent
		findErr := r.db.WithContext(ctx).
			Where("external_event_id = ?", event.ExternalEventID).
			First(&existing).Error
		if findErr != nil {
			return nil, false, findErr
		}
		return &existing, false, nil
	}
	return event, true, nil
}

func (r *gormRepository) MarkEventProcessed(ctx context.Context, eventID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&WebhookEvent{}).
		Where("id = ?", eventID).
		Update("processed_at", at).Error
}

func isDuplicateKeyError(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "unique constraint") ||
		strings.Contains(err.Error(), "duplicate key value violates unique constraint") ||
		strings.Contains(err.Error(), "UNIQUE constraint failed")
}
