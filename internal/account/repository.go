// File: internal/account/repository.go
package account

import (
	"context"
	"errors"
	"strings"

	"bookline_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the interface for account data operations.
type Repository interface {
	// Create inserts the account and its entitlement in one transaction.
	Create(ctx context.Context, acct *Account, ent *Entitlement) error
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)
	Update(ctx context.Context, acct *Account) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM account repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// Create inserts the account and entitlement atomically. A unique-email
// collision maps to ErrDuplicateAccount so callers can treat racing
// duplicates as benign.
func (r *gormRepository) Create(ctx context.Context, acct *Account, ent *Entitlement) error {
	acct.Email = strings.ToLower(strings.TrimSpace(acct.Email))

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(acct).Error; err != nil {
			return err
		}
		ent.AccountID = acct.ID
		return tx.Create(ent).Error
	})
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateAccount
		}
		return err
	}
	return nil
}

// FindByEmail retrieves an account by its normalized email address.
func (r *gormRepository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	var acct Account
	normalizedEmail := strings.ToLower(strings.TrimSpace(email))
	err := r.db.WithContext(ctx).
		Preload("Entitlement").
		Where("email = ?", normalizedEmail).
		First(&acct).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Account not found with this email.")
		}
		return nil, err
	}
	return &acct, nil
}

// FindByID retrieves an account by its ID.
func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	var acct Account
	err := r.db.WithContext(ctx).
		Preload("Entitlement").
		Where("id = ?", id).
		First(&acct).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Account not found with this ID.")
		}
		return nil, err
	}
	return &acct, nil
}

// Update modifies an existing account record.
func (r *gormRepository) Update(ctx context.Context, acct *Account) error {
	acct.Email = strings.ToLower(strings.TrimSpace(acct.Email))
	err := r.db.WithContext(ctx).Save(acct).Error
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateAccount
		}
		return err
	}
	return nil
}

func isDuplicateKeyError(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "unique constraint") ||
		strings.Contains(err.Error(), "duplicate key value violates unique constraint") ||
		strings.Contains(err.Error(), "UNIQUE constraint failed")
}
