// File: cmd/server/providers.go
package main

import (
	"fmt"
	"log"

	"bookline_backend/internal/account"
	"bookline_backend/internal/config"
	"bookline_backend/internal/notification"
	"bookline_backend/internal/platform/database"
	"bookline_backend/internal/registration"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// provideDatabase opens the database connection and keeps the schema in
// step with the models.
func provideDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.NewGORM(cfg)
	if err != nil {
		return nil, err
	}
	if err := migrateDatabase(db); err != nil {
		return nil, fmt.Errorf("schema migration failed: %w", err)
	}
	return db, nil
}

func migrateDatabase(db *gorm.DB) error {
	return db.AutoMigrate(
		&account.Account{},
		&account.Entitlement{},
		&registration.PendingRegistration{},
		&registration.WebhookEvent{},
		&notification.Notification{},
	)
}

func provideCleanup(logger *zap.Logger, db *gorm.DB) func() {
	return func() {
		logger.Info("Executing cleanup tasks...")
		database.CloseGORMDB(db)
		if err := logger.Sync(); err != nil {
			log.Printf("ERROR: Failed to sync logger during cleanup: %v", err)
		}
		log.Println("Cleanup finished.")
	}
}
