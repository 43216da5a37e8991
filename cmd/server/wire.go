// File: cmd/server/wire.go
//go:build wireinject
// +build wireinject

package main

import (
	"bookline_backend/internal/account"
	"bookline_backend/internal/app"
	"bookline_backend/internal/auth"
	"bookline_backend/internal/config"
	"bookline_backend/internal/identity"
	"bookline_backend/internal/jobs"
	"bookline_backend/internal/notification"
	"bookline_backend/internal/payment"
	"bookline_backend/internal/plan"
	"bookline_backend/internal/platform/logger"
	"bookline_backend/internal/registration"

	"github.com/google/wire"
)

// initializeServer is the main Wire injector.
func initializeServer(cfg *config.Config) (*app.Server, func(), error) {
	wire.Build(
		// Platform Layer
		logger.New,
		provideDatabase,
		provideCleanup,

		// Core Services
		auth.NewTokenService,
		plan.NewCatalog,
		identity.NewGoogleResolver,
		payment.NewStripeGateway,

		// Accounts
		account.NewGORMRepository,
		account.NewProvisioner,
		account.NewHandler,
		wire.Bind(new(registration.AccountProvisioner), new(*account.Provisioner)),
		wire.Bind(new(registration.AccountLookup), new(account.Repository)),

		// Notifications
		notification.NewGORMRepository,
		notification.NewSender,
		notification.NewService,
		wire.Bind(new(account.WelcomeNotifier), new(*notification.Service)),
		wire.Bind(new(registration.PaymentFailureNotifier), new(*notification.Service)),

		// Registration Flow
		registration.NewGORMRepository,
		registration.NewIntentEvaluator,
		registration.NewCheckoutOrchestrator,
		registration.NewWebhookProcessor,
		registration.NewHandler,

		// Jobs
		jobs.NewRegistrationExpiryJob,

		// Application Layer
		app.NewServer,
	)
	return nil, nil, nil
}
