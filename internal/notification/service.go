// File: internal/notification/service.go
package notification

import (
	"context"
	"fmt"
	"time"

	"bookline_backend/internal/account"

	"go.uber.org/zap"
)

// Service records notifications and hands them to the configured sender.
// It implements account.WelcomeNotifier and registration.PaymentFailureNotifier.
type Service struct {
	repo   Repository
	sender Sender
	logger *zap.Logger
}

// NewService creates a new notification service.
func NewService(repo Repository, sender Sender, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		sender: sender,
		logger: logger.Named("NotificationService"),
	}
}

// SendWelcome records and delivers the welcome message for a freshly
// provisioned account.
func (s *Service) SendWelcome(ctx context.Context, acct *account.Account) error {
	return s.deliver(ctx, acct, &Notification{
		AccountID: acct.ID,
		Type:      AccountWelcome,
		Message:   welcomeMessage(acct),
	})
}

// SendPaymentFailed records a payment failure notice for an account. The
// provider retries failed charges over several days and raises an event on
// each attempt, so a notice recorded within the last day is not repeated.
func (s *Service) SendPaymentFailed(ctx context.Context, acct *account.Account) error {
	recent, err := s.repo.GetByAccountID(ctx, acct.ID, 20)
	if err != nil {
		return err
	}
	cutoff := time.Now().UTC().Add(-24 * time.Hour)
	for _, n := range recent {
		if n.Type == AccountPaymentFailed && n.CreatedAt.After(cutoff) {
			s.logger.Debug("Payment failure notice already recorded recently",
				zap.String("account_id", acct.ID.String()))
			return nil
		}
	}
	return s.deliver(ctx, acct, &Notification{
		AccountID: acct.ID,
		Type:      AccountPaymentFailed,
		Message:   paymentFailedMessage(acct),
	})
}

// deliver persists the row first so a relay outage never loses the
// notification, then hands it to the sender and stamps delivery.
func (s *Service) deliver(ctx context.Context, acct *account.Account, n *Notification) error {
	if err := s.repo.Create(ctx, n); err != nil {
		return err
	}

	if err := s.sender.Send(ctx, acct.Email, n); err != nil {
		s.logger.Warn("Notification delivery failed, row kept for retry",
			zap.String("notification_id", n.ID.String()),
			zap.String("type", string(n.Type)),
			zap.Error(err))
		return err
	}

	if err := s.repo.MarkDelivered(ctx, n.ID, time.Now().UTC()); err != nil {
		s.logger.Warn("Failed to stamp notification delivery",
			zap.String("notification_id", n.ID.String()),
			zap.Error(err))
	}
	return nil
}

func welcomeMessage(acct *account.Account) string {
	name := "there"
	if acct.FirstName != nil && *acct.FirstName != "" {
		name = *acct.FirstName
	}
	return fmt.Sprintf("Hi %s, welcome aboard! Your %s plan is ready to use.", name, acct.PlanCode)
}

func paymentFailedMessage(acct *account.Account) string {
	return fmt.Sprintf("We could not collect the latest payment for your %s plan. Please update your payment method to keep your subscription active.", acct.PlanCode)
}
