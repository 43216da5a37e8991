// File: internal/notification/sender.go
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"bookline_backend/internal/config"

	"go.uber.org/zap"
)

// Sender pushes a notification to an external delivery channel.
type Sender interface {
	Send(ctx context.Context, recipientEmail string, n *Notification) error
}

// NewSender picks the relay sender when a relay URL is configured, otherwise
// a no-op sender so notifications are still recorded locally.
func NewSender(cfg *config.Config, logger *zap.Logger) Sender {
	if cfg.NotificationRelayURL == "" {
		logger.Info("Notification relay not configured, notifications will only be persisted")
		return &noopSender{}
	}
	return &relaySender{
		relayURL: cfg.NotificationRelayURL,
		client:   &http.Client{Timeout: cfg.NotificationRelayTimeout},
		logger:   logger.Named("NotificationRelay"),
	}
}

type noopSender struct{}

func (s *noopSender) Send(_ context.Context, _ string, _ *Notification) error {
	return nil
}

// relaySender POSTs the notification to the delivery relay.
type relaySender struct {
	relayURL string
	client   *http.Client
	logger   *zap.Logger
}

type relayPayload struct {
	RecipientEmail string    `json:"recipient_email"`
	Type           string    `json:"type"`
	Message        string    `json:"message"`
	SentAt         time.Time `json:"sent_at"`
}

func (s *relaySender) Send(ctx context.Context, recipientEmail string, n *Notification) error {
	body, err := json.Marshal(relayPayload{
		RecipientEmail: recipientEmail,
		Type:           string(n.Type),
		Message:        n.Message,
		SentAt:         time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode relay payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.relayURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("relay request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		s.logger.Warn("Notification relay rejected message",
			zap.Int("status", resp.StatusCode),
			zap.String("type", string(n.Type)))
		return fmt.Errorf("relay returned status %d", resp.StatusCode)
	}
	return nil
}
