// File: internal/payment/stripe.go
package payment

import (
	"context"
	"encoding/json"
	"fmt"

	"bookline_backend/internal/config"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/checkout/session"
	"github.com/stripe/stripe-go/v83/webhook"
	"go.uber.org/zap"
)

// StripeGateway implements Gateway using Stripe Checkout.
type StripeGateway struct {
	webhookSecret string
	logger        *zap.Logger
}

// NewStripeGateway creates the Stripe-backed payment gateway. The secret key
// is set globally on the SDK, matching how the SDK's package-level clients
// are meant to be used.
func NewStripeGateway(cfg *config.Config, logger *zap.Logger) Gateway {
	stripe.Key = cfg.StripeSecretKey
	return &StripeGateway{
		webhookSecret: cfg.StripeWebhookSecret,
		logger:        logger.Named("StripeGateway"),
	}
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error) {
	sessionParams := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		CustomerEmail: stripe.String(params.CustomerEmail),
		SuccessURL:    stripe.String(params.SuccessURL),
		CancelURL:     stripe.String(params.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(params.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
	}
	sessionParams.Context = ctx

	if params.IdempotencyKey != "" {
		sessionParams.IdempotencyKey = stripe.String(params.IdempotencyKey)
	}
	for k, v := range params.Metadata {
		sessionParams.AddMetadata(k, v)
	}
	// Propagate metadata onto the subscription so invoice webhooks can be
	// traced back to the originating checkout session.
	sessionParams.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{
		Metadata: params.Metadata,
	}

	sess, err := session.New(sessionParams)
	if err != nil {
		g.logger.Error("Stripe checkout session creation failed",
			zap.String("plan", params.PlanCode),
			zap.Error(err))
		return nil, wrapStripeError(err)
	}

	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*Event, error) {
	if len(payload) == 0 || signature == "" || g.webhookSecret == "" {
		return nil, ErrInvalidSignature
	}

	// ConstructEventWithOptions tolerates API-version drift between the
	// provider and the SDK; signature verification is unaffected.
	stripeEvent, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		g.logger.Warn("Webhook signature verification failed", zap.Error(err))
		return nil, ErrInvalidSignature
	}

	return normalizeStripeEvent(stripeEvent.ID, string(stripeEvent.Type), stripeEvent.Data.Raw)
}

// normalizeStripeEvent maps a verified Stripe event onto the gateway's
// normalized Event. Split out for direct testing without a signed payload.
func normalizeStripeEvent(externalID, eventType string, raw json.RawMessage) (*Event, error) {
	event := &Event{
		ExternalID: externalID,
		Type:       eventType,
		Raw:        raw,
	}

	switch eventType {
	case "checkout.session.completed":
		event.Kind = EventPaymentConfirmed
	case "invoice.payment_succeeded":
		event.Kind = EventPaymentConfirmed
	case "invoice.payment_failed":
		event.Kind = EventPaymentFailed
	case "checkout.session.expired":
		event.Kind = EventSessionExpired
	default:
		event.Kind = EventIgnored
		return event, nil
	}

	if err := linkEventObject(event, eventType, raw); err != nil {
		return nil, fmt.Errorf("failed to extract registration reference from %s event: %w", eventType, err)
	}
	return event, nil
}

// linkEventObject fills SessionID / PendingRegistrationID from the event
// object. Checkout events carry the session as their own id; invoice events
// only carry the registration reference propagated through subscription
// metadata.
func linkEventObject(event *Event, eventType string, raw json.RawMessage) error {
	var object struct {
		ID                  string            `json:"id"`
		Metadata            map[string]string `json:"metadata"`
		SubscriptionDetails struct {
			Metadata map[string]string `json:"metadata"`
		} `json:"subscription_details"`
	}
	if err := json.Unmarshal(raw, &object); err != nil {
		return err
	}

	switch eventType {
	case "checkout.session.completed", "checkout.session.expired":
		event.SessionID = object.ID
		event.PendingRegistrationID = object.Metadata[MetadataPendingRegistrationKey]
	default:
		if id, ok := object.SubscriptionDetails.Metadata[MetadataPendingRegistrationKey]; ok && id != "" {
			event.PendingRegistrationID = id
		} else {
			event.PendingRegistrationID = object.Metadata[MetadataPendingRegistrationKey]
		}
	}
	return nil
}

// MetadataPendingRegistrationKey is the metadata key carrying the pending
// registration linkage through the provider's objects.
const MetadataPendingRegistrationKey = "pending_registration_id"

func wrapStripeError(err error) error {
	if stripeErr, ok := err.(*stripe.Error); ok {
		return ErrProviderUnavailable.WithDetails(fmt.Sprintf("stripe: %s (%s)", stripeErr.Msg, stripeErr.Code))
	}
	return ErrProviderUnavailable.WithDetails(err.Error())
}
