// File: internal/payment/gateway.go
package payment

import (
	"context"
	"net/http"

	"bookline_backend/internal/common"
)

var (
	// ErrInvalidSignature is returned for webhook payloads whose signature
	// does not verify. Such events are dropped without any state change.
	ErrInvalidSignature = common.NewAPIError(http.StatusBadRequest, "INVALID_SIGNATURE", "Webhook signature verification failed.")
	// ErrProviderUnavailable is returned when the payment provider cannot be
	// reached or rejects a checkout session request.
	ErrProviderUnavailable = common.NewAPIError(http.StatusBadGateway, "PAYMENT_SETUP_FAILED", "The payment provider could not create a checkout session.")
)

// EventKind is the normalized classification of a provider webhook event.
type EventKind string

const (
	EventPaymentConfirmed EventKind = "payment_confirmed"
	EventPaymentFailed    EventKind = "payment_failed"
	EventSessionExpired   EventKind = "session_expired"
	// EventIgnored covers provider event types this service does not act on.
	EventIgnored EventKind = "ignored"
)

// CheckoutParams describes one hosted checkout session to create.
type CheckoutParams struct {
	PlanCode      string
	PriceID       string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	// IdempotencyKey prevents duplicate sessions when the synchronous
	// request path is retried.
	IdempotencyKey string
	Metadata       map[string]string
}

// CheckoutSession is the provider-hosted transaction reference. The ID is
// opaque to this service; the URL is where the user completes payment.
type CheckoutSession struct {
	ID  string
	URL string
}

// Event is a verified, normalized webhook event.
type Event struct {
	// ExternalID is the provider's unique event id, used for deduplication.
	ExternalID string
	Kind       EventKind
	// Type is the provider's raw event type string.
	Type string
	// SessionID links the event back to the checkout session. Set for
	// checkout.* events, which carry the session as their own object.
	SessionID string
	// PendingRegistrationID is the registration reference propagated through
	// provider metadata; invoice events are linked through it because the
	// session id does not exist yet when metadata is attached.
	PendingRegistrationID string
	Raw                   []byte
}

// Gateway is the payment provider collaborator: outbound checkout session
// creation and inbound webhook verification.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)
	// ParseWebhook verifies the signature before anything else; an invalid
	// signature fails with ErrInvalidSignature and the payload is discarded.
	ParseWebhook(payload []byte, signature string) (*Event, error)
}
