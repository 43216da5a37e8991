// File: internal/account/source.go
package account

// ProvisioningSource records how an account came to be created. It is an
// opaque value type: the only ways to obtain one are Immediate() and
// PaymentConfirmed(), so a caller cannot fabricate a "paid" source without
// holding the checkout session reference the webhook path carries.
type ProvisioningSource struct {
	kind      string
	sessionID string
}

const (
	sourceImmediate        = "immediate"
	sourcePaymentConfirmed = "payment_confirmed"
)

// Immediate is the source for free-tier provisioning straight from the
// registration flow, with no payment involved.
func Immediate() ProvisioningSource {
	return ProvisioningSource{kind: sourceImmediate}
}

// PaymentConfirmed is the source minted by the webhook path after a verified
// payment event; it carries the completed checkout session reference.
func PaymentConfirmed(checkoutSessionID string) ProvisioningSource {
	return ProvisioningSource{kind: sourcePaymentConfirmed, sessionID: checkoutSessionID}
}

// IsPaymentConfirmed reports whether this source represents a confirmed
// payment. A zero-value ProvisioningSource reports false.
func (s ProvisioningSource) IsPaymentConfirmed() bool {
	return s.kind == sourcePaymentConfirmed
}

// CheckoutSessionID returns the completed session reference, empty for
// immediate sources.
func (s ProvisioningSource) CheckoutSessionID() string {
	return s.sessionID
}

func (s ProvisioningSource) String() string {
	if s.kind == "" {
		return "unknown"
	}
	return s.kind
}
