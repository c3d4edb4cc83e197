package port

import (
	"context"
	"errors"
)

// ErrWebhookSignature indicates a webhook payload failed signature
// verification and must be rejected.
var ErrWebhookSignature = errors.New("payments: webhook signature verification failed")

// CheckoutCompletion is the provider-neutral view of a completed checkout
// extracted from a Stripe event.
type CheckoutCompletion struct {
	SessionID     string
	ProductID     string
	AmountCents   int64
	Currency      string
	CustomerEmail string
}

// StripeGateway verifies webhook deliveries from Stripe.
type StripeGateway interface {
	// VerifyCheckoutEvent checks the signature and, when the event is a
	// completed checkout session, returns its details. For validly signed
	// events of other types it returns (nil, nil).
	VerifyCheckoutEvent(payload []byte, signatureHeader string) (*CheckoutCompletion, error)
}

// PayPalCapture is the provider-neutral result of capturing a PayPal order.
type PayPalCapture struct {
	OrderID     string
	ProductID   string
	AmountValue string // decimal string, e.g. "29.99"
	Currency    string // uppercase code, e.g. "USD"
	PayerEmail  string
	Completed   bool
}

// PayPalGateway captures previously created PayPal orders.
type PayPalGateway interface {
	CaptureOrder(ctx context.Context, orderID string) (*PayPalCapture, error)
}
