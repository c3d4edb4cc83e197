package payments

import (
	"encoding/json"
	"fmt"
	"strings"

	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"

	"github.com/kiwitweaks/commerce-api/internal/core/port"
	"github.com/kiwitweaks/commerce-api/internal/infra/config"
)

const checkoutCompletedEvent = "checkout.session.completed"

// StripeGateway verifies Stripe webhook deliveries.
type StripeGateway struct {
	webhookSecret string
	log           *zap.Logger
}

// NewStripeGateway configures the Stripe SDK and returns a gateway.
func NewStripeGateway(cfg config.StripeSettings, log *zap.Logger) (*StripeGateway, error) {
	if strings.TrimSpace(cfg.WebhookSecret) == "" {
		return nil, fmt.Errorf("stripe webhook secret is required")
	}

	stripe.Key = cfg.SecretKey

	return &StripeGateway{webhookSecret: cfg.WebhookSecret, log: log}, nil
}

// VerifyCheckoutEvent checks the webhook signature and extracts completed
// checkout sessions. Events of other types verify but return nil.
func (g *StripeGateway) VerifyCheckoutEvent(payload []byte, signatureHeader string) (*port.CheckoutCompletion, error) {
	event, err := webhook.ConstructEvent(payload, signatureHeader, g.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", port.ErrWebhookSignature, err)
	}

	if string(event.Type) != checkoutCompletedEvent {
		g.log.Debug("ignoring stripe event", zap.String("type", string(event.Type)))
		return nil, nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}

	completion := &port.CheckoutCompletion{
		SessionID:   session.ID,
		ProductID:   session.Metadata["product_id"],
		AmountCents: session.AmountTotal,
		Currency:    string(session.Currency),
	}
	if session.CustomerDetails != nil {
		completion.CustomerEmail = session.CustomerDetails.Email
	}

	return completion, nil
}

var _ port.StripeGateway = (*StripeGateway)(nil)
