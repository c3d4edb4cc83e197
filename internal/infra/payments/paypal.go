package payments

import (
	"context"
	"fmt"
	"strings"
	"sync"

	paypal "github.com/plutov/paypal/v4"
	"go.uber.org/zap"

	"github.com/kiwitweaks/commerce-api/internal/core/port"
	"github.com/kiwitweaks/commerce-api/internal/infra/config"
)

// PayPalGateway captures orders through the PayPal REST API.
type PayPalGateway struct {
	client *paypal.Client
	log    *zap.Logger

	tokenOnce sync.Once
	tokenErr  error
}

// NewPayPalGateway builds a client against the sandbox or live API base.
func NewPayPalGateway(cfg config.PayPalSettings, log *zap.Logger) (*PayPalGateway, error) {
	base := paypal.APIBaseSandBox
	if cfg.Live {
		base = paypal.APIBaseLive
	}

	client, err := paypal.NewClient(cfg.ClientID, cfg.Secret, base)
	if err != nil {
		return nil, fmt.Errorf("create paypal client: %w", err)
	}

	return &PayPalGateway{client: client, log: log}, nil
}

func (g *PayPalGateway) ensureToken(ctx context.Context) error {
	g.tokenOnce.Do(func() {
		if _, err := g.client.GetAccessToken(ctx); err != nil {
			g.tokenErr = fmt.Errorf("paypal access token: %w", err)
		}
	})
	return g.tokenErr
}

// CaptureOrder captures a previously created order and normalizes the
// result. The product id travels in the purchase unit reference id set by
// the checkout page.
func (g *PayPalGateway) CaptureOrder(ctx context.Context, orderID string) (*port.PayPalCapture, error) {
	if err := g.ensureToken(ctx); err != nil {
		return nil, err
	}

	resp, err := g.client.CaptureOrder(ctx, orderID, paypal.CaptureOrderRequest{})
	if err != nil {
		return nil, fmt.Errorf("capture paypal order %s: %w", orderID, err)
	}

	capture := &port.PayPalCapture{
		OrderID:   resp.ID,
		Completed: strings.EqualFold(string(resp.Status), "COMPLETED"),
	}

	if resp.Payer != nil {
		capture.PayerEmail = resp.Payer.EmailAddress
	}

	for _, unit := range resp.PurchaseUnits {
		if capture.ProductID == "" {
			capture.ProductID = unit.ReferenceID
		}
		if unit.Payments == nil {
			continue
		}
		for _, c := range unit.Payments.Captures {
			if c.Amount != nil {
				capture.AmountValue = c.Amount.Value
				capture.Currency = c.Amount.Currency
			}
		}
	}

	g.log.Info("paypal order captured",
		zap.String("order_id", capture.OrderID),
		zap.Bool("completed", capture.Completed),
	)

	return capture, nil
}

var _ port.PayPalGateway = (*PayPalGateway)(nil)
