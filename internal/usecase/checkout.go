package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kiwitweaks/commerce-api/internal/cache"
	"github.com/kiwitweaks/commerce-api/internal/core/domain"
	"github.com/kiwitweaks/commerce-api/internal/core/port"
	"github.com/kiwitweaks/commerce-api/internal/infra/config"
	"github.com/kiwitweaks/commerce-api/internal/infra/logger"
	"github.com/kiwitweaks/commerce-api/internal/infra/mail"
	"github.com/kiwitweaks/commerce-api/internal/infra/security"
	"github.com/kiwitweaks/commerce-api/internal/repository"
)

// CheckoutService runs the payment fulfillment pipeline: validate, dedupe,
// persist, issue license, notify. Replayed deliveries short-circuit after the
// dedupe step without touching state again.
type CheckoutService struct {
	cfg       *config.AppConfig
	users     port.UserRepository
	purchases port.PurchaseRepository
	orders    port.OrderRepository
	audit     port.AuditRepository
	stripe    port.StripeGateway
	paypal    port.PayPalGateway
	licenses  port.LicenseProvider
	mailer    port.Mailer
	renderer  port.TemplateRenderer
	events    port.EventPublisher
	cache     *cache.Loader
	logger    *zap.Logger
	now       func() time.Time
}

// fulfillment is the provider-neutral payment the pipeline operates on.
type fulfillment struct {
	Provider    domain.PaymentProvider
	ProviderRef string
	ProductID   string
	AmountCents int64
	Currency    string
	Email       string
}

// CheckoutResult reports what a processed payment produced.
type CheckoutResult struct {
	Replay     bool
	OrderID    string
	UserID     string
	ProductID  string
	LicenseKey string
}

// NewCheckoutService constructs a CheckoutService.
func NewCheckoutService(cfg *config.AppConfig, users port.UserRepository, purchases port.PurchaseRepository, orders port.OrderRepository, audit port.AuditRepository, stripe port.StripeGateway, paypal port.PayPalGateway, licenses port.LicenseProvider, mailer port.Mailer, renderer port.TemplateRenderer, events port.EventPublisher, cacheLoader *cache.Loader, log *zap.Logger) *CheckoutService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CheckoutService{
		cfg:       cfg,
		users:     users,
		purchases: purchases,
		orders:    orders,
		audit:     audit,
		stripe:    stripe,
		paypal:    paypal,
		licenses:  licenses,
		mailer:    mailer,
		renderer:  renderer,
		events:    events,
		cache:     cacheLoader,
		logger:    log,
		now:       time.Now,
	}
}

// WithClock allows tests to override the clock used by the service.
func (s *CheckoutService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// HandleStripeWebhook verifies the delivery and fulfills completed checkout
// sessions. A signature failure is returned as port.ErrWebhookSignature and
// must be rejected; business validation failures are acknowledged as no-ops
// (nil result, nil error) so Stripe does not retry-storm, but are recorded
// as security events.
func (s *CheckoutService) HandleStripeWebhook(ctx context.Context, payload []byte, signatureHeader string) (*CheckoutResult, error) {
	completion, err := s.stripe.VerifyCheckoutEvent(payload, signatureHeader)
	if err != nil {
		s.recordSecurityEvent(ctx, "webhook_signature_failed", string(domain.ProviderStripe), "", err.Error())
		return nil, err
	}
	if completion == nil {
		// Validly signed event of a type we do not fulfill.
		return nil, nil
	}

	return s.fulfill(ctx, fulfillment{
		Provider:    domain.ProviderStripe,
		ProviderRef: completion.SessionID,
		ProductID:   completion.ProductID,
		AmountCents: completion.AmountCents,
		Currency:    completion.Currency,
		Email:       completion.CustomerEmail,
	})
}

// CapturePayPal captures a previously created PayPal order and fulfills it.
func (s *CheckoutService) CapturePayPal(ctx context.Context, orderID string) (*CheckoutResult, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, fmt.Errorf("order id is required")
	}

	capture, err := s.paypal.CaptureOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("capture paypal order: %w", err)
	}
	if !capture.Completed {
		return nil, ErrPaymentIncomplete
	}

	if !domain.ValidatePayPalPrice(capture.ProductID, capture.AmountValue, capture.Currency) {
		s.recordSecurityEvent(ctx, "price_mismatch", string(domain.ProviderPayPal), capture.OrderID,
			fmt.Sprintf("product=%s amount=%s %s", capture.ProductID, capture.AmountValue, capture.Currency))
		return nil, ErrProductUnknown
	}

	amount, err := decimal.NewFromString(capture.AmountValue)
	if err != nil {
		return nil, fmt.Errorf("parse captured amount: %w", err)
	}

	return s.fulfill(ctx, fulfillment{
		Provider:    domain.ProviderPayPal,
		ProviderRef: capture.OrderID,
		ProductID:   capture.ProductID,
		AmountCents: amount.Mul(decimal.NewFromInt(100)).IntPart(),
		Currency:    strings.ToLower(capture.Currency),
		Email:       capture.PayerEmail,
	})
}

// fulfill drives validated → deduplicated → persisted → license-issued →
// notified. Stripe business failures return (nil, nil) after security
// logging so the webhook is still acknowledged.
func (s *CheckoutService) fulfill(ctx context.Context, f fulfillment) (*CheckoutResult, error) {
	product, err := domain.GetProduct(f.ProductID)
	if err != nil {
		s.recordSecurityEvent(ctx, "unknown_product", string(f.Provider), f.ProviderRef, f.ProductID)
		return s.rejectBusiness(f)
	}

	if f.Provider == domain.ProviderStripe && !domain.ValidateStripePrice(f.ProductID, f.AmountCents, f.Currency) {
		s.recordSecurityEvent(ctx, "price_mismatch", string(f.Provider), f.ProviderRef,
			fmt.Sprintf("product=%s amount=%d %s", f.ProductID, f.AmountCents, f.Currency))
		return s.rejectBusiness(f)
	}

	email := NormalizeEmail(f.Email)
	if email == "" {
		s.recordSecurityEvent(ctx, "missing_customer_email", string(f.Provider), f.ProviderRef, "")
		return s.rejectBusiness(f)
	}

	// Fast-path dedupe; the unique constraint below is the real guard.
	if existing, err := s.purchases.GetByProviderRef(ctx, f.Provider, f.ProviderRef); err == nil {
		s.logger.Info("webhook replay short-circuited",
			zap.String("provider", string(f.Provider)),
			zap.String("provider_ref", f.ProviderRef),
		)
		return &CheckoutResult{Replay: true, UserID: existing.UserID, ProductID: existing.ProductID}, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("dedupe lookup: %w", err)
	}

	now := s.now().UTC()
	user, err := s.users.UpsertByEmail(ctx, domain.User{
		ID:        uuid.NewString(),
		Email:     email,
		CreatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert customer: %w", err)
	}

	licenseKey, err := security.GenerateLicenseKey()
	if err != nil {
		return nil, fmt.Errorf("generate license key: %w", err)
	}

	if s.licenses != nil {
		if err := s.licenses.RegisterKey(ctx, licenseKey, product.ID); err != nil {
			// Key is still persisted below; registration can be replayed.
			s.logger.Error("license provider registration failed",
				zap.String("product_id", product.ID),
				zap.Error(err),
			)
			s.recordAudit(ctx, "license_registration_failed", &user.ID, map[string]any{
				"product_id": product.ID,
				"provider":   string(f.Provider),
			})
		}
	}

	purchase := domain.Purchase{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		ProductID:   product.ID,
		LicenseKey:  licenseKey,
		AmountCents: f.AmountCents,
		Currency:    f.Currency,
		Provider:    f.Provider,
		ProviderRef: f.ProviderRef,
		Status:      domain.PurchaseStatusCompleted,
		CreatedAt:   now,
	}
	if err := s.purchases.Create(ctx, purchase); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Concurrent delivery won the insert race.
			s.logger.Info("webhook replay lost insert race",
				zap.String("provider", string(f.Provider)),
				zap.String("provider_ref", f.ProviderRef),
			)
			return &CheckoutResult{Replay: true, UserID: user.ID, ProductID: product.ID}, nil
		}
		return nil, fmt.Errorf("persist purchase: %w", err)
	}

	if err := s.users.GrantLicense(ctx, user.ID, licenseKey); err != nil {
		return nil, fmt.Errorf("grant license: %w", err)
	}

	username := ""
	if user.Username != nil {
		username = *user.Username
	}

	order, err := s.orders.Create(ctx, domain.Order{
		ID:             uuid.NewString(),
		UserID:         user.ID,
		Email:          user.Email,
		Username:       username,
		AccountAgeDays: user.AccountAgeDays(now),
		ProductID:      product.ID,
		ProductName:    product.Name,
		AmountCents:    f.AmountCents,
		Currency:       f.Currency,
		LicenseKey:     licenseKey,
		Status:         domain.OrderStatusCompleted,
		CreatedAt:      now,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.sendPurchaseEmails(ctx, user.Email, order, product, licenseKey)
	s.publishFulfillmentEvents(ctx, user.ID, order, product, f)

	if s.cache != nil {
		s.cache.Invalidate(ctx, cache.ProfileKey(user.ID))
	}

	return &CheckoutResult{
		OrderID:    order.OrderID,
		UserID:     user.ID,
		ProductID:  product.ID,
		LicenseKey: licenseKey,
	}, nil
}

// rejectBusiness terminates Stripe fulfillment as an acknowledged no-op and
// PayPal capture as a client error.
func (s *CheckoutService) rejectBusiness(f fulfillment) (*CheckoutResult, error) {
	if f.Provider == domain.ProviderStripe {
		return nil, nil
	}
	return nil, ErrProductUnknown
}

func (s *CheckoutService) sendPurchaseEmails(ctx context.Context, email string, order *domain.Order, product domain.Product, licenseKey string) {
	if s.mailer == nil || s.renderer == nil {
		return
	}

	amount := decimal.New(order.AmountCents, -2).StringFixed(2)

	receipt, err := s.renderer.Render(mail.TemplatePurchaseReceipt, map[string]any{
		"OrderID":     order.OrderID,
		"ProductName": product.Name,
		"Amount":      amount,
		"Currency":    strings.ToUpper(order.Currency),
	})
	if err != nil {
		s.logger.Error("render receipt email failed", zap.Error(err))
	} else {
		text := fmt.Sprintf("Thanks for your purchase. Order %s: %s (%s %s)", order.OrderID, product.Name, amount, strings.ToUpper(order.Currency))
		if err := s.mailer.Send(ctx, email, fmt.Sprintf("Your KiwiTweaks receipt (%s)", order.OrderID), receipt, text); err != nil {
			s.logger.Error("send receipt email failed", zap.String("email", logger.MaskEmail(email)), zap.Error(err))
		}
	}

	delivery, err := s.renderer.Render(mail.TemplateLicenseDelivery, map[string]any{
		"ProductName": product.Name,
		"LicenseKey":  licenseKey,
	})
	if err != nil {
		s.logger.Error("render license email failed", zap.Error(err))
		return
	}

	text := fmt.Sprintf("Your %s license key: %s", product.Name, licenseKey)
	if err := s.mailer.Send(ctx, email, "Your KiwiTweaks license key", delivery, text); err != nil {
		s.logger.Error("send license email failed", zap.String("email", logger.MaskEmail(email)), zap.Error(err))
	}
}

func (s *CheckoutService) publishFulfillmentEvents(ctx context.Context, userID string, order *domain.Order, product domain.Product, f fulfillment) {
	if s.events == nil {
		return
	}

	completed := domain.OrderCompletedEvent{
		OrderID:     order.OrderID,
		UserID:      userID,
		ProductID:   product.ID,
		AmountCents: order.AmountCents,
		Currency:    order.Currency,
		Provider:    f.Provider,
		ProviderRef: f.ProviderRef,
		CompletedAt: order.CreatedAt,
	}
	if err := s.events.PublishOrderCompleted(ctx, completed); err != nil {
		s.logger.Warn("publish order completed event failed", zap.String("order_id", order.OrderID), zap.Error(err))
	}

	issued := domain.LicenseIssuedEvent{
		UserID:    userID,
		ProductID: product.ID,
		OrderID:   order.OrderID,
		IssuedAt:  order.CreatedAt,
	}
	if err := s.events.PublishLicenseIssued(ctx, issued); err != nil {
		s.logger.Warn("publish license issued event failed", zap.String("order_id", order.OrderID), zap.Error(err))
	}
}

func (s *CheckoutService) recordSecurityEvent(ctx context.Context, kind, provider, reference, detail string) {
	s.logger.Warn("payment security event",
		zap.String("kind", kind),
		zap.String("provider", provider),
		zap.String("reference", reference),
		zap.String("detail", detail),
	)

	s.recordAudit(ctx, kind, nil, map[string]any{
		"provider":  provider,
		"reference": reference,
		"detail":    detail,
	})

	if s.events != nil {
		event := domain.SecurityAlertEvent{
			Kind:       kind,
			Provider:   provider,
			Reference:  reference,
			Detail:     detail,
			OccurredAt: s.now().UTC(),
		}
		if err := s.events.PublishSecurityAlert(ctx, event); err != nil {
			s.logger.Warn("publish security alert failed", zap.Error(err))
		}
	}
}

func (s *CheckoutService) recordAudit(ctx context.Context, event string, userID *string, detail map[string]any) {
	if s.audit == nil {
		return
	}

	entry := port.AuditEntry{
		Event:     event,
		UserID:    userID,
		Detail:    detail,
		CreatedAt: s.now().UTC(),
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn("record audit entry failed", zap.String("event", event), zap.Error(err))
	}
}
