package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kiwitweaks/commerce-api/internal/core/port"
	"github.com/kiwitweaks/commerce-api/internal/usecase"
)

// PaymentHandler exposes the Stripe webhook endpoint and the PayPal capture
// endpoint.
type PaymentHandler struct {
	checkout *usecase.CheckoutService
	logger   *zap.Logger
}

// NewPaymentHandler builds a PaymentHandler.
func NewPaymentHandler(checkout *usecase.CheckoutService, log *zap.Logger) *PaymentHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &PaymentHandler{checkout: checkout, logger: log}
}

var paypalCaptureErrorCases = []ErrorCase{
	{Err: usecase.ErrPaymentIncomplete, Status: http.StatusBadRequest, Code: CodeValidation, Message: "payment was not completed"},
	{Err: usecase.ErrProductUnknown, Status: http.StatusBadRequest, Code: CodeValidation, Message: "order does not match a known product"},
}

// StripeWebhook receives checkout.session.completed deliveries. Signature
// failures are rejected with 400 so Stripe retries against a fixed secret;
// business validation failures are acknowledged with 200 so Stripe stops
// retrying a payload that will never fulfill.
func (h *PaymentHandler) StripeWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		RespondError(c, http.StatusBadRequest, CodeValidation, "unable to read request body")
		return
	}

	result, err := h.checkout.HandleStripeWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, port.ErrWebhookSignature) {
			RespondError(c, http.StatusBadRequest, CodeValidation, "webhook signature verification failed")
			return
		}
		h.logger.Error("stripe webhook processing failed", zap.Error(err))
		RespondError(c, http.StatusInternalServerError, CodeAppError, "webhook processing failed")
		return
	}

	data := CheckoutData{Received: true}
	if result != nil {
		data.OrderID = result.OrderID
		data.Replay = result.Replay
	}
	RespondData(c, http.StatusOK, data)
}

// PayPalCapture captures an approved PayPal order and fulfills it.
func (h *PaymentHandler) PayPalCapture(c *gin.Context) {
	var req PayPalCaptureRequest
	if !BindJSON(c, &req) {
		return
	}

	result, err := h.checkout.CapturePayPal(c.Request.Context(), req.OrderID)
	if err != nil {
		RespondWithMappedError(c, err, paypalCaptureErrorCases)
		return
	}

	RespondData(c, http.StatusOK, CheckoutData{
		Received:   true,
		OrderID:    result.OrderID,
		LicenseKey: result.LicenseKey,
		Replay:     result.Replay,
	})
}
