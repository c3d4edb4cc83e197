package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kiwitweaks/commerce-api/internal/core/domain"
)

// Error codes carried in every failure response.
const (
	CodeValidation     = "VALIDATION_ERROR"
	CodeAuthentication = "AUTHENTICATION_ERROR"
	CodeAuthorization  = "AUTHORIZATION_ERROR"
	CodeNotFound       = "NOT_FOUND"
	CodeConflict       = "CONFLICT"
	CodeRateLimited    = "RATE_LIMITED"
	CodeAppError       = "APP_ERROR"
)

// APIResponse is the envelope every endpoint returns.
type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

// APIError is the machine-readable failure payload. TraceID is the opaque
// reference id for support correlation.
type APIError struct {
	Code       string       `json:"code"`
	Message    string       `json:"message"`
	Fields     []FieldError `json:"fields,omitempty"`
	RetryAfter int          `json:"retry_after,omitempty"`
	TraceID    string       `json:"trace_id,omitempty"`
}

// FieldError describes a single validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// RespondData writes a success envelope.
func RespondData(c *gin.Context, status int, data any) {
	c.JSON(status, APIResponse{Success: true, Data: data})
}

// RespondError writes a failure envelope with the trace id attached.
func RespondError(c *gin.Context, status int, code, message string) {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	c.JSON(status, APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
			TraceID: traceIDStr,
		},
	})
}

// MessageData is a simple message payload inside the success envelope.
type MessageData struct {
	Message string `json:"message"`
}

// RegisterRequest defines the payload for account creation.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"omitempty,min=3,max=32"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UserSummary is the sanitized account view embedded in auth responses.
type UserSummary struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Username      string     `json:"username,omitempty"`
	EmailVerified bool       `json:"email_verified"`
	IsPremium     bool       `json:"is_premium"`
	CreatedAt     time.Time  `json:"created_at"`
	LastLogin     *time.Time `json:"last_login,omitempty"`
}

// AuthResponse carries the session token plus the account summary.
type AuthResponse struct {
	Token string      `json:"token"`
	User  UserSummary `json:"user"`
}

// NewUserSummary maps a domain user onto the response shape.
func NewUserSummary(user *domain.User) UserSummary {
	summary := UserSummary{
		ID:            user.ID,
		Email:         user.Email,
		EmailVerified: user.EmailVerified,
		IsPremium:     user.IsPremium,
		CreatedAt:     user.CreatedAt,
		LastLogin:     user.LastLogin,
	}
	if user.Username != nil {
		summary.Username = *user.Username
	}
	return summary
}

// PasswordResetRequestBody asks for a reset email.
type PasswordResetRequestBody struct {
	Email string `json:"email" binding:"required,email"`
}

// PasswordResetConfirmBody finalizes a reset.
type PasswordResetConfirmBody struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// VerifyEmailRequest confirms email ownership.
type VerifyEmailRequest struct {
	Token string `json:"token" binding:"required"`
}

// ResendVerificationRequest asks for a fresh verification email.
type ResendVerificationRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// PayPalCaptureRequest captures a previously created PayPal order.
type PayPalCaptureRequest struct {
	OrderID string `json:"order_id" binding:"required"`
}

// CheckoutData reports a fulfilled payment. Replay marks a delivery that was
// already processed and produced no new state.
type CheckoutData struct {
	Received   bool   `json:"received"`
	OrderID    string `json:"order_id,omitempty"`
	ProductID  string `json:"product_id,omitempty"`
	LicenseKey string `json:"license_key,omitempty"`
	Replay     bool   `json:"replay,omitempty"`
}

// VerifyLicenseRequest validates a license key, optionally binding a HWID.
type VerifyLicenseRequest struct {
	LicenseKey string `json:"license_key" binding:"required"`
	HWID       string `json:"hwid"`
}

// LicenseData carries an issued license key.
type LicenseData struct {
	LicenseKey string `json:"license_key"`
}

// LicenseVerificationData reports a verification outcome.
type LicenseVerificationData struct {
	Valid     bool   `json:"valid"`
	ExpiresAt string `json:"expires_at,omitempty"`
	HWIDBound bool   `json:"hwid_bound"`
}

// CreateOrderRequest records an order for an already issued license.
type CreateOrderRequest struct {
	ProductID  string `json:"product_id" binding:"required"`
	LicenseKey string `json:"license_key"`
}

// OrderSummary is the API view of an order.
type OrderSummary struct {
	OrderID     string    `json:"order_id"`
	ProductID   string    `json:"product_id"`
	ProductName string    `json:"product_name"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	LicenseKey  string    `json:"license_key,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewOrderSummary maps a domain order onto the response shape.
func NewOrderSummary(order domain.Order) OrderSummary {
	return OrderSummary{
		OrderID:     order.OrderID,
		ProductID:   order.ProductID,
		ProductName: order.ProductName,
		AmountCents: order.AmountCents,
		Currency:    order.Currency,
		LicenseKey:  order.LicenseKey,
		Status:      string(order.Status),
		CreatedAt:   order.CreatedAt,
	}
}

// ProductSummary is the catalog view returned by the products endpoint.
type ProductSummary struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	PriceCents int64    `json:"price_cents"`
	Tagline    string   `json:"tagline,omitempty"`
	Features   []string `json:"features,omitempty"`
}

// HealthData reports process liveness and dependency status.
type HealthData struct {
	Status    string            `json:"status"`
	StartedAt time.Time         `json:"started_at"`
	Checks    map[string]string `json:"checks,omitempty"`
}
