package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kiwitweaks/commerce-api/internal/usecase"
)

// VerificationHandler exposes email verification.
type VerificationHandler struct {
	verifications *usecase.VerificationService
}

// NewVerificationHandler builds a VerificationHandler.
func NewVerificationHandler(verifications *usecase.VerificationService) *VerificationHandler {
	return &VerificationHandler{verifications: verifications}
}

var verifyErrorCases = []ErrorCase{
	{Err: usecase.ErrTokenInvalid, Status: http.StatusUnauthorized, Code: CodeAuthentication, Message: "verification token invalid"},
	{Err: usecase.ErrTokenExpired, Status: http.StatusUnauthorized, Code: CodeAuthentication, Message: "verification token expired"},
	{Err: usecase.ErrEmailAlreadyVerified, Status: http.StatusConflict, Code: CodeConflict, Message: "email already verified"},
}

// Verify marks the account verified for a valid token.
func (h *VerificationHandler) Verify(c *gin.Context) {
	var req VerifyEmailRequest
	if !BindJSON(c, &req) {
		return
	}

	if err := h.verifications.Verify(c.Request.Context(), req.Token); err != nil {
		RespondWithMappedError(c, err, verifyErrorCases)
		return
	}

	RespondData(c, http.StatusOK, MessageData{Message: "email verified"})
}

// Resend issues a fresh verification email. The response does not reveal
// whether the address holds an account.
func (h *VerificationHandler) Resend(c *gin.Context) {
	var req ResendVerificationRequest
	if !BindJSON(c, &req) {
		return
	}

	if err := h.verifications.Resend(c.Request.Context(), req.Email); err != nil {
		RespondWithMappedError(c, err, nil)
		return
	}

	RespondData(c, http.StatusOK, MessageData{
		Message: "if an unverified account exists for that email, a new verification link has been sent",
	})
}
