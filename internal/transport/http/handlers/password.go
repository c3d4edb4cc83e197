package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kiwitweaks/commerce-api/internal/usecase"
)

// PasswordHandler exposes the password reset flow.
type PasswordHandler struct {
	resets *usecase.PasswordResetService
}

// NewPasswordHandler builds a PasswordHandler.
func NewPasswordHandler(resets *usecase.PasswordResetService) *PasswordHandler {
	return &PasswordHandler{resets: resets}
}

// ResetRequest always answers with the same generic success body so the
// endpoint cannot be used to probe which emails hold accounts.
func (h *PasswordHandler) ResetRequest(c *gin.Context) {
	var req PasswordResetRequestBody
	if !BindJSON(c, &req) {
		return
	}

	if err := h.resets.Request(c.Request.Context(), req.Email); err != nil {
		RespondWithMappedError(c, err, nil)
		return
	}

	RespondData(c, http.StatusOK, MessageData{
		Message: "if an account exists for that email, a reset link has been sent",
	})
}

var resetConfirmErrorCases = []ErrorCase{
	{Err: usecase.ErrTokenInvalid, Status: http.StatusUnauthorized, Code: CodeAuthentication, Message: "reset token invalid"},
	{Err: usecase.ErrTokenExpired, Status: http.StatusUnauthorized, Code: CodeAuthentication, Message: "reset token expired"},
	{Err: usecase.ErrWeakPassword, Status: http.StatusBadRequest, Code: CodeValidation, Message: "password does not meet requirements"},
}

// ResetConfirm applies a new password for a valid, unexpired token.
func (h *PasswordHandler) ResetConfirm(c *gin.Context) {
	var req PasswordResetConfirmBody
	if !BindJSON(c, &req) {
		return
	}

	if err := h.resets.Confirm(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		RespondWithMappedError(c, err, resetConfirmErrorCases)
		return
	}

	RespondData(c, http.StatusOK, MessageData{Message: "password updated"})
}
