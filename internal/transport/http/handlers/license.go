package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kiwitweaks/commerce-api/internal/transport/http/middleware"
	"github.com/kiwitweaks/commerce-api/internal/usecase"
)

// LicenseHandler exposes license generation and verification.
type LicenseHandler struct {
	licenses *usecase.LicenseService
}

// NewLicenseHandler builds a LicenseHandler.
func NewLicenseHandler(licenses *usecase.LicenseService) *LicenseHandler {
	return &LicenseHandler{licenses: licenses}
}

var generateLicenseErrorCases = []ErrorCase{
	{Err: usecase.ErrLicenseNotOwed, Status: http.StatusForbidden, Code: CodeAuthorization, Message: "no completed purchase on this account"},
	{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Code: CodeNotFound, Message: "account not found"},
}

// Generate issues (or re-returns) the license key for the authenticated user.
func (h *LicenseHandler) Generate(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, CodeAuthentication, "authentication required")
		return
	}

	key, err := h.licenses.Generate(c.Request.Context(), userID)
	if err != nil {
		RespondWithMappedError(c, err, generateLicenseErrorCases)
		return
	}

	RespondData(c, http.StatusOK, LicenseData{LicenseKey: key})
}

// Verify checks a license key against the licensing provider. When the caller
// is authenticated and supplies a HWID, the key is bound to that hardware.
func (h *LicenseHandler) Verify(c *gin.Context) {
	var req VerifyLicenseRequest
	if !BindJSON(c, &req) {
		return
	}

	userID, _ := middleware.GetAuthenticatedUserID(c)

	verification, err := h.licenses.Verify(c.Request.Context(), req.LicenseKey, userID, req.HWID)
	if err != nil {
		RespondWithMappedError(c, err, nil)
		return
	}

	RespondData(c, http.StatusOK, LicenseVerificationData{
		Valid:     verification.Valid,
		ExpiresAt: verification.ExpiresAt,
		HWIDBound: verification.HWIDBound,
	})
}
