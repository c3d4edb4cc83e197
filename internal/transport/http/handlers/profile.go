package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kiwitweaks/commerce-api/internal/transport/http/middleware"
	"github.com/kiwitweaks/commerce-api/internal/usecase"
)

// ProfileHandler serves the cached account profile.
type ProfileHandler struct {
	profiles *usecase.ProfileService
}

// NewProfileHandler builds a ProfileHandler.
func NewProfileHandler(profiles *usecase.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

var profileErrorCases = []ErrorCase{
	{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Code: CodeNotFound, Message: "account not found"},
}

// Get returns the authenticated user's profile.
func (h *ProfileHandler) Get(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, CodeAuthentication, "authentication required")
		return
	}

	profile, err := h.profiles.Get(c.Request.Context(), userID)
	if err != nil {
		RespondWithMappedError(c, err, profileErrorCases)
		return
	}

	RespondData(c, http.StatusOK, profile)
}
