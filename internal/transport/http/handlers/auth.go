package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kiwitweaks/commerce-api/internal/usecase"
)

// AuthHandler exposes registration and login.
type AuthHandler struct {
	accounts *usecase.AccountService
}

// NewAuthHandler builds an AuthHandler.
func NewAuthHandler(accounts *usecase.AccountService) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

var registerErrorCases = []ErrorCase{
	{Err: usecase.ErrEmailTaken, Status: http.StatusConflict, Code: CodeConflict, Message: "email already registered"},
	{Err: usecase.ErrWeakPassword, Status: http.StatusBadRequest, Code: CodeValidation, Message: "password does not meet requirements"},
}

// Register creates an account and returns a session token.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !BindJSON(c, &req) {
		return
	}

	result, err := h.accounts.Register(c.Request.Context(), usecase.RegisterInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		RespondWithMappedError(c, err, registerErrorCases)
		return
	}

	RespondData(c, http.StatusCreated, AuthResponse{
		Token: result.Token,
		User:  NewUserSummary(result.User),
	})
}

var loginErrorCases = []ErrorCase{
	{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Code: CodeAuthentication, Message: "invalid email or password"},
}

// Login verifies credentials and returns a session token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !BindJSON(c, &req) {
		return
	}

	result, err := h.accounts.Login(c.Request.Context(), usecase.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		RespondWithMappedError(c, err, loginErrorCases)
		return
	}

	RespondData(c, http.StatusOK, AuthResponse{
		Token: result.Token,
		User:  NewUserSummary(result.User),
	})
}
