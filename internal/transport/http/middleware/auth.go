package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kiwitweaks/commerce-api/internal/infra/security"
)

func authErrorBody(c *gin.Context, message string) gin.H {
	return gin.H{
		"success": false,
		"error": gin.H{
			"code":     "AUTHENTICATION_ERROR",
			"message":  message,
			"trace_id": GetTraceID(c),
		},
	}
}

func bearerToken(c *gin.Context) (string, string) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", "missing authorization header"
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", "invalid authorization format: expected 'Bearer <token>'"
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", "missing session token"
	}

	return token, ""
}

// RequireAuth validates the Authorization header and stores session claims.
func RequireAuth(tokens *security.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, problem := bearerToken(c)
		if problem != "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, authErrorBody(c, problem))
			return
		}

		claims, err := tokens.Verify(token)
		if err != nil {
			switch {
			case errors.Is(err, security.ErrExpiredSessionToken):
				c.AbortWithStatusJSON(http.StatusUnauthorized, authErrorBody(c, "session token expired"))
			case errors.Is(err, security.ErrInvalidSessionToken):
				c.AbortWithStatusJSON(http.StatusUnauthorized, authErrorBody(c, "invalid session token"))
			default:
				c.AbortWithStatusJSON(http.StatusInternalServerError, authErrorBody(c, "authentication failed"))
			}
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(UserEmailKey, claims.Email)

		if reqCtx := GetRequestContext(c); reqCtx != nil {
			reqCtx.UserID = claims.UserID
		}

		c.Next()
	}
}

// OptionalAuth stores session claims when a valid bearer token is present
// and otherwise lets the request through anonymously. Invalid tokens are
// still rejected so callers cannot probe with garbage credentials.
func OptionalAuth(tokens *security.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.Next()
			return
		}

		token, problem := bearerToken(c)
		if problem != "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, authErrorBody(c, problem))
			return
		}

		claims, err := tokens.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, authErrorBody(c, "invalid session token"))
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(UserEmailKey, claims.Email)

		if reqCtx := GetRequestContext(c); reqCtx != nil {
			reqCtx.UserID = claims.UserID
		}

		c.Next()
	}
}

// GetAuthenticatedUserID retrieves the user ID from context (helper for handlers)
func GetAuthenticatedUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return "", false
	}

	if id, ok := userID.(string); ok && id != "" {
		return id, true
	}

	return "", false
}
