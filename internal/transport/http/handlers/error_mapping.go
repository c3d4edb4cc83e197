package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kiwitweaks/commerce-api/internal/usecase"
)

// ErrorCase maps a sentinel error to an HTTP status, error code, and message.
type ErrorCase struct {
	Err     error
	Status  int
	Code    string
	Message string
}

// RespondWithMappedError resolves the provided error against known cases or
// falls back to a generic 500. Rate-limit errors are recognized regardless of
// the case list so Retry-After is always populated.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	var rateErr *usecase.RateLimitExceededError
	if errors.As(err, &rateErr) {
		respondRateLimited(c, rateErr)
		return
	}

	for _, cs := range cases {
		if cs.Err == nil {
			continue
		}
		if errors.Is(err, cs.Err) {
			RespondError(c, cs.Status, cs.Code, cs.Message)
			return
		}
	}

	RespondError(c, http.StatusInternalServerError, CodeAppError, "internal server error")
}

func respondRateLimited(c *gin.Context, rateErr *usecase.RateLimitExceededError) {
	retrySeconds := int(math.Ceil(rateErr.RetryAfter.Seconds()))
	if retrySeconds < 0 {
		retrySeconds = 0
	}
	if retrySeconds > 0 {
		c.Header("Retry-After", strconv.Itoa(retrySeconds))
	}

	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	c.JSON(http.StatusTooManyRequests, APIResponse{
		Success: false,
		Error: &APIError{
			Code:       CodeRateLimited,
			Message:    "too many requests",
			RetryAfter: retrySeconds,
			TraceID:    traceIDStr,
		},
	})
}
