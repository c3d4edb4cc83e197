package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// BindJSON binds the request body and, on failure, writes the full
// structured validation error list. Returns false when the request was
// already answered.
func BindJSON(c *gin.Context, dest any) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		respondValidationError(c, err)
		return false
	}
	return true
}

func respondValidationError(c *gin.Context, err error) {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	response := APIResponse{
		Success: false,
		Error: &APIError{
			Code:    CodeValidation,
			Message: "request validation failed",
			Fields:  fieldErrors(err),
			TraceID: traceIDStr,
		},
	}

	c.JSON(http.StatusBadRequest, response)
}

func fieldErrors(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: "body", Message: "malformed request body", Type: "invalid"}}
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Field:   strings.ToLower(fe.Field()),
			Message: fieldErrorMessage(fe),
			Type:    fe.Tag(),
		})
	}
	return out
}

func fieldErrorMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
