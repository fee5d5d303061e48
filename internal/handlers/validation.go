package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/echopoint/echopoint/internal/models"
	"github.com/go-playground/validator/v10"
)

// Global validator instance (reused across all handlers)
var validate = validator.New()

// decodeJSON decodes the request body into dst and validates it. Failures
// come back as validation errors for the boundary to render.
func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return models.NewValidationError("Invalid request body.")
	}
	return validateRequest(dst)
}

// validateRequest validates a request struct using go-playground/validator.
// The first failing field becomes the error message.
func validateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
		fe := ve[0]
		return models.NewValidationError(fmt.Sprintf("%s: %s", fe.Field(), formatValidationError(fe)))
	}
	return models.NewValidationError("Invalid request body.")
}

// formatValidationError converts a validator FieldError to a user-friendly message
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must have a minimum of %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must have a maximum of %s characters", fe.Param())
	case "eqfield":
		return fmt.Sprintf("must match %s", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}
