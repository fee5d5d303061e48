package models

import "net/http"

// Kind classifies a failure into the taxonomy the recovery handler renders.
type Kind string

const (
	KindValidation       Kind = "validation"
	KindConflict         Kind = "conflict"
	KindUnauthorized     Kind = "unauthorized"
	KindForbidden        Kind = "forbidden"
	KindNotFound         Kind = "not_found"
	KindInvalidOrExpired Kind = "invalid_or_expired"
	KindDeliveryFailure  Kind = "delivery_failure"
	KindTransient        Kind = "transient"
	KindInternal         Kind = "internal"
)

// AppError is the single error channel every flow-level check fails through.
// Only the recovery handler turns one into an HTTP response.
type AppError struct {
	Kind        Kind
	Message     string
	StatusCode  int
	Operational bool
}

func (e *AppError) Error() string {
	return e.Message
}

func NewValidationError(message string) *AppError {
	return &AppError{Kind: KindValidation, Message: message, StatusCode: http.StatusBadRequest, Operational: true}
}

func NewConflictError(message string) *AppError {
	return &AppError{Kind: KindConflict, Message: message, StatusCode: http.StatusConflict, Operational: true}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{Kind: KindUnauthorized, Message: message, StatusCode: http.StatusUnauthorized, Operational: true}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{Kind: KindForbidden, Message: message, StatusCode: http.StatusForbidden, Operational: true}
}

func NewNotFoundError(message string) *AppError {
	return &AppError{Kind: KindNotFound, Message: message, StatusCode: http.StatusNotFound, Operational: true}
}

// NewInvalidOrExpiredError covers OTP and reset-token mismatch or expiry.
// Deliberately indistinguishable from "no such account" so a caller cannot
// probe which sub-condition failed.
func NewInvalidOrExpiredError(message string) *AppError {
	return &AppError{Kind: KindInvalidOrExpired, Message: message, StatusCode: http.StatusBadRequest, Operational: true}
}

func NewDeliveryError(message string) *AppError {
	return &AppError{Kind: KindDeliveryFailure, Message: message, StatusCode: http.StatusInternalServerError, Operational: true}
}

func NewTransientError(message string) *AppError {
	return &AppError{Kind: KindTransient, Message: message, StatusCode: http.StatusServiceUnavailable, Operational: true}
}

// NewInternalError marks an unanticipated failure. Non-operational messages are
// replaced with a generic phrase in production.
func NewInternalError(message string) *AppError {
	return &AppError{Kind: KindInternal, Message: message, StatusCode: http.StatusInternalServerError, Operational: false}
}
