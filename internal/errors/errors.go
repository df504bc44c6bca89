// Package errors provides custom error types for the LedgerWise API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import (
	"net/http"
	"strings"
)

// FieldError describes a single invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
// Details lists per-field problems for validation failures.
type AppError struct {
	Code       string       `json:"code"`
	Message    string       `json:"message"`
	StatusCode int          `json:"-"`
	Retryable  bool         `json:"retryable,omitempty"`
	Details    []FieldError `json:"details,omitempty"`
	Internal   error        `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// HasField reports whether the error carries a detail for the given field.
func (e *AppError) HasField(field string) bool {
	for _, d := range e.Details {
		if d.Field == field {
			return true
		}
	}
	return false
}

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Retryable:  sentinel.Retryable,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Retryable:  sentinel.Retryable,
		Internal:   sentinel.Internal,
	}
}

// NewValidationError builds a VALIDATION_FAILED error listing every failing field.
func NewValidationError(fields []FieldError) *AppError {
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Field)
	}
	return &AppError{
		Code:       ErrValidationFailed.Code,
		Message:    "invalid fields: " + strings.Join(names, ", "),
		StatusCode: ErrValidationFailed.StatusCode,
		Details:    fields,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", StatusCode: http.StatusUnauthorized}
	ErrInvalidToken       = &AppError{Code: "INVALID_TOKEN", Message: "Invalid or expired token", StatusCode: http.StatusUnauthorized}
	ErrForbidden          = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
	ErrAccountLocked      = &AppError{Code: "ACCOUNT_LOCKED", Message: "Account is temporarily locked", StatusCode: http.StatusLocked}
)

// General errors.
var (
	ErrInvalidInput     = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrValidationFailed = &AppError{Code: "VALIDATION_FAILED", Message: "Validation failed", StatusCode: http.StatusBadRequest}
	ErrNotFound         = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer   = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// External service errors. Those marked Retryable are safe for the client to retry.
var (
	ErrExternalService = &AppError{Code: "EXTERNAL_SERVICE_ERROR", Message: "An upstream service failed, please try again", StatusCode: http.StatusBadGateway, Retryable: true}
	ErrAINotConfigured = &AppError{Code: "AI_NOT_CONFIGURED", Message: "AI extraction is not configured", StatusCode: http.StatusServiceUnavailable}
	ErrAIRateLimited   = &AppError{Code: "AI_RATE_LIMITED", Message: "AI quota exceeded, please try again later", StatusCode: http.StatusTooManyRequests, Retryable: true}
	ErrAIRejected      = &AppError{Code: "AI_REQUEST_REJECTED", Message: "The AI service rejected the request, check the API key and file", StatusCode: http.StatusBadGateway}
)

// User errors.
var (
	ErrUserNotFound   = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateEmail = &AppError{Code: "DUPLICATE_EMAIL", Message: "A user with this email already exists", StatusCode: http.StatusConflict}
)

// Category errors.
var (
	ErrCategoryNotFound  = &AppError{Code: "CATEGORY_NOT_FOUND", Message: "Category not found", StatusCode: http.StatusNotFound}
	ErrCategoryInUse     = &AppError{Code: "CATEGORY_IN_USE", Message: "Category is used by existing transactions", StatusCode: http.StatusConflict}
	ErrDuplicateCategory = &AppError{Code: "DUPLICATE_CATEGORY", Message: "A category with this name already exists", StatusCode: http.StatusConflict}
)

// Transaction errors.
var (
	ErrTransactionNotFound = &AppError{Code: "TRANSACTION_NOT_FOUND", Message: "Transaction not found", StatusCode: http.StatusNotFound}
)

// Invoice errors.
var (
	ErrExtractionNotFound  = &AppError{Code: "EXTRACTION_NOT_FOUND", Message: "Invoice extraction not found", StatusCode: http.StatusNotFound}
	ErrExtractionConfirmed = &AppError{Code: "EXTRACTION_ALREADY_CONFIRMED", Message: "Invoice extraction has already been added to the ledger", StatusCode: http.StatusConflict}
	ErrUnsupportedFile     = &AppError{Code: "UNSUPPORTED_FILE", Message: "Only PDF, PNG and JPEG invoices are supported", StatusCode: http.StatusUnsupportedMediaType}
	ErrFileTooLarge        = &AppError{Code: "FILE_TOO_LARGE", Message: "Invoice file is too large", StatusCode: http.StatusRequestEntityTooLarge}
)
