// Package errors provides custom error types for the chatlink API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", StatusCode: http.StatusUnauthorized}
	ErrForbidden          = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
	ErrAccountLocked      = &AppError{Code: "ACCOUNT_LOCKED", Message: "Account is temporarily locked", StatusCode: http.StatusLocked}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// User errors.
var (
	ErrUserNotFound   = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateEmail = &AppError{Code: "DUPLICATE_EMAIL", Message: "A user with this email already exists", StatusCode: http.StatusConflict}
)

// Channel verification errors. Not-found and expired are distinct kinds so
// clients can message "keep waiting" vs "that link is gone, get a new one".
var (
	ErrInvalidChannel      = &AppError{Code: "INVALID_CHANNEL", Message: "Unsupported channel", StatusCode: http.StatusBadRequest}
	ErrMalformedNonce      = &AppError{Code: "MALFORMED_NONCE", Message: "Verification token is malformed", StatusCode: http.StatusBadRequest}
	ErrNonceNotFound       = &AppError{Code: "NONCE_NOT_FOUND", Message: "Verification token not found", StatusCode: http.StatusNotFound}
	ErrNonceExpired        = &AppError{Code: "NONCE_EXPIRED", Message: "Verification token has expired", StatusCode: http.StatusGone}
	ErrHandleAlreadyLinked = &AppError{Code: "HANDLE_ALREADY_LINKED", Message: "This chat account is already linked to another user", StatusCode: http.StatusConflict}
	ErrLinkNotFound        = &AppError{Code: "LINK_NOT_FOUND", Message: "Channel link not found", StatusCode: http.StatusNotFound}
)

// Billing errors.
var (
	ErrSubscriptionNotFound = &AppError{Code: "SUBSCRIPTION_NOT_FOUND", Message: "Subscription not found", StatusCode: http.StatusNotFound}
	ErrInvalidPlan          = &AppError{Code: "INVALID_PLAN", Message: "Unknown subscription plan", StatusCode: http.StatusBadRequest}
)

// Analytics errors.
var (
	ErrInvalidTimeRange = &AppError{Code: "INVALID_TIME_RANGE", Message: "Invalid time range", StatusCode: http.StatusBadRequest}
	ErrUnboundedRange   = &AppError{Code: "UNBOUNDED_RANGE", Message: "This metric requires a bounded time range", StatusCode: http.StatusBadRequest}
)
