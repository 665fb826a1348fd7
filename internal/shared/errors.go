package shared

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors shared across modules.
var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates a malformed or incomplete request.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConflict indicates a unique constraint violation.
	ErrConflict = errors.New("conflict")
	// ErrInsufficientStock indicates a sale line exceeding available quantity.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidAdjustment indicates an adjustment that would drive stock negative.
	ErrInvalidAdjustment = errors.New("invalid adjustment")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized indicates a missing or invalid token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates insufficient role.
	ErrForbidden = errors.New("forbidden")
	// ErrTransactionFailure indicates the atomic write mechanism aborted.
	ErrTransactionFailure = errors.New("transaction failure")
)

// AppError carries a stable code and HTTP status alongside the message.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound builds a 404 error for a missing resource.
func NotFound(resource string, id any) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s %v not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// InvalidInput builds a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// Conflict builds a 409 error for duplicate keys (barcode, bill number).
func Conflict(message string) *AppError {
	return &AppError{
		Code:    "CONFLICT",
		Message: message,
		Status:  http.StatusConflict,
		Err:     ErrConflict,
	}
}

// InsufficientStock builds the error returned when a sale line cannot be
// fulfilled. Available quantity travels with the error so the handler can
// render a useful message.
func InsufficientStock(productName string, available, requested int64) *AppError {
	return &AppError{
		Code:    "INSUFFICIENT_STOCK",
		Message: fmt.Sprintf("insufficient stock for %s: available %d, requested %d", productName, available, requested),
		Status:  http.StatusBadRequest,
		Err:     ErrInsufficientStock,
	}
}

// InvalidAdjustment builds the error returned when an adjustment would drive
// a product's quantity below zero.
func InvalidAdjustment(productName string, available, delta int64) *AppError {
	return &AppError{
		Code:    "INVALID_ADJUSTMENT",
		Message: fmt.Sprintf("cannot adjust %s by %d: only %d on hand", productName, delta, available),
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidAdjustment,
	}
}

// Unauthorized builds a 401 error.
func Unauthorized(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthorized,
	}
}

// Forbidden builds a 403 error.
func Forbidden(message string) *AppError {
	return &AppError{
		Code:    "FORBIDDEN",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     ErrForbidden,
	}
}

// Internal wraps an infrastructure failure as a 500 error.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// TransactionFailure wraps an aborted atomic write. The whole call is safe to
// retry: no partial state persists.
func TransactionFailure(err error) *AppError {
	return &AppError{
		Code:    "TRANSACTION_FAILURE",
		Message: "transaction aborted",
		Status:  http.StatusInternalServerError,
		Err:     fmt.Errorf("%w: %w", ErrTransactionFailure, err),
	}
}

// HTTPStatus maps an error to its transport status code.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInsufficientStock), errors.Is(err, ErrInvalidAdjustment):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// ErrorCode extracts the stable code for the response envelope.
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrConflict):
		return "CONFLICT"
	case errors.Is(err, ErrInsufficientStock):
		return "INSUFFICIENT_STOCK"
	case errors.Is(err, ErrInvalidAdjustment):
		return "INVALID_ADJUSTMENT"
	case errors.Is(err, ErrInvalidInput):
		return "INVALID_INPUT"
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidCredentials):
		return "UNAUTHORIZED"
	case errors.Is(err, ErrForbidden):
		return "FORBIDDEN"
	default:
		return "INTERNAL_ERROR"
	}
}

// UserSafeMessage returns a message safe to expose to API consumers.
func UserSafeMessage(err error) string {
	if HTTPStatus(err) >= http.StatusInternalServerError {
		return "an internal error occurred"
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
