// Package apperror provides structured error handling following RFC 7807 Problem Details.
// Every error the reconciliation engine surfaces to a caller is an AppError.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"
	CodeDatabase = "DATABASE_ERROR"

	// Validation errors (400)
	CodeValidation = "VALIDATION_ERROR"

	// Data integrity violations (409). Never worked around, always surfaced.
	CodeDataIntegrity       = "DATA_INTEGRITY"
	CodePeriodOverlap       = "PERIOD_OVERLAP"
	CodePeriodMismatch      = "STOCKTAKE_PERIOD_MISMATCH"
	CodeUnknownItem         = "UNKNOWN_STOCK_ITEM"
	CodeInvalidUOM          = "INVALID_UOM"
	CodeSnapshotValueDrift  = "SNAPSHOT_VALUE_MISMATCH"
	CodeHotelMismatch       = "HOTEL_MISMATCH"
	CodeMovementOutOfPeriod = "MOVEMENT_OUT_OF_PERIOD"

	// Precondition failures (422)
	CodePrecondition       = "PRECONDITION_FAILED"
	CodeNotApproved        = "STOCKTAKE_NOT_APPROVED"
	CodeAlreadyApproved    = "ALREADY_APPROVED"
	CodeNotDraft           = "STOCKTAKE_NOT_DRAFT"
	CodeIncompleteLines    = "INCOMPLETE_LINES"
	CodeLineNotCounted     = "LINE_NOT_COUNTED"
	CodeOpeningStale       = "OPENING_STALE"
	CodePeriodClosed       = "PERIOD_CLOSED"
	CodePeriodNotClosed    = "PERIOD_NOT_CLOSED"
	CodeNextPeriodClosed   = "NEXT_PERIOD_CLOSED"
	CodeStocktakeExists    = "STOCKTAKE_EXISTS"
	CodeInactiveItemOnLine = "INACTIVE_ITEM_ON_LINE"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Conflict (409)
	CodeConflict               = "CONFLICT"
	CodeDuplicate              = "DUPLICATE_ENTRY"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeLocked                 = "OPERATION_IN_PROGRESS"
)

// Kind groups codes into the engine's error taxonomy.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindDataIntegrity Kind = "data_integrity"
	KindPrecondition  Kind = "precondition"
	KindNotFound      Kind = "not_found"
	KindConflict      Kind = "conflict"
	KindInternal      Kind = "internal"
)

// AppError is the standard error type for the engine.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Kind is the taxonomy bucket the code belongs to
	Kind Kind `json:"kind"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (item ids, quantities, dates)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Kind:       KindValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewDataIntegrity creates a data integrity error (409).
// The operation that hit it must abort and roll back.
func NewDataIntegrity(code, message string) *AppError {
	if code == "" {
		code = CodeDataIntegrity
	}
	return &AppError{
		Code:       code,
		Kind:       KindDataIntegrity,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// NewPrecondition creates a precondition error (422).
func NewPrecondition(code, message string) *AppError {
	if code == "" {
		code = CodePrecondition
	}
	return &AppError{
		Code:       code,
		Kind:       KindPrecondition,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Kind:       KindNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewConcurrentModification creates an optimistic locking error
func NewConcurrentModification(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeConcurrentModification,
		Kind:       KindConflict,
		Message:    "Record was modified by another user. Please refresh and try again.",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewLocked is returned when another caller holds the lock for the same operation.
func NewLocked(key string) *AppError {
	return &AppError{
		Code:       CodeLocked,
		Kind:       KindConflict,
		Message:    "Operation already in progress",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"lock": key},
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Kind:       KindInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewConflict creates a conflict error (409)
func NewConflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Kind:       KindConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// NewDuplicate creates a duplicate entry error (409)
func NewDuplicate(entity, field, value string) *AppError {
	return &AppError{
		Code:       CodeDuplicate,
		Kind:       KindConflict,
		Message:    fmt.Sprintf("%s with this %s already exists", entity, field),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "field": field, "value": value},
	}
}

// NewPeriodClosed creates error when trying to modify a closed period.
func NewPeriodClosed(period string) *AppError {
	return NewPrecondition(CodePeriodClosed, fmt.Sprintf("Period %s is closed for modifications", period)).
		WithDetail("period", period)
}

// --- Helper functions ---

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsKind reports whether err carries an AppError of the given kind.
func IsKind(err error, kind Kind) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Kind == kind
	}
	return false
}

// IsDataIntegrity checks if error is a data integrity violation
func IsDataIntegrity(err error) bool { return IsKind(err, KindDataIntegrity) }

// IsPrecondition checks if error is a precondition failure
func IsPrecondition(err error) bool { return IsKind(err, KindPrecondition) }

// IsValidation checks if error is a validation failure
func IsValidation(err error) bool { return IsKind(err, KindValidation) }

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool { return HasCode(err, CodeNotFound) }

// IsConcurrentModification checks if error is CodeConcurrentModification
func IsConcurrentModification(err error) bool { return HasCode(err, CodeConcurrentModification) }

// HasCode reports whether err carries an AppError with the given code.
func HasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}
