package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

// Standard error types
var (
	ErrNotFound               = errors.New("resource not found")
	ErrBadRequest             = errors.New("bad request")
	ErrConflict               = errors.New("resource conflict")
	ErrInternal               = errors.New("internal server error")
	ErrValidation             = errors.New("validation error")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrInsufficientBatchStock = errors.New("insufficient batch stock")
	ErrInvalidBatch           = errors.New("invalid batch")
	ErrBatchInUse             = errors.New("batch in use")
)

// AppError represents an application error with context
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	StatusCode int               `json:"status_code"`
	Details    map[string]string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// New creates a new AppError
func New(code string, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, code string, message string, statusCode int) *AppError {
	return &AppError{
		Err:        err,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Common error constructors

func NotFound(resource string) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

func BadRequest(message string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Code:       "BAD_REQUEST",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:        ErrConflict,
		Code:       "CONFLICT",
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func Internal(message string) *AppError {
	return &AppError{
		Err:        ErrInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

func Validation(details map[string]string) *AppError {
	return &AppError{
		Err:        ErrValidation,
		Code:       "VALIDATION_ERROR",
		Message:    "validation failed",
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

// Inventory engine error constructors

// InsufficientStock signals that a stock adjustment would drive the
// product's aggregate stock negative. No state is changed.
func InsufficientStock(productID int64, available, requested int) *AppError {
	return &AppError{
		Err:        ErrInsufficientStock,
		Code:       "INSUFFICIENT_STOCK",
		Message:    fmt.Sprintf("insufficient stock for product %d: %d available, %d requested", productID, available, requested),
		StatusCode: http.StatusConflict,
		Details: map[string]string{
			"product_id": strconv.FormatInt(productID, 10),
			"available":  strconv.Itoa(available),
			"requested":  strconv.Itoa(requested),
		},
	}
}

// InsufficientBatchStock signals that FEFO allocation ran out of batch
// quantity before a line item was satisfied. The whole allocation rolls back.
func InsufficientBatchStock(productID int64, shortfall int) *AppError {
	return &AppError{
		Err:        ErrInsufficientBatchStock,
		Code:       "INSUFFICIENT_BATCH_STOCK",
		Message:    fmt.Sprintf("insufficient batch stock for product %d: %d units unfulfilled", productID, shortfall),
		StatusCode: http.StatusConflict,
		Details: map[string]string{
			"product_id": strconv.FormatInt(productID, 10),
			"shortfall":  strconv.Itoa(shortfall),
		},
	}
}

// InvalidBatch signals batch creation with a non-positive quantity or a
// non-future expiry date.
func InvalidBatch(reason string) *AppError {
	return &AppError{
		Err:        ErrInvalidBatch,
		Code:       "INVALID_BATCH",
		Message:    reason,
		StatusCode: http.StatusBadRequest,
	}
}

// BatchInUse signals a deletion attempt on a batch that still has quantity.
func BatchInUse(batchID int64, quantity int) *AppError {
	return &AppError{
		Err:        ErrBatchInUse,
		Code:       "BATCH_IN_USE",
		Message:    fmt.Sprintf("batch %d still holds %d units and cannot be deleted", batchID, quantity),
		StatusCode: http.StatusConflict,
	}
}

// Is checks if the error matches a target error
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As attempts to convert an error to a specific type
func As(err error, target any) bool {
	return errors.As(err, target)
}
