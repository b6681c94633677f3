package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorCode classifies application errors.
type ErrorCode string

const (
	ErrCodeInternal   ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"
	ErrCodeNotFound   ErrorCode = "NOT_FOUND"
	ErrCodeForbidden  ErrorCode = "FORBIDDEN"

	ErrCodeUserNotFound ErrorCode = "USER_NOT_FOUND"

	// Persistence failures are fatal to the triggering operation: a write
	// that may not have reached disk must never be reported as success.
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"

	// Transient platform failures: the operation is abandoned for the
	// current notification, ledger state already committed stays.
	ErrCodePlatformAPI ErrorCode = "PLATFORM_API_ERROR"

	ErrCodeStartup ErrorCode = "STARTUP_ERROR"
)

// AppError is a typed application error.
type AppError struct {
	Code      ErrorCode         `json:"code"`
	Message   string            `json:"message"`
	Context   map[string]string `json:"context,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Cause     error             `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// IsNotFound reports whether the error is a normal negative result.
func (e *AppError) IsNotFound() bool {
	return e.Code == ErrCodeNotFound || e.Code == ErrCodeUserNotFound
}

func (e *AppError) IsValidation() bool {
	return e.Code == ErrCodeValidation
}

func (e *AppError) IsTransient() bool {
	return e.Code == ErrCodePlatformAPI
}

// WithContext attaches a key/value pair for operator remediation.
func (e *AppError) WithContext(key, value string) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	appErr := New(code, message)
	appErr.Cause = err
	return appErr
}

func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

func NewValidationError(field, reason string) *AppError {
	return New(ErrCodeValidation, fmt.Sprintf("Validation failed for field '%s': %s", field, reason)).
		WithContext("field", field)
}

func NewUserNotFoundError(userID string) *AppError {
	return New(ErrCodeUserNotFound, fmt.Sprintf("User not found: %s", userID)).
		WithContext("user_id", userID)
}

func NewDatabaseError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeDatabaseError, fmt.Sprintf("Database operation failed: %s", operation)).
		WithContext("operation", operation)
}

func NewPlatformAPIError(operation string, err error) *AppError {
	return Wrap(err, ErrCodePlatformAPI, fmt.Sprintf("Platform API operation failed: %s", operation)).
		WithContext("operation", operation)
}

// AsAppError extracts an AppError from anywhere in the chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
