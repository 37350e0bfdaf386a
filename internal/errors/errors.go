package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeNotFound indicates a job, memo or agent could not be located.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeConflict indicates the write collided with existing data (e.g., a journal row already recorded).
	ErrCodeConflict ErrorCode = "conflict"
	// ErrCodeValidation indicates invalid caller input.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodePrecondition indicates a protocol guard rejected the action before any network call.
	ErrCodePrecondition ErrorCode = "precondition"
	// ErrCodeDecode indicates memo content could not be decoded into the requested payload.
	ErrCodeDecode ErrorCode = "decode"
	// ErrCodeTransactionFailed indicates the submit/confirm retry budget was exhausted.
	ErrCodeTransactionFailed ErrorCode = "transaction_failed"
	// ErrCodeConnectivity indicates the chain relay or the ACP API could not be reached.
	ErrCodeConnectivity ErrorCode = "connectivity"
	// ErrCodeUnexpected indicates a terminal, non-retryable protocol anomaly (e.g., missing job id log).
	ErrCodeUnexpected ErrorCode = "unexpected"
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "internal"
	// ErrCodeTimeout indicates a timeout occurred.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeCanceled indicates the operation was canceled.
	ErrCodeCanceled ErrorCode = "canceled"
)

// AppError represents a structured application error with a code, message, and optional cause.
// It supports error wrapping and unwrapping for use with errors.Is and errors.As.
type AppError struct {
	// Code categorizes the error type
	Code ErrorCode
	// Message is a human-readable error message
	Message string
	// Cause is the underlying error that caused this error (optional)
	Cause error
	// Field names the offending input (optional, for validation errors)
	Field string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

func newf(code ErrorCode, format string, args ...any) *AppError {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &AppError{Code: code, Message: msg}
}

// NotFound creates a new NotFound error.
func NotFound(message string) *AppError { return &AppError{Code: ErrCodeNotFound, Message: message} }

// NotFoundf creates a new NotFound error with formatted message.
func NotFoundf(format string, args ...any) *AppError { return newf(ErrCodeNotFound, format, args...) }

// Conflict creates a new Conflict error.
func Conflict(message string) *AppError { return &AppError{Code: ErrCodeConflict, Message: message} }

// Validation creates a new Validation error.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message}
}

// Validationf creates a new Validation error with formatted message.
func Validationf(format string, args ...any) *AppError {
	return newf(ErrCodeValidation, format, args...)
}

// ValidationField creates a new Validation error for a specific field.
func ValidationField(field, message string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: message,
		Field:   field,
	}
}

// Precondition creates an error for an action whose memo/phase guard did not hold.
func Precondition(message string) *AppError {
	return &AppError{Code: ErrCodePrecondition, Message: message}
}

// Preconditionf creates a Precondition error with formatted message.
func Preconditionf(format string, args ...any) *AppError {
	return newf(ErrCodePrecondition, format, args...)
}

// Unexpected creates a terminal protocol error that must never be retried.
func Unexpected(message string) *AppError {
	return &AppError{Code: ErrCodeUnexpected, Message: message}
}

// Internal creates a new Internal error.
func Internal(message string) *AppError { return &AppError{Code: ErrCodeInternal, Message: message} }

// Internalf creates a new Internal error with formatted message.
func Internalf(format string, args ...any) *AppError { return newf(ErrCodeInternal, format, args...) }

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// isCode checks if an error has a specific error code.
func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool { return isCode(err, ErrCodeNotFound) }

// IsConflict checks if an error is a Conflict error.
func IsConflict(err error) bool { return isCode(err, ErrCodeConflict) }

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool { return isCode(err, ErrCodeValidation) }

// IsPrecondition checks if an error is a Precondition error.
func IsPrecondition(err error) bool { return isCode(err, ErrCodePrecondition) }

// IsDecode checks if an error is a Decode error.
func IsDecode(err error) bool { return isCode(err, ErrCodeDecode) }

// IsTransactionFailed checks if an error is a TransactionFailed error.
func IsTransactionFailed(err error) bool { return isCode(err, ErrCodeTransactionFailed) }

// IsConnectivity checks if an error is a Connectivity error.
func IsConnectivity(err error) bool { return isCode(err, ErrCodeConnectivity) }

// IsUnexpected checks if an error is an Unexpected error.
func IsUnexpected(err error) bool { return isCode(err, ErrCodeUnexpected) }

// IsInternal checks if an error is an Internal error.
func IsInternal(err error) bool { return isCode(err, ErrCodeInternal) }

// IsTimeout checks if an error is a Timeout error.
func IsTimeout(err error) bool { return isCode(err, ErrCodeTimeout) }

// IsCanceled checks if an error is a Canceled error.
func IsCanceled(err error) bool { return isCode(err, ErrCodeCanceled) }

// IsRoutine reports whether err is expected control flow (a guard or decode
// rejection) rather than an infrastructure failure.
func IsRoutine(err error) bool {
	return IsPrecondition(err) || IsDecode(err)
}

// GetCode returns the ErrorCode from an error, or empty string if not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetField returns the Field from an error, or empty string if not an AppError or no field set.
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}
