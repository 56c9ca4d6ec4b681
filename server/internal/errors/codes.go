// Package errors defines the structured errors returned by the HTTP API.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/hrygo/vidsage/plugin/ai/resilient"
)

// ErrorCode represents a specific error type for API operations.
type ErrorCode string

const (
	// ErrCodeRateLimitExceeded indicates the caller or the model provider is rate-limited.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeFailedPrecondition indicates the session is not in the required state.
	ErrCodeFailedPrecondition ErrorCode = "FAILED_PRECONDITION"
	// ErrCodeNotFound indicates the requested resource does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeLLMUnavailable indicates every model provider failed.
	ErrCodeLLMUnavailable ErrorCode = "LLM_UNAVAILABLE"
	// ErrCodeContextCanceled indicates the operation was canceled.
	ErrCodeContextCanceled ErrorCode = "CONTEXT_CANCELED"
	// ErrCodeTimeout indicates the operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeInternal indicates an unexpected failure.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// AIError represents a structured error for API operations.
type AIError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *AIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *AIError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error.
func (e *AIError) WithContext(key string, value any) *AIError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// HTTPStatus maps the code to a response status.
func (e *AIError) HTTPStatus() int {
	switch e.Code {
	case ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case ErrCodeInvalidArgument:
		return http.StatusBadRequest
	case ErrCodeFailedPrecondition:
		return http.StatusConflict
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeLLMUnavailable:
		return http.StatusBadGateway
	case ErrCodeContextCanceled:
		return 499
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Convenience constructors for common error types.

// RateLimitExceeded creates a rate limit exceeded error.
func RateLimitExceeded(msg string) *AIError {
	return &AIError{Code: ErrCodeRateLimitExceeded, Message: msg}
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *AIError {
	return &AIError{Code: ErrCodeInvalidArgument, Message: msg}
}

// FailedPrecondition creates a failed precondition error.
func FailedPrecondition(msg string) *AIError {
	return &AIError{Code: ErrCodeFailedPrecondition, Message: msg}
}

// NotFound creates a not found error.
func NotFound(msg string, cause error) *AIError {
	return &AIError{Code: ErrCodeNotFound, Message: msg, Cause: cause}
}

// LLMUnavailable creates an LLM unavailable error.
func LLMUnavailable(msg string, cause error) *AIError {
	return &AIError{Code: ErrCodeLLMUnavailable, Message: msg, Cause: cause}
}

// Wrap wraps an existing error with a code.
func Wrap(cause error, code ErrorCode, msg string) *AIError {
	return &AIError{Code: code, Message: msg, Cause: cause}
}

// IsCode checks if an error is of a specific code.
func IsCode(err error, code ErrorCode) bool {
	var aiErr *AIError
	if stderrors.As(err, &aiErr) {
		return aiErr.Code == code
	}
	return false
}

// FromCore converts an error from the service layer into an AIError.
// Errors that already carry a code pass through unchanged.
func FromCore(err error) *AIError {
	if err == nil {
		return nil
	}

	var aiErr *AIError
	switch {
	case stderrors.As(err, &aiErr):
		return aiErr
	case resilient.IsRateLimited(err):
		return Wrap(err, ErrCodeRateLimitExceeded, resilient.ErrRateLimited.Error())
	case resilient.IsProviderFailure(err):
		return LLMUnavailable("AI service failed to respond", err)
	case stderrors.Is(err, context.DeadlineExceeded):
		return Wrap(err, ErrCodeTimeout, "operation timed out")
	case stderrors.Is(err, context.Canceled):
		return Wrap(err, ErrCodeContextCanceled, "operation canceled")
	default:
		return Wrap(err, ErrCodeInternal, "internal error")
	}
}
