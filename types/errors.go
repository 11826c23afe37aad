package types

import (
	"errors"
	"fmt"
)

// Standard error types
type ErrorType string

const (
	ErrTypeConfig       ErrorType = "CONFIG_ERROR"
	ErrTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrTypeInvalidValue ErrorType = "INVALID_VALUE"
	ErrTypeNetwork      ErrorType = "NETWORK_ERROR"
	ErrTypeTimeout      ErrorType = "TIMEOUT"
	ErrTypeRateLimit    ErrorType = "RATE_LIMIT"
	ErrTypeProtocol     ErrorType = "PROTOCOL_ERROR"
	ErrTypeNoData       ErrorType = "NO_DATA"
	ErrTypeParse        ErrorType = "PARSE_ERROR"
	ErrTypeNotFound     ErrorType = "NOT_FOUND"
	ErrTypeBadRequest   ErrorType = "BAD_REQUEST"
	ErrTypeInternal     ErrorType = "INTERNAL_ERROR"
)

// StandardError provides consistent error formatting
type StandardError struct {
	Type    ErrorType
	Message string
	Details map[string]any
	Cause   error
}

func (e *StandardError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.Cause
}

// ErrorTypeOf returns the type of the outermost StandardError in the chain,
// or ErrTypeInternal when there is none.
func ErrorTypeOf(err error) ErrorType {
	var se *StandardError
	if errors.As(err, &se) {
		return se.Type
	}
	return ErrTypeInternal
}

// Describe renders a StandardError without its type prefix. Other errors,
// including wrapped ones, render as-is.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	se, ok := err.(*StandardError)
	if !ok {
		return err.Error()
	}
	if se.Cause != nil {
		return fmt.Sprintf("%s: %v", se.Message, se.Cause)
	}
	return se.Message
}

// Error constructors for common cases

func NewConfigError(msg string, cause error) error {
	return &StandardError{
		Type:    ErrTypeConfig,
		Message: msg,
		Cause:   cause,
	}
}

func NewValidationError(field, msg string) error {
	return &StandardError{
		Type:    ErrTypeValidation,
		Message: fmt.Sprintf("validation failed for %s: %s", field, msg),
		Details: map[string]any{"field": field},
	}
}

func NewInvalidValueError(field, value, msg string) error {
	return &StandardError{
		Type:    ErrTypeInvalidValue,
		Message: fmt.Sprintf("invalid value for %s: %s (%s)", field, value, msg),
		Details: map[string]any{"field": field, "value": value},
	}
}

func NewNetworkError(url string, cause error) error {
	return &StandardError{
		Type:    ErrTypeNetwork,
		Message: fmt.Sprintf("network request to %s failed", url),
		Details: map[string]any{"url": url},
		Cause:   cause,
	}
}

func NewHTTPStatusError(url string, code int, body []byte) error {
	if len(body) > 256 {
		body = body[:256]
	}
	return &StandardError{
		Type:    ErrTypeNetwork,
		Message: fmt.Sprintf("http response %d from %s", code, url),
		Details: map[string]any{"url": url, "status_code": code, "body": string(body)},
	}
}

func NewRateLimitError(endpoint string) error {
	return &StandardError{
		Type:    ErrTypeRateLimit,
		Message: fmt.Sprintf("rate limit exceeded for endpoint: %s", endpoint),
		Details: map[string]any{"endpoint": endpoint},
	}
}

func NewTimeoutError(operation string) error {
	return &StandardError{
		Type:    ErrTypeTimeout,
		Message: fmt.Sprintf("%s operation timed out", operation),
		Details: map[string]any{"operation": operation},
	}
}

func NewProtocolError(msg string, cause error) error {
	return &StandardError{
		Type:    ErrTypeProtocol,
		Message: msg,
		Cause:   cause,
	}
}

func NewNoDataError(msg string) error {
	return &StandardError{
		Type:    ErrTypeNoData,
		Message: msg,
	}
}

func NewParseError(field, value string, cause error) error {
	return &StandardError{
		Type:    ErrTypeParse,
		Message: fmt.Sprintf("cannot parse %s %q", field, value),
		Details: map[string]any{"field": field, "value": value},
		Cause:   cause,
	}
}

func NewNotFoundError(resource string) error {
	return &StandardError{
		Type:    ErrTypeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Details: map[string]any{"resource": resource},
	}
}

func NewBadRequestError(msg string) error {
	return &StandardError{
		Type:    ErrTypeBadRequest,
		Message: msg,
	}
}

func NewInternalError(msg string, cause error) error {
	return &StandardError{
		Type:    ErrTypeInternal,
		Message: msg,
		Cause:   cause,
	}
}

func NewLimiterNotInitializedError() error {
	return &StandardError{
		Type:    ErrTypeConfig,
		Message: "request limiter not initialized: call util.NewLimiter first",
	}
}
