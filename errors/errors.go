package errors

import (
	"fmt"
	"net/http"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried by the caller.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the status code a transaction records for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// Fatal reports whether the error is a programming error.
func (e *AppError) Fatal() bool { return IsFatalCode(e.Code) }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// --- Dispatch ---

// DispatchFailed creates an error for a request that never reached a connection.
func DispatchFailed(target string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeDispatchFailed, Message: fmt.Sprintf("Unable to dispatch request to %s.", target),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
		Details: map[string]any{"target": target}, Cause: cause,
	}
}

// InvalidURL creates an error for a target URL that cannot be parsed.
func InvalidURL(raw, reason string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidURL, Message: fmt.Sprintf("Invalid URL %q: %s", raw, reason),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: false,
		Details: map[string]any{"url": raw},
	}
}

// ConnectionFailed creates an error for a failed connection to a host.
func ConnectionFailed(host string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeConnectionFailed, Message: fmt.Sprintf("Unable to connect to %s.", host),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
		Details: map[string]any{"host": host}, Cause: cause,
	}
}

// --- Transport / protocol ---

// TransportLost creates an error for a connection that died mid-exchange.
// flushed reports whether the request had been fully written.
func TransportLost(host string, flushed bool) *AppError {
	status := http.StatusInternalServerError
	if !flushed {
		status = http.StatusNotImplemented
	}
	return &AppError{
		Code: ErrCodeTransportLost, Message: fmt.Sprintf("Connection to %s was lost before a response arrived.", host),
		HTTPStatus: status, Retryable: true,
		Details: map[string]any{"host": host, "flushed": flushed},
	}
}

// Timeout creates an error for a transaction that exceeded its budget.
func Timeout(operation string) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: "The request took too long.",
		HTTPStatus: http.StatusInternalServerError, Retryable: true,
		Details: map[string]any{"operation": operation},
	}
}

// Protocol creates an error for a framed response with no usable result.
func Protocol(statusLine string) *AppError {
	return &AppError{
		Code: ErrCodeProtocol, Message: fmt.Sprintf("Message failed: %q", statusLine),
		HTTPStatus: http.StatusInternalServerError, Retryable: false,
		Details: map[string]any{"status_line": statusLine},
	}
}

// MalformedMessage creates an error for bytes that cannot be framed.
func MalformedMessage(reason string) *AppError {
	return &AppError{
		Code: ErrCodeMalformedMessage, Message: fmt.Sprintf("Malformed HTTP message: %s", reason),
		HTTPStatus: http.StatusInternalServerError, Retryable: false,
	}
}

// --- Validation ---

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		HTTPStatus: http.StatusBadRequest, Retryable: false, Details: details,
	}
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidInput, Message: message,
		HTTPStatus: http.StatusBadRequest, Retryable: false,
	}
}

// MissingField creates a new AppError for a missing required field.
func MissingField(field string) *AppError {
	return &AppError{
		Code: ErrCodeMissingField, Message: fmt.Sprintf("Missing required field: %s", field),
		HTTPStatus: http.StatusBadRequest, Retryable: false,
		Details: map[string]any{"field": field},
	}
}

// --- Programming errors ---

// ContractViolation creates a fatal-class error describing API misuse.
func ContractViolation(what string) *AppError {
	return &AppError{
		Code: ErrCodeContractViolation, Message: what,
		HTTPStatus: http.StatusInternalServerError, Retryable: false,
	}
}

// Internal creates a new AppError for an internal error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		HTTPStatus: http.StatusInternalServerError, Retryable: false, Cause: cause,
	}
}
