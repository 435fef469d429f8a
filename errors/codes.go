package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Dispatch errors. The transaction never reached the wire.
const (
	// ErrCodeDispatchFailed indicates no connection could be started for a request.
	ErrCodeDispatchFailed ErrorCode = "DISPATCH_FAILED"
	// ErrCodeInvalidURL indicates the request target could not be parsed.
	ErrCodeInvalidURL ErrorCode = "INVALID_URL"
	// ErrCodeConnectionFailed indicates the connection layer could not reach the peer.
	ErrCodeConnectionFailed ErrorCode = "CONNECTION_FAILED"
)

// Transport and protocol errors, absorbed into a transaction outcome.
const (
	// ErrCodeTransportLost indicates the connection died or timed out mid-exchange.
	ErrCodeTransportLost ErrorCode = "TRANSPORT_LOST"
	// ErrCodeTimeout indicates a transaction exceeded its time budget.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeProtocol indicates a response that was framed but unusable.
	ErrCodeProtocol ErrorCode = "PROTOCOL_ERROR"
	// ErrCodeMalformedMessage indicates bytes that cannot be framed as an HTTP message.
	ErrCodeMalformedMessage ErrorCode = "MALFORMED_MESSAGE"
)

// Validation errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeMissingField indicates a required field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
)

// Programming errors. Not recoverable.
const (
	// ErrCodeContractViolation indicates caller or implementation misuse:
	// a response hook that decided nothing, or an unusable TLS identity.
	ErrCodeContractViolation ErrorCode = "CONTRACT_VIOLATION"
	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeDispatchFailed:   true,
	ErrCodeConnectionFailed: true,
	ErrCodeTransportLost:    true,
	ErrCodeTimeout:          true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
// The manager never retries; this only informs callers deciding to resend.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}

// IsFatalCode reports whether the code marks a programming error the
// embedding application should treat as unrecoverable.
func IsFatalCode(code ErrorCode) bool {
	return code == ErrCodeContractViolation
}
