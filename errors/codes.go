package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Availability errors
const (
	// ErrCodeProviderUnavailable indicates every candidate provider for a capability failed.
	ErrCodeProviderUnavailable ErrorCode = "PROVIDER_UNAVAILABLE"
	// ErrCodeTimeout indicates the request timed out or was cancelled.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeRateLimited indicates a provider call was rejected by a local limiter.
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
	// ErrCodeExternalService indicates an upstream speech backend returned an error.
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

// Configuration errors
const (
	// ErrCodeConfiguration indicates a pinned provider is missing a credential or parameter.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
	// ErrCodeUnsupportedProvider indicates a provider name that is neither canonical nor an alias.
	ErrCodeUnsupportedProvider ErrorCode = "UNSUPPORTED_PROVIDER"
)

// Request errors
const (
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
)

// Authentication errors
const (
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeTokenExpired ErrorCode = "TOKEN_EXPIRED"
	ErrCodeInvalidToken ErrorCode = "INVALID_TOKEN"
)

// Internal errors
const (
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeProviderUnavailable: true,
	ErrCodeTimeout:             true,
	ErrCodeRateLimited:         true,
	ErrCodeExternalService:     true,
	ErrCodeDatabaseError:       true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
