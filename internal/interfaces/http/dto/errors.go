package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeRequestTooLarge is used when the body exceeds the configured limit
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
)

// Validation error codes
const (
	ErrCodeValidation         = "ERR_VALIDATION"
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	ErrCodeValidationFormat   = "ERR_VALIDATION_FORMAT"
	ErrCodeValidationRange    = "ERR_VALIDATION_RANGE"
)

// Resource error codes
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	// ErrCodeIdempotencyKeyReused is used when an Idempotency-Key is replayed
	// with a different request body
	ErrCodeIdempotencyKeyReused = "ERR_IDEMPOTENCY_KEY_REUSED"
)

// Ledger rule error codes
const (
	ErrCodeInvalidState            = "ERR_INVALID_STATE"
	ErrCodeInvoiceCancelled        = "ERR_INVOICE_CANCELLED"
	ErrCodePaymentExceedsBalance   = "ERR_PAYMENT_EXCEEDS_BALANCE"
	ErrCodeInvalidStatusTransition = "ERR_INVALID_STATUS_TRANSITION"
	ErrCodeInvoiceHasPayments      = "ERR_INVOICE_HAS_PAYMENTS"
)

// External dependency error codes
const (
	// ErrCodeDependencyUnavailable is used when a provider is not configured
	ErrCodeDependencyUnavailable = "ERR_DEPENDENCY_UNAVAILABLE"
	// ErrCodeDependencyFailed is used when a provider call fails
	ErrCodeDependencyFailed = "ERR_DEPENDENCY_FAILED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:         http.StatusInternalServerError,
	ErrCodeInternal:        http.StatusInternalServerError,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,
	ErrCodeValidationRange:    http.StatusBadRequest,

	ErrCodeNotFound:             http.StatusNotFound,
	ErrCodeAlreadyExists:        http.StatusConflict,
	ErrCodeConflict:             http.StatusConflict,
	ErrCodeConcurrencyConflict:  http.StatusConflict,
	ErrCodeIdempotencyKeyReused: http.StatusConflict,

	ErrCodeInvalidState:            http.StatusConflict,
	ErrCodeInvoiceCancelled:        http.StatusBadRequest,
	ErrCodePaymentExceedsBalance:   http.StatusBadRequest,
	ErrCodeInvalidStatusTransition: http.StatusConflict,
	ErrCodeInvoiceHasPayments:      http.StatusConflict,

	ErrCodeDependencyUnavailable: http.StatusServiceUnavailable,
	ErrCodeDependencyFailed:      http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// LegacyErrorCodeMapping maps domain error codes to API error codes
var LegacyErrorCodeMapping = map[string]string{
	"NOT_FOUND":                 ErrCodeNotFound,
	"ALREADY_EXISTS":            ErrCodeAlreadyExists,
	"INVALID_INPUT":             ErrCodeValidation,
	"VALIDATION_ERROR":          ErrCodeValidation,
	"CONCURRENCY_CONFLICT":      ErrCodeConcurrencyConflict,
	"INVALID_STATE":             ErrCodeInvalidState,
	"INVOICE_CANCELLED":         ErrCodeInvoiceCancelled,
	"PAYMENT_EXCEEDS_BALANCE":   ErrCodePaymentExceedsBalance,
	"INVALID_STATUS_TRANSITION": ErrCodeInvalidStatusTransition,
	"INVOICE_HAS_PAYMENTS":      ErrCodeInvoiceHasPayments,
	"DEPENDENCY_UNAVAILABLE":    ErrCodeDependencyUnavailable,
	"DEPENDENCY_FAILED":         ErrCodeDependencyFailed,
	"INTERNAL_ERROR":            ErrCodeInternal,
}

// NormalizeErrorCode converts a domain code to its API form. Codes that are
// already in ERR_ form pass through; anything else becomes ERR_UNKNOWN.
func NormalizeErrorCode(code string) string {
	if newCode, ok := LegacyErrorCodeMapping[code]; ok {
		return newCode
	}
	if _, ok := ErrorCodeHTTPStatus[code]; ok {
		return code
	}
	return ErrCodeUnknown
}
