package ledger

import (
	"errors"
	"fmt"

	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Ledger-specific error codes. Generic codes (NOT_FOUND, VALIDATION_ERROR,
// CONCURRENCY_CONFLICT, DEPENDENCY_*) live in the shared package.
const (
	CodeInvoiceCancelled        = "INVOICE_CANCELLED"
	CodePaymentExceedsBalance   = "PAYMENT_EXCEEDS_BALANCE"
	CodeInvalidStatusTransition = "INVALID_STATUS_TRANSITION"
	CodeInvoiceHasPayments      = "INVOICE_HAS_PAYMENTS"
)

// ErrorKind groups error codes into the classes callers act on.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindNotFound   ErrorKind = "not_found"
	KindConflict   ErrorKind = "conflict"
	KindDependency ErrorKind = "dependency"
	KindInternal   ErrorKind = "internal"
)

var codeKinds = map[string]ErrorKind{
	"VALIDATION_ERROR":          KindValidation,
	"INVALID_INPUT":             KindValidation,
	"NOT_FOUND":                 KindNotFound,
	CodeInvoiceCancelled:        KindConflict,
	CodePaymentExceedsBalance:   KindConflict,
	CodeInvalidStatusTransition: KindConflict,
	CodeInvoiceHasPayments:      KindConflict,
	"CONCURRENCY_CONFLICT":      KindConflict,
	"DEPENDENCY_UNAVAILABLE":    KindDependency,
	"DEPENDENCY_FAILED":         KindDependency,
}

// KindOf classifies err. Anything that is not a known DomainError is internal.
func KindOf(err error) ErrorKind {
	var de *shared.DomainError
	if !errors.As(err, &de) {
		return KindInternal
	}
	if kind, ok := codeKinds[de.Code]; ok {
		return kind
	}
	return KindInternal
}

// NewValidationError builds a VALIDATION_ERROR with the given message.
func NewValidationError(format string, args ...any) *shared.DomainError {
	return shared.NewDomainError("VALIDATION_ERROR", fmt.Sprintf(format, args...))
}

// NewInvoiceNotFoundError is returned when an invoice does not exist in the tenant.
func NewInvoiceNotFoundError() *shared.DomainError {
	return shared.NewDomainError("NOT_FOUND", "Invoice not found")
}

// NewInvoiceCancelledError is returned for any mutation attempted on a cancelled invoice.
func NewInvoiceCancelledError(action string) *shared.DomainError {
	return shared.NewDomainError(CodeInvoiceCancelled, fmt.Sprintf("Cannot %s a cancelled invoice", action))
}

// NewPaymentExceedsBalanceError is returned when a payment is larger than balance_due.
func NewPaymentExceedsBalanceError(amount, balance decimal.Decimal) *shared.DomainError {
	return shared.NewDomainError(CodePaymentExceedsBalance,
		fmt.Sprintf("Payment exceeds balance: amount %s, balance due %s", amount.StringFixed(2), balance.StringFixed(2)))
}

// NewInvalidTransitionError is returned when a status change is not allowed.
func NewInvalidTransitionError(from, to InvoiceStatus) *shared.DomainError {
	return shared.NewDomainError(CodeInvalidStatusTransition,
		fmt.Sprintf("Cannot change invoice status from %s to %s", from, to))
}

// NewDependencyUnavailableError marks an external provider that is not configured.
func NewDependencyUnavailableError(provider string) *shared.DomainError {
	return shared.NewDomainError("DEPENDENCY_UNAVAILABLE", fmt.Sprintf("%s is not configured", provider))
}

// NewDependencyFailedError marks a failed call to an external provider. The
// provider error is not included in the message.
func NewDependencyFailedError(provider string) *shared.DomainError {
	return shared.NewDomainError("DEPENDENCY_FAILED", fmt.Sprintf("%s request failed", provider))
}
