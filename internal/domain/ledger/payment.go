package ledger

import (
	"strings"
	"time"

	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod represents how a payment was made
type PaymentMethod string

const (
	PaymentMethodCash       PaymentMethod = "cash"
	PaymentMethodCheque     PaymentMethod = "cheque"
	PaymentMethodETransfer  PaymentMethod = "etransfer"
	PaymentMethodCreditCard PaymentMethod = "credit_card"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCheque, PaymentMethodETransfer, PaymentMethodCreditCard:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// Payment is an immutable record of money received against an invoice.
// Corrections are recorded as new audit-logged entries, never as edits.
type Payment struct {
	shared.BaseEntity
	TenantID        uuid.UUID       `json:"tenant_id"`
	InvoiceID       uuid.UUID       `json:"invoice_id"`
	Amount          decimal.Decimal `json:"amount"`
	Method          PaymentMethod   `json:"payment_method"`
	PaymentDate     time.Time       `json:"payment_date"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
	Notes           string          `json:"notes,omitempty"`
}

// NewPayment validates and creates a payment for an invoice. A zero payment
// date defaults to today.
func NewPayment(
	tenantID, invoiceID uuid.UUID,
	amount decimal.Decimal,
	method PaymentMethod,
	paymentDate time.Time,
	referenceNumber, notes string,
) (*Payment, error) {
	if tenantID == uuid.Nil {
		return nil, NewValidationError("Tenant ID cannot be empty")
	}
	if invoiceID == uuid.Nil {
		return nil, NewValidationError("Invoice ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, NewValidationError("Payment amount must be positive")
	}
	if !amount.Equal(amount.Round(2)) {
		return nil, NewValidationError("Payment amount cannot have more than two decimal places")
	}
	if !method.IsValid() {
		return nil, NewValidationError("Invalid payment method: %s", method)
	}
	if len(referenceNumber) > 100 {
		return nil, NewValidationError("Reference number cannot exceed 100 characters")
	}
	if paymentDate.IsZero() {
		paymentDate = time.Now()
	}

	return &Payment{
		BaseEntity:      shared.NewBaseEntity(),
		TenantID:        tenantID,
		InvoiceID:       invoiceID,
		Amount:          amount.Round(2),
		Method:          method,
		PaymentDate:     TruncateToDate(paymentDate),
		ReferenceNumber: strings.TrimSpace(referenceNumber),
		Notes:           notes,
	}, nil
}
