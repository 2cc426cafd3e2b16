package ledger

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the lifecycle state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "draft"
	InvoiceStatusSent          InvoiceStatus = "sent"
	InvoiceStatusPartiallyPaid InvoiceStatus = "partially_paid"
	InvoiceStatusPaid          InvoiceStatus = "paid"
	InvoiceStatusOverdue       InvoiceStatus = "overdue"
	InvoiceStatusCancelled     InvoiceStatus = "cancelled"
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPartiallyPaid,
		InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsTerminal returns true if no further transition is possible
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusCancelled
}

// manualTransitions lists the status changes allowed through UpdateStatus.
// partially_paid and paid are only reachable through ApplyPayment.
var manualTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceStatusDraft:         {InvoiceStatusSent, InvoiceStatusCancelled},
	InvoiceStatusSent:          {InvoiceStatusOverdue, InvoiceStatusCancelled},
	InvoiceStatusOverdue:       {InvoiceStatusSent, InvoiceStatusCancelled},
	InvoiceStatusPartiallyPaid: {InvoiceStatusOverdue},
}

// CanTransitionTo reports whether an explicit status update from s to target is allowed
func (s InvoiceStatus) CanTransitionTo(target InvoiceStatus) bool {
	for _, allowed := range manualTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// LineItem is a single billable line copied from the quote
type LineItem struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// LineItems is an ordered slice of LineItem stored as JSONB
type LineItems []LineItem

// Value implements driver.Valuer interface for GORM to store as JSONB
func (l LineItems) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (l *LineItems) Scan(value interface{}) error {
	if value == nil {
		*l = LineItems{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan LineItems: unsupported type")
	}

	if len(bytes) == 0 {
		*l = LineItems{}
		return nil
	}

	return json.Unmarshal(bytes, l)
}

// Sum returns the total of all line item amounts
func (l LineItems) Sum() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range l {
		sum = sum.Add(item.Amount)
	}
	return sum
}

// InvoiceTerms carries the tenant-independent billing policy applied when an
// invoice is created.
type InvoiceTerms struct {
	TaxRate          decimal.Decimal // percent, e.g. 13 for Ontario HST
	PaymentTermsDays int
}

// Invoice is the aggregate root for billing a lead. It owns its line items and
// is the aggregation point for payments recorded against it.
type Invoice struct {
	shared.TenantAggregateRoot
	InvoiceNumber      string          `json:"invoice_number"`
	LeadID             uuid.UUID       `json:"lead_id"`
	QuoteID            uuid.UUID       `json:"quote_id"`
	CustomerName       string          `json:"customer_name"`
	CustomerEmail      string          `json:"customer_email"`
	LineItems          LineItems       `json:"line_items"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	ContingencyPercent decimal.Decimal `json:"contingency_percent"`
	ContingencyAmount  decimal.Decimal `json:"contingency_amount"`
	TaxRate            decimal.Decimal `json:"tax_rate"`
	TaxAmount          decimal.Decimal `json:"tax_amount"`
	Total              decimal.Decimal `json:"total"`
	AmountPaid         decimal.Decimal `json:"amount_paid"`
	BalanceDue         decimal.Decimal `json:"balance_due"`
	Status             InvoiceStatus   `json:"status"`
	IssueDate          time.Time       `json:"issue_date"`
	DueDate            time.Time       `json:"due_date"`
	SentAt             *time.Time      `json:"sent_at"`
	Notes              string          `json:"notes"`
	CancelledAt        *time.Time      `json:"cancelled_at"`
	CancelReason       string          `json:"cancel_reason"`
}

// Totals holds the derived money fields of an invoice
type Totals struct {
	Subtotal          decimal.Decimal
	ContingencyAmount decimal.Decimal
	TaxAmount         decimal.Decimal
	Total             decimal.Decimal
}

// ComputeTotals derives subtotal, contingency, tax and total. Contingency and
// tax are both taken on the subtotal and rounded half-up to cents.
func ComputeTotals(items LineItems, contingencyPercent, taxRate decimal.Decimal) Totals {
	hundred := decimal.NewFromInt(100)
	subtotal := items.Sum().Round(2)
	contingency := subtotal.Mul(contingencyPercent).Div(hundred).Round(2)
	tax := subtotal.Mul(taxRate).Div(hundred).Round(2)
	return Totals{
		Subtotal:          subtotal,
		ContingencyAmount: contingency,
		TaxAmount:         tax,
		Total:             subtotal.Add(contingency).Add(tax),
	}
}

// NewInvoiceFromQuote creates a draft invoice from an accepted quote
func NewInvoiceFromQuote(
	tenantID uuid.UUID,
	invoiceNumber string,
	quote *Quote,
	terms InvoiceTerms,
	issueDate time.Time,
	notes string,
) (*Invoice, error) {
	if tenantID == uuid.Nil {
		return nil, NewValidationError("Tenant ID cannot be empty")
	}
	if strings.TrimSpace(invoiceNumber) == "" {
		return nil, NewValidationError("Invoice number cannot be empty")
	}
	if quote == nil {
		return nil, NewValidationError("Quote is required")
	}
	if err := quote.ValidateForInvoicing(); err != nil {
		return nil, err
	}
	if terms.TaxRate.IsNegative() {
		return nil, NewValidationError("Tax rate cannot be negative")
	}
	if terms.PaymentTermsDays < 0 {
		return nil, NewValidationError("Payment terms cannot be negative")
	}
	if issueDate.IsZero() {
		issueDate = time.Now()
	}
	issueDate = TruncateToDate(issueDate)

	items := make(LineItems, len(quote.LineItems))
	copy(items, quote.LineItems)
	totals := ComputeTotals(items, quote.ContingencyPercent, terms.TaxRate)

	inv := &Invoice{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		InvoiceNumber:       invoiceNumber,
		LeadID:              quote.LeadID,
		QuoteID:             quote.ID,
		CustomerName:        quote.CustomerName,
		CustomerEmail:       quote.CustomerEmail,
		LineItems:           items,
		Subtotal:            totals.Subtotal,
		ContingencyPercent:  quote.ContingencyPercent,
		ContingencyAmount:   totals.ContingencyAmount,
		TaxRate:             terms.TaxRate,
		TaxAmount:           totals.TaxAmount,
		Total:               totals.Total,
		AmountPaid:          decimal.Zero,
		BalanceDue:          totals.Total,
		Status:              InvoiceStatusDraft,
		IssueDate:           issueDate,
		DueDate:             issueDate.AddDate(0, 0, terms.PaymentTermsDays),
		Notes:               notes,
	}

	inv.AddDomainEvent(NewInvoiceCreatedEvent(inv))

	return inv, nil
}

// ApplyPayment applies a recorded payment to the invoice, recomputing
// balance_due and status.
func (inv *Invoice) ApplyPayment(payment *Payment) error {
	if payment == nil {
		return NewValidationError("Payment is required")
	}
	if inv.Status == InvoiceStatusCancelled {
		return NewInvoiceCancelledError("record a payment on")
	}
	if !payment.Amount.IsPositive() {
		return NewValidationError("Payment amount must be positive")
	}
	if payment.Amount.GreaterThan(inv.BalanceDue) {
		return NewPaymentExceedsBalanceError(payment.Amount, inv.BalanceDue)
	}

	inv.AmountPaid = inv.AmountPaid.Add(payment.Amount)
	inv.BalanceDue = inv.Total.Sub(inv.AmountPaid)
	if inv.BalanceDue.IsZero() {
		inv.Status = InvoiceStatusPaid
	} else {
		inv.Status = InvoiceStatusPartiallyPaid
	}

	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()

	inv.AddDomainEvent(NewPaymentRecordedEvent(inv, payment))

	return nil
}

// MarkSent records a successful delivery. Draft invoices move to sent; other
// statuses keep their status and only refresh sent_at.
func (inv *Invoice) MarkSent(recipient string, at time.Time) error {
	if inv.Status == InvoiceStatusCancelled {
		return NewInvoiceCancelledError("send")
	}
	if inv.Status == InvoiceStatusDraft {
		inv.Status = InvoiceStatusSent
	}
	inv.SentAt = &at
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoiceSentEvent(inv, recipient))

	return nil
}

// UpdateStatus applies an explicit status change
func (inv *Invoice) UpdateStatus(target InvoiceStatus) error {
	if !target.IsValid() {
		return NewValidationError("Invalid invoice status: %s", target)
	}
	if target == InvoiceStatusCancelled {
		return inv.Cancel("")
	}
	if inv.Status == InvoiceStatusCancelled {
		return NewInvoiceCancelledError("change the status of")
	}
	if !inv.Status.CanTransitionTo(target) {
		return NewInvalidTransitionError(inv.Status, target)
	}

	from := inv.Status
	inv.Status = target
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoiceStatusChangedEvent(inv, from))

	return nil
}

// UpdateNotes replaces the invoice notes
func (inv *Invoice) UpdateNotes(notes string) error {
	if inv.Status == InvoiceStatusCancelled {
		return NewInvoiceCancelledError("update")
	}
	inv.Notes = notes
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoiceNotesUpdatedEvent(inv))

	return nil
}

// Cancel cancels the invoice (only if no payments have been applied)
func (inv *Invoice) Cancel(reason string) error {
	if inv.Status == InvoiceStatusCancelled {
		return NewInvoiceCancelledError("cancel")
	}
	if inv.AmountPaid.IsPositive() {
		return shared.NewDomainError(CodeInvoiceHasPayments, "Cannot cancel an invoice with recorded payments")
	}
	if !inv.Status.CanTransitionTo(InvoiceStatusCancelled) {
		return NewInvalidTransitionError(inv.Status, InvoiceStatusCancelled)
	}

	from := inv.Status
	now := time.Now()
	inv.Status = InvoiceStatusCancelled
	inv.CancelledAt = &now
	inv.CancelReason = reason
	inv.UpdatedAt = now
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoiceCancelledEvent(inv, from))

	return nil
}

// IsPastDue reports whether the due date lies before asOf (date granularity)
// and the invoice still has money owed.
func (inv *Invoice) IsPastDue(asOf time.Time) bool {
	if inv.Status != InvoiceStatusSent && inv.Status != InvoiceStatusPartiallyPaid {
		return false
	}
	return TruncateToDate(inv.DueDate).Before(TruncateToDate(asOf))
}

// MarkOverdue flips a past-due invoice to overdue. It returns false when the
// invoice is not eligible.
func (inv *Invoice) MarkOverdue(asOf time.Time) bool {
	if !inv.IsPastDue(asOf) {
		return false
	}
	from := inv.Status
	inv.Status = InvoiceStatusOverdue
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoiceMarkedOverdueEvent(inv, from, asOf))

	return true
}

// ValidateForExport checks that the money fields are complete and consistent.
func (inv *Invoice) ValidateForExport() error {
	label := inv.InvoiceNumber
	if strings.TrimSpace(label) == "" {
		return NewValidationError("Invoice %s has no invoice number", inv.ID)
	}
	if inv.IssueDate.IsZero() {
		return NewValidationError("Invoice %s has no issue date", label)
	}
	if len(inv.LineItems) == 0 {
		return NewValidationError("Invoice %s has no line items", label)
	}
	for i, item := range inv.LineItems {
		if item.Amount.IsNegative() {
			return NewValidationError("Invoice %s line item %d has a negative amount", label, i+1)
		}
	}
	amounts := []struct {
		name  string
		value decimal.Decimal
	}{
		{"subtotal", inv.Subtotal},
		{"contingency amount", inv.ContingencyAmount},
		{"tax amount", inv.TaxAmount},
		{"total", inv.Total},
	}
	for _, a := range amounts {
		if a.value.IsNegative() {
			return NewValidationError("Invoice %s has a negative %s", label, a.name)
		}
	}
	if !inv.LineItems.Sum().Equal(inv.Subtotal) {
		return NewValidationError("Invoice %s line items do not sum to the subtotal", label)
	}
	if !inv.Subtotal.Add(inv.ContingencyAmount).Add(inv.TaxAmount).Equal(inv.Total) {
		return NewValidationError("Invoice %s total does not equal subtotal plus contingency plus tax", label)
	}
	return nil
}

// IsCancelled returns true if invoice is cancelled
func (inv *Invoice) IsCancelled() bool {
	return inv.Status == InvoiceStatusCancelled
}

// TruncateToDate drops the time-of-day component, keeping the location.
func TruncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
