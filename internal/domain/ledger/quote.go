package ledger

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QuoteStatus represents the state of a quote owned by the lead pipeline
type QuoteStatus string

const (
	QuoteStatusDraft    QuoteStatus = "draft"
	QuoteStatusSent     QuoteStatus = "sent"
	QuoteStatusAccepted QuoteStatus = "accepted"
	QuoteStatusRejected QuoteStatus = "rejected"
)

// Quote is the read model of a finalized quote. The ledger never writes quotes.
type Quote struct {
	ID                 uuid.UUID
	TenantID           uuid.UUID
	LeadID             uuid.UUID
	CustomerName       string
	CustomerEmail      string
	Status             QuoteStatus
	LineItems          LineItems
	ContingencyPercent decimal.Decimal
}

// ValidateForInvoicing checks that the quote can be converted into an invoice
func (q *Quote) ValidateForInvoicing() error {
	if q.Status != QuoteStatusAccepted {
		return NewValidationError("Quote %s is not accepted (status %s)", q.ID, q.Status)
	}
	if q.LeadID == uuid.Nil {
		return NewValidationError("Quote %s has no lead", q.ID)
	}
	if strings.TrimSpace(q.CustomerName) == "" {
		return NewValidationError("Quote %s has no customer name", q.ID)
	}
	if len(q.LineItems) == 0 {
		return NewValidationError("Quote %s has no line items", q.ID)
	}
	for i, item := range q.LineItems {
		if strings.TrimSpace(item.Description) == "" {
			return NewValidationError("Quote %s line item %d has no description", q.ID, i+1)
		}
		if item.Amount.IsNegative() {
			return NewValidationError("Quote %s line item %d has a negative amount", q.ID, i+1)
		}
		if !isCents(item.Amount) {
			return NewValidationError("Quote %s line item %d has more than two decimal places", q.ID, i+1)
		}
	}
	if q.ContingencyPercent.IsNegative() || q.ContingencyPercent.GreaterThan(decimal.NewFromInt(100)) {
		return NewValidationError("Quote %s contingency must be between 0 and 100 percent", q.ID)
	}
	if !isCents(q.ContingencyPercent) {
		return NewValidationError("Quote %s contingency has more than two decimal places", q.ID)
	}
	return nil
}

// isCents reports whether d carries no precision beyond two decimal places
func isCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}
