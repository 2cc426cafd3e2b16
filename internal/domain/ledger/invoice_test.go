package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helpers
func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func acceptedQuote(contingency string, amounts ...string) *Quote {
	items := make(LineItems, 0, len(amounts))
	for i, a := range amounts {
		items = append(items, LineItem{Description: "Work item " + string(rune('A'+i)), Amount: dec(a)})
	}
	return &Quote{
		ID:                 uuid.New(),
		TenantID:           uuid.New(),
		LeadID:             uuid.New(),
		CustomerName:       "Jane Homeowner",
		CustomerEmail:      "jane@example.com",
		Status:             QuoteStatusAccepted,
		LineItems:          items,
		ContingencyPercent: dec(contingency),
	}
}

var hstTerms = InvoiceTerms{TaxRate: decimal.NewFromInt(13), PaymentTermsDays: 30}

func createTestInvoice(t *testing.T, terms InvoiceTerms, contingency string, amounts ...string) *Invoice {
	t.Helper()
	issue := time.Date(2026, 3, 2, 15, 4, 5, 0, time.UTC)
	inv, err := NewInvoiceFromQuote(uuid.New(), "INV-20260302-00001", acceptedQuote(contingency, amounts...), terms, issue, "")
	require.NoError(t, err)
	return inv
}

func createThousandDollarInvoice(t *testing.T) *Invoice {
	return createTestInvoice(t, InvoiceTerms{TaxRate: decimal.Zero, PaymentTermsDays: 30}, "0", "1000.00")
}

func newTestPayment(t *testing.T, inv *Invoice, amount string) *Payment {
	t.Helper()
	p, err := NewPayment(inv.TenantID, inv.ID, dec(amount), PaymentMethodETransfer, time.Now(), "", "")
	require.NoError(t, err)
	return p
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var de *shared.DomainError
	require.True(t, errors.As(err, &de), "expected DomainError, got %T", err)
	assert.Equal(t, code, de.Code)
}

// ============================================
// InvoiceStatus Tests
// ============================================

func TestInvoiceStatus_IsValid(t *testing.T) {
	tests := []struct {
		status  InvoiceStatus
		isValid bool
	}{
		{InvoiceStatusDraft, true},
		{InvoiceStatusSent, true},
		{InvoiceStatusPartiallyPaid, true},
		{InvoiceStatusPaid, true},
		{InvoiceStatusOverdue, true},
		{InvoiceStatusCancelled, true},
		{InvoiceStatus("void"), false},
		{InvoiceStatus(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.isValid, tt.status.IsValid())
		})
	}
}

func TestInvoiceStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from    InvoiceStatus
		to      InvoiceStatus
		allowed bool
	}{
		{InvoiceStatusDraft, InvoiceStatusSent, true},
		{InvoiceStatusDraft, InvoiceStatusCancelled, true},
		{InvoiceStatusDraft, InvoiceStatusPaid, false},
		{InvoiceStatusSent, InvoiceStatusOverdue, true},
		{InvoiceStatusSent, InvoiceStatusDraft, false},
		{InvoiceStatusOverdue, InvoiceStatusSent, true},
		{InvoiceStatusPartiallyPaid, InvoiceStatusOverdue, true},
		{InvoiceStatusPartiallyPaid, InvoiceStatusCancelled, false},
		{InvoiceStatusPaid, InvoiceStatusSent, false},
		{InvoiceStatusCancelled, InvoiceStatusDraft, false},
		{InvoiceStatusCancelled, InvoiceStatusSent, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

// ============================================
// Totals Tests
// ============================================

func TestComputeTotals(t *testing.T) {
	t.Run("contingency and HST on subtotal", func(t *testing.T) {
		items := LineItems{
			{Description: "Demolition", Amount: dec("300.00")},
			{Description: "Drywall", Amount: dec("200.00")},
		}
		totals := ComputeTotals(items, dec("10"), dec("13"))

		assert.Equal(t, "500.00", totals.Subtotal.StringFixed(2))
		assert.Equal(t, "50.00", totals.ContingencyAmount.StringFixed(2))
		assert.Equal(t, "65.00", totals.TaxAmount.StringFixed(2))
		assert.Equal(t, "615.00", totals.Total.StringFixed(2))
	})

	t.Run("rounds half up to cents", func(t *testing.T) {
		items := LineItems{{Description: "Cabinets", Amount: dec("100.05")}}
		totals := ComputeTotals(items, dec("12.5"), dec("13"))

		assert.Equal(t, "12.51", totals.ContingencyAmount.StringFixed(2))
		assert.Equal(t, "13.01", totals.TaxAmount.StringFixed(2))
		assert.Equal(t, "125.57", totals.Total.StringFixed(2))
	})

	t.Run("no contingency", func(t *testing.T) {
		items := LineItems{{Description: "Paint", Amount: dec("80")}}
		totals := ComputeTotals(items, decimal.Zero, dec("13"))

		assert.True(t, totals.ContingencyAmount.IsZero())
		assert.Equal(t, "90.40", totals.Total.StringFixed(2))
	})
}

// ============================================
// Invoice Creation Tests
// ============================================

func TestNewInvoiceFromQuote(t *testing.T) {
	tenantID := uuid.New()
	quote := acceptedQuote("10", "300.00", "200.00")
	issue := time.Date(2026, 3, 2, 15, 4, 5, 0, time.UTC)

	inv, err := NewInvoiceFromQuote(tenantID, "INV-20260302-00001", quote, hstTerms, issue, "Thanks")
	require.NoError(t, err)

	assert.Equal(t, tenantID, inv.TenantID)
	assert.Equal(t, quote.LeadID, inv.LeadID)
	assert.Equal(t, quote.ID, inv.QuoteID)
	assert.Equal(t, InvoiceStatusDraft, inv.Status)
	assert.Equal(t, "615.00", inv.Total.StringFixed(2))
	assert.True(t, inv.BalanceDue.Equal(inv.Total))
	assert.True(t, inv.AmountPaid.IsZero())
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), inv.IssueDate)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), inv.DueDate)
	assert.Len(t, inv.LineItems, 2)
	assert.Equal(t, 1, inv.Version)

	events := inv.GetDomainEvents()
	require.Len(t, events, 1)
	created, ok := events[0].(*InvoiceCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, "InvoiceCreated", created.EventType())
	assert.Equal(t, AuditActionInvoiceCreated, created.AuditAction())
	assert.Equal(t, quote.LeadID, created.AuditLeadID())
	assert.Equal(t, "615.00", created.AuditValues()["total"])
}

func TestNewInvoiceFromQuote_CopiesLineItems(t *testing.T) {
	quote := acceptedQuote("0", "100.00")
	inv, err := NewInvoiceFromQuote(uuid.New(), "INV-1", quote, hstTerms, time.Now(), "")
	require.NoError(t, err)

	quote.LineItems[0].Amount = dec("999")
	assert.Equal(t, "100.00", inv.LineItems[0].Amount.StringFixed(2))
}

func TestNewInvoiceFromQuote_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(q *Quote)
	}{
		{"quote not accepted", func(q *Quote) { q.Status = QuoteStatusSent }},
		{"no line items", func(q *Quote) { q.LineItems = nil }},
		{"negative line item", func(q *Quote) { q.LineItems[0].Amount = dec("-1") }},
		{"sub-cent line item", func(q *Quote) { q.LineItems[0].Amount = dec("100.005") }},
		{"sub-cent contingency", func(q *Quote) { q.ContingencyPercent = dec("10.125") }},
		{"blank description", func(q *Quote) { q.LineItems[0].Description = "  " }},
		{"contingency above 100", func(q *Quote) { q.ContingencyPercent = dec("100.5") }},
		{"negative contingency", func(q *Quote) { q.ContingencyPercent = dec("-1") }},
		{"missing lead", func(q *Quote) { q.LeadID = uuid.Nil }},
		{"missing customer", func(q *Quote) { q.CustomerName = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := acceptedQuote("10", "100.00")
			tt.mutate(q)
			_, err := NewInvoiceFromQuote(uuid.New(), "INV-1", q, hstTerms, time.Now(), "")
			assertCode(t, err, "VALIDATION_ERROR")
			assert.Equal(t, KindValidation, KindOf(err))
		})
	}

	t.Run("nil quote", func(t *testing.T) {
		_, err := NewInvoiceFromQuote(uuid.New(), "INV-1", nil, hstTerms, time.Now(), "")
		assertCode(t, err, "VALIDATION_ERROR")
	})

	t.Run("empty tenant", func(t *testing.T) {
		_, err := NewInvoiceFromQuote(uuid.Nil, "INV-1", acceptedQuote("0", "1"), hstTerms, time.Now(), "")
		assertCode(t, err, "VALIDATION_ERROR")
	})

	t.Run("blank number", func(t *testing.T) {
		_, err := NewInvoiceFromQuote(uuid.New(), " ", acceptedQuote("0", "1"), hstTerms, time.Now(), "")
		assertCode(t, err, "VALIDATION_ERROR")
	})
}

// ============================================
// Payment Application Tests
// ============================================

func TestInvoice_ApplyPayment_FullLifecycle(t *testing.T) {
	inv := createThousandDollarInvoice(t)
	require.Equal(t, "1000.00", inv.BalanceDue.StringFixed(2))
	inv.ClearDomainEvents()

	require.NoError(t, inv.ApplyPayment(newTestPayment(t, inv, "400.00")))
	assert.Equal(t, "600.00", inv.BalanceDue.StringFixed(2))
	assert.Equal(t, "400.00", inv.AmountPaid.StringFixed(2))
	assert.Equal(t, InvoiceStatusPartiallyPaid, inv.Status)

	require.NoError(t, inv.ApplyPayment(newTestPayment(t, inv, "600.00")))
	assert.Equal(t, "0.00", inv.BalanceDue.StringFixed(2))
	assert.Equal(t, InvoiceStatusPaid, inv.Status)

	err := inv.ApplyPayment(newTestPayment(t, inv, "0.01"))
	assertCode(t, err, CodePaymentExceedsBalance)
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Equal(t, InvoiceStatusPaid, inv.Status)

	events := inv.GetDomainEvents()
	require.Len(t, events, 2)
	recorded := events[0].(*PaymentRecordedEvent)
	assert.Equal(t, AuditActionPaymentRecorded, recorded.AuditAction())
	assert.Equal(t, "400.00", recorded.AuditValues()["amount"])
	assert.Equal(t, "etransfer", recorded.AuditValues()["payment_method"])
}

func TestInvoice_ApplyPayment_Overpayment(t *testing.T) {
	inv := createThousandDollarInvoice(t)
	version := inv.Version

	err := inv.ApplyPayment(newTestPayment(t, inv, "1000.01"))
	assertCode(t, err, CodePaymentExceedsBalance)
	assert.Equal(t, "1000.00", inv.BalanceDue.StringFixed(2))
	assert.Equal(t, version, inv.Version)
}

func TestInvoice_ApplyPayment_Cancelled(t *testing.T) {
	inv := createThousandDollarInvoice(t)
	require.NoError(t, inv.Cancel("duplicate"))

	err := inv.ApplyPayment(newTestPayment(t, inv, "10.00"))
	assertCode(t, err, CodeInvoiceCancelled)
	assert.Equal(t, KindConflict, KindOf(err))
	assert.True(t, inv.AmountPaid.IsZero())
}

func TestInvoice_ApplyPayment_OverdueBecomesPartiallyPaid(t *testing.T) {
	inv := createThousandDollarInvoice(t)
	inv.Status = InvoiceStatusOverdue

	require.NoError(t, inv.ApplyPayment(newTestPayment(t, inv, "1.00")))
	assert.Equal(t, InvoiceStatusPartiallyPaid, inv.Status)
}

func TestInvoice_ApplyPayment_IncrementsVersion(t *testing.T) {
	inv := createThousandDollarInvoice(t)
	before := inv.Version

	require.NoError(t, inv.ApplyPayment(newTestPayment(t, inv, "5.00")))
	assert.Equal(t, before+1, inv.Version)
}

// ============================================
// Status Tests
// ============================================

func TestInvoice_UpdateStatus(t *testing.T) {
	inv := createThousandDollarInvoice(t)
	inv.ClearDomainEvents()

	require.NoError(t, inv.UpdateStatus(InvoiceStatusSent))
	assert.Equal(t, InvoiceStatusSent, inv.Status)

	err := inv.UpdateStatus(InvoiceStatusDraft)
	assertCode(t, err, CodeInvalidStatusTransition)

	err = inv.UpdateStatus(InvoiceStatusPaid)
	assertCode(t, err, CodeInvalidStatusTransition)

	err = inv.UpdateStatus(InvoiceStatus("bogus"))
	assertCode(t, err, "VALIDATION_ERROR")

	events := inv.GetDomainEvents()
	require.Len(t, events, 1)
	changed := events[0].(*InvoiceStatusChangedEvent)
	assert.Equal(t, InvoiceStatusDraft, changed.FromStatus)
	assert.Equal(t, InvoiceStatusSent, changed.ToStatus)
}

func TestInvoice_UpdateStatus_CancelledIsFinal(t *testing.T) {
	inv := createThousandDollarInvoice(t)
	require.NoError(t, inv.UpdateStatus(InvoiceStatusCancelled))
	assert.Equal(t, InvoiceStatusCancelled, inv.Status)
	assert.NotNil(t, inv.CancelledAt)

	err := inv.UpdateStatus(InvoiceStatusSent)
	assertCode(t, err, CodeInvoiceCancelled)
}

func TestInvoice_UpdateNotes(t *testing.T) {
	inv := createThousandDollarInvoice(t)
	require.NoError(t, inv.UpdateNotes("Call before visiting"))
	assert.Equal(t, "Call before visiting", inv.Notes)

	require.NoError(t, inv.Cancel(""))
	err := inv.UpdateNotes("too late")
	assertCode(t, err, CodeInvoiceCancelled)
	assert.Equal(t, "Call before visiting", inv.Notes)
}

func TestInvoice_Cancel(t *testing.T) {
	t.Run("draft can be cancelled", func(t *testing.T) {
		inv := createThousandDollarInvoice(t)
		inv.ClearDomainEvents()
		require.NoError(t, inv.Cancel("customer withdrew"))
		assert.Equal(t, "customer withdrew", inv.CancelReason)

		events := inv.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, AuditActionInvoiceCancelled, events[0].(AuditableEvent).AuditAction())
	})

	t.Run("invoice with payments cannot be cancelled", func(t *testing.T) {
		inv := createThousandDollarInvoice(t)
		require.NoError(t, inv.ApplyPayment(newTestPayment(t, inv, "100.00")))
		err := inv.Cancel("")
		assertCode(t, err, CodeInvoiceHasPayments)
		assert.Equal(t, KindConflict, KindOf(err))
	})

	t.Run("cancelled twice", func(t *testing.T) {
		inv := createThousandDollarInvoice(t)
		require.NoError(t, inv.Cancel(""))
		assertCode(t, inv.Cancel(""), CodeInvoiceCancelled)
	})
}

func TestInvoice_MarkSent(t *testing.T) {
	at := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)

	t.Run("draft moves to sent", func(t *testing.T) {
		inv := createThousandDollarInvoice(t)
		require.NoError(t, inv.MarkSent("jane@example.com", at))
		assert.Equal(t, InvoiceStatusSent, inv.Status)
		require.NotNil(t, inv.SentAt)
		assert.Equal(t, at, *inv.SentAt)
	})

	t.Run("overdue keeps status", func(t *testing.T) {
		inv := createThousandDollarInvoice(t)
		inv.Status = InvoiceStatusOverdue
		require.NoError(t, inv.MarkSent("jane@example.com", at))
		assert.Equal(t, InvoiceStatusOverdue, inv.Status)
		assert.NotNil(t, inv.SentAt)
	})

	t.Run("cancelled is rejected", func(t *testing.T) {
		inv := createThousandDollarInvoice(t)
		require.NoError(t, inv.Cancel(""))
		assertCode(t, inv.MarkSent("jane@example.com", at), CodeInvoiceCancelled)
		assert.Nil(t, inv.SentAt)
	})
}

func TestInvoice_MarkOverdue(t *testing.T) {
	inv := createThousandDollarInvoice(t)
	afterDue := inv.DueDate.AddDate(0, 0, 1)

	assert.False(t, inv.MarkOverdue(afterDue), "draft invoices are not swept")

	inv.Status = InvoiceStatusSent
	assert.False(t, inv.MarkOverdue(inv.DueDate), "due today is not overdue")
	assert.True(t, inv.MarkOverdue(afterDue))
	assert.Equal(t, InvoiceStatusOverdue, inv.Status)
	assert.False(t, inv.MarkOverdue(afterDue), "already overdue")

	partial := createThousandDollarInvoice(t)
	require.NoError(t, partial.ApplyPayment(newTestPayment(t, partial, "10.00")))
	assert.True(t, partial.MarkOverdue(afterDue))
	assert.Equal(t, InvoiceStatusOverdue, partial.Status)
}

// ============================================
// Export Validation Tests
// ============================================

func TestInvoice_ValidateForExport(t *testing.T) {
	assert.NoError(t, createTestInvoice(t, hstTerms, "10", "300.00", "200.00").ValidateForExport())

	tests := []struct {
		name   string
		mutate func(inv *Invoice)
	}{
		{"blank number", func(inv *Invoice) { inv.InvoiceNumber = "" }},
		{"no issue date", func(inv *Invoice) { inv.IssueDate = time.Time{} }},
		{"no line items", func(inv *Invoice) { inv.LineItems = nil }},
		{"negative tax", func(inv *Invoice) { inv.TaxAmount = dec("-1") }},
		{"items do not sum", func(inv *Invoice) { inv.LineItems[0].Amount = dec("1") }},
		{"total mismatch", func(inv *Invoice) { inv.Total = inv.Total.Add(dec("0.01")) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := createTestInvoice(t, hstTerms, "10", "300.00", "200.00")
			tt.mutate(inv)
			assertCode(t, inv.ValidateForExport(), "VALIDATION_ERROR")
		})
	}
}

// ============================================
// Error Kind Tests
// ============================================

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(NewInvoiceNotFoundError()))
	assert.Equal(t, KindConflict, KindOf(shared.ErrConcurrencyConflict))
	assert.Equal(t, KindDependency, KindOf(NewDependencyUnavailableError("Email provider")))
	assert.Equal(t, KindDependency, KindOf(NewDependencyFailedError("Email provider")))
	assert.Equal(t, KindValidation, KindOf(shared.ErrInvalidInput))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, KindInternal, KindOf(nil))
}

func TestDomainError_IsMatchesByCode(t *testing.T) {
	err := shared.NewDomainError("CONCURRENCY_CONFLICT", "changed underneath")
	assert.True(t, errors.Is(err, shared.ErrConcurrencyConflict))
	assert.False(t, errors.Is(err, shared.ErrNotFound))
}
