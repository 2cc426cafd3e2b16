package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/domain/ledger"
	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 2, 15, 30, 0, 0, time.UTC)

func hstTerms() ledger.InvoiceTerms {
	return ledger.InvoiceTerms{TaxRate: decimal.NewFromInt(13), PaymentTermsDays: 30}
}

type invoiceServiceFixture struct {
	service     *InvoiceService
	invoiceRepo *MockInvoiceRepository
	quoteRepo   *MockQuoteRepository
	auditRepo   *MockAuditLogRepository
	metrics     *countingMetrics
}

func newInvoiceServiceFixture() *invoiceServiceFixture {
	f := &invoiceServiceFixture{
		invoiceRepo: new(MockInvoiceRepository),
		quoteRepo:   new(MockQuoteRepository),
		auditRepo:   new(MockAuditLogRepository),
		metrics:     &countingMetrics{},
	}
	f.service = NewInvoiceService(InvoiceServiceConfig{
		InvoiceRepo: f.invoiceRepo,
		QuoteRepo:   f.quoteRepo,
		AuditLogger: NewAuditLogger(f.auditRepo, nil, f.metrics),
		Terms:       hstTerms(),
		MaxAttempts: 3,
		Metrics:     f.metrics,
		Clock:       func() time.Time { return fixedNow },
	})
	return f
}

func auditAction(action string) interface{} {
	return mock.MatchedBy(func(e *ledger.AuditLogEntry) bool { return e.Action == action })
}

func TestInvoiceService_CreateFromQuote(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	issueDate := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	t.Run("creates draft invoice with computed totals", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		quote := newTestQuote(tenantID, "300.00", "200.00")
		f.quoteRepo.On("FindByIDForTenant", ctx, tenantID, quote.ID).Return(quote, nil)
		f.invoiceRepo.On("GenerateInvoiceNumber", ctx, tenantID, issueDate).Return("INV-20260302-00001", nil)
		f.invoiceRepo.On("Save", ctx, mock.AnythingOfType("*ledger.Invoice")).Return(nil)
		f.auditRepo.On("Append", ctx, auditAction(ledger.AuditActionInvoiceCreated)).Return(nil)

		resp, err := f.service.CreateFromQuote(ctx, tenantID, CreateInvoiceFromQuoteInput{QuoteID: quote.ID, Notes: "Phase 1"})
		require.NoError(t, err)

		assert.Equal(t, "INV-20260302-00001", resp.InvoiceNumber)
		assert.Equal(t, "draft", resp.Status)
		assert.Equal(t, "500.00", resp.Subtotal.StringFixed(2))
		assert.Equal(t, "50.00", resp.ContingencyAmount.StringFixed(2))
		assert.Equal(t, "65.00", resp.TaxAmount.StringFixed(2))
		assert.Equal(t, "615.00", resp.Total.StringFixed(2))
		assert.Equal(t, "615.00", resp.BalanceDue.StringFixed(2))
		assert.Equal(t, "2026-03-02", resp.IssueDate)
		assert.Equal(t, "2026-04-01", resp.DueDate)
		assert.Equal(t, quote.LeadID, resp.LeadID)
		assert.Equal(t, "Phase 1", resp.Notes)
		f.auditRepo.AssertNumberOfCalls(t, "Append", 1)
	})

	t.Run("explicit issue date", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		quote := newTestQuote(tenantID, "100.00")
		explicit := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
		day := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
		f.quoteRepo.On("FindByIDForTenant", ctx, tenantID, quote.ID).Return(quote, nil)
		f.invoiceRepo.On("GenerateInvoiceNumber", ctx, tenantID, day).Return("INV-20260115-00001", nil)
		f.invoiceRepo.On("Save", ctx, mock.Anything).Return(nil)
		f.auditRepo.On("Append", ctx, mock.Anything).Return(nil)

		resp, err := f.service.CreateFromQuote(ctx, tenantID, CreateInvoiceFromQuoteInput{QuoteID: quote.ID, IssueDate: &explicit})
		require.NoError(t, err)
		assert.Equal(t, "2026-01-15", resp.IssueDate)
		assert.Equal(t, "2026-02-14", resp.DueDate)
	})

	t.Run("retries when the invoice number is taken", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		quote := newTestQuote(tenantID, "100.00")
		f.quoteRepo.On("FindByIDForTenant", ctx, tenantID, quote.ID).Return(quote, nil)
		f.invoiceRepo.On("GenerateInvoiceNumber", ctx, tenantID, issueDate).Return("INV-20260302-00001", nil).Once()
		f.invoiceRepo.On("GenerateInvoiceNumber", ctx, tenantID, issueDate).Return("INV-20260302-00002", nil).Once()
		f.invoiceRepo.On("Save", ctx, mock.Anything).Return(shared.ErrAlreadyExists).Once()
		f.invoiceRepo.On("Save", ctx, mock.Anything).Return(nil).Once()
		f.auditRepo.On("Append", ctx, mock.Anything).Return(nil)

		resp, err := f.service.CreateFromQuote(ctx, tenantID, CreateInvoiceFromQuoteInput{QuoteID: quote.ID})
		require.NoError(t, err)
		assert.Equal(t, "INV-20260302-00002", resp.InvoiceNumber)
		f.invoiceRepo.AssertNumberOfCalls(t, "Save", 2)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		quote := newTestQuote(tenantID, "100.00")
		f.quoteRepo.On("FindByIDForTenant", ctx, tenantID, quote.ID).Return(quote, nil)
		f.invoiceRepo.On("GenerateInvoiceNumber", ctx, tenantID, issueDate).Return("INV-20260302-00001", nil)
		f.invoiceRepo.On("Save", ctx, mock.Anything).Return(shared.ErrAlreadyExists)

		_, err := f.service.CreateFromQuote(ctx, tenantID, CreateInvoiceFromQuoteInput{QuoteID: quote.ID})
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		f.invoiceRepo.AssertNumberOfCalls(t, "Save", 3)
		f.auditRepo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	})

	t.Run("missing quote id", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		_, err := f.service.CreateFromQuote(ctx, tenantID, CreateInvoiceFromQuoteInput{})
		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("unknown quote is a validation error", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		quoteID := uuid.New()
		f.quoteRepo.On("FindByIDForTenant", ctx, tenantID, quoteID).Return(nil, shared.ErrNotFound)

		_, err := f.service.CreateFromQuote(ctx, tenantID, CreateInvoiceFromQuoteInput{QuoteID: quoteID})
		assert.ErrorIs(t, err, shared.ErrValidation)
		assert.Equal(t, ledger.KindValidation, ledger.KindOf(err))
	})

	t.Run("quote not accepted", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		quote := newTestQuote(tenantID, "100.00")
		quote.Status = ledger.QuoteStatusSent
		f.quoteRepo.On("FindByIDForTenant", ctx, tenantID, quote.ID).Return(quote, nil)

		_, err := f.service.CreateFromQuote(ctx, tenantID, CreateInvoiceFromQuoteInput{QuoteID: quote.ID})
		assert.ErrorIs(t, err, shared.ErrValidation)
		f.invoiceRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestInvoiceService_GetByID(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("found", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		id, load := newStoredInvoice(tenantID, "100.00", ledger.InvoiceStatusDraft)
		f.invoiceRepo.On("FindByIDForTenant", ctx, tenantID, id).Return(load, nil)

		resp, err := f.service.GetByID(ctx, tenantID, id)
		require.NoError(t, err)
		assert.Equal(t, id, resp.ID)
		require.Len(t, resp.LineItems, 1)
	})

	t.Run("not found", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		id := uuid.New()
		f.invoiceRepo.On("FindByIDForTenant", ctx, tenantID, id).Return(nil, shared.ErrNotFound)

		_, err := f.service.GetByID(ctx, tenantID, id)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.Equal(t, "Invoice not found", err.Error())
	})
}

func TestInvoiceService_List(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("applies defaults", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		matchDefaults := mock.MatchedBy(func(filter ledger.InvoiceFilter) bool {
			return filter.Page == 1 && filter.PageSize == 20 &&
				filter.OrderBy == "issue_date" && filter.OrderDir == "desc" && filter.Status == nil
		})
		f.invoiceRepo.On("FindAllForTenant", ctx, tenantID, matchDefaults).Return([]ledger.Invoice{}, nil)
		f.invoiceRepo.On("CountForTenant", ctx, tenantID, matchDefaults).Return(int64(0), nil)

		items, total, err := f.service.List(ctx, tenantID, InvoiceListFilter{})
		require.NoError(t, err)
		assert.Empty(t, items)
		assert.Equal(t, int64(0), total)
	})

	t.Run("caps page size and passes status", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		_, load := newStoredInvoice(tenantID, "100.00", ledger.InvoiceStatusSent)
		match := mock.MatchedBy(func(filter ledger.InvoiceFilter) bool {
			return filter.PageSize == 100 && filter.Status != nil && *filter.Status == ledger.InvoiceStatusSent
		})
		f.invoiceRepo.On("FindAllForTenant", ctx, tenantID, match).Return([]ledger.Invoice{*load()}, nil)
		f.invoiceRepo.On("CountForTenant", ctx, tenantID, match).Return(int64(1), nil)

		items, total, err := f.service.List(ctx, tenantID, InvoiceListFilter{PageSize: 500, Status: "sent"})
		require.NoError(t, err)
		assert.Len(t, items, 1)
		assert.Equal(t, int64(1), total)
	})

	t.Run("invalid status", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		_, _, err := f.service.List(ctx, tenantID, InvoiceListFilter{Status: "void"})
		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("inverted date range", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		from := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
		to := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		_, _, err := f.service.List(ctx, tenantID, InvoiceListFilter{FromDate: &from, ToDate: &to})
		assert.ErrorIs(t, err, shared.ErrValidation)
	})
}

func TestInvoiceService_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("draft to sent", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		id, load := newStoredInvoice(tenantID, "100.00", ledger.InvoiceStatusDraft)
		f.invoiceRepo.On("FindByIDForTenant", ctx, tenantID, id).Return(load, nil)
		f.invoiceRepo.On("SaveWithLock", ctx, mock.Anything).Return(nil)
		f.auditRepo.On("Append", ctx, auditAction(ledger.AuditActionInvoiceStatusUpdated)).Return(nil)

		resp, err := f.service.UpdateStatus(ctx, tenantID, id, UpdateInvoiceStatusInput{Status: "sent"})
		require.NoError(t, err)
		assert.Equal(t, "sent", resp.Status)
		assert.Equal(t, 2, resp.Version)
		f.auditRepo.AssertExpectations(t)
	})

	t.Run("retries on version conflict", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		id, load := newStoredInvoice(tenantID, "100.00", ledger.InvoiceStatusDraft)
		f.invoiceRepo.On("FindByIDForTenant", ctx, tenantID, id).Return(load, nil)
		f.invoiceRepo.On("SaveWithLock", ctx, mock.Anything).Return(shared.ErrConcurrencyConflict).Once()
		f.invoiceRepo.On("SaveWithLock", ctx, mock.Anything).Return(nil).Once()
		f.auditRepo.On("Append", ctx, mock.Anything).Return(nil)

		resp, err := f.service.UpdateStatus(ctx, tenantID, id, UpdateInvoiceStatusInput{Status: "sent"})
		require.NoError(t, err)
		assert.Equal(t, "sent", resp.Status)
		f.invoiceRepo.AssertNumberOfCalls(t, "FindByIDForTenant", 2)
		f.auditRepo.AssertNumberOfCalls(t, "Append", 1)
	})

	t.Run("paid is not a manual target", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		id, load := newStoredInvoice(tenantID, "100.00", ledger.InvoiceStatusSent)
		f.invoiceRepo.On("FindByIDForTenant", ctx, tenantID, id).Return(load, nil)

		_, err := f.service.UpdateStatus(ctx, tenantID, id, UpdateInvoiceStatusInput{Status: "paid"})
		assert.Equal(t, ledger.KindConflict, ledger.KindOf(err))
		f.invoiceRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("cancelled invoice rejects changes", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		id, load := newStoredInvoice(tenantID, "100.00", ledger.InvoiceStatusCancelled)
		f.invoiceRepo.On("FindByIDForTenant", ctx, tenantID, id).Return(load, nil)

		_, err := f.service.UpdateStatus(ctx, tenantID, id, UpdateInvoiceStatusInput{Status: "sent"})
		assert.ErrorIs(t, err, shared.NewDomainError(ledger.CodeInvoiceCancelled, ""))
	})

	t.Run("unknown status", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		_, err := f.service.UpdateStatus(ctx, tenantID, uuid.New(), UpdateInvoiceStatusInput{Status: "void"})
		assert.ErrorIs(t, err, shared.ErrValidation)
	})
}

func TestInvoiceService_Cancel(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("cancels unpaid invoice", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		id, load := newStoredInvoice(tenantID, "100.00", ledger.InvoiceStatusSent)
		f.invoiceRepo.On("FindByIDForTenant", ctx, tenantID, id).Return(load, nil)
		f.invoiceRepo.On("SaveWithLock", ctx, mock.Anything).Return(nil)
		f.auditRepo.On("Append", ctx, auditAction(ledger.AuditActionInvoiceCancelled)).Return(nil)

		resp, err := f.service.Cancel(ctx, tenantID, id, "  customer withdrew  ")
		require.NoError(t, err)
		assert.Equal(t, "cancelled", resp.Status)
		assert.Equal(t, "customer withdrew", resp.CancelReason)
		assert.NotNil(t, resp.CancelledAt)
	})

	t.Run("invoice with payments cannot be cancelled", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		id, load := newStoredInvoice(tenantID, "100.00", ledger.InvoiceStatusSent)
		withPayment := func() *ledger.Invoice {
			inv := load()
			inv.AmountPaid = decimal.NewFromInt(40)
			inv.BalanceDue = decimal.NewFromInt(60)
			inv.Status = ledger.InvoiceStatusPartiallyPaid
			return inv
		}
		f.invoiceRepo.On("FindByIDForTenant", ctx, tenantID, id).Return(withPayment, nil)

		_, err := f.service.Cancel(ctx, tenantID, id, "")
		assert.ErrorIs(t, err, shared.NewDomainError(ledger.CodeInvoiceHasPayments, ""))
	})
}

func TestInvoiceService_UpdateNotes(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	f := newInvoiceServiceFixture()
	id, load := newStoredInvoice(tenantID, "100.00", ledger.InvoiceStatusSent)
	f.invoiceRepo.On("FindByIDForTenant", ctx, tenantID, id).Return(load, nil)
	f.invoiceRepo.On("SaveWithLock", ctx, mock.Anything).Return(nil)
	f.auditRepo.On("Append", ctx, auditAction(ledger.AuditActionInvoiceNotesUpdated)).Return(nil)

	resp, err := f.service.UpdateNotes(ctx, tenantID, id, "Deposit received by cheque")
	require.NoError(t, err)
	assert.Equal(t, "Deposit received by cheque", resp.Notes)
	assert.Equal(t, "sent", resp.Status)
}

func TestInvoiceService_MarkOverdue(t *testing.T) {
	ctx := context.Background()
	tenantA := uuid.New()
	tenantB := uuid.New()
	asOf := time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)

	f := newInvoiceServiceFixture()
	_, loadSent := newStoredInvoice(tenantA, "100.00", ledger.InvoiceStatusSent)
	_, loadPartial := newStoredInvoice(tenantA, "200.00", ledger.InvoiceStatusPartiallyPaid)
	_, loadConflict := newStoredInvoice(tenantB, "300.00", ledger.InvoiceStatusSent)
	conflicting := loadConflict()

	f.invoiceRepo.On("TenantsWithOpenInvoices", ctx).Return([]uuid.UUID{tenantA, tenantB}, nil)
	f.invoiceRepo.On("FindPastDue", ctx, tenantA, asOf).Return([]ledger.Invoice{*loadSent(), *loadPartial()}, nil)
	f.invoiceRepo.On("FindPastDue", ctx, tenantB, asOf).Return([]ledger.Invoice{*conflicting}, nil)
	f.invoiceRepo.On("SaveWithLock", ctx, mock.MatchedBy(func(inv *ledger.Invoice) bool {
		return inv.TenantID == tenantA
	})).Return(nil)
	f.invoiceRepo.On("SaveWithLock", ctx, mock.MatchedBy(func(inv *ledger.Invoice) bool {
		return inv.TenantID == tenantB
	})).Return(shared.ErrConcurrencyConflict)
	f.auditRepo.On("Append", ctx, auditAction(ledger.AuditActionInvoiceMarkedOverdue)).Return(nil)

	result, err := f.service.MarkOverdue(ctx, asOf)
	require.NoError(t, err)
	assert.Equal(t, OverdueSweepResult{Tenants: 2, Checked: 3, Marked: 2, Failed: 1}, result)
	assert.Equal(t, 2, f.metrics.overdue)
	f.auditRepo.AssertNumberOfCalls(t, "Append", 2)
}

func TestInvoiceService_MarkOverdueForTenant_SkipsNotYetDue(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	asOf := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC) // equal to the due date

	f := newInvoiceServiceFixture()
	_, load := newStoredInvoice(tenantID, "100.00", ledger.InvoiceStatusSent)
	f.invoiceRepo.On("FindPastDue", ctx, tenantID, asOf).Return([]ledger.Invoice{*load()}, nil)

	result, err := f.service.MarkOverdueForTenant(ctx, tenantID, asOf)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Checked)
	assert.Equal(t, 0, result.Marked)
	f.invoiceRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
}
