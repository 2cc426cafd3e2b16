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

type paymentServiceFixture struct {
	service     *PaymentService
	invoiceRepo *MockInvoiceRepository
	paymentRepo *MockPaymentRepository
	auditRepo   *MockAuditLogRepository
	metrics     *countingMetrics
}

func newPaymentServiceFixture() *paymentServiceFixture {
	f := &paymentServiceFixture{
		invoiceRepo: new(MockInvoiceRepository),
		paymentRepo: new(MockPaymentRepository),
		auditRepo:   new(MockAuditLogRepository),
		metrics:     &countingMetrics{},
	}
	f.service = NewPaymentService(PaymentServiceConfig{
		InvoiceRepo: f.invoiceRepo,
		PaymentRepo: f.paymentRepo,
		AuditLogger: NewAuditLogger(f.auditRepo, nil, f.metrics),
		MaxAttempts: 3,
		Metrics:     f.metrics,
	})
	return f
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestPaymentService_RecordPayment(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("partial payment", func(t *testing.T) {
		f := newPaymentServiceFixture()
		id, load := newStoredInvoice(tenantID, "1000.00", ledger.InvoiceStatusSent)
		paid := time.Date(2026, 3, 5, 14, 0, 0, 0, time.UTC)
		f.invoiceRepo.On("FindByIDForTenant", ctx, tenantID, id).Return(load, nil)
		f.paymentRepo.On("Save", ctx, mock.AnythingOfType("*ledger.Payment")).Return(nil)
		f.invoiceRepo.On("SaveWithLock", ctx, mock.Anything).Return(nil)
		f.auditRepo.On("Append", ctx, auditAction(ledger.AuditActionPaymentRecorded)).Return(nil)

		result, err := f.service.RecordPayment(ctx, tenantID, id, RecordPaymentInput{
			Amount:          amount("400.00"),
			Method:          "etransfer",
			PaymentDate:     &paid,
			ReferenceNumber: " ET-123 ",
		})
		require.NoError(t, err)

		assert.Equal(t, "400.00", result.Payment.Amount.StringFixed(2))
		assert.Equal(t, "etransfer", result.Payment.PaymentMethod)
		assert.Equal(t, "2026-03-05", result.Payment.PaymentDate)
		assert.Equal(t, "ET-123", result.Payment.ReferenceNumber)
		assert.Equal(t, "partially_paid", result.Invoice.Status)
		assert.Equal(t, "400.00", result.Invoice.AmountPaid.StringFixed(2))
		assert.Equal(t, "600.00", result.Invoice.BalanceDue.StringFixed(2))
		assert.Equal(t, 1, f.metrics.payments)
		f.auditRepo.AssertExpectations(t)
	})

	t.Run("final payment marks invoice paid", func(t *testing.T) {
		f := newPaymentServiceFixture()
		id, load := newStoredInvoice(tenantID, "1000.00", ledger.InvoiceStatusPartiallyPaid)
		afterFirst := func() *ledger.Invoice {
			inv := load()
			inv.AmountPaid = amount("400.00")
			inv.BalanceDue = amount("600.00")
			inv.Version = 2
			return inv
		}
		f.invoiceRepo.On("FindByIDForTenant", ctx, tenantID, id).Return(afterFirst, nil)
		f.paymentRepo.On("Save", ctx, mock.Anything).Return(nil)
		f.invoiceRepo.On("SaveWithLock", ctx, mock.MatchedBy(func(inv *ledger.Invoice) bool {
			return inv.Version == 3
		})).Return(nil)
		f.auditRepo.On("Append", ctx, mock.Anything).Return(nil)

		result, err := f.service.RecordPayment(ctx, tenantID, id, RecordPaymentInput{Amount: amount("600.00"), Method: "cheque"})
		require.NoError(t, err)
		assert.Equal(t, "paid", result.Invoice.Status)
		assert.True(t, result.Invoice.BalanceDue.IsZero())
		assert.Equal(t, "1000.00", result.Invoice.AmountPaid.StringFixed(2))
	})

	t.Run("exceeding the balance is rejected", func(t *testing.T) {
		f := newPaymentServiceFixture()
		id, load := newStoredInvoice(tenantID, "100.00", ledger.InvoiceStatusSent)
		f.invoiceRepo.On("FindByIDForTenant", ctx, tenantID, id).Return(load, nil)

		_, err := f.service.RecordPayment(ctx, tenantID, id, RecordPaymentInput{Amount: amount("100.01"), Method: "cash"})
		assert.ErrorIs(t, err, shared.NewDomainError(ledger.CodePaymentExceedsBalance, ""))
		f.paymentRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("cancelled invoice", func(t *testing.T) {
		f := newPaymentServiceFixture()
		id, load := newStoredInvoice(tenantID, "100.00", ledger.InvoiceStatusCancelled)
		f.invoiceRepo.On("FindByIDForTenant", ctx, tenantID, id).Return(load, nil)

		_, err := f.service.RecordPayment(ctx, tenantID, id, RecordPaymentInput{Amount: amount("10.00"), Method: "cash"})
		assert.ErrorIs(t, err, shared.NewDomainError(ledger.CodeInvoiceCancelled, ""))
	})

	t.Run("unknown invoice", func(t *testing.T) {
		f := newPaymentServiceFixture()
		id := uuid.New()
		f.invoiceRepo.On("FindByIDForTenant", ctx, tenantID, id).Return(nil, shared.ErrNotFound)

		_, err := f.service.RecordPayment(ctx, tenantID, id, RecordPaymentInput{Amount: amount("10.00"), Method: "cash"})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("input validation happens before loading", func(t *testing.T) {
		f := newPaymentServiceFixture()
		id := uuid.New()

		_, err := f.service.RecordPayment(ctx, tenantID, id, RecordPaymentInput{Amount: decimal.Zero, Method: "cash"})
		assert.ErrorIs(t, err, shared.ErrValidation)

		_, err = f.service.RecordPayment(ctx, tenantID, id, RecordPaymentInput{Amount: amount("-5"), Method: "cash"})
		assert.ErrorIs(t, err, shared.ErrValidation)

		_, err = f.service.RecordPayment(ctx, tenantID, id, RecordPaymentInput{Amount: amount("5"), Method: "bitcoin"})
		assert.ErrorIs(t, err, shared.ErrValidation)

		f.invoiceRepo.AssertNotCalled(t, "FindByIDForTenant", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("sub-cent amount", func(t *testing.T) {
		f := newPaymentServiceFixture()
		id, load := newStoredInvoice(tenantID, "100.00", ledger.InvoiceStatusSent)
		f.invoiceRepo.On("FindByIDForTenant", ctx, tenantID, id).Return(load, nil)

		_, err := f.service.RecordPayment(ctx, tenantID, id, RecordPaymentInput{Amount: amount("10.005"), Method: "cash"})
		assert.ErrorIs(t, err, shared.ErrValidation)
	})
}

func TestPaymentService_RecordPayment_VersionConflict(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("reloads and re-validates after a conflict", func(t *testing.T) {
		f := newPaymentServiceFixture()
		id, load := newStoredInvoice(tenantID, "1000.00", ledger.InvoiceStatusSent)
		// A concurrent 500.00 payment lands between the first load and its save.
		concurrent := func() *ledger.Invoice {
			inv := load()
			inv.AmountPaid = amount("500.00")
			inv.BalanceDue = amount("500.00")
			inv.Status = ledger.InvoiceStatusPartiallyPaid
			inv.Version = 2
			return inv
		}
		f.invoiceRepo.On("FindByIDForTenant", ctx, tenantID, id).Return(load, nil).Once()
		f.invoiceRepo.On("FindByIDForTenant", ctx, tenantID, id).Return(concurrent, nil).Once()
		f.paymentRepo.On("Save", ctx, mock.Anything).Return(nil)
		f.invoiceRepo.On("SaveWithLock", ctx, mock.Anything).Return(shared.ErrConcurrencyConflict).Once()
		f.invoiceRepo.On("SaveWithLock", ctx, mock.Anything).Return(nil).Once()
		f.auditRepo.On("Append", ctx, mock.Anything).Return(nil)

		result, err := f.service.RecordPayment(ctx, tenantID, id, RecordPaymentInput{Amount: amount("500.00"), Method: "cash"})
		require.NoError(t, err)
		assert.Equal(t, "paid", result.Invoice.Status)
		assert.Equal(t, "1000.00", result.Invoice.AmountPaid.StringFixed(2))
		assert.Equal(t, 3, result.Invoice.Version)
		assert.Equal(t, 1, f.metrics.conflicts)
		f.auditRepo.AssertNumberOfCalls(t, "Append", 1)
	})

	t.Run("second payment exceeds the reloaded balance", func(t *testing.T) {
		f := newPaymentServiceFixture()
		id, load := newStoredInvoice(tenantID, "1000.00", ledger.InvoiceStatusSent)
		concurrent := func() *ledger.Invoice {
			inv := load()
			inv.AmountPaid = amount("700.00")
			inv.BalanceDue = amount("300.00")
			inv.Status = ledger.InvoiceStatusPartiallyPaid
			inv.Version = 2
			return inv
		}
		f.invoiceRepo.On("FindByIDForTenant", ctx, tenantID, id).Return(load, nil).Once()
		f.invoiceRepo.On("FindByIDForTenant", ctx, tenantID, id).Return(concurrent, nil).Once()
		f.paymentRepo.On("Save", ctx, mock.Anything).Return(nil)
		f.invoiceRepo.On("SaveWithLock", ctx, mock.Anything).Return(shared.ErrConcurrencyConflict).Once()

		_, err := f.service.RecordPayment(ctx, tenantID, id, RecordPaymentInput{Amount: amount("500.00"), Method: "cash"})
		assert.ErrorIs(t, err, shared.NewDomainError(ledger.CodePaymentExceedsBalance, ""))
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		f := newPaymentServiceFixture()
		id, load := newStoredInvoice(tenantID, "1000.00", ledger.InvoiceStatusSent)
		f.invoiceRepo.On("FindByIDForTenant", ctx, tenantID, id).Return(load, nil)
		f.paymentRepo.On("Save", ctx, mock.Anything).Return(nil)
		f.invoiceRepo.On("SaveWithLock", ctx, mock.Anything).Return(shared.ErrConcurrencyConflict)

		_, err := f.service.RecordPayment(ctx, tenantID, id, RecordPaymentInput{Amount: amount("100.00"), Method: "cash"})
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.Equal(t, ledger.KindConflict, ledger.KindOf(err))
		assert.Equal(t, 3, f.metrics.conflicts)
		f.invoiceRepo.AssertNumberOfCalls(t, "SaveWithLock", 3)
		f.auditRepo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	})
}

func TestPaymentService_ListPayments(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("lists payments", func(t *testing.T) {
		f := newPaymentServiceFixture()
		id, load := newStoredInvoice(tenantID, "1000.00", ledger.InvoiceStatusPartiallyPaid)
		p1, err := ledger.NewPayment(tenantID, id, amount("100.00"), ledger.PaymentMethodCash, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), "", "")
		require.NoError(t, err)
		p2, err := ledger.NewPayment(tenantID, id, amount("50.00"), ledger.PaymentMethodCheque, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), "CHQ-7", "")
		require.NoError(t, err)
		f.invoiceRepo.On("FindByIDForTenant", ctx, tenantID, id).Return(load, nil)
		f.paymentRepo.On("FindByInvoice", ctx, tenantID, id).Return([]ledger.Payment{*p1, *p2}, nil)

		payments, err := f.service.ListPayments(ctx, tenantID, id)
		require.NoError(t, err)
		require.Len(t, payments, 2)
		assert.Equal(t, "2026-03-09", payments[0].PaymentDate)
		assert.Equal(t, "CHQ-7", payments[1].ReferenceNumber)
	})

	t.Run("unknown invoice", func(t *testing.T) {
		f := newPaymentServiceFixture()
		id := uuid.New()
		f.invoiceRepo.On("FindByIDForTenant", ctx, tenantID, id).Return(nil, shared.ErrNotFound)

		_, err := f.service.ListPayments(ctx, tenantID, id)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		f.paymentRepo.AssertNotCalled(t, "FindByInvoice", mock.Anything, mock.Anything, mock.Anything)
	})
}
