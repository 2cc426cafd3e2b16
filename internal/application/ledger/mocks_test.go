package ledger

import (
	"context"
	"time"

	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockInvoiceRepository is a mock implementation of ledger.InvoiceRepository.
// FindByIDForTenant also accepts a func() *ledger.Invoice so each call can hand
// out a fresh copy.
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.Invoice, error) {
	args := m.Called(ctx, tenantID, id)
	if fn, ok := args.Get(0).(func() *ledger.Invoice); ok {
		return fn(), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.InvoiceFilter) ([]ledger.Invoice, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.InvoiceFilter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInvoiceRepository) FindForExport(ctx context.Context, tenantID uuid.UUID, filter ledger.ExportFilter) ([]ledger.Invoice, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindPastDue(ctx context.Context, tenantID uuid.UUID, asOf time.Time) ([]ledger.Invoice, error) {
	args := m.Called(ctx, tenantID, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) TenantsWithOpenInvoices(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockInvoiceRepository) Save(ctx context.Context, invoice *ledger.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) SaveWithLock(ctx context.Context, invoice *ledger.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) GenerateInvoiceNumber(ctx context.Context, tenantID uuid.UUID, issueDate time.Time) (string, error) {
	args := m.Called(ctx, tenantID, issueDate)
	return args.String(0), args.Error(1)
}

// MockPaymentRepository is a mock implementation of ledger.PaymentRepository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Save(ctx context.Context, payment *ledger.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) FindByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]ledger.Payment, error) {
	args := m.Called(ctx, tenantID, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.Payment), args.Error(1)
}

func (m *MockPaymentRepository) SumByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, tenantID, invoiceID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// MockAuditLogRepository is a mock implementation of ledger.AuditLogRepository
type MockAuditLogRepository struct {
	mock.Mock
}

func (m *MockAuditLogRepository) Append(ctx context.Context, entry *ledger.AuditLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditLogRepository) FindByLead(ctx context.Context, tenantID, leadID uuid.UUID) ([]ledger.AuditLogEntry, error) {
	args := m.Called(ctx, tenantID, leadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.AuditLogEntry), args.Error(1)
}

// MockQuoteRepository is a mock implementation of ledger.QuoteRepository
type MockQuoteRepository struct {
	mock.Mock
}

func (m *MockQuoteRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.Quote, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Quote), args.Error(1)
}

// MockPDFRenderer is a mock implementation of PDFRenderer
type MockPDFRenderer struct {
	mock.Mock
}

func (m *MockPDFRenderer) RenderInvoice(ctx context.Context, doc *InvoiceDocument) ([]byte, error) {
	args := m.Called(ctx, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockEmailSender is a mock implementation of EmailSender
type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) Configured() bool {
	return m.Called().Bool(0)
}

func (m *MockEmailSender) Send(ctx context.Context, msg *EmailMessage) (string, error) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Error(1)
}

// MockDocumentArchive is a mock implementation of DocumentArchive
type MockDocumentArchive struct {
	mock.Mock
}

func (m *MockDocumentArchive) Put(ctx context.Context, key string, content []byte, contentType string) error {
	args := m.Called(ctx, key, content, contentType)
	return args.Error(0)
}

// MockInvoiceExporter is a mock implementation of InvoiceExporter
type MockInvoiceExporter struct {
	mock.Mock
}

func (m *MockInvoiceExporter) Render(invoices []ledger.Invoice) ([]byte, error) {
	args := m.Called(invoices)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// countingMetrics records calls for assertions
type countingMetrics struct {
	NoopMetrics
	conflicts    int
	auditFailed  int
	payments     int
	overdue      int
	invoicesSent int
}

func (c *countingMetrics) PaymentConflict(context.Context, uuid.UUID, int) { c.conflicts++ }
func (c *countingMetrics) AuditWriteFailed(context.Context, string)        { c.auditFailed++ }
func (c *countingMetrics) PaymentRecorded(context.Context, uuid.UUID, ledger.PaymentMethod, decimal.Decimal) {
	c.payments++
}
func (c *countingMetrics) InvoiceMarkedOverdue(context.Context, uuid.UUID) { c.overdue++ }
func (c *countingMetrics) InvoiceSent(context.Context, uuid.UUID)          { c.invoicesSent++ }

// newTestQuote returns an accepted quote with 10% contingency
func newTestQuote(tenantID uuid.UUID, amounts ...string) *ledger.Quote {
	items := make(ledger.LineItems, len(amounts))
	for i, a := range amounts {
		items[i] = ledger.LineItem{Description: "Kitchen work", Amount: decimal.RequireFromString(a)}
	}
	return &ledger.Quote{
		ID:                 uuid.New(),
		TenantID:           tenantID,
		LeadID:             uuid.New(),
		CustomerName:       "Jane Doe",
		CustomerEmail:      "jane@example.com",
		Status:             ledger.QuoteStatusAccepted,
		LineItems:          items,
		ContingencyPercent: decimal.NewFromInt(10),
	}
}

// newStoredInvoice returns a factory producing identical copies of a persisted
// invoice with the given total, no contingency and no tax.
func newStoredInvoice(tenantID uuid.UUID, total string, status ledger.InvoiceStatus) (uuid.UUID, func() *ledger.Invoice) {
	quote := newTestQuote(tenantID, total)
	quote.ContingencyPercent = decimal.Zero
	base, err := ledger.NewInvoiceFromQuote(tenantID, "INV-20260302-00001", quote,
		ledger.InvoiceTerms{TaxRate: decimal.Zero, PaymentTermsDays: 30},
		time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), "")
	if err != nil {
		panic(err)
	}
	base.ClearDomainEvents()
	base.Status = status
	return base.ID, func() *ledger.Invoice {
		cp := *base
		cp.LineItems = append(ledger.LineItems(nil), base.LineItems...)
		return &cp
	}
}
