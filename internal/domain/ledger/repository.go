package ledger

import (
	"context"
	"time"

	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceFilter defines filtering options for invoice queries
type InvoiceFilter struct {
	shared.Filter
	Status   *InvoiceStatus // Filter by status
	LeadID   *uuid.UUID     // Filter by lead
	FromDate *time.Time     // Issue date range start (inclusive)
	ToDate   *time.Time     // Issue date range end (inclusive)
}

// ExportFilter selects the invoices included in an accounting export
type ExportFilter struct {
	From   time.Time
	To     time.Time
	Status *InvoiceStatus
}

// InvoiceRepository defines the interface for invoice persistence.
// Every method is scoped to a tenant.
type InvoiceRepository interface {
	// FindByIDForTenant finds an invoice by ID for a specific tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error)

	// FindAllForTenant finds invoices for a tenant with filtering and paging
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter InvoiceFilter) ([]Invoice, error)

	// CountForTenant counts invoices for a tenant with optional filters
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter InvoiceFilter) (int64, error)

	// FindForExport finds invoices by issue date range ordered by issue date then number
	FindForExport(ctx context.Context, tenantID uuid.UUID, filter ExportFilter) ([]Invoice, error)

	// FindPastDue finds sent or partially paid invoices due before asOf
	FindPastDue(ctx context.Context, tenantID uuid.UUID, asOf time.Time) ([]Invoice, error)

	// TenantsWithOpenInvoices lists tenants that have sent or partially paid invoices
	TenantsWithOpenInvoices(ctx context.Context) ([]uuid.UUID, error)

	// Save inserts a new invoice
	Save(ctx context.Context, invoice *Invoice) error

	// SaveWithLock updates an invoice only if its stored version is the one it
	// was loaded with. Returns shared.ErrConcurrencyConflict otherwise.
	SaveWithLock(ctx context.Context, invoice *Invoice) error

	// GenerateInvoiceNumber generates the next INV-YYYYMMDD-NNNNN number for a tenant
	GenerateInvoiceNumber(ctx context.Context, tenantID uuid.UUID, issueDate time.Time) (string, error)
}

// PaymentRepository defines the interface for payment persistence.
// Payments are immutable: there is no update or delete.
type PaymentRepository interface {
	// Save inserts a new payment
	Save(ctx context.Context, payment *Payment) error

	// FindByInvoice lists payments for an invoice, newest payment date first
	FindByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]Payment, error)

	// SumByInvoice returns the total of all payments recorded for an invoice
	SumByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (decimal.Decimal, error)
}

// AuditLogRepository is the append-only store of audit entries
type AuditLogRepository interface {
	// Append inserts an audit entry
	Append(ctx context.Context, entry *AuditLogEntry) error

	// FindByLead lists entries for a lead in chronological order
	FindByLead(ctx context.Context, tenantID, leadID uuid.UUID) ([]AuditLogEntry, error)
}

// QuoteRepository reads quotes owned by the lead pipeline
type QuoteRepository interface {
	// FindByIDForTenant finds a quote by ID for a specific tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Quote, error)
}
