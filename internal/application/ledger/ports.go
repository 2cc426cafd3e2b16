package ledger

import (
	"context"
	"time"

	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceDocument is everything a renderer needs to produce the invoice PDF
type InvoiceDocument struct {
	Invoice       *ledger.Invoice
	Payments      []ledger.Payment
	CompanyName   string
	Currency      string
	CustomMessage string
	GeneratedAt   time.Time
}

// PDFRenderer renders an invoice document to PDF bytes
type PDFRenderer interface {
	RenderInvoice(ctx context.Context, doc *InvoiceDocument) ([]byte, error)
}

// EmailAttachment is a file attached to an outgoing email
type EmailAttachment struct {
	Filename    string
	Content     []byte
	ContentType string
}

// EmailMessage is an outgoing transactional email
type EmailMessage struct {
	To          string
	Subject     string
	HTML        string
	Text        string
	Attachments []EmailAttachment
}

// EmailSender delivers transactional email. Configured reports whether the
// provider has credentials; an unconfigured sender is never called.
type EmailSender interface {
	Configured() bool
	Send(ctx context.Context, msg *EmailMessage) (messageID string, err error)
}

// DocumentArchive stores rendered documents for later retrieval
type DocumentArchive interface {
	Put(ctx context.Context, key string, content []byte, contentType string) error
}

// InvoiceExporter projects invoices into a bookkeeping import file
type InvoiceExporter interface {
	Render(invoices []ledger.Invoice) ([]byte, error)
}

// Metrics records ledger business metrics. Implementations must be safe for
// concurrent use.
type Metrics interface {
	InvoiceCreated(ctx context.Context, tenantID uuid.UUID, total decimal.Decimal)
	PaymentRecorded(ctx context.Context, tenantID uuid.UUID, method ledger.PaymentMethod, amount decimal.Decimal)
	PaymentConflict(ctx context.Context, tenantID uuid.UUID, attempt int)
	InvoiceSent(ctx context.Context, tenantID uuid.UUID)
	InvoiceMarkedOverdue(ctx context.Context, tenantID uuid.UUID)
	AuditWriteFailed(ctx context.Context, action string)
}

// NoopMetrics discards every measurement
type NoopMetrics struct{}

func (NoopMetrics) InvoiceCreated(context.Context, uuid.UUID, decimal.Decimal) {}
func (NoopMetrics) PaymentRecorded(context.Context, uuid.UUID, ledger.PaymentMethod, decimal.Decimal) {
}
func (NoopMetrics) PaymentConflict(context.Context, uuid.UUID, int)  {}
func (NoopMetrics) InvoiceSent(context.Context, uuid.UUID)          {}
func (NoopMetrics) InvoiceMarkedOverdue(context.Context, uuid.UUID) {}
func (NoopMetrics) AuditWriteFailed(context.Context, string)        {}

var _ Metrics = NoopMetrics{}
