package ledger

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/domain/ledger"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SendServiceConfig holds the dependencies of SendService
type SendServiceConfig struct {
	InvoiceRepo ledger.InvoiceRepository
	PaymentRepo ledger.PaymentRepository
	Renderer    PDFRenderer
	Sender      EmailSender
	Archive     DocumentArchive // optional
	AuditLogger *AuditLogger
	MaxAttempts int
	CompanyName string
	Currency    string
	Metrics     Metrics
	Logger      *zap.Logger
	Clock       func() time.Time
}

// SendService renders an invoice to PDF and emails it to the customer
type SendService struct {
	paymentRepo ledger.PaymentRepository
	renderer    PDFRenderer
	sender      EmailSender
	archive     DocumentArchive
	updater     *invoiceUpdater
	companyName string
	currency    string
	validate    *validator.Validate
	metrics     Metrics
	logger      *zap.Logger
	now         func() time.Time
}

// NewSendService creates a new SendService
func NewSendService(cfg SendServiceConfig) *SendService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	audit := cfg.AuditLogger
	if audit == nil {
		audit = NewAuditLogger(nopAuditRepository{}, logger, metrics)
	}
	return &SendService{
		paymentRepo: cfg.PaymentRepo,
		renderer:    cfg.Renderer,
		sender:      cfg.Sender,
		archive:     cfg.Archive,
		updater:     newInvoiceUpdater(cfg.InvoiceRepo, audit, cfg.MaxAttempts),
		companyName: cfg.CompanyName,
		currency:    cfg.Currency,
		validate:    validator.New(),
		metrics:     metrics,
		logger:      logger.Named("send"),
		now:         clock,
	}
}

// Send emails the invoice PDF and marks the invoice as sent. The invoice is
// only modified after the provider accepted the message.
func (s *SendService) Send(ctx context.Context, tenantID, invoiceID uuid.UUID, input SendInvoiceInput) (*SendInvoiceResult, error) {
	to := strings.TrimSpace(input.ToEmail)
	if err := s.validate.Var(to, "required,email,max=254"); err != nil {
		return nil, ledger.NewValidationError("A valid recipient email address is required")
	}

	inv, err := s.updater.load(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.IsCancelled() {
		return nil, ledger.NewInvoiceCancelledError("send")
	}
	if s.sender == nil || !s.sender.Configured() {
		return nil, ledger.NewDependencyUnavailableError("Email provider")
	}

	payments, err := s.paymentRepo.FindByInvoice(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	pdf, err := s.renderer.RenderInvoice(ctx, &InvoiceDocument{
		Invoice:       inv,
		Payments:      payments,
		CompanyName:   s.companyName,
		Currency:      s.currency,
		CustomMessage: input.CustomMessage,
		GeneratedAt:   s.now(),
	})
	if err != nil {
		s.logger.Error("Failed to render invoice PDF",
			zap.String("invoice_number", inv.InvoiceNumber),
			zap.Error(err))
		return nil, ledger.NewDependencyFailedError("PDF renderer")
	}

	msg, err := s.composeMessage(inv, to, input.CustomMessage, pdf)
	if err != nil {
		return nil, err
	}
	messageID, err := s.sender.Send(ctx, msg)
	if err != nil {
		s.logger.Error("Failed to send invoice email",
			zap.String("invoice_number", inv.InvoiceNumber),
			zap.Error(err))
		return nil, ledger.NewDependencyFailedError("Email provider")
	}

	s.archivePDF(ctx, inv, pdf)

	sentAt := s.now()
	updated, err := s.updater.apply(ctx, tenantID, invoiceID, func(inv *ledger.Invoice) error {
		return inv.MarkSent(to, sentAt)
	})
	if err != nil {
		s.logger.Error("Invoice emailed but status update failed",
			zap.String("invoice_id", invoiceID.String()),
			zap.String("message_id", messageID),
			zap.Error(err))
		return nil, err
	}

	s.metrics.InvoiceSent(ctx, tenantID)
	s.logger.Info("Invoice sent",
		zap.String("tenant_id", tenantID.String()),
		zap.String("invoice_number", updated.InvoiceNumber),
		zap.String("message_id", messageID))

	return &SendInvoiceResult{
		Invoice:   ToInvoiceResponse(updated),
		MessageID: messageID,
	}, nil
}

// ArchiveKey is the object key of an invoice PDF below the archive prefix
func ArchiveKey(tenantID uuid.UUID, invoiceNumber string) string {
	return fmt.Sprintf("%s/%s.pdf", tenantID, invoiceNumber)
}

func (s *SendService) archivePDF(ctx context.Context, inv *ledger.Invoice, pdf []byte) {
	if s.archive == nil {
		return
	}
	key := ArchiveKey(inv.TenantID, inv.InvoiceNumber)
	if err := s.archive.Put(ctx, key, pdf, "application/pdf"); err != nil {
		s.logger.Warn("Failed to archive invoice PDF",
			zap.String("key", key),
			zap.Error(err))
	}
}

var emailBodyTemplate = template.Must(template.New("invoice_email").Parse(`<p>Hello {{.Customer}},</p>
{{if .Message}}<p>{{.Message}}</p>
{{end}}<p>Please find attached invoice <strong>{{.Number}}</strong> for {{.Total}} {{.Currency}}, due {{.DueDate}}.</p>
<p>Balance due: {{.Balance}} {{.Currency}}</p>
<p>Thank you,<br>{{.Company}}</p>
`))

type emailBody struct {
	Customer string
	Message  string
	Number   string
	Total    string
	Balance  string
	Currency string
	DueDate  string
	Company  string
}

func (s *SendService) composeMessage(inv *ledger.Invoice, to, customMessage string, pdf []byte) (*EmailMessage, error) {
	body := emailBody{
		Customer: inv.CustomerName,
		Message:  strings.TrimSpace(customMessage),
		Number:   inv.InvoiceNumber,
		Total:    inv.Total.StringFixed(2),
		Balance:  inv.BalanceDue.StringFixed(2),
		Currency: s.currency,
		DueDate:  inv.DueDate.Format(dateLayout),
		Company:  s.companyName,
	}
	var html bytes.Buffer
	if err := emailBodyTemplate.Execute(&html, body); err != nil {
		return nil, fmt.Errorf("compose invoice email: %w", err)
	}

	var text strings.Builder
	fmt.Fprintf(&text, "Hello %s,\n\n", body.Customer)
	if body.Message != "" {
		fmt.Fprintf(&text, "%s\n\n", body.Message)
	}
	fmt.Fprintf(&text, "Please find attached invoice %s for %s %s, due %s.\n", body.Number, body.Total, body.Currency, body.DueDate)
	fmt.Fprintf(&text, "Balance due: %s %s\n\nThank you,\n%s\n", body.Balance, body.Currency, body.Company)

	return &EmailMessage{
		To:      to,
		Subject: fmt.Sprintf("Invoice %s from %s", inv.InvoiceNumber, s.companyName),
		HTML:    html.String(),
		Text:    text.String(),
		Attachments: []EmailAttachment{{
			Filename:    inv.InvoiceNumber + ".pdf",
			Content:     pdf,
			ContentType: "application/pdf",
		}},
	}, nil
}
