package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/domain/ledger"
	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentServiceConfig holds the dependencies of PaymentService
type PaymentServiceConfig struct {
	InvoiceRepo ledger.InvoiceRepository
	PaymentRepo ledger.PaymentRepository
	TxScope     TransactionScope
	AuditLogger *AuditLogger
	MaxAttempts int
	Metrics     Metrics
	Logger      *zap.Logger
}

// PaymentService records payments against invoices
type PaymentService struct {
	invoiceRepo ledger.InvoiceRepository
	paymentRepo ledger.PaymentRepository
	txScope     TransactionScope
	audit       *AuditLogger
	maxAttempts int
	metrics     Metrics
	logger      *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(cfg PaymentServiceConfig) *PaymentService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	audit := cfg.AuditLogger
	if audit == nil {
		audit = NewAuditLogger(nopAuditRepository{}, logger, metrics)
	}
	txScope := cfg.TxScope
	if txScope == nil {
		txScope = NewNoOpTransactionScope(cfg.InvoiceRepo, cfg.PaymentRepo)
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = defaultMaxAttempts
	}
	return &PaymentService{
		invoiceRepo: cfg.InvoiceRepo,
		paymentRepo: cfg.PaymentRepo,
		txScope:     txScope,
		audit:       audit,
		maxAttempts: maxAttempts,
		metrics:     metrics,
		logger:      logger.Named("payment"),
	}
}

// RecordPayment validates a payment and applies it to the invoice. The payment
// insert and the invoice compare-and-swap commit together; on a version
// conflict the invoice is reloaded and every business check runs again.
func (s *PaymentService) RecordPayment(ctx context.Context, tenantID, invoiceID uuid.UUID, input RecordPaymentInput) (*RecordPaymentResult, error) {
	if !input.Amount.IsPositive() {
		return nil, ledger.NewValidationError("Payment amount must be positive")
	}
	method := ledger.PaymentMethod(input.Method)
	if !method.IsValid() {
		return nil, ledger.NewValidationError("Invalid payment method: %s", input.Method)
	}
	var paymentDate time.Time
	if input.PaymentDate != nil {
		paymentDate = *input.PaymentDate
	}

	var (
		inv     *ledger.Invoice
		payment *ledger.Payment
	)
	for attempt := 1; ; attempt++ {
		err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			loaded, err := repos.InvoiceRepo().FindByIDForTenant(ctx, tenantID, invoiceID)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					return ledger.NewInvoiceNotFoundError()
				}
				return err
			}

			p, err := ledger.NewPayment(tenantID, invoiceID, input.Amount, method, paymentDate, input.ReferenceNumber, input.Notes)
			if err != nil {
				return err
			}
			if err := loaded.ApplyPayment(p); err != nil {
				return err
			}
			if err := repos.PaymentRepo().Save(ctx, p); err != nil {
				return err
			}
			if err := repos.InvoiceRepo().SaveWithLock(ctx, loaded); err != nil {
				return err
			}
			inv, payment = loaded, p
			return nil
		})
		if err == nil {
			break
		}
		if !errors.Is(err, shared.ErrConcurrencyConflict) {
			return nil, err
		}
		s.metrics.PaymentConflict(ctx, tenantID, attempt)
		if attempt >= s.maxAttempts {
			s.logger.Warn("Payment abandoned after repeated version conflicts",
				zap.String("tenant_id", tenantID.String()),
				zap.String("invoice_id", invoiceID.String()),
				zap.Int("attempts", attempt))
			return nil, err
		}
		s.logger.Debug("Invoice changed concurrently, retrying payment",
			zap.String("invoice_id", invoiceID.String()),
			zap.Int("attempt", attempt))
	}

	s.audit.RecordEvents(ctx, inv)
	s.metrics.PaymentRecorded(ctx, tenantID, payment.Method, payment.Amount)
	s.logger.Info("Payment recorded",
		zap.String("tenant_id", tenantID.String()),
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.String("payment_id", payment.ID.String()),
		zap.String("amount", payment.Amount.StringFixed(2)),
		zap.String("status", string(inv.Status)))

	return &RecordPaymentResult{
		Payment: ToPaymentResponse(payment),
		Invoice: ToInvoiceResponse(inv),
	}, nil
}

// ListPayments returns the payments of an invoice, newest payment date first
func (s *PaymentService) ListPayments(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]PaymentResponse, error) {
	if _, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, invoiceID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ledger.NewInvoiceNotFoundError()
		}
		return nil, err
	}
	payments, err := s.paymentRepo.FindByInvoice(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	responses := make([]PaymentResponse, len(payments))
	for i := range payments {
		responses[i] = ToPaymentResponse(&payments[i])
	}
	return responses, nil
}
