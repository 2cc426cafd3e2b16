package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/domain/ledger"
	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultMaxAttempts = 3

// InvoiceServiceConfig holds the dependencies of InvoiceService
type InvoiceServiceConfig struct {
	InvoiceRepo ledger.InvoiceRepository
	QuoteRepo   ledger.QuoteRepository
	AuditLogger *AuditLogger
	Terms       ledger.InvoiceTerms
	MaxAttempts int
	Metrics     Metrics
	Logger      *zap.Logger
	Clock       func() time.Time
}

// InvoiceService manages the invoice lifecycle
type InvoiceService struct {
	invoiceRepo ledger.InvoiceRepository
	quoteRepo   ledger.QuoteRepository
	audit       *AuditLogger
	terms       ledger.InvoiceTerms
	updater     *invoiceUpdater
	metrics     Metrics
	logger      *zap.Logger
	now         func() time.Time
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(cfg InvoiceServiceConfig) *InvoiceService {
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
	return &InvoiceService{
		invoiceRepo: cfg.InvoiceRepo,
		quoteRepo:   cfg.QuoteRepo,
		audit:       audit,
		terms:       cfg.Terms,
		updater:     newInvoiceUpdater(cfg.InvoiceRepo, audit, cfg.MaxAttempts),
		metrics:     metrics,
		logger:      logger.Named("invoice"),
		now:         clock,
	}
}

// CreateFromQuote creates a draft invoice from an accepted quote
func (s *InvoiceService) CreateFromQuote(ctx context.Context, tenantID uuid.UUID, input CreateInvoiceFromQuoteInput) (*InvoiceResponse, error) {
	if input.QuoteID == uuid.Nil {
		return nil, ledger.NewValidationError("Quote ID is required")
	}
	quote, err := s.quoteRepo.FindByIDForTenant(ctx, tenantID, input.QuoteID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ledger.NewValidationError("Quote %s not found", input.QuoteID)
		}
		return nil, err
	}
	if err := quote.ValidateForInvoicing(); err != nil {
		return nil, err
	}

	issueDate := s.now()
	if input.IssueDate != nil && !input.IssueDate.IsZero() {
		issueDate = *input.IssueDate
	}
	issueDate = ledger.TruncateToDate(issueDate)

	// Numbers are derived from the highest existing one, so two concurrent
	// creations can pick the same number; the unique index rejects the loser.
	var inv *ledger.Invoice
	for attempt := 1; ; attempt++ {
		number, err := s.invoiceRepo.GenerateInvoiceNumber(ctx, tenantID, issueDate)
		if err != nil {
			return nil, err
		}
		inv, err = ledger.NewInvoiceFromQuote(tenantID, number, quote, s.terms, issueDate, input.Notes)
		if err != nil {
			return nil, err
		}
		err = s.invoiceRepo.Save(ctx, inv)
		if err == nil {
			break
		}
		if !errors.Is(err, shared.ErrAlreadyExists) {
			return nil, err
		}
		if attempt >= s.updater.maxAttempts {
			return nil, shared.ErrConcurrencyConflict
		}
		s.logger.Debug("Invoice number taken, retrying",
			zap.String("invoice_number", number),
			zap.Int("attempt", attempt))
	}

	s.audit.RecordEvents(ctx, inv)
	s.metrics.InvoiceCreated(ctx, tenantID, inv.Total)
	s.logger.Info("Invoice created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("invoice_id", inv.ID.String()),
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.String("total", inv.Total.StringFixed(2)))

	response := ToInvoiceResponse(inv)
	return &response, nil
}

// GetByID returns the invoice snapshot including line items
func (s *InvoiceService) GetByID(ctx context.Context, tenantID, invoiceID uuid.UUID) (*InvoiceResponse, error) {
	inv, err := s.updater.load(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	response := ToInvoiceResponse(inv)
	return &response, nil
}

// List returns a page of invoices and the total count
func (s *InvoiceService) List(ctx context.Context, tenantID uuid.UUID, filter InvoiceListFilter) ([]InvoiceResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.PageSize > 100 {
		filter.PageSize = 100
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "issue_date"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "desc"
	}

	domainFilter := ledger.InvoiceFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			OrderBy:  filter.OrderBy,
			OrderDir: filter.OrderDir,
			Search:   strings.TrimSpace(filter.Search),
		},
		LeadID:   filter.LeadID,
		FromDate: filter.FromDate,
		ToDate:   filter.ToDate,
	}
	if filter.Status != "" {
		status := ledger.InvoiceStatus(filter.Status)
		if !status.IsValid() {
			return nil, 0, ledger.NewValidationError("Invalid invoice status: %s", filter.Status)
		}
		domainFilter.Status = &status
	}
	if filter.FromDate != nil && filter.ToDate != nil && filter.FromDate.After(*filter.ToDate) {
		return nil, 0, ledger.NewValidationError("from date must not be after to date")
	}

	invoices, err := s.invoiceRepo.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.invoiceRepo.CountForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToInvoiceResponses(invoices), total, nil
}

// UpdateStatus applies an explicit status change
func (s *InvoiceService) UpdateStatus(ctx context.Context, tenantID, invoiceID uuid.UUID, input UpdateInvoiceStatusInput) (*InvoiceResponse, error) {
	status := ledger.InvoiceStatus(strings.TrimSpace(input.Status))
	if !status.IsValid() {
		return nil, ledger.NewValidationError("Invalid invoice status: %s", input.Status)
	}
	inv, err := s.updater.apply(ctx, tenantID, invoiceID, func(inv *ledger.Invoice) error {
		return inv.UpdateStatus(status)
	})
	if err != nil {
		return nil, err
	}
	response := ToInvoiceResponse(inv)
	return &response, nil
}

// UpdateNotes replaces the invoice notes
func (s *InvoiceService) UpdateNotes(ctx context.Context, tenantID, invoiceID uuid.UUID, notes string) (*InvoiceResponse, error) {
	inv, err := s.updater.apply(ctx, tenantID, invoiceID, func(inv *ledger.Invoice) error {
		return inv.UpdateNotes(notes)
	})
	if err != nil {
		return nil, err
	}
	response := ToInvoiceResponse(inv)
	return &response, nil
}

// Cancel cancels an invoice that has no recorded payments
func (s *InvoiceService) Cancel(ctx context.Context, tenantID, invoiceID uuid.UUID, reason string) (*InvoiceResponse, error) {
	inv, err := s.updater.apply(ctx, tenantID, invoiceID, func(inv *ledger.Invoice) error {
		return inv.Cancel(strings.TrimSpace(reason))
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Invoice cancelled",
		zap.String("tenant_id", tenantID.String()),
		zap.String("invoice_id", invoiceID.String()))
	response := ToInvoiceResponse(inv)
	return &response, nil
}

// MarkOverdue flips every past-due sent or partially paid invoice of every
// tenant to overdue.
func (s *InvoiceService) MarkOverdue(ctx context.Context, asOf time.Time) (OverdueSweepResult, error) {
	var result OverdueSweepResult
	tenants, err := s.invoiceRepo.TenantsWithOpenInvoices(ctx)
	if err != nil {
		return result, err
	}
	for _, tenantID := range tenants {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		tenantResult, err := s.MarkOverdueForTenant(ctx, tenantID, asOf)
		result.Tenants++
		result.Checked += tenantResult.Checked
		result.Marked += tenantResult.Marked
		result.Failed += tenantResult.Failed
		if err != nil {
			s.logger.Error("Overdue sweep failed for tenant",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err))
			result.Failed++
		}
	}
	return result, nil
}

// MarkOverdueForTenant runs the overdue sweep for one tenant. An invoice that
// changed concurrently is skipped and picked up by the next run.
func (s *InvoiceService) MarkOverdueForTenant(ctx context.Context, tenantID uuid.UUID, asOf time.Time) (OverdueSweepResult, error) {
	result := OverdueSweepResult{Tenants: 1}
	invoices, err := s.invoiceRepo.FindPastDue(ctx, tenantID, asOf)
	if err != nil {
		return result, err
	}
	for i := range invoices {
		inv := &invoices[i]
		result.Checked++
		if !inv.MarkOverdue(asOf) {
			continue
		}
		if err := s.invoiceRepo.SaveWithLock(ctx, inv); err != nil {
			result.Failed++
			s.logger.Warn("Failed to mark invoice overdue",
				zap.String("tenant_id", tenantID.String()),
				zap.String("invoice_number", inv.InvoiceNumber),
				zap.Error(err))
			continue
		}
		result.Marked++
		s.audit.RecordEvents(ctx, inv)
		s.metrics.InvoiceMarkedOverdue(ctx, tenantID)
	}
	if result.Marked > 0 {
		s.logger.Info("Invoices marked overdue",
			zap.String("tenant_id", tenantID.String()),
			zap.Int("count", result.Marked))
	}
	return result, nil
}

// invoiceUpdater loads an invoice, applies a mutation and saves it with the
// version check, reloading on conflict.
type invoiceUpdater struct {
	repo        ledger.InvoiceRepository
	audit       *AuditLogger
	maxAttempts int
}

func newInvoiceUpdater(repo ledger.InvoiceRepository, audit *AuditLogger, maxAttempts int) *invoiceUpdater {
	if maxAttempts < 1 {
		maxAttempts = defaultMaxAttempts
	}
	return &invoiceUpdater{repo: repo, audit: audit, maxAttempts: maxAttempts}
}

func (u *invoiceUpdater) load(ctx context.Context, tenantID, invoiceID uuid.UUID) (*ledger.Invoice, error) {
	inv, err := u.repo.FindByIDForTenant(ctx, tenantID, invoiceID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ledger.NewInvoiceNotFoundError()
		}
		return nil, err
	}
	return inv, nil
}

func (u *invoiceUpdater) apply(ctx context.Context, tenantID, invoiceID uuid.UUID, mutate func(*ledger.Invoice) error) (*ledger.Invoice, error) {
	for attempt := 1; ; attempt++ {
		inv, err := u.load(ctx, tenantID, invoiceID)
		if err != nil {
			return nil, err
		}
		if err := mutate(inv); err != nil {
			return nil, err
		}
		err = u.repo.SaveWithLock(ctx, inv)
		if err == nil {
			u.audit.RecordEvents(ctx, inv)
			return inv, nil
		}
		if !errors.Is(err, shared.ErrConcurrencyConflict) || attempt >= u.maxAttempts {
			return nil, err
		}
	}
}

// nopAuditRepository backs an AuditLogger when none is configured
type nopAuditRepository struct{}

func (nopAuditRepository) Append(context.Context, *ledger.AuditLogEntry) error { return nil }
func (nopAuditRepository) FindByLead(context.Context, uuid.UUID, uuid.UUID) ([]ledger.AuditLogEntry, error) {
	return nil, nil
}
