package ledger

import (
	"context"
	"fmt"

	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/domain/ledger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ExportService produces the accounting export for a date range
type ExportService struct {
	invoiceRepo ledger.InvoiceRepository
	exporter    InvoiceExporter
	logger      *zap.Logger
}

// NewExportService creates a new ExportService
func NewExportService(invoiceRepo ledger.InvoiceRepository, exporter InvoiceExporter, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		invoiceRepo: invoiceRepo,
		exporter:    exporter,
		logger:      logger.Named("export"),
	}
}

// Export renders every invoice issued between From and To (inclusive),
// optionally restricted to one status.
func (s *ExportService) Export(ctx context.Context, tenantID uuid.UUID, input ExportInput) (*ExportResult, error) {
	if input.From.IsZero() || input.To.IsZero() {
		return nil, ledger.NewValidationError("from and to dates are required")
	}
	from := ledger.TruncateToDate(input.From)
	to := ledger.TruncateToDate(input.To)
	if from.After(to) {
		return nil, ledger.NewValidationError("from date must not be after to date")
	}

	filter := ledger.ExportFilter{From: from, To: to}
	if input.Status != "" {
		status := ledger.InvoiceStatus(input.Status)
		if !status.IsValid() {
			return nil, ledger.NewValidationError("Invalid invoice status: %s", input.Status)
		}
		filter.Status = &status
	}

	invoices, err := s.invoiceRepo.FindForExport(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}
	content, err := s.exporter.Render(invoices)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Accounting export rendered",
		zap.String("tenant_id", tenantID.String()),
		zap.String("from", from.Format(dateLayout)),
		zap.String("to", to.Format(dateLayout)),
		zap.Int("invoices", len(invoices)))

	return &ExportResult{
		Filename:     fmt.Sprintf("invoices-%s-%s.csv", from.Format(dateLayout), to.Format(dateLayout)),
		Content:      content,
		InvoiceCount: len(invoices),
	}, nil
}
