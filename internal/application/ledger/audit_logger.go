package ledger

import (
	"context"

	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/domain/ledger"
	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const entityTypeInvoice = "invoice"

// AuditLogger appends audit rows. Writes are best-effort: a failed append is
// logged and counted but never surfaces to the caller.
type AuditLogger struct {
	repo    ledger.AuditLogRepository
	logger  *zap.Logger
	metrics Metrics
}

// NewAuditLogger creates a new AuditLogger
func NewAuditLogger(repo ledger.AuditLogRepository, logger *zap.Logger, metrics Metrics) *AuditLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &AuditLogger{
		repo:    repo,
		logger:  logger.Named("audit"),
		metrics: metrics,
	}
}

// Record appends one audit entry
func (a *AuditLogger) Record(ctx context.Context, tenantID uuid.UUID, input AuditEntryInput) {
	entry, err := ledger.NewAuditLogEntry(tenantID, input.LeadID, input.Action, input.EntityType, input.EntityID, input.NewValues)
	if err != nil {
		a.fail(ctx, input.Action, input.EntityID, err)
		return
	}
	if err := a.repo.Append(ctx, entry); err != nil {
		a.fail(ctx, input.Action, input.EntityID, err)
	}
}

// RecordEvents appends one row per auditable domain event and clears them from
// the aggregate.
func (a *AuditLogger) RecordEvents(ctx context.Context, aggregate shared.AggregateRoot) {
	for _, event := range aggregate.GetDomainEvents() {
		auditable, ok := event.(ledger.AuditableEvent)
		if !ok {
			continue
		}
		a.Record(ctx, auditable.TenantID(), AuditEntryInput{
			LeadID:     auditable.AuditLeadID(),
			Action:     auditable.AuditAction(),
			EntityType: entityTypeInvoice,
			EntityID:   auditable.AggregateID(),
			NewValues:  auditable.AuditValues(),
		})
	}
	aggregate.ClearDomainEvents()
}

// ListByLead returns the audit trail of a lead in chronological order
func (a *AuditLogger) ListByLead(ctx context.Context, tenantID, leadID uuid.UUID) ([]AuditEntryResponse, error) {
	entries, err := a.repo.FindByLead(ctx, tenantID, leadID)
	if err != nil {
		return nil, err
	}
	responses := make([]AuditEntryResponse, len(entries))
	for i := range entries {
		responses[i] = ToAuditEntryResponse(&entries[i])
	}
	return responses, nil
}

func (a *AuditLogger) fail(ctx context.Context, action string, entityID uuid.UUID, err error) {
	a.metrics.AuditWriteFailed(ctx, action)
	a.logger.Error("Failed to write audit entry",
		zap.String("action", action),
		zap.String("entity_id", entityID.String()),
		zap.Error(err))
}
