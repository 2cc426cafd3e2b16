package persistence

import (
	"context"

	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/domain/ledger"
	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAuditLogRepository implements the append-only AuditLogRepository
type GormAuditLogRepository struct {
	db *gorm.DB
}

// NewGormAuditLogRepository creates a new GormAuditLogRepository
func NewGormAuditLogRepository(db *gorm.DB) *GormAuditLogRepository {
	return &GormAuditLogRepository{db: db}
}

// Append inserts an audit entry
func (r *GormAuditLogRepository) Append(ctx context.Context, entry *ledger.AuditLogEntry) error {
	return r.db.WithContext(ctx).Create(models.AuditLogModelFromDomain(entry)).Error
}

// FindByLead lists the audit entries of a lead, oldest first
func (r *GormAuditLogRepository) FindByLead(ctx context.Context, tenantID, leadID uuid.UUID) ([]ledger.AuditLogEntry, error) {
	var entryModels []models.AuditLogModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND lead_id = ?", tenantID, leadID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&entryModels).Error; err != nil {
		return nil, err
	}
	entries := make([]ledger.AuditLogEntry, len(entryModels))
	for i, model := range entryModels {
		entries[i] = *model.ToDomain()
	}
	return entries, nil
}

// Ensure GormAuditLogRepository implements AuditLogRepository
var _ ledger.AuditLogRepository = (*GormAuditLogRepository)(nil)
