package ledger

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Audit action tags
const (
	AuditActionInvoiceCreated       = "invoice_created"
	AuditActionPaymentRecorded      = "payment_recorded"
	AuditActionInvoiceSent          = "invoice_sent"
	AuditActionInvoiceStatusUpdated = "invoice_status_updated"
	AuditActionInvoiceNotesUpdated  = "invoice_notes_updated"
	AuditActionInvoiceCancelled     = "invoice_cancelled"
	AuditActionInvoiceMarkedOverdue = "invoice_marked_overdue"
)

// AuditValues is a structured snapshot of the new values, stored as JSONB
type AuditValues map[string]any

// Value implements driver.Valuer interface for GORM to store as JSONB
func (v AuditValues) Value() (driver.Value, error) {
	if v == nil {
		return "{}", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (v *AuditValues) Scan(value interface{}) error {
	if value == nil {
		*v = AuditValues{}
		return nil
	}

	var bytes []byte
	switch val := value.(type) {
	case []byte:
		bytes = val
	case string:
		bytes = []byte(val)
	default:
		return errors.New("failed to scan AuditValues: unsupported type")
	}

	if len(bytes) == 0 {
		*v = AuditValues{}
		return nil
	}

	return json.Unmarshal(bytes, v)
}

// AuditLogEntry is an append-only record of a state-changing action
type AuditLogEntry struct {
	ID         uuid.UUID   `json:"id"`
	TenantID   uuid.UUID   `json:"tenant_id"`
	LeadID     uuid.UUID   `json:"lead_id"`
	Action     string      `json:"action"`
	EntityType string      `json:"entity_type"`
	EntityID   uuid.UUID   `json:"entity_id"`
	NewValues  AuditValues `json:"new_values"`
	CreatedAt  time.Time   `json:"created_at"`
}

// NewAuditLogEntry creates a new audit entry stamped with the current time
func NewAuditLogEntry(
	tenantID, leadID uuid.UUID,
	action, entityType string,
	entityID uuid.UUID,
	values AuditValues,
) (*AuditLogEntry, error) {
	if tenantID == uuid.Nil {
		return nil, NewValidationError("Tenant ID cannot be empty")
	}
	if strings.TrimSpace(action) == "" {
		return nil, NewValidationError("Audit action cannot be empty")
	}
	if values == nil {
		values = AuditValues{}
	}
	return &AuditLogEntry{
		ID:         uuid.New(),
		TenantID:   tenantID,
		LeadID:     leadID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		NewValues:  values,
		CreatedAt:  time.Now(),
	}, nil
}
