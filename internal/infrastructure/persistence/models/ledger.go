package models

import (
	"time"

	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model for the Invoice aggregate root.
type InvoiceModel struct {
	AggregateModel
	TenantID           uuid.UUID            `gorm:"type:uuid;not null;index;uniqueIndex:idx_invoice_tenant_number,priority:1"`
	InvoiceNumber      string               `gorm:"type:varchar(30);not null;uniqueIndex:idx_invoice_tenant_number,priority:2"`
	LeadID             uuid.UUID            `gorm:"type:uuid;not null;index"`
	QuoteID            uuid.UUID            `gorm:"type:uuid;not null;index"`
	CustomerName       string               `gorm:"type:varchar(200);not null"`
	CustomerEmail      string               `gorm:"type:varchar(254)"`
	LineItems          ledger.LineItems     `gorm:"type:jsonb;not null;default:'[]'"`
	Subtotal           decimal.Decimal      `gorm:"type:decimal(12,2);not null"`
	ContingencyPercent decimal.Decimal      `gorm:"type:decimal(5,2);not null;default:0"`
	ContingencyAmount  decimal.Decimal      `gorm:"type:decimal(12,2);not null;default:0"`
	TaxRate            decimal.Decimal      `gorm:"type:decimal(5,2);not null"`
	TaxAmount          decimal.Decimal      `gorm:"type:decimal(12,2);not null"`
	Total              decimal.Decimal      `gorm:"type:decimal(12,2);not null"`
	AmountPaid         decimal.Decimal      `gorm:"type:decimal(12,2);not null;default:0"`
	BalanceDue         decimal.Decimal      `gorm:"type:decimal(12,2);not null;index"`
	Status             ledger.InvoiceStatus `gorm:"type:varchar(20);not null;default:'draft';index"`
	IssueDate          time.Time            `gorm:"type:date;not null;index"`
	DueDate            time.Time            `gorm:"type:date;not null;index"`
	SentAt             *time.Time
	Notes              string `gorm:"type:text"`
	CancelledAt        *time.Time
	CancelReason       string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice.
func (m *InvoiceModel) ToDomain() *ledger.Invoice {
	items := make(ledger.LineItems, len(m.LineItems))
	copy(items, m.LineItems)
	return &ledger.Invoice{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(m.TenantID),
		InvoiceNumber:       m.InvoiceNumber,
		LeadID:              m.LeadID,
		QuoteID:             m.QuoteID,
		CustomerName:        m.CustomerName,
		CustomerEmail:       m.CustomerEmail,
		LineItems:           items,
		Subtotal:            m.Subtotal,
		ContingencyPercent:  m.ContingencyPercent,
		ContingencyAmount:   m.ContingencyAmount,
		TaxRate:             m.TaxRate,
		TaxAmount:           m.TaxAmount,
		Total:               m.Total,
		AmountPaid:          m.AmountPaid,
		BalanceDue:          m.BalanceDue,
		Status:              m.Status,
		IssueDate:           m.IssueDate,
		DueDate:             m.DueDate,
		SentAt:              m.SentAt,
		Notes:               m.Notes,
		CancelledAt:         m.CancelledAt,
		CancelReason:        m.CancelReason,
	}
}

// FromDomain populates the persistence model from a domain Invoice.
func (m *InvoiceModel) FromDomain(inv *ledger.Invoice) {
	m.FromDomainAggregateRoot(inv.BaseAggregateRoot)
	m.TenantID = inv.TenantID
	m.InvoiceNumber = inv.InvoiceNumber
	m.LeadID = inv.LeadID
	m.QuoteID = inv.QuoteID
	m.CustomerName = inv.CustomerName
	m.CustomerEmail = inv.CustomerEmail
	m.LineItems = inv.LineItems
	m.Subtotal = inv.Subtotal
	m.ContingencyPercent = inv.ContingencyPercent
	m.ContingencyAmount = inv.ContingencyAmount
	m.TaxRate = inv.TaxRate
	m.TaxAmount = inv.TaxAmount
	m.Total = inv.Total
	m.AmountPaid = inv.AmountPaid
	m.BalanceDue = inv.BalanceDue
	m.Status = inv.Status
	m.IssueDate = inv.IssueDate
	m.DueDate = inv.DueDate
	m.SentAt = inv.SentAt
	m.Notes = inv.Notes
	m.CancelledAt = inv.CancelledAt
	m.CancelReason = inv.CancelReason
}

// MutableColumns returns the columns that may change after insert, keyed by
// column name. Zero values are included so a map-based update writes them.
func (m *InvoiceModel) MutableColumns() map[string]interface{} {
	return map[string]interface{}{
		"amount_paid":   m.AmountPaid,
		"balance_due":   m.BalanceDue,
		"status":        m.Status,
		"sent_at":       m.SentAt,
		"notes":         m.Notes,
		"cancelled_at":  m.CancelledAt,
		"cancel_reason": m.CancelReason,
		"version":       m.Version,
		"updated_at":    m.UpdatedAt,
	}
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice.
func InvoiceModelFromDomain(inv *ledger.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// PaymentModel is the persistence model for Payment.
type PaymentModel struct {
	BaseModel
	TenantID        uuid.UUID            `gorm:"type:uuid;not null;index"`
	InvoiceID       uuid.UUID            `gorm:"type:uuid;not null;index"`
	Amount          decimal.Decimal      `gorm:"type:decimal(12,2);not null"`
	PaymentMethod   ledger.PaymentMethod `gorm:"type:varchar(20);not null"`
	PaymentDate     time.Time            `gorm:"type:date;not null;index"`
	ReferenceNumber string               `gorm:"type:varchar(100)"`
	Notes           string               `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment.
func (m *PaymentModel) ToDomain() *ledger.Payment {
	return &ledger.Payment{
		BaseEntity:      m.BaseModel.ToDomain(),
		TenantID:        m.TenantID,
		InvoiceID:       m.InvoiceID,
		Amount:          m.Amount,
		Method:          m.PaymentMethod,
		PaymentDate:     m.PaymentDate,
		ReferenceNumber: m.ReferenceNumber,
		Notes:           m.Notes,
	}
}

// FromDomain populates the persistence model from a domain Payment.
func (m *PaymentModel) FromDomain(p *ledger.Payment) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.TenantID = p.TenantID
	m.InvoiceID = p.InvoiceID
	m.Amount = p.Amount
	m.PaymentMethod = p.Method
	m.PaymentDate = p.PaymentDate
	m.ReferenceNumber = p.ReferenceNumber
	m.Notes = p.Notes
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment.
func PaymentModelFromDomain(p *ledger.Payment) *PaymentModel {
	m := &PaymentModel{}
	m.FromDomain(p)
	return m
}

// AuditLogModel is the persistence model for an audit log entry. Rows are
// never updated, so there is no updated_at column.
type AuditLogModel struct {
	ID         uuid.UUID          `gorm:"type:uuid;primary_key"`
	TenantID   uuid.UUID          `gorm:"type:uuid;not null;index:idx_audit_tenant_lead,priority:1"`
	LeadID     uuid.UUID          `gorm:"type:uuid;not null;index:idx_audit_tenant_lead,priority:2"`
	Action     string             `gorm:"type:varchar(50);not null;index"`
	EntityType string             `gorm:"type:varchar(30);not null"`
	EntityID   uuid.UUID          `gorm:"type:uuid;not null;index"`
	NewValues  ledger.AuditValues `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt  time.Time          `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (AuditLogModel) TableName() string {
	return "audit_log"
}

// ToDomain converts the persistence model to a domain AuditLogEntry.
func (m *AuditLogModel) ToDomain() *ledger.AuditLogEntry {
	return &ledger.AuditLogEntry{
		ID:         m.ID,
		TenantID:   m.TenantID,
		LeadID:     m.LeadID,
		Action:     m.Action,
		EntityType: m.EntityType,
		EntityID:   m.EntityID,
		NewValues:  m.NewValues,
		CreatedAt:  m.CreatedAt,
	}
}

// AuditLogModelFromDomain creates a new persistence model from a domain AuditLogEntry.
func AuditLogModelFromDomain(e *ledger.AuditLogEntry) *AuditLogModel {
	return &AuditLogModel{
		ID:         e.ID,
		TenantID:   e.TenantID,
		LeadID:     e.LeadID,
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		NewValues:  e.NewValues,
		CreatedAt:  e.CreatedAt,
	}
}

// QuoteModel maps the quotes table. The ledger reads it; the lead pipeline
// owns the writes.
type QuoteModel struct {
	BaseModel
	TenantID           uuid.UUID          `gorm:"type:uuid;not null;index"`
	LeadID             uuid.UUID          `gorm:"type:uuid;not null;index"`
	CustomerName       string             `gorm:"type:varchar(200)"`
	CustomerEmail      string             `gorm:"type:varchar(254)"`
	Status             ledger.QuoteStatus `gorm:"type:varchar(20);not null;index"`
	LineItems          ledger.LineItems   `gorm:"type:jsonb;not null;default:'[]'"`
	ContingencyPercent decimal.Decimal    `gorm:"type:decimal(5,2);not null;default:0"`
}

// TableName returns the table name for GORM
func (QuoteModel) TableName() string {
	return "quotes"
}

// ToDomain converts the persistence model to a domain Quote.
func (m *QuoteModel) ToDomain() *ledger.Quote {
	return &ledger.Quote{
		ID:                 m.ID,
		TenantID:           m.TenantID,
		LeadID:             m.LeadID,
		CustomerName:       m.CustomerName,
		CustomerEmail:      m.CustomerEmail,
		Status:             m.Status,
		LineItems:          m.LineItems,
		ContingencyPercent: m.ContingencyPercent,
	}
}

// QuoteModelFromDomain creates a persistence model from a domain Quote. Used by
// seeding and tests.
func QuoteModelFromDomain(q *ledger.Quote) *QuoteModel {
	now := time.Now()
	return &QuoteModel{
		BaseModel:          BaseModel{ID: q.ID, CreatedAt: now, UpdatedAt: now},
		TenantID:           q.TenantID,
		LeadID:             q.LeadID,
		CustomerName:       q.CustomerName,
		CustomerEmail:      q.CustomerEmail,
		Status:             q.Status,
		LineItems:          q.LineItems,
		ContingencyPercent: q.ContingencyPercent,
	}
}

// AllModels returns every ledger model in dependency order for AutoMigrate.
func AllModels() []interface{} {
	return []interface{}{
		&QuoteModel{},
		&InvoiceModel{},
		&PaymentModel{},
		&AuditLogModel{},
	}
}
