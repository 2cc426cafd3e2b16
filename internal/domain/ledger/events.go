package ledger

import (
	"time"

	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const aggregateTypeInvoice = "Invoice"

// AuditableEvent is a domain event that produces an audit log row
type AuditableEvent interface {
	shared.DomainEvent
	AuditAction() string
	AuditLeadID() uuid.UUID
	AuditValues() AuditValues
}

// InvoiceCreatedEvent is raised when an invoice is created from a quote
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string          `json:"invoice_number"`
	LeadID        uuid.UUID       `json:"lead_id"`
	QuoteID       uuid.UUID       `json:"quote_id"`
	Total         decimal.Decimal `json:"total"`
	DueDate       time.Time       `json:"due_date"`
}

// NewInvoiceCreatedEvent creates a new InvoiceCreatedEvent
func NewInvoiceCreatedEvent(inv *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoiceCreated", aggregateTypeInvoice, inv.ID, inv.TenantID),
		InvoiceNumber:   inv.InvoiceNumber,
		LeadID:          inv.LeadID,
		QuoteID:         inv.QuoteID,
		Total:           inv.Total,
		DueDate:         inv.DueDate,
	}
}

func (e *InvoiceCreatedEvent) AuditAction() string    { return AuditActionInvoiceCreated }
func (e *InvoiceCreatedEvent) AuditLeadID() uuid.UUID { return e.LeadID }
func (e *InvoiceCreatedEvent) AuditValues() AuditValues {
	return AuditValues{
		"invoice_number": e.InvoiceNumber,
		"quote_id":       e.QuoteID.String(),
		"total":          e.Total.StringFixed(2),
		"balance_due":    e.Total.StringFixed(2),
		"status":         string(InvoiceStatusDraft),
		"due_date":       e.DueDate.Format(dateLayout),
	}
}

// PaymentRecordedEvent is raised when a payment is applied to an invoice
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string          `json:"invoice_number"`
	LeadID        uuid.UUID       `json:"lead_id"`
	PaymentID     uuid.UUID       `json:"payment_id"`
	Amount        decimal.Decimal `json:"amount"`
	Method        PaymentMethod   `json:"payment_method"`
	BalanceDue    decimal.Decimal `json:"balance_due"`
	Status        InvoiceStatus   `json:"status"`
}

// NewPaymentRecordedEvent creates a new PaymentRecordedEvent
func NewPaymentRecordedEvent(inv *Invoice, payment *Payment) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PaymentRecorded", aggregateTypeInvoice, inv.ID, inv.TenantID),
		InvoiceNumber:   inv.InvoiceNumber,
		LeadID:          inv.LeadID,
		PaymentID:       payment.ID,
		Amount:          payment.Amount,
		Method:          payment.Method,
		BalanceDue:      inv.BalanceDue,
		Status:          inv.Status,
	}
}

func (e *PaymentRecordedEvent) AuditAction() string    { return AuditActionPaymentRecorded }
func (e *PaymentRecordedEvent) AuditLeadID() uuid.UUID { return e.LeadID }
func (e *PaymentRecordedEvent) AuditValues() AuditValues {
	return AuditValues{
		"invoice_number": e.InvoiceNumber,
		"payment_id":     e.PaymentID.String(),
		"amount":         e.Amount.StringFixed(2),
		"payment_method": string(e.Method),
		"balance_due":    e.BalanceDue.StringFixed(2),
		"status":         string(e.Status),
	}
}

// InvoiceSentEvent is raised after the invoice email was accepted by the provider
type InvoiceSentEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string        `json:"invoice_number"`
	LeadID        uuid.UUID     `json:"lead_id"`
	Recipient     string        `json:"recipient"`
	SentAt        time.Time     `json:"sent_at"`
	Status        InvoiceStatus `json:"status"`
}

// NewInvoiceSentEvent creates a new InvoiceSentEvent
func NewInvoiceSentEvent(inv *Invoice, recipient string) *InvoiceSentEvent {
	sentAt := time.Now()
	if inv.SentAt != nil {
		sentAt = *inv.SentAt
	}
	return &InvoiceSentEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoiceSent", aggregateTypeInvoice, inv.ID, inv.TenantID),
		InvoiceNumber:   inv.InvoiceNumber,
		LeadID:          inv.LeadID,
		Recipient:       recipient,
		SentAt:          sentAt,
		Status:          inv.Status,
	}
}

func (e *InvoiceSentEvent) AuditAction() string    { return AuditActionInvoiceSent }
func (e *InvoiceSentEvent) AuditLeadID() uuid.UUID { return e.LeadID }
func (e *InvoiceSentEvent) AuditValues() AuditValues {
	return AuditValues{
		"invoice_number": e.InvoiceNumber,
		"to_email":       e.Recipient,
		"sent_at":        e.SentAt.UTC().Format(time.RFC3339),
		"status":         string(e.Status),
	}
}

// InvoiceStatusChangedEvent is raised on an explicit status update
type InvoiceStatusChangedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string        `json:"invoice_number"`
	LeadID        uuid.UUID     `json:"lead_id"`
	FromStatus    InvoiceStatus `json:"from_status"`
	ToStatus      InvoiceStatus `json:"to_status"`
}

// NewInvoiceStatusChangedEvent creates a new InvoiceStatusChangedEvent
func NewInvoiceStatusChangedEvent(inv *Invoice, from InvoiceStatus) *InvoiceStatusChangedEvent {
	return &InvoiceStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoiceStatusChanged", aggregateTypeInvoice, inv.ID, inv.TenantID),
		InvoiceNumber:   inv.InvoiceNumber,
		LeadID:          inv.LeadID,
		FromStatus:      from,
		ToStatus:        inv.Status,
	}
}

func (e *InvoiceStatusChangedEvent) AuditAction() string    { return AuditActionInvoiceStatusUpdated }
func (e *InvoiceStatusChangedEvent) AuditLeadID() uuid.UUID { return e.LeadID }
func (e *InvoiceStatusChangedEvent) AuditValues() AuditValues {
	return AuditValues{
		"invoice_number":  e.InvoiceNumber,
		"previous_status": string(e.FromStatus),
		"status":          string(e.ToStatus),
	}
}

// InvoiceNotesUpdatedEvent is raised when notes are replaced
type InvoiceNotesUpdatedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string    `json:"invoice_number"`
	LeadID        uuid.UUID `json:"lead_id"`
	Notes         string    `json:"notes"`
}

// NewInvoiceNotesUpdatedEvent creates a new InvoiceNotesUpdatedEvent
func NewInvoiceNotesUpdatedEvent(inv *Invoice) *InvoiceNotesUpdatedEvent {
	return &InvoiceNotesUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoiceNotesUpdated", aggregateTypeInvoice, inv.ID, inv.TenantID),
		InvoiceNumber:   inv.InvoiceNumber,
		LeadID:          inv.LeadID,
		Notes:           inv.Notes,
	}
}

func (e *InvoiceNotesUpdatedEvent) AuditAction() string    { return AuditActionInvoiceNotesUpdated }
func (e *InvoiceNotesUpdatedEvent) AuditLeadID() uuid.UUID { return e.LeadID }
func (e *InvoiceNotesUpdatedEvent) AuditValues() AuditValues {
	return AuditValues{
		"invoice_number": e.InvoiceNumber,
		"notes":          e.Notes,
	}
}

// InvoiceCancelledEvent is raised when an invoice is cancelled
type InvoiceCancelledEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string        `json:"invoice_number"`
	LeadID        uuid.UUID     `json:"lead_id"`
	FromStatus    InvoiceStatus `json:"from_status"`
	Reason        string        `json:"reason"`
}

// NewInvoiceCancelledEvent creates a new InvoiceCancelledEvent
func NewInvoiceCancelledEvent(inv *Invoice, from InvoiceStatus) *InvoiceCancelledEvent {
	return &InvoiceCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoiceCancelled", aggregateTypeInvoice, inv.ID, inv.TenantID),
		InvoiceNumber:   inv.InvoiceNumber,
		LeadID:          inv.LeadID,
		FromStatus:      from,
		Reason:          inv.CancelReason,
	}
}

func (e *InvoiceCancelledEvent) AuditAction() string    { return AuditActionInvoiceCancelled }
func (e *InvoiceCancelledEvent) AuditLeadID() uuid.UUID { return e.LeadID }
func (e *InvoiceCancelledEvent) AuditValues() AuditValues {
	return AuditValues{
		"invoice_number":  e.InvoiceNumber,
		"previous_status": string(e.FromStatus),
		"status":          string(InvoiceStatusCancelled),
		"reason":          e.Reason,
	}
}

// InvoiceMarkedOverdueEvent is raised by the overdue sweep
type InvoiceMarkedOverdueEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string          `json:"invoice_number"`
	LeadID        uuid.UUID       `json:"lead_id"`
	FromStatus    InvoiceStatus   `json:"from_status"`
	DueDate       time.Time       `json:"due_date"`
	AsOf          time.Time       `json:"as_of"`
	BalanceDue    decimal.Decimal `json:"balance_due"`
}

// NewInvoiceMarkedOverdueEvent creates a new InvoiceMarkedOverdueEvent
func NewInvoiceMarkedOverdueEvent(inv *Invoice, from InvoiceStatus, asOf time.Time) *InvoiceMarkedOverdueEvent {
	return &InvoiceMarkedOverdueEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoiceMarkedOverdue", aggregateTypeInvoice, inv.ID, inv.TenantID),
		InvoiceNumber:   inv.InvoiceNumber,
		LeadID:          inv.LeadID,
		FromStatus:      from,
		DueDate:         inv.DueDate,
		AsOf:            asOf,
		BalanceDue:      inv.BalanceDue,
	}
}

func (e *InvoiceMarkedOverdueEvent) AuditAction() string    { return AuditActionInvoiceMarkedOverdue }
func (e *InvoiceMarkedOverdueEvent) AuditLeadID() uuid.UUID { return e.LeadID }
func (e *InvoiceMarkedOverdueEvent) AuditValues() AuditValues {
	return AuditValues{
		"invoice_number":  e.InvoiceNumber,
		"previous_status": string(e.FromStatus),
		"status":          string(InvoiceStatusOverdue),
		"due_date":        e.DueDate.Format(dateLayout),
		"balance_due":     e.BalanceDue.StringFixed(2),
	}
}

const dateLayout = "2006-01-02"
