package ledger

import (
	"time"

	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateInvoiceFromQuoteInput represents a request to invoice an accepted quote
type CreateInvoiceFromQuoteInput struct {
	QuoteID   uuid.UUID
	IssueDate *time.Time
	Notes     string
}

// UpdateInvoiceStatusInput represents an explicit status change
type UpdateInvoiceStatusInput struct {
	Status string
}

// RecordPaymentInput represents a payment against an invoice
type RecordPaymentInput struct {
	Amount          decimal.Decimal
	Method          string
	PaymentDate     *time.Time
	ReferenceNumber string
	Notes           string
}

// SendInvoiceInput represents a request to email an invoice
type SendInvoiceInput struct {
	ToEmail       string
	CustomMessage string
}

// ExportInput selects the invoices to export
type ExportInput struct {
	From   time.Time
	To     time.Time
	Status string
}

// InvoiceListFilter represents query options for listing invoices
type InvoiceListFilter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Search   string
	Status   string
	LeadID   *uuid.UUID
	FromDate *time.Time
	ToDate   *time.Time
}

// AuditEntryInput is a single audit row to append
type AuditEntryInput struct {
	LeadID     uuid.UUID
	Action     string
	EntityType string
	EntityID   uuid.UUID
	NewValues  ledger.AuditValues
}

// LineItemResponse is a line item in API responses
type LineItemResponse struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// InvoiceResponse is the invoice snapshot returned to callers
type InvoiceResponse struct {
	ID                 uuid.UUID          `json:"id"`
	TenantID           uuid.UUID          `json:"tenant_id"`
	InvoiceNumber      string             `json:"invoice_number"`
	LeadID             uuid.UUID          `json:"lead_id"`
	QuoteID            uuid.UUID          `json:"quote_id"`
	CustomerName       string             `json:"customer_name"`
	CustomerEmail      string             `json:"customer_email,omitempty"`
	LineItems          []LineItemResponse `json:"line_items"`
	Subtotal           decimal.Decimal    `json:"subtotal"`
	ContingencyPercent decimal.Decimal    `json:"contingency_percent"`
	ContingencyAmount  decimal.Decimal    `json:"contingency_amount"`
	TaxRate            decimal.Decimal    `json:"tax_rate"`
	TaxAmount          decimal.Decimal    `json:"tax_amount"`
	Total              decimal.Decimal    `json:"total"`
	AmountPaid         decimal.Decimal    `json:"amount_paid"`
	BalanceDue         decimal.Decimal    `json:"balance_due"`
	Status             string             `json:"status"`
	IssueDate          string             `json:"issue_date"`
	DueDate            string             `json:"due_date"`
	SentAt             *time.Time         `json:"sent_at,omitempty"`
	Notes              string             `json:"notes,omitempty"`
	CancelledAt        *time.Time         `json:"cancelled_at,omitempty"`
	CancelReason       string             `json:"cancel_reason,omitempty"`
	Version            int                `json:"version"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// PaymentResponse is a recorded payment in API responses
type PaymentResponse struct {
	ID              uuid.UUID       `json:"id"`
	InvoiceID       uuid.UUID       `json:"invoice_id"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentMethod   string          `json:"payment_method"`
	PaymentDate     string          `json:"payment_date"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// RecordPaymentResult is the outcome of a recorded payment
type RecordPaymentResult struct {
	Payment PaymentResponse `json:"payment"`
	Invoice InvoiceResponse `json:"invoice"`
}

// SendInvoiceResult is the outcome of a successful send
type SendInvoiceResult struct {
	Invoice   InvoiceResponse `json:"invoice"`
	MessageID string          `json:"message_id"`
}

// ExportResult holds a rendered accounting export
type ExportResult struct {
	Filename     string
	Content      []byte
	InvoiceCount int
}

// AuditEntryResponse is an audit row in API responses
type AuditEntryResponse struct {
	ID         uuid.UUID          `json:"id"`
	LeadID     uuid.UUID          `json:"lead_id"`
	Action     string             `json:"action"`
	EntityType string             `json:"entity_type"`
	EntityID   uuid.UUID          `json:"entity_id"`
	NewValues  ledger.AuditValues `json:"new_values"`
	CreatedAt  time.Time          `json:"created_at"`
}

// OverdueSweepResult summarizes one run of the overdue sweep
type OverdueSweepResult struct {
	Tenants int `json:"tenants"`
	Checked int `json:"checked"`
	Marked  int `json:"marked"`
	Failed  int `json:"failed"`
}

const dateLayout = "2006-01-02"

// ToInvoiceResponse converts a domain Invoice to InvoiceResponse
func ToInvoiceResponse(inv *ledger.Invoice) InvoiceResponse {
	items := make([]LineItemResponse, len(inv.LineItems))
	for i, item := range inv.LineItems {
		items[i] = LineItemResponse{Description: item.Description, Amount: item.Amount}
	}
	return InvoiceResponse{
		ID:                 inv.ID,
		TenantID:           inv.TenantID,
		InvoiceNumber:      inv.InvoiceNumber,
		LeadID:             inv.LeadID,
		QuoteID:            inv.QuoteID,
		CustomerName:       inv.CustomerName,
		CustomerEmail:      inv.CustomerEmail,
		LineItems:          items,
		Subtotal:           inv.Subtotal,
		ContingencyPercent: inv.ContingencyPercent,
		ContingencyAmount:  inv.ContingencyAmount,
		TaxRate:            inv.TaxRate,
		TaxAmount:          inv.TaxAmount,
		Total:              inv.Total,
		AmountPaid:         inv.AmountPaid,
		BalanceDue:         inv.BalanceDue,
		Status:             string(inv.Status),
		IssueDate:          inv.IssueDate.Format(dateLayout),
		DueDate:            inv.DueDate.Format(dateLayout),
		SentAt:             inv.SentAt,
		Notes:              inv.Notes,
		CancelledAt:        inv.CancelledAt,
		CancelReason:       inv.CancelReason,
		Version:            inv.Version,
		CreatedAt:          inv.CreatedAt,
		UpdatedAt:          inv.UpdatedAt,
	}
}

// ToInvoiceResponses converts a slice of invoices
func ToInvoiceResponses(invoices []ledger.Invoice) []InvoiceResponse {
	responses := make([]InvoiceResponse, len(invoices))
	for i := range invoices {
		responses[i] = ToInvoiceResponse(&invoices[i])
	}
	return responses
}

// ToPaymentResponse converts a domain Payment to PaymentResponse
func ToPaymentResponse(p *ledger.Payment) PaymentResponse {
	return PaymentResponse{
		ID:              p.ID,
		InvoiceID:       p.InvoiceID,
		Amount:          p.Amount,
		PaymentMethod:   string(p.Method),
		PaymentDate:     p.PaymentDate.Format(dateLayout),
		ReferenceNumber: p.ReferenceNumber,
		Notes:           p.Notes,
		CreatedAt:       p.CreatedAt,
	}
}

// ToAuditEntryResponse converts a domain AuditLogEntry to AuditEntryResponse
func ToAuditEntryResponse(e *ledger.AuditLogEntry) AuditEntryResponse {
	return AuditEntryResponse{
		ID:         e.ID,
		LeadID:     e.LeadID,
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		NewValues:  e.NewValues,
		CreatedAt:  e.CreatedAt,
	}
}
