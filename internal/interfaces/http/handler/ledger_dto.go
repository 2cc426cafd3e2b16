package handler

import "github.com/shopspring/decimal"

// CreateInvoiceRequest represents a request to invoice an accepted quote
type CreateInvoiceRequest struct {
	QuoteID   string `json:"quote_id" binding:"required,uuid"`
	IssueDate string `json:"issue_date" binding:"omitempty,datetime=2006-01-02"`
	Notes     string `json:"notes" binding:"max=2000"`
}

// ListInvoicesQuery represents the invoice list query string
type ListInvoicesQuery struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by" binding:"omitempty,oneof=issue_date due_date invoice_number customer_name status total balance_due created_at"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	Search   string `form:"search" binding:"max=100"`
	Status   string `form:"status"`
	LeadID   string `form:"lead_id" binding:"omitempty,uuid"`
	From     string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To       string `form:"to" binding:"omitempty,datetime=2006-01-02"`
}

// UpdateInvoiceStatusRequest represents an explicit status change
type UpdateInvoiceStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateInvoiceNotesRequest replaces the invoice notes. An empty string
// clears them.
type UpdateInvoiceNotesRequest struct {
	Notes *string `json:"notes" binding:"required,max=2000"`
}

// CancelInvoiceRequest represents a request to cancel an invoice
type CancelInvoiceRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// RecordPaymentRequest represents a payment against an invoice
type RecordPaymentRequest struct {
	Amount          *decimal.Decimal `json:"amount" binding:"required"`
	PaymentMethod   string           `json:"payment_method" binding:"required,oneof=cash cheque etransfer credit_card"`
	PaymentDate     string           `json:"payment_date" binding:"omitempty,datetime=2006-01-02"`
	ReferenceNumber string           `json:"reference_number" binding:"max=100"`
	Notes           string           `json:"notes" binding:"max=2000"`
}

// SendInvoiceRequest represents a request to email an invoice
type SendInvoiceRequest struct {
	ToEmail       string `json:"to_email" binding:"required,email,max=254"`
	CustomMessage string `json:"custom_message" binding:"max=2000"`
}

// ExportInvoicesQuery selects the invoices for an accounting export
type ExportInvoicesQuery struct {
	From   string `form:"from" binding:"required,datetime=2006-01-02"`
	To     string `form:"to" binding:"required,datetime=2006-01-02"`
	Status string `form:"status"`
}
