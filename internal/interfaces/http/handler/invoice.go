package handler

import (
	"fmt"
	"net/http"

	appledger "github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/application/ledger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// InvoiceHandler handles invoice lifecycle endpoints
type InvoiceHandler struct {
	BaseHandler
	invoiceService *appledger.InvoiceService
	sendService    *appledger.SendService
	exportService  *appledger.ExportService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(
	invoiceService *appledger.InvoiceService,
	sendService *appledger.SendService,
	exportService *appledger.ExportService,
) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
		sendService:    sendService,
		exportService:  exportService,
	}
}

// Create invoices an accepted quote.
//
//	POST /invoices
func (h *InvoiceHandler) Create(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	issueDate, err := parseDate(req.IssueDate)
	if err != nil {
		h.BadRequest(c, "issue_date must be YYYY-MM-DD")
		return
	}

	invoice, err := h.invoiceService.CreateFromQuote(c.Request.Context(), tenantID, appledger.CreateInvoiceFromQuoteInput{
		QuoteID:   uuid.MustParse(req.QuoteID),
		IssueDate: issueDate,
		Notes:     req.Notes,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, invoice)
}

// List returns invoices filtered by status and issue date range.
//
//	GET /invoices
func (h *InvoiceHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var query ListInvoicesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.ValidationError(c, err)
		return
	}

	filter := appledger.InvoiceListFilter{
		Page:     query.Page,
		PageSize: query.PageSize,
		OrderBy:  query.OrderBy,
		OrderDir: query.OrderDir,
		Search:   query.Search,
		Status:   query.Status,
	}
	if query.LeadID != "" {
		leadID := uuid.MustParse(query.LeadID)
		filter.LeadID = &leadID
	}
	if filter.FromDate, err = parseDate(query.From); err != nil {
		h.BadRequest(c, "from must be YYYY-MM-DD")
		return
	}
	if filter.ToDate, err = parseDate(query.To); err != nil {
		h.BadRequest(c, "to must be YYYY-MM-DD")
		return
	}

	invoices, total, err := h.invoiceService.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	page, pageSize := filter.Page, filter.PageSize
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	h.SuccessWithMeta(c, invoices, total, page, pageSize)
}

// GetByID returns one invoice snapshot.
//
//	GET /invoices/:id
func (h *InvoiceHandler) GetByID(c *gin.Context) {
	tenantID, invoiceID, ok := h.tenantAndInvoice(c)
	if !ok {
		return
	}

	invoice, err := h.invoiceService.GetByID(c.Request.Context(), tenantID, invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// UpdateStatus applies an explicit status transition.
//
//	PATCH /invoices/:id/status
func (h *InvoiceHandler) UpdateStatus(c *gin.Context) {
	tenantID, invoiceID, ok := h.tenantAndInvoice(c)
	if !ok {
		return
	}

	var req UpdateInvoiceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	invoice, err := h.invoiceService.UpdateStatus(c.Request.Context(), tenantID, invoiceID,
		appledger.UpdateInvoiceStatusInput{Status: req.Status})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// UpdateNotes replaces the invoice notes
func (h *InvoiceHandler) UpdateNotes(c *gin.Context) {
	tenantID, invoiceID, ok := h.tenantAndInvoice(c)
	if !ok {
		return
	}

	var req UpdateInvoiceNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	invoice, err := h.invoiceService.UpdateNotes(c.Request.Context(), tenantID, invoiceID, *req.Notes)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// Cancel cancels an invoice that has no payments.
//
//	POST /invoices/:id/cancel
func (h *InvoiceHandler) Cancel(c *gin.Context) {
	tenantID, invoiceID, ok := h.tenantAndInvoice(c)
	if !ok {
		return
	}

	var req CancelInvoiceRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.ValidationError(c, err)
			return
		}
	}

	invoice, err := h.invoiceService.Cancel(c.Request.Context(), tenantID, invoiceID, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// Send emails the invoice PDF to the customer and marks a draft as sent.
//
//	POST /invoices/:id/send
func (h *InvoiceHandler) Send(c *gin.Context) {
	tenantID, invoiceID, ok := h.tenantAndInvoice(c)
	if !ok {
		return
	}

	var req SendInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	result, err := h.sendService.Send(c.Request.Context(), tenantID, invoiceID, appledger.SendInvoiceInput{
		ToEmail:       req.ToEmail,
		CustomMessage: req.CustomMessage,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Export streams the accounting CSV for an issue date range.
//
//	GET /invoices/export
func (h *InvoiceHandler) Export(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var query ExportInvoicesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.ValidationError(c, err)
		return
	}
	from, err := parseDate(query.From)
	if err != nil {
		h.BadRequest(c, "from must be YYYY-MM-DD")
		return
	}
	to, err := parseDate(query.To)
	if err != nil {
		h.BadRequest(c, "to must be YYYY-MM-DD")
		return
	}

	result, err := h.exportService.Export(c.Request.Context(), tenantID, appledger.ExportInput{
		From:   *from,
		To:     *to,
		Status: query.Status,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, result.Filename))
	c.Header("X-Invoice-Count", fmt.Sprintf("%d", result.InvoiceCount))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", result.Content)
}

// tenantAndInvoice resolves the tenant and the :id path parameter, writing a
// 400 response when either is invalid.
func (h *InvoiceHandler) tenantAndInvoice(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return uuid.Nil, uuid.Nil, false
	}
	invoiceID, ok := pathUUID(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid invoice ID format")
		return uuid.Nil, uuid.Nil, false
	}
	return tenantID, invoiceID, true
}
