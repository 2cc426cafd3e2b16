package handler

import (
	appledger "github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/application/ledger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PaymentHandler handles payment endpoints nested under an invoice
type PaymentHandler struct {
	BaseHandler
	paymentService *appledger.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *appledger.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// List returns the payments of an invoice, newest first.
//
//	GET /invoices/:id/payments
func (h *PaymentHandler) List(c *gin.Context) {
	tenantID, invoiceID, ok := h.resolve(c)
	if !ok {
		return
	}

	payments, err := h.paymentService.ListPayments(c.Request.Context(), tenantID, invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, payments)
}

// Record records a payment against an invoice. An Idempotency-Key header
// makes retries safe.
//
//	POST /invoices/:id/payments
func (h *PaymentHandler) Record(c *gin.Context) {
	tenantID, invoiceID, ok := h.resolve(c)
	if !ok {
		return
	}

	var req RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	paymentDate, err := parseDate(req.PaymentDate)
	if err != nil {
		h.BadRequest(c, "payment_date must be YYYY-MM-DD")
		return
	}

	result, err := h.paymentService.RecordPayment(c.Request.Context(), tenantID, invoiceID, appledger.RecordPaymentInput{
		Amount:          *req.Amount,
		Method:          req.PaymentMethod,
		PaymentDate:     paymentDate,
		ReferenceNumber: req.ReferenceNumber,
		Notes:           req.Notes,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

func (h *PaymentHandler) resolve(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
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
