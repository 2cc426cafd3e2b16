package handler

import (
	appledger "github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/application/ledger"
	"github.com/gin-gonic/gin"
)

// AuditHandler exposes the per-lead audit trail
type AuditHandler struct {
	BaseHandler
	audit *appledger.AuditLogger
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(audit *appledger.AuditLogger) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// ListByLead returns the audit entries of a lead in chronological order.
//
//	GET /leads/:id/audit-log
func (h *AuditHandler) ListByLead(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}
	leadID, ok := pathUUID(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid lead ID format")
		return
	}

	entries, err := h.audit.ListByLead(c.Request.Context(), tenantID, leadID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entries)
}
