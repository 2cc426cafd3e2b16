package telemetry

import (
	"context"

	appledger "github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/application/ledger"
	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// LedgerMetrics records ledger business counters through OpenTelemetry.
type LedgerMetrics struct {
	invoicesCreated  *Counter
	invoiceAmount    *Histogram
	paymentsRecorded *Counter
	paymentAmount    *Histogram
	paymentConflicts *Counter
	invoicesSent     *Counter
	invoicesOverdue  *Counter
	auditFailures    *Counter
}

// NewLedgerMetrics registers the ledger instruments on meter.
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	m := &LedgerMetrics{}
	counters := []struct {
		dst              **Counter
		name, desc, unit string
	}{
		{&m.invoicesCreated, "ledger_invoice_created_total", "Invoices created from quotes", "{invoices}"},
		{&m.paymentsRecorded, "ledger_payment_recorded_total", "Payments recorded against invoices", "{payments}"},
		{&m.paymentConflicts, "ledger_payment_conflict_total", "Payment attempts that lost a version check", "{conflicts}"},
		{&m.invoicesSent, "ledger_invoice_sent_total", "Invoices emailed to customers", "{invoices}"},
		{&m.invoicesOverdue, "ledger_invoice_overdue_total", "Invoices moved to overdue by the sweep", "{invoices}"},
		{&m.auditFailures, "ledger_audit_write_failed_total", "Audit entries that could not be written", "{entries}"},
	}
	for _, c := range counters {
		counter, err := NewCounter(meter, c.name, c.desc, c.unit)
		if err != nil {
			return nil, err
		}
		*c.dst = counter
	}

	var err error
	if m.invoiceAmount, err = NewHistogram(meter, "ledger_invoice_total_amount", "Invoice totals", "{currency}", AmountBuckets...); err != nil {
		return nil, err
	}
	if m.paymentAmount, err = NewHistogram(meter, "ledger_payment_amount", "Payment amounts", "{currency}", AmountBuckets...); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *LedgerMetrics) InvoiceCreated(ctx context.Context, tenantID uuid.UUID, total decimal.Decimal) {
	tenant := AttrTenantID.String(tenantID.String())
	m.invoicesCreated.Inc(ctx, tenant)
	m.invoiceAmount.Record(ctx, total.InexactFloat64(), tenant)
}

func (m *LedgerMetrics) PaymentRecorded(ctx context.Context, tenantID uuid.UUID, method ledger.PaymentMethod, amount decimal.Decimal) {
	attrs := []attribute.KeyValue{AttrTenantID.String(tenantID.String()), AttrPaymentMethod.String(string(method))}
	m.paymentsRecorded.Inc(ctx, attrs...)
	m.paymentAmount.Record(ctx, amount.InexactFloat64(), attrs...)
}

func (m *LedgerMetrics) PaymentConflict(ctx context.Context, tenantID uuid.UUID, attempt int) {
	m.paymentConflicts.Inc(ctx, AttrTenantID.String(tenantID.String()), AttrAttempt.Int(attempt))
}

func (m *LedgerMetrics) InvoiceSent(ctx context.Context, tenantID uuid.UUID) {
	m.invoicesSent.Inc(ctx, AttrTenantID.String(tenantID.String()))
}

func (m *LedgerMetrics) InvoiceMarkedOverdue(ctx context.Context, tenantID uuid.UUID) {
	m.invoicesOverdue.Inc(ctx, AttrTenantID.String(tenantID.String()))
}

func (m *LedgerMetrics) AuditWriteFailed(ctx context.Context, action string) {
	m.auditFailures.Inc(ctx, AttrAuditAction.String(action))
}

var _ appledger.Metrics = (*LedgerMetrics)(nil)
