package telemetry

import (
	"context"
	"testing"

	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collectSums(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if data, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range data.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}
	return sums
}

func TestNewLedgerMetrics_NilMeter(t *testing.T) {
	_, err := NewLedgerMetrics(nil)
	assert.ErrorIs(t, err, ErrMeterNil)
}

func TestLedgerMetrics_Counters(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := NewLedgerMetrics(provider.Meter("ledger-test"))
	require.NoError(t, err)

	ctx := context.Background()
	tenant := uuid.New()
	m.InvoiceCreated(ctx, tenant, decimal.NewFromInt(615))
	m.InvoiceCreated(ctx, tenant, decimal.NewFromInt(100))
	m.PaymentRecorded(ctx, tenant, ledger.PaymentMethodCheque, decimal.NewFromInt(400))
	m.PaymentConflict(ctx, tenant, 1)
	m.InvoiceSent(ctx, tenant)
	m.InvoiceMarkedOverdue(ctx, tenant)
	m.AuditWriteFailed(ctx, ledger.AuditActionPaymentRecorded)

	sums := collectSums(t, reader)
	assert.Equal(t, int64(2), sums["ledger_invoice_created_total"])
	assert.Equal(t, int64(1), sums["ledger_payment_recorded_total"])
	assert.Equal(t, int64(1), sums["ledger_payment_conflict_total"])
	assert.Equal(t, int64(1), sums["ledger_invoice_sent_total"])
	assert.Equal(t, int64(1), sums["ledger_invoice_overdue_total"])
	assert.Equal(t, int64(1), sums["ledger_audit_write_failed_total"])
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	mp, err := NewMeterProvider(context.Background(), MetricsConfig{}, nil)
	require.NoError(t, err)
	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("x"))
	assert.NoError(t, mp.Shutdown(context.Background()))
}
