package main

import (
	"encoding/json"
	"fmt"
	"time"

	appledger "github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/application/ledger"
	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var overdueCmd = &cobra.Command{
	Use:   "overdue",
	Short: "Mark past-due invoices as overdue",
	Long: `Runs one overdue sweep, the same job the API server schedules.
Without --tenant every tenant with open invoices is swept.`,
	Args: cobra.NoArgs,
	RunE: runOverdue,
}

func init() {
	rootCmd.AddCommand(overdueCmd)

	overdueCmd.Flags().String("as-of", "", "sweep as of this date, YYYY-MM-DD (default today)")
	overdueCmd.Flags().Bool("all-tenants", false, "ignore --tenant and the default tenant")
}

func runOverdue(cmd *cobra.Command, _ []string) error {
	asOf := time.Now().UTC()
	if raw, _ := cmd.Flags().GetString("as-of"); raw != "" {
		parsed, err := time.ParseInLocation(dateLayout, raw, time.UTC)
		if err != nil {
			return fmt.Errorf("invalid --as-of %q: %w", raw, err)
		}
		asOf = parsed
	}

	s, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	svc := appledger.NewInvoiceService(appledger.InvoiceServiceConfig{
		InvoiceRepo: persistence.NewGormInvoiceRepository(s.db.DB),
		QuoteRepo:   persistence.NewGormQuoteRepository(s.db.DB),
		AuditLogger: appledger.NewAuditLogger(persistence.NewGormAuditLogRepository(s.db.DB), s.log, nil),
		MaxAttempts: s.cfg.Ledger.PaymentMaxAttempts,
		Logger:      s.log,
	})

	tenantID := uuid.Nil
	if all, _ := cmd.Flags().GetBool("all-tenants"); !all {
		if tenantID, err = tenantFlag(cmd, s.cfg); err != nil {
			return err
		}
	}

	var result appledger.OverdueSweepResult
	if tenantID == uuid.Nil {
		result, err = svc.MarkOverdue(cmd.Context(), asOf)
	} else {
		result, err = svc.MarkOverdueForTenant(cmd.Context(), tenantID, asOf)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
