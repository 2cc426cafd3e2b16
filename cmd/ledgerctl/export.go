package main

import (
	"context"
	"fmt"
	"os"
	"time"

	appledger "github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/application/ledger"
	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/infrastructure/export"
	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the accounting CSV for invoices issued in a date range",
	Example: `  # October invoices to a file
  ledgerctl export --tenant 6f1c... --from 2026-10-01 --to 2026-10-31 --out october.csv

  # Only paid invoices, to stdout
  ledgerctl export --from 2026-10-01 --to 2026-10-31 --status paid`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().String("from", "", "first issue date, YYYY-MM-DD (required)")
	exportCmd.Flags().String("to", "", "last issue date, YYYY-MM-DD (required)")
	exportCmd.Flags().String("status", "", "only export invoices in this status")
	exportCmd.Flags().StringP("out", "o", "", "output file; '-' or empty writes to stdout")
	_ = exportCmd.MarkFlagRequired("from")
	_ = exportCmd.MarkFlagRequired("to")
}

func runExport(cmd *cobra.Command, _ []string) error {
	fromRaw, _ := cmd.Flags().GetString("from")
	toRaw, _ := cmd.Flags().GetString("to")
	status, _ := cmd.Flags().GetString("status")
	out, _ := cmd.Flags().GetString("out")

	from, err := time.ParseInLocation(dateLayout, fromRaw, time.UTC)
	if err != nil {
		return fmt.Errorf("invalid --from %q: %w", fromRaw, err)
	}
	to, err := time.ParseInLocation(dateLayout, toRaw, time.UTC)
	if err != nil {
		return fmt.Errorf("invalid --to %q: %w", toRaw, err)
	}

	s, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	tenantID, err := tenantFlag(cmd, s.cfg)
	if err != nil {
		return err
	}
	if tenantID == uuid.Nil {
		return fmt.Errorf("--tenant is required when ledger.default_tenant_id is unset")
	}

	svc := appledger.NewExportService(
		persistence.NewGormInvoiceRepository(s.db.DB),
		export.NewAccountingCSV(export.AccountingCSVConfig{
			RevenueNominalCode: s.cfg.Ledger.RevenueNominalCode,
			TaxNominalCode:     s.cfg.Ledger.TaxNominalCode,
			TaxCode:            s.cfg.Ledger.TaxCode,
		}),
		s.log,
	)

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	result, err := svc.Export(ctx, tenantID, appledger.ExportInput{From: from, To: to, Status: status})
	if err != nil {
		return err
	}

	if out == "" || out == "-" {
		_, err = cmd.OutOrStdout().Write(result.Content)
		return err
	}
	if err := os.WriteFile(out, result.Content, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	s.log.Info("Export written",
		zap.String("file", out),
		zap.String("suggested_name", result.Filename),
		zap.Int("invoices", result.InvoiceCount))
	return nil
}
