// Package export renders invoices into bookkeeping import files.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/domain/ledger"
	"github.com/shopspring/decimal"
)

// BOM is the UTF-8 byte order mark written before the header row so that
// spreadsheet tools detect the encoding.
const BOM = "\ufeff"

// Header is the column layout of the accounting CSV
var Header = []string{
	"Invoice Number",
	"Customer",
	"Invoice Date",
	"Due Date",
	"Description",
	"Net Amount",
	"Nominal Code",
	"Tax Code",
	"Tax Rate",
	"Tax Amount",
	"Total Amount",
	"Status",
}

const dateLayout = "2006-01-02"

// AccountingCSVConfig holds the account codes written into the export
type AccountingCSVConfig struct {
	RevenueNominalCode string
	TaxNominalCode     string
	TaxCode            string
}

// AccountingCSV projects invoices into a flat CSV for bookkeeping software.
// Each invoice yields one row per line item, an optional contingency row and
// exactly one tax row.
type AccountingCSV struct {
	cfg AccountingCSVConfig
}

// NewAccountingCSV creates a new AccountingCSV exporter
func NewAccountingCSV(cfg AccountingCSVConfig) *AccountingCSV {
	if cfg.RevenueNominalCode == "" {
		cfg.RevenueNominalCode = "4000"
	}
	if cfg.TaxNominalCode == "" {
		cfg.TaxNominalCode = "2200"
	}
	if cfg.TaxCode == "" {
		cfg.TaxCode = "HST"
	}
	return &AccountingCSV{cfg: cfg}
}

// Render returns the complete export. Every invoice is validated before any
// row is produced; one malformed invoice fails the whole export.
func (a *AccountingCSV) Render(invoices []ledger.Invoice) ([]byte, error) {
	for i := range invoices {
		if err := invoices[i].ValidateForExport(); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	buf.WriteString(BOM)
	w := csv.NewWriter(&buf)
	if err := w.Write(Header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for i := range invoices {
		for _, record := range a.Records(&invoices[i]) {
			if err := w.Write(record); err != nil {
				return nil, fmt.Errorf("write csv row for %s: %w", invoices[i].InvoiceNumber, err)
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}

	// Records are newline-joined; drop the terminator after the last one.
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Write renders invoices to w
func (a *AccountingCSV) Write(w io.Writer, invoices []ledger.Invoice) error {
	content, err := a.Render(invoices)
	if err != nil {
		return err
	}
	_, err = w.Write(content)
	return err
}

// Records returns the rows of a single invoice in output order
func (a *AccountingCSV) Records(inv *ledger.Invoice) [][]string {
	issue := inv.IssueDate.Format(dateLayout)
	due := ""
	if !inv.DueDate.IsZero() {
		due = inv.DueDate.Format(dateLayout)
	}
	row := func(description, net, nominal, taxCode, taxRate, taxAmount, total string) []string {
		return []string{
			inv.InvoiceNumber,
			inv.CustomerName,
			issue,
			due,
			description,
			net,
			nominal,
			taxCode,
			taxRate,
			taxAmount,
			total,
			string(inv.Status),
		}
	}

	records := make([][]string, 0, len(inv.LineItems)+2)
	for _, item := range inv.LineItems {
		amount := money(item.Amount)
		records = append(records, row(item.Description, amount, a.cfg.RevenueNominalCode, "", "", "", amount))
	}
	if !inv.ContingencyAmount.IsZero() {
		amount := money(inv.ContingencyAmount)
		description := fmt.Sprintf("Contingency (%s%%)", percent(inv.ContingencyPercent))
		records = append(records, row(description, amount, a.cfg.RevenueNominalCode, "", "", "", amount))
	}
	tax := money(inv.TaxAmount)
	rate := percent(inv.TaxRate)
	records = append(records, row(
		fmt.Sprintf("%s (%s%%)", a.cfg.TaxCode, rate),
		"",
		a.cfg.TaxNominalCode,
		a.cfg.TaxCode,
		rate,
		tax,
		tax,
	))
	return records
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// percent prints a rate without trailing zeros: 10 -> "10", 12.50 -> "12.5"
func percent(d decimal.Decimal) string {
	return d.String()
}
