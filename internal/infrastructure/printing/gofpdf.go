package printing

import (
	"bytes"
	"context"
	"fmt"

	appledger "github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/application/ledger"
	"github.com/jung-kurt/gofpdf"
	"go.uber.org/zap"
)

// GofpdfConfig contains configuration for the native PDF renderer
type GofpdfConfig struct {
	PageSize PageSize
	Margins  *Margins
	Logger   *zap.Logger
}

// GofpdfRenderer draws invoices directly with gofpdf. It needs no browser and
// is the default renderer.
type GofpdfRenderer struct {
	size    PageSize
	margins Margins
	logger  *zap.Logger
}

// NewGofpdfRenderer creates a new GofpdfRenderer
func NewGofpdfRenderer(config *GofpdfConfig) *GofpdfRenderer {
	if config == nil {
		config = &GofpdfConfig{}
	}
	size := config.PageSize
	if size.Width == 0 || size.Height == 0 {
		size = PageSizeLetter
	}
	margins := DefaultMargins()
	if config.Margins != nil {
		margins = *config.Margins
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GofpdfRenderer{size: size, margins: margins, logger: logger.Named("gofpdf")}
}

const (
	rowHeight    = 7.0
	amountColumn = 40.0
)

// RenderInvoice implements appledger.PDFRenderer
func (r *GofpdfRenderer) RenderInvoice(ctx context.Context, doc *appledger.InvoiceDocument) ([]byte, error) {
	if err := validateDocument(doc); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, NewRenderError(ErrCodeRenderTimeout, "PDF rendering was cancelled", err)
	}
	inv := doc.Invoice

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: r.size.Width, Ht: r.size.Height},
	})
	pdf.SetMargins(r.margins.Left, r.margins.Top, r.margins.Right)
	pdf.SetAutoPageBreak(true, r.margins.Bottom)
	pdf.SetTitle("Invoice "+inv.InvoiceNumber, true)
	pdf.SetAuthor(doc.CompanyName, true)
	pdf.SetCreationDate(doc.GeneratedAt)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	contentWidth := pageWidth - left - right
	labelWidth := contentWidth - amountColumn

	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(contentWidth, 10, tr(doc.CompanyName), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(contentWidth, 6, tr(fmt.Sprintf("Invoice %s - %s", inv.InvoiceNumber, statusText(inv.Status))), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	details := [][2]string{
		{"Bill to", inv.CustomerName},
		{"Email", inv.CustomerEmail},
		{"Issue date", formatDate(inv.IssueDate)},
		{"Due date", formatDate(inv.DueDate)},
	}
	for _, d := range details {
		if d[1] == "" {
			continue
		}
		pdf.CellFormat(30, 6, d[0], "", 0, "L", false, 0, "")
		pdf.CellFormat(contentWidth-30, 6, tr(d[1]), "", 1, "L", false, 0, "")
	}

	if doc.CustomMessage != "" {
		pdf.Ln(3)
		pdf.SetFillColor(245, 245, 245)
		pdf.MultiCell(contentWidth, 5, tr(doc.CustomMessage), "", "L", true)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(labelWidth, rowHeight, "Description", "B", 0, "L", true, 0, "")
	pdf.CellFormat(amountColumn, rowHeight, "Amount ("+doc.Currency+")", "B", 1, "R", true, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, item := range inv.LineItems {
		pdf.CellFormat(labelWidth, rowHeight, tr(item.Description), "B", 0, "L", false, 0, "")
		pdf.CellFormat(amountColumn, rowHeight, formatMoney(item.Amount), "B", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	totalRow := func(label, value string, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 10)
		pdf.CellFormat(labelWidth, rowHeight, label, "", 0, "R", false, 0, "")
		pdf.CellFormat(amountColumn, rowHeight, value, "", 1, "R", false, 0, "")
	}
	totalRow("Subtotal", formatMoney(inv.Subtotal), false)
	if !inv.ContingencyAmount.IsZero() {
		totalRow("Contingency ("+formatPercent(inv.ContingencyPercent)+")", formatMoney(inv.ContingencyAmount), false)
	}
	totalRow("Tax ("+formatPercent(inv.TaxRate)+")", formatMoney(inv.TaxAmount), false)
	totalRow("Total", formatMoney(inv.Total), true)
	totalRow("Paid", formatMoney(inv.AmountPaid), false)
	totalRow("Balance due", formatMoney(inv.BalanceDue), true)

	if len(doc.Payments) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(contentWidth, rowHeight, "Payments", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		for _, p := range doc.Payments {
			label := formatDate(p.PaymentDate) + "  " + statusText(p.Method)
			if p.ReferenceNumber != "" {
				label += "  " + p.ReferenceNumber
			}
			pdf.CellFormat(labelWidth, rowHeight, tr(label), "B", 0, "L", false, 0, "")
			pdf.CellFormat(amountColumn, rowHeight, formatMoney(p.Amount), "B", 1, "R", false, 0, "")
		}
	}

	if inv.Notes != "" {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "I", 9)
		pdf.MultiCell(contentWidth, 5, tr(inv.Notes), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		r.logger.Error("gofpdf rendering failed",
			zap.String("invoice_number", inv.InvoiceNumber),
			zap.Error(err))
		return nil, NewRenderError(ErrCodeRenderFailed, "gofpdf output failed", err)
	}
	return buf.Bytes(), nil
}

// Close implements io.Closer
func (r *GofpdfRenderer) Close() error {
	return nil
}

var _ InvoiceRenderer = (*GofpdfRenderer)(nil)
