package printing

import (
	"bytes"
	"html/template"
	"strings"
	"time"

	appledger "github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/application/ledger"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// InvoiceTemplate renders an invoice document to a standalone HTML page
type InvoiceTemplate struct {
	tmpl *template.Template
}

// NewInvoiceTemplate parses the built-in invoice layout
func NewInvoiceTemplate() *InvoiceTemplate {
	return &InvoiceTemplate{
		tmpl: template.Must(template.New("invoice").Funcs(templateFuncs()).Parse(invoiceHTML)),
	}
}

// Render returns the HTML for doc
func (t *InvoiceTemplate) Render(doc *appledger.InvoiceDocument) (string, error) {
	if err := validateDocument(doc); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, doc); err != nil {
		return "", NewRenderError(ErrCodeTemplateFailed, "invoice template execution failed", err)
	}
	return buf.String(), nil
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"formatMoney":   formatMoney,
		"formatDate":    formatDate,
		"formatPercent": formatPercent,
		"statusText":    statusText,
		"notZero":       func(d decimal.Decimal) bool { return !d.IsZero() },
	}
}

// formatMoney formats a decimal value with thousand separators and two places
// Example: 1234.5 -> "1,234.50"
func formatMoney(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}

	parts := strings.Split(d.StringFixed(2), ".")
	intPart := parts[0]
	decPart := "00"
	if len(parts) > 1 {
		decPart = parts[1]
	}

	var result strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(c)
	}

	return sign + result.String() + "." + decPart
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

// formatPercent prints a rate without trailing zeros
func formatPercent(d decimal.Decimal) string {
	return d.String() + "%"
}

// statusText turns a status tag into a label: partially_paid -> Partially Paid
func statusText(status any) string {
	var s string
	switch v := status.(type) {
	case string:
		s = v
	case interface{ String() string }:
		s = v.String()
	}
	caser := cases.Title(language.English)
	return caser.String(strings.ReplaceAll(s, "_", " "))
}

const invoiceHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>Invoice {{.Invoice.InvoiceNumber}}</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; font-size: 12px; color: #222; }
h1 { font-size: 22px; margin: 0 0 4px 0; }
table { width: 100%; border-collapse: collapse; margin-top: 16px; }
th, td { padding: 6px 8px; border-bottom: 1px solid #ddd; text-align: left; }
td.num, th.num { text-align: right; }
.totals td { border: none; }
.muted { color: #777; }
.message { margin-top: 16px; padding: 8px; background: #f5f5f5; }
</style>
</head>
<body>
<h1>{{.CompanyName}}</h1>
<div class="muted">Invoice {{.Invoice.InvoiceNumber}} &middot; {{statusText .Invoice.Status}}</div>

<table>
<tr><td>Bill to</td><td>{{.Invoice.CustomerName}}{{if .Invoice.CustomerEmail}}<br>{{.Invoice.CustomerEmail}}{{end}}</td></tr>
<tr><td>Issue date</td><td>{{formatDate .Invoice.IssueDate}}</td></tr>
<tr><td>Due date</td><td>{{formatDate .Invoice.DueDate}}</td></tr>
</table>

{{if .CustomMessage}}<div class="message">{{.CustomMessage}}</div>{{end}}

<table>
<tr><th>Description</th><th class="num">Amount ({{.Currency}})</th></tr>
{{range .Invoice.LineItems}}<tr><td>{{.Description}}</td><td class="num">{{formatMoney .Amount}}</td></tr>
{{end}}</table>

<table class="totals">
<tr><td class="num">Subtotal</td><td class="num">{{formatMoney .Invoice.Subtotal}}</td></tr>
{{if notZero .Invoice.ContingencyAmount}}<tr><td class="num">Contingency ({{formatPercent .Invoice.ContingencyPercent}})</td><td class="num">{{formatMoney .Invoice.ContingencyAmount}}</td></tr>
{{end}}<tr><td class="num">Tax ({{formatPercent .Invoice.TaxRate}})</td><td class="num">{{formatMoney .Invoice.TaxAmount}}</td></tr>
<tr><td class="num"><strong>Total</strong></td><td class="num"><strong>{{formatMoney .Invoice.Total}}</strong></td></tr>
<tr><td class="num">Paid</td><td class="num">{{formatMoney .Invoice.AmountPaid}}</td></tr>
<tr><td class="num"><strong>Balance due</strong></td><td class="num"><strong>{{formatMoney .Invoice.BalanceDue}}</strong></td></tr>
</table>

{{if .Payments}}
<table>
<tr><th>Payment date</th><th>Method</th><th>Reference</th><th class="num">Amount</th></tr>
{{range .Payments}}<tr><td>{{formatDate .PaymentDate}}</td><td>{{statusText .Method}}</td><td>{{.ReferenceNumber}}</td><td class="num">{{formatMoney .Amount}}</td></tr>
{{end}}</table>
{{end}}

{{if .Invoice.Notes}}<p class="muted">{{.Invoice.Notes}}</p>{{end}}
<p class="muted">Generated {{formatDate .GeneratedAt}}</p>
</body>
</html>
`
