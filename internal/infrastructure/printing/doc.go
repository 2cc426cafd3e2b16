// Package printing renders invoice documents to PDF.
//
// Two renderers implement appledger.InvoiceRenderer:
//   - GofpdfRenderer draws the invoice directly with gofpdf and needs no
//     external process.
//   - HTMLInvoiceRenderer fills InvoiceTemplate and prints the HTML through a
//     headless Chrome session driven by chromedp.
//
// NewInvoiceRenderer picks one from config.PDFConfig.
package printing
