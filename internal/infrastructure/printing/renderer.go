package printing

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	appledger "github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/application/ledger"
	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/infrastructure/config"
	"go.uber.org/zap"
	"golang.org/x/text/currency"
)

// Renderer names accepted in configuration
const (
	RendererGofpdf   = "gofpdf"
	RendererChromedp = "chromedp"
)

// PageSize describes the output paper in millimeters
type PageSize struct {
	Name   string
	Width  float64
	Height float64
}

var (
	PageSizeLetter = PageSize{Name: "Letter", Width: 215.9, Height: 279.4}
	PageSizeA4     = PageSize{Name: "A4", Width: 210, Height: 297}
)

// Margins holds page margins in millimeters
type Margins struct {
	Top    float64
	Right  float64
	Bottom float64
	Left   float64
}

// DefaultMargins returns the margins used for invoices
func DefaultMargins() Margins {
	return Margins{Top: 15, Right: 15, Bottom: 15, Left: 15}
}

// InvoiceRenderer renders an invoice document to PDF and releases any
// browser or process resources on Close.
type InvoiceRenderer interface {
	appledger.PDFRenderer
	io.Closer
}

// RenderError represents an error during PDF rendering
type RenderError struct {
	Code    string
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// Error codes for rendering failures
const (
	ErrCodeRenderTimeout   = "RENDER_TIMEOUT"
	ErrCodeRenderFailed    = "RENDER_FAILED"
	ErrCodeInvalidDocument = "INVALID_DOCUMENT"
	ErrCodeTemplateFailed  = "TEMPLATE_FAILED"
)

// NewRenderError creates a new RenderError
func NewRenderError(code, message string, cause error) *RenderError {
	return &RenderError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func validateDocument(doc *appledger.InvoiceDocument) error {
	if doc == nil || doc.Invoice == nil {
		return NewRenderError(ErrCodeInvalidDocument, "invoice document is nil", nil)
	}
	if strings.TrimSpace(doc.Invoice.InvoiceNumber) == "" {
		return NewRenderError(ErrCodeInvalidDocument, "invoice has no number", nil)
	}
	return nil
}

// NewInvoiceRenderer builds the renderer selected in configuration
func NewInvoiceRenderer(cfg config.PDFConfig, logger *zap.Logger) (InvoiceRenderer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch strings.ToLower(cfg.Renderer) {
	case "", RendererGofpdf:
		return NewGofpdfRenderer(&GofpdfConfig{PageSize: PageSizeLetter, Logger: logger}), nil
	case RendererChromedp:
		chrome, err := NewChromedpRenderer(&ChromedpConfig{
			DefaultTimeout: cfg.Timeout,
			RemoteURL:      cfg.ChromeURL,
			NoSandbox:      true,
			Logger:         logger,
		})
		if err != nil {
			return nil, err
		}
		return NewHTMLInvoiceRenderer(chrome, NewInvoiceTemplate(), PageSizeLetter), nil
	default:
		return nil, fmt.Errorf("unknown pdf renderer %q", cfg.Renderer)
	}
}

// ValidateCurrency checks that code is an ISO 4217 currency
func ValidateCurrency(code string) error {
	if _, err := currency.ParseISO(code); err != nil {
		return fmt.Errorf("invalid currency %q: %w", code, err)
	}
	return nil
}

func renderTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = defaultChromeTimeout
	}
	return context.WithTimeout(ctx, timeout)
}
