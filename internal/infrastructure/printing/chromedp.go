package printing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	appledger "github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/application/ledger"
	"go.uber.org/zap"
)

const (
	defaultChromeTimeout = 30 * time.Second
	defaultScale         = 1.0
)

// ChromedpConfig contains configuration for the chromedp renderer
type ChromedpConfig struct {
	// DefaultTimeout for rendering operations
	DefaultTimeout time.Duration
	// RemoteURL is the DevTools endpoint of a running Chrome instance.
	// If empty, chromedp launches a local headless browser.
	RemoteURL string
	// NoSandbox runs Chrome without sandbox (required for Docker/root)
	NoSandbox bool
	// Scale for rendering (default: 1.0)
	Scale  float64
	Logger *zap.Logger
}

// ChromedpRenderer renders HTML to PDF using the Chrome DevTools Protocol
type ChromedpRenderer struct {
	config      *ChromedpConfig
	logger      *zap.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewChromedpRenderer creates a new chromedp-based PDF renderer. The browser
// is started lazily on the first render.
func NewChromedpRenderer(config *ChromedpConfig) (*ChromedpRenderer, error) {
	if config == nil {
		config = &ChromedpConfig{}
	}
	if config.DefaultTimeout == 0 {
		config.DefaultTimeout = defaultChromeTimeout
	}
	if config.Scale == 0 {
		config.Scale = defaultScale
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &ChromedpRenderer{
		config: config,
		logger: logger.Named("chromedp"),
	}
	r.initAllocator()
	return r, nil
}

func (r *ChromedpRenderer) initAllocator() {
	if r.config.RemoteURL != "" {
		r.allocCtx, r.allocCancel = chromedp.NewRemoteAllocator(context.Background(), r.config.RemoteURL)
		return
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true), // Important for Docker
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("font-render-hinting", "none"),
	)
	if r.config.NoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}
	r.allocCtx, r.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
}

// RenderHTML prints a complete HTML document to PDF
func (r *ChromedpRenderer) RenderHTML(ctx context.Context, html string, size PageSize, margins Margins) ([]byte, error) {
	if strings.TrimSpace(html) == "" {
		return nil, NewRenderError(ErrCodeInvalidDocument, "HTML content is empty", nil)
	}

	startTime := time.Now()
	ctx, cancel := renderTimeout(ctx, r.config.DefaultTimeout)
	defer cancel()

	browserCtx, browserCancel := chromedp.NewContext(r.allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			r.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)
	defer browserCancel()

	// Tie the browser tab to the caller's deadline.
	stop := context.AfterFunc(ctx, browserCancel)
	defer stop()

	params := r.buildPrintParams(size, margins)

	var pdfData []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(params.paperWidth).
				WithPaperHeight(params.paperHeight).
				WithMarginTop(params.marginTop).
				WithMarginRight(params.marginRight).
				WithMarginBottom(params.marginBottom).
				WithMarginLeft(params.marginLeft).
				WithScale(params.scale).
				Do(ctx)
			if err != nil {
				return err
			}
			pdfData = data
			return nil
		}),
	)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, NewRenderError(ErrCodeRenderTimeout, "PDF rendering timed out", err)
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, NewRenderError(ErrCodeRenderTimeout, "PDF rendering was cancelled", err)
		}
		r.logger.Error("chromedp rendering failed", zap.Error(err))
		return nil, NewRenderError(ErrCodeRenderFailed, "chromedp execution failed", err)
	}
	if len(pdfData) == 0 {
		return nil, NewRenderError(ErrCodeRenderFailed, "generated PDF is empty", nil)
	}

	r.logger.Debug("PDF rendered",
		zap.Int("bytes", len(pdfData)),
		zap.Duration("duration", time.Since(startTime)))
	return pdfData, nil
}

// printParams holds the parameters for PDF printing, in inches
type printParams struct {
	paperWidth   float64
	paperHeight  float64
	marginTop    float64
	marginRight  float64
	marginBottom float64
	marginLeft   float64
	scale        float64
}

func (r *ChromedpRenderer) buildPrintParams(size PageSize, margins Margins) *printParams {
	if size.Width == 0 || size.Height == 0 {
		size = PageSizeLetter
	}
	return &printParams{
		paperWidth:   mmToInches(size.Width),
		paperHeight:  mmToInches(size.Height),
		marginTop:    mmToInches(margins.Top),
		marginRight:  mmToInches(margins.Right),
		marginBottom: mmToInches(margins.Bottom),
		marginLeft:   mmToInches(margins.Left),
		scale:        r.config.Scale,
	}
}

// Close releases resources held by the renderer
func (r *ChromedpRenderer) Close() error {
	if r.allocCancel != nil {
		r.allocCancel()
	}
	return nil
}

// mmToInches converts millimeters to inches
func mmToInches(mm float64) float64 {
	return mm / 25.4
}

// HTMLRenderer prints an HTML document to PDF
type HTMLRenderer interface {
	RenderHTML(ctx context.Context, html string, size PageSize, margins Margins) ([]byte, error)
	Close() error
}

// HTMLInvoiceRenderer renders the invoice template and prints it with an
// HTMLRenderer.
type HTMLInvoiceRenderer struct {
	html     HTMLRenderer
	template *InvoiceTemplate
	size     PageSize
}

// NewHTMLInvoiceRenderer creates a new HTMLInvoiceRenderer
func NewHTMLInvoiceRenderer(html HTMLRenderer, tmpl *InvoiceTemplate, size PageSize) *HTMLInvoiceRenderer {
	if tmpl == nil {
		tmpl = NewInvoiceTemplate()
	}
	return &HTMLInvoiceRenderer{html: html, template: tmpl, size: size}
}

// RenderInvoice implements appledger.PDFRenderer
func (r *HTMLInvoiceRenderer) RenderInvoice(ctx context.Context, doc *appledger.InvoiceDocument) ([]byte, error) {
	htmlDoc, err := r.template.Render(doc)
	if err != nil {
		return nil, err
	}
	return r.html.RenderHTML(ctx, htmlDoc, r.size, DefaultMargins())
}

// Close releases the underlying HTML renderer
func (r *HTMLInvoiceRenderer) Close() error {
	return r.html.Close()
}

var (
	_ HTMLRenderer    = (*ChromedpRenderer)(nil)
	_ InvoiceRenderer = (*HTMLInvoiceRenderer)(nil)
)
