package printing

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const (
	defaultChromeTimeout = 30 * time.Second
	defaultScale         = 1.0
	a4WidthMM            = 210
	a4HeightMM           = 297
	defaultMarginMM      = 15
)

// ChromedpConfig contains configuration for the chromedp renderer
type ChromedpConfig struct {
	// DefaultTimeout bounds a single conversion
	DefaultTimeout time.Duration
	// RemoteURL is the websocket URL of a running Chrome. Empty launches a
	// local headless browser.
	RemoteURL string
	// NoSandbox runs Chrome without sandbox (required for Docker/root)
	NoSandbox bool
	// MarginMM applies to all four sides
	MarginMM float64
	Logger   *zap.Logger
}

// ChromedpRenderer converts HTML to PDF using Chrome DevTools Protocol
type ChromedpRenderer struct {
	config      *ChromedpConfig
	logger      *zap.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewChromedpRenderer creates a new chromedp-based PDF converter
func NewChromedpRenderer(config *ChromedpConfig) (*ChromedpRenderer, error) {
	if config == nil {
		config = &ChromedpConfig{}
	}
	if config.DefaultTimeout == 0 {
		config.DefaultTimeout = defaultChromeTimeout
	}
	if config.MarginMM == 0 {
		config.MarginMM = defaultMarginMM
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	renderer := &ChromedpRenderer{
		config: config,
		logger: logger.Named("chromedp"),
	}
	renderer.initAllocator()
	return renderer, nil
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
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true), // Important for Docker
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("font-render-hinting", "none"),
	)
	if r.config.NoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}
	r.allocCtx, r.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
}

// ConvertHTML renders a complete HTML document to an A4 portrait PDF
func (r *ChromedpRenderer) ConvertHTML(ctx context.Context, htmlDoc, title string) ([]byte, error) {
	if strings.TrimSpace(htmlDoc) == "" {
		return nil, NewRenderError(ErrCodeInvalidHTML, "HTML content is empty", nil)
	}

	startTime := time.Now()

	ctx, cancel := context.WithTimeout(ctx, r.config.DefaultTimeout)
	defer cancel()

	browserCtx, browserCancel := chromedp.NewContext(r.allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			r.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)
	defer browserCancel()

	// chromedp contexts do not inherit the caller's deadline.
	go func() {
		select {
		case <-ctx.Done():
			browserCancel()
		case <-browserCtx.Done():
		}
	}()

	content := buildCompleteHTML(htmlDoc, title)
	params := r.buildPrintParams()

	var pdfData []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, content).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := page.PrintToPDF().
				WithPrintBackground(params.printBackground).
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
			return nil, NewRenderError(ErrCodeRenderTimeout,
				fmt.Sprintf("PDF rendering timed out after %v", r.config.DefaultTimeout), err)
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

	r.logger.Info("PDF rendered successfully",
		zap.Int("bytes", len(pdfData)),
		zap.Duration("duration", time.Since(startTime)))

	return pdfData, nil
}

// printParams holds the parameters for PDF printing
type printParams struct {
	paperWidth      float64
	paperHeight     float64
	marginTop       float64
	marginRight     float64
	marginBottom    float64
	marginLeft      float64
	scale           float64
	printBackground bool
}

// buildPrintParams returns A4 portrait parameters in inches, which is
// what Chrome expects.
func (r *ChromedpRenderer) buildPrintParams() *printParams {
	margin := mmToInches(r.config.MarginMM)
	return &printParams{
		paperWidth:      mmToInches(a4WidthMM),
		paperHeight:     mmToInches(a4HeightMM),
		marginTop:       margin,
		marginRight:     margin,
		marginBottom:    margin,
		marginLeft:      margin,
		scale:           defaultScale,
		printBackground: true,
	}
}

// buildCompleteHTML wraps a fragment in a full document. Complete
// documents are returned as-is.
func buildCompleteHTML(body, title string) string {
	lower := strings.ToLower(body)
	if strings.Contains(lower, "<!doctype") || strings.Contains(lower, "<html") {
		return body
	}

	var buf strings.Builder
	buf.WriteString("<!DOCTYPE html><html><head>")
	buf.WriteString(`<meta charset="UTF-8">`)
	if title != "" {
		buf.WriteString("<title>")
		buf.WriteString(html.EscapeString(title))
		buf.WriteString("</title>")
	}
	buf.WriteString("</head><body>")
	buf.WriteString(body)
	buf.WriteString("</body></html>")
	return buf.String()
}

// Close releases the browser allocator
func (r *ChromedpRenderer) Close() error {
	if r.allocCancel != nil {
		r.allocCancel()
	}
	return nil
}

func mmToInches(mm float64) float64 {
	return mm / 25.4
}

var _ PDFConverter = (*ChromedpRenderer)(nil)
