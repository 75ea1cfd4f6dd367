package printing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shadiyar7/repair-platform-sub000/internal/domain/integration"
	"go.uber.org/zap"
)

// Step names reported on integration errors.
const (
	StepTemplate = "template"
	StepPDF      = "pdf"
)

// Content types of rendered artifacts.
const (
	ContentTypeHTML = "text/html; charset=utf-8"
	ContentTypePDF  = "application/pdf"
)

// PDFConverter turns a complete HTML document into a PDF
type PDFConverter interface {
	ConvertHTML(ctx context.Context, html, title string) ([]byte, error)
	Close() error
}

// RenderError represents an error during document rendering
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
	ErrCodeRenderTimeout = "RENDER_TIMEOUT"
	ErrCodeRenderFailed  = "RENDER_FAILED"
	ErrCodeInvalidHTML   = "INVALID_HTML"
	ErrCodeUnknownKind   = "UNKNOWN_KIND"
)

// NewRenderError creates a new RenderError
func NewRenderError(code, message string, cause error) *RenderError {
	return &RenderError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// DocumentRenderer implements integration.DocumentRenderer
type DocumentRenderer struct {
	engine *TemplateEngine
	pdf    PDFConverter
	logger *zap.Logger
}

// NewDocumentRenderer creates a renderer. A nil pdf converter makes the
// renderer emit HTML artifacts.
func NewDocumentRenderer(engine *TemplateEngine, pdf PDFConverter, logger *zap.Logger) *DocumentRenderer {
	if engine == nil {
		engine = NewTemplateEngine()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentRenderer{engine: engine, pdf: pdf, logger: logger.Named("printing")}
}

// Render produces the contract or invoice for doc
func (r *DocumentRenderer) Render(ctx context.Context, doc integration.Document) (*integration.RenderedDocument, error) {
	start := time.Now()
	html, err := r.engine.RenderHTML(doc)
	if err != nil {
		// A missing or broken template is not something a retry fixes.
		return nil, &integration.Error{
			System: integration.SystemRenderer,
			Step:   StepTemplate,
			Kind:   integration.KindRejected,
			Err:    err,
		}
	}

	if r.pdf == nil {
		return &integration.RenderedDocument{
			Data:        []byte(html),
			ContentType: ContentTypeHTML,
			Extension:   "html",
		}, nil
	}

	title := fmt.Sprintf("%s %s", documentTitles[doc.Kind], doc.Number)
	data, err := r.pdf.ConvertHTML(ctx, html, title)
	if err != nil {
		r.logger.Error("PDF conversion failed",
			zap.String("kind", string(doc.Kind)),
			zap.String("order_number", doc.Number),
			zap.Error(err),
		)
		var rerr *RenderError
		if errors.As(err, &rerr) && rerr.Code == ErrCodeInvalidHTML {
			return nil, &integration.Error{System: integration.SystemRenderer, Step: StepPDF, Kind: integration.KindRejected, Err: err}
		}
		return nil, integration.Unavailable(integration.SystemRenderer, StepPDF, err)
	}

	r.logger.Debug("Document rendered",
		zap.String("kind", string(doc.Kind)),
		zap.String("order_number", doc.Number),
		zap.Int("bytes", len(data)),
		zap.Duration("duration", time.Since(start)),
	)
	return &integration.RenderedDocument{
		Data:        data,
		ContentType: ContentTypePDF,
		Extension:   "pdf",
	}, nil
}

var _ integration.DocumentRenderer = (*DocumentRenderer)(nil)
