package printing

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/shadiyar7/repair-platform-sub000/internal/domain/integration"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/order"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

//go:embed templates/*.html
var templateFS embed.FS

// DefaultCurrency is printed next to document totals.
const DefaultCurrency = "KZT"

var documentTitles = map[integration.DocumentKind]string{
	integration.DocumentContract: "Supply contract",
	integration.DocumentInvoice:  "Invoice for payment",
}

// TemplateEngine fills the embedded document templates with order data.
// It is safe for concurrent use once constructed.
type TemplateEngine struct {
	printer   *message.Printer
	currency  string
	templates map[integration.DocumentKind]*template.Template
}

// TemplateEngineOption configures the template engine
type TemplateEngineOption func(*TemplateEngine)

// WithLocale sets the locale used for number formatting (default Russian).
func WithLocale(tag language.Tag) TemplateEngineOption {
	return func(e *TemplateEngine) {
		e.printer = message.NewPrinter(tag)
	}
}

// WithCurrency overrides DefaultCurrency.
func WithCurrency(code string) TemplateEngineOption {
	return func(e *TemplateEngine) {
		e.currency = code
	}
}

// NewTemplateEngine parses the embedded templates. It panics if they do
// not parse, which can only happen on a broken build.
func NewTemplateEngine(opts ...TemplateEngineOption) *TemplateEngine {
	e := &TemplateEngine{
		printer:  message.NewPrinter(language.Russian),
		currency: DefaultCurrency,
	}
	for _, opt := range opts {
		opt(e)
	}

	funcs := template.FuncMap{
		"formatMoney":    e.formatMoney,
		"formatQuantity": e.formatQuantity,
		"formatDate":     formatDate,
		"inc":            func(i int) int { return i + 1 },
	}
	e.templates = map[integration.DocumentKind]*template.Template{
		integration.DocumentContract: template.Must(template.New("contract.html").Funcs(funcs).
			ParseFS(templateFS, "templates/base.html", "templates/contract.html")),
		integration.DocumentInvoice: template.Must(template.New("invoice.html").Funcs(funcs).
			ParseFS(templateFS, "templates/base.html", "templates/invoice.html")),
	}
	return e
}

// documentView is the data a template sees.
type documentView struct {
	Title    string
	Number   string
	Date     time.Time
	Currency string
	Billing  order.BillingSnapshot
	Delivery order.DeliveryInfo
	Lines    []integration.DocumentLine
	Total    decimal.Decimal
}

// RenderHTML renders the template for doc.Kind
func (e *TemplateEngine) RenderHTML(doc integration.Document) (string, error) {
	tmpl, ok := e.templates[doc.Kind]
	if !ok {
		return "", NewRenderError(ErrCodeUnknownKind, fmt.Sprintf("no template for document kind %q", doc.Kind), nil)
	}
	view := documentView{
		Title:    documentTitles[doc.Kind],
		Number:   doc.Number,
		Date:     doc.Date,
		Currency: e.currency,
		Billing:  doc.Billing,
		Delivery: doc.Delivery,
		Lines:    doc.Lines,
		Total:    doc.Total,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, view); err != nil {
		return "", NewRenderError(ErrCodeRenderFailed, "failed to execute template", err)
	}
	return buf.String(), nil
}

// formatMoney prints a two-decimal amount with locale grouping.
// Example (ru): 1234567.5 -> "1 234 567,50"
func (e *TemplateEngine) formatMoney(d decimal.Decimal) string {
	return e.printer.Sprint(number.Decimal(d.Round(2).InexactFloat64(), number.Scale(2)))
}

// formatQuantity prints up to three fractional digits, trimming zeros.
func (e *TemplateEngine) formatQuantity(d decimal.Decimal) string {
	return e.printer.Sprint(number.Decimal(d.Round(3).InexactFloat64(), number.MaxFractionDigits(3)))
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02.01.2006")
}
