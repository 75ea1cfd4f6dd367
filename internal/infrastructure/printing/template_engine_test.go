package printing

import (
	"strings"
	"testing"
	"time"
	"unicode"

	"github.com/shadiyar7/repair-platform-sub000/internal/domain/integration"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/order"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

// normalizeSpaces maps locale group separators (NBSP, narrow NBSP) to ' '.
func normalizeSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		return r
	}, s)
}

func sampleDocument(kind integration.DocumentKind) integration.Document {
	return integration.Document{
		Kind:   kind,
		Number: "ORD-20250114-0001",
		Date:   time.Date(2025, 1, 14, 10, 0, 0, 0, time.UTC),
		Billing: order.BillingSnapshot{
			CompanyName:  "Tau Build <LLP>",
			TaxID:        "123456789012",
			LegalAddress: "Almaty, Abay 10",
			DirectorName: "A. Nurlanov",
			BankName:     "Halyk",
			IBAN:         "KZ000000000000000001",
		},
		Delivery: order.DeliveryInfo{Address: "Rayimbek 200", City: "Almaty"},
		Lines: []integration.DocumentLine{
			{
				SKU:       "CEM-500",
				Name:      "Cement M500",
				Quantity:  decimal.RequireFromString("12.5"),
				UnitPrice: decimal.NewFromInt(98765),
				Amount:    decimal.RequireFromString("1234562.5"),
			},
		},
		Total: decimal.RequireFromString("1234562.5"),
	}
}

func TestTemplateEngine_RenderContract(t *testing.T) {
	engine := NewTemplateEngine()

	out, err := engine.RenderHTML(sampleDocument(integration.DocumentContract))
	require.NoError(t, err)

	assert.Contains(t, out, "Supply contract № ORD-20250114-0001")
	assert.Contains(t, out, "14.01.2025")
	assert.Contains(t, out, "A. Nurlanov")
	assert.Contains(t, out, "Tau Build &lt;LLP&gt;", "company name must be escaped")
	assert.Contains(t, normalizeSpaces(out), "1 234 562,50 KZT")
	assert.Contains(t, out, "12,5")
}

func TestTemplateEngine_RenderInvoice(t *testing.T) {
	engine := NewTemplateEngine(WithLocale(language.English), WithCurrency("USD"))

	out, err := engine.RenderHTML(sampleDocument(integration.DocumentInvoice))
	require.NoError(t, err)

	assert.Contains(t, out, "Invoice for payment")
	assert.Contains(t, out, "1,234,562.50 USD")
	assert.Contains(t, out, "KZ000000000000000001")
	assert.NotContains(t, out, "Supply contract")
}

func TestTemplateEngine_UnknownKind(t *testing.T) {
	_, err := NewTemplateEngine().RenderHTML(integration.Document{Kind: "waybill"})

	var rerr *RenderError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, ErrCodeUnknownKind, rerr.Code)
}

func TestTemplateEngine_Formatting(t *testing.T) {
	engine := NewTemplateEngine(WithLocale(language.English))

	assert.Equal(t, "1,000.00", engine.formatMoney(decimal.NewFromInt(1000)))
	assert.Equal(t, "0.10", engine.formatMoney(decimal.RequireFromString("0.1")))
	assert.Equal(t, "2", engine.formatQuantity(decimal.NewFromInt(2)))
	assert.Equal(t, "0.125", engine.formatQuantity(decimal.RequireFromString("0.125")))
	assert.Equal(t, "", formatDate(time.Time{}))
}
