package order

import (
	"time"

	"github.com/shadiyar7/repair-platform-sub000/internal/domain/integration"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/order"
)

// buildDocument collects the data a contract or invoice is rendered from.
// Lines use the price snapshot, never the current catalog price.
func buildDocument(o *order.Order, kind integration.DocumentKind, at time.Time) (integration.Document, error) {
	billing := o.Billing()
	if billing == nil {
		return integration.Document{}, order.ErrMissingBilling
	}
	items := o.Items()
	lines := make([]integration.DocumentLine, len(items))
	for i, item := range items {
		lines[i] = integration.DocumentLine{
			SKU:       item.SKU,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.EffectivePrice(),
			Amount:    item.Amount,
		}
	}
	return integration.Document{
		Kind:     kind,
		Number:   o.Number(),
		Date:     at,
		Billing:  *billing,
		Delivery: o.Delivery(),
		Lines:    lines,
		Total:    o.TotalAmount(),
	}, nil
}

func paymentTrigger(o *order.Order, at time.Time) integration.PaymentTrigger {
	items := o.Items()
	t := integration.PaymentTrigger{
		OrderID:     o.ID,
		Number:      o.Number(),
		TotalAmount: o.TotalAmount(),
		Items:       make([]integration.PaymentTriggerItem, len(items)),
		ReportedAt:  at,
	}
	if b := o.Billing(); b != nil {
		t.CompanyName = b.CompanyName
		t.TaxID = b.TaxID
	}
	for i, item := range items {
		t.Items[i] = integration.PaymentTriggerItem{
			SKU:       item.SKU,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.EffectivePrice(),
			Amount:    item.Amount,
		}
	}
	return t
}
