package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// moneyPlaces is the precision of every monetary amount.
const moneyPlaces = 2

// ProductSnapshot is the catalog data captured when a product goes into the cart.
type ProductSnapshot struct {
	ID    uuid.UUID
	SKU   string
	Name  string
	Price decimal.Decimal
}

// OrderItem is a line item with the price captured at add time.
type OrderItem struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	SKU       string
	Name      string
	Quantity  decimal.Decimal
	// UnitPrice is the price snapshot. Nil only for legacy rows, in which
	// case CatalogPrice is used.
	UnitPrice    *decimal.Decimal
	CatalogPrice decimal.Decimal
	Amount       decimal.Decimal
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func newOrderItem(p ProductSnapshot, qty decimal.Decimal) OrderItem {
	now := time.Now()
	price := p.Price
	item := OrderItem{
		ID:           uuid.New(),
		ProductID:    p.ID,
		SKU:          p.SKU,
		Name:         p.Name,
		Quantity:     qty,
		UnitPrice:    &price,
		CatalogPrice: p.Price,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	item.refreshAmount()
	return item
}

// EffectivePrice returns the snapshot price, or the catalog price when no
// snapshot was taken.
func (i OrderItem) EffectivePrice() decimal.Decimal {
	if i.UnitPrice != nil {
		return *i.UnitPrice
	}
	return i.CatalogPrice
}

func (i *OrderItem) refreshAmount() {
	i.Amount = LineAmount(i.EffectivePrice(), i.Quantity)
}

// LineAmount is price * quantity rounded to money precision.
func LineAmount(price, qty decimal.Decimal) decimal.Decimal {
	return price.Mul(qty).Round(moneyPlaces)
}

// CalculateTotal sums price * quantity over items using each item's
// effective price.
func CalculateTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(LineAmount(item.EffectivePrice(), item.Quantity))
	}
	return total.Round(moneyPlaces)
}
