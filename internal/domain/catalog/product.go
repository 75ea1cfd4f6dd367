package catalog

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/shared"
	"github.com/shopspring/decimal"
)

var skuPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._\-/]{0,63}$`)

// Product is a catalog entry. Its SKU is the ERP identifier; stock levels
// live in inventory.WarehouseStock, not here.
type Product struct {
	shared.BaseEntity
	SKU             string
	Name            string
	Price           decimal.Decimal
	Category        string
	Characteristics map[string]string
	IsActive        bool
}

// NewProduct creates an active product.
func NewProduct(sku, name string, price decimal.Decimal, category string) (*Product, error) {
	if err := ValidateSKU(sku); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewValidationError("product name is required")
	}
	if price.IsNegative() {
		return nil, shared.NewValidationError("product price cannot be negative")
	}
	return &Product{
		BaseEntity:      shared.NewBaseEntity(),
		SKU:             strings.TrimSpace(sku),
		Name:            strings.TrimSpace(name),
		Price:           price,
		Category:        category,
		Characteristics: map[string]string{},
		IsActive:        true,
	}, nil
}

// ValidateSKU checks the ERP identifier format.
func ValidateSKU(sku string) error {
	if !skuPattern.MatchString(strings.TrimSpace(sku)) {
		return shared.NewValidationError("invalid sku: " + sku)
	}
	return nil
}

// SetCharacteristic sets a free-form attribute such as "diameter".
func (p *Product) SetCharacteristic(key, value string) {
	if p.Characteristics == nil {
		p.Characteristics = map[string]string{}
	}
	p.Characteristics[key] = value
	p.Touch()
}

// ChangePrice updates the catalog price. Existing order items keep their snapshot.
func (p *Product) ChangePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return shared.NewValidationError("product price cannot be negative")
	}
	p.Price = price
	p.Touch()
	return nil
}

func (p *Product) Deactivate() {
	p.IsActive = false
	p.Touch()
}

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	// FindByID finds a product by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	// FindBySKU finds a product by SKU
	FindBySKU(ctx context.Context, sku string) (*Product, error)
	// FindActive lists active products, optionally filtered by category
	FindActive(ctx context.Context, category string, filter shared.Filter) ([]Product, int64, error)
	// Save creates or updates a product
	Save(ctx context.Context, p *Product) error
}
