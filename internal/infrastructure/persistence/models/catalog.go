package models

import (
	"fmt"

	"github.com/shadiyar7/repair-platform-sub000/internal/domain/catalog"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ProductModel is the persistence model for the Product domain entity.
type ProductModel struct {
	BaseModel
	SKU             string            `gorm:"column:sku;type:varchar(64);not null;uniqueIndex"`
	Name            string            `gorm:"type:varchar(255);not null"`
	Price           decimal.Decimal   `gorm:"type:numeric(18,2);not null;default:0"`
	Category        string            `gorm:"type:varchar(120);index"`
	Characteristics datatypes.JSONMap `gorm:"type:jsonb"`
	IsActive        bool              `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product entity.
func (m *ProductModel) ToDomain() *catalog.Product {
	chars := make(map[string]string, len(m.Characteristics))
	for k, v := range m.Characteristics {
		if s, ok := v.(string); ok {
			chars[k] = s
		} else {
			chars[k] = fmt.Sprint(v)
		}
	}
	return &catalog.Product{
		BaseEntity:      m.BaseModel.ToDomain(),
		SKU:             m.SKU,
		Name:            m.Name,
		Price:           m.Price,
		Category:        m.Category,
		Characteristics: chars,
		IsActive:        m.IsActive,
	}
}

// ProductModelFromDomain creates a persistence model from a domain Product.
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	chars := datatypes.JSONMap{}
	for k, v := range p.Characteristics {
		chars[k] = v
	}
	m := &ProductModel{
		SKU:             p.SKU,
		Name:            p.Name,
		Price:           p.Price,
		Category:        p.Category,
		Characteristics: chars,
		IsActive:        p.IsActive,
	}
	m.FromDomainBaseEntity(p.BaseEntity)
	return m
}
