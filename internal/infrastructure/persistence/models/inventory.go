package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// WarehouseModel is the persistence model for a warehouse.
type WarehouseModel struct {
	BaseModel
	Name         string `gorm:"type:varchar(255);not null"`
	ExternalID   string `gorm:"type:varchar(64);not null;uniqueIndex"`
	City         string `gorm:"type:varchar(120)"`
	Address      string `gorm:"type:text"`
	LastSyncedAt *time.Time
}

// TableName returns the table name for GORM
func (WarehouseModel) TableName() string {
	return "warehouses"
}

// ToDomain converts the row to a domain warehouse.
func (m *WarehouseModel) ToDomain() *inventory.Warehouse {
	return &inventory.Warehouse{
		BaseEntity:   m.BaseModel.ToDomain(),
		Name:         m.Name,
		ExternalID:   m.ExternalID,
		City:         m.City,
		Address:      m.Address,
		LastSyncedAt: m.LastSyncedAt,
	}
}

// WarehouseModelFromDomain creates a row from a domain warehouse.
func WarehouseModelFromDomain(w *inventory.Warehouse) *WarehouseModel {
	m := &WarehouseModel{
		Name:         w.Name,
		ExternalID:   w.ExternalID,
		City:         w.City,
		Address:      w.Address,
		LastSyncedAt: w.LastSyncedAt,
	}
	m.FromDomainBaseEntity(w.BaseEntity)
	return m
}

// WarehouseStockModel is the per (warehouse, sku) quantity written by sync.
type WarehouseStockModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	WarehouseID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_warehouse_stock_key,priority:1"`
	SKU         string          `gorm:"column:sku;type:varchar(64);not null;uniqueIndex:idx_warehouse_stock_key,priority:2"`
	Quantity    decimal.Decimal `gorm:"type:numeric(18,4);not null;default:0"`
	SyncedAt    time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (WarehouseStockModel) TableName() string {
	return "warehouse_stocks"
}

// ToDomain converts the row to a domain stock entry.
func (m *WarehouseStockModel) ToDomain() inventory.WarehouseStock {
	return inventory.WarehouseStock{
		ID:          m.ID,
		WarehouseID: m.WarehouseID,
		SKU:         m.SKU,
		Quantity:    m.Quantity,
		SyncedAt:    m.SyncedAt,
	}
}

// NewWarehouseStockModel builds a row for an upsert. The id is only used
// when the row does not exist yet.
func NewWarehouseStockModel(warehouseID uuid.UUID, line inventory.StockLine, syncedAt time.Time) WarehouseStockModel {
	return WarehouseStockModel{
		ID:          uuid.New(),
		WarehouseID: warehouseID,
		SKU:         line.SKU,
		Quantity:    line.Quantity,
		SyncedAt:    syncedAt,
	}
}
