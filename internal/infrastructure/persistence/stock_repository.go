package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/inventory"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/shared"
	"github.com/shadiyar7/repair-platform-sub000/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// stockUpsertBatch bounds the rows sent in one INSERT ... ON CONFLICT.
const stockUpsertBatch = 500

// GormStockRepository implements inventory.StockRepository using GORM
type GormStockRepository struct {
	db *gorm.DB
}

// NewGormStockRepository creates a new GormStockRepository
func NewGormStockRepository(db *gorm.DB) *GormStockRepository {
	return &GormStockRepository{db: db}
}

// ApplySnapshot upserts lines and stamps the warehouse sync time atomically.
func (r *GormStockRepository) ApplySnapshot(ctx context.Context, warehouseID uuid.UUID, lines []inventory.StockLine, syncedAt time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.WarehouseModel{}).
			Where("id = ?", warehouseID).
			Updates(map[string]any{"last_synced_at": syncedAt, "updated_at": syncedAt})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.NewNotFoundError("warehouse", warehouseID)
		}

		if len(lines) == 0 {
			return nil
		}
		rows := make([]models.WarehouseStockModel, len(lines))
		for i, line := range lines {
			rows[i] = models.NewWarehouseStockModel(warehouseID, line, syncedAt)
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "warehouse_id"}, {Name: "sku"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity", "synced_at"}),
		}).CreateInBatches(&rows, stockUpsertBatch).Error
	})
}

// FindByWarehouse lists the stock of one warehouse ordered by sku
func (r *GormStockRepository) FindByWarehouse(ctx context.Context, warehouseID uuid.UUID) ([]inventory.WarehouseStock, error) {
	var rows []models.WarehouseStockModel
	err := r.db.WithContext(ctx).
		Where("warehouse_id = ?", warehouseID).
		Order("sku ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]inventory.WarehouseStock, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// FindByWarehouseAndSKU finds one stock row
func (r *GormStockRepository) FindByWarehouseAndSKU(ctx context.Context, warehouseID uuid.UUID, sku string) (*inventory.WarehouseStock, error) {
	var model models.WarehouseStockModel
	err := r.db.WithContext(ctx).
		Where("warehouse_id = ? AND sku = ?", warehouseID, sku).
		First(&model).Error
	if err != nil {
		return nil, notFound(err, shared.NewNotFoundError("stock", sku))
	}
	stock := model.ToDomain()
	return &stock, nil
}

// Ensure GormStockRepository implements inventory.StockRepository
var _ inventory.StockRepository = (*GormStockRepository)(nil)
