package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/inventory"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/shared"
	"github.com/shadiyar7/repair-platform-sub000/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormWarehouseRepository implements inventory.WarehouseRepository using GORM
type GormWarehouseRepository struct {
	db *gorm.DB
}

// NewGormWarehouseRepository creates a new GormWarehouseRepository
func NewGormWarehouseRepository(db *gorm.DB) *GormWarehouseRepository {
	return &GormWarehouseRepository{db: db}
}

// FindByID finds a warehouse by ID
func (r *GormWarehouseRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.Warehouse, error) {
	var model models.WarehouseModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err, shared.NewNotFoundError("warehouse", id))
	}
	return model.ToDomain(), nil
}

// FindByExternalID finds a warehouse by its ERP identifier
func (r *GormWarehouseRepository) FindByExternalID(ctx context.Context, externalID string) (*inventory.Warehouse, error) {
	var model models.WarehouseModel
	if err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&model).Error; err != nil {
		return nil, notFound(err, shared.NewNotFoundError("warehouse", externalID))
	}
	return model.ToDomain(), nil
}

// FindAll lists every warehouse ordered by name
func (r *GormWarehouseRepository) FindAll(ctx context.Context) ([]inventory.Warehouse, error) {
	var rows []models.WarehouseModel
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return warehousesToDomain(rows), nil
}

// FindStale lists warehouses never synced or last synced before cutoff
func (r *GormWarehouseRepository) FindStale(ctx context.Context, cutoff time.Time) ([]inventory.Warehouse, error) {
	var rows []models.WarehouseModel
	err := r.db.WithContext(ctx).
		Where("last_synced_at IS NULL OR last_synced_at < ?", cutoff).
		Order("last_synced_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return warehousesToDomain(rows), nil
}

// Save creates or updates a warehouse
func (r *GormWarehouseRepository) Save(ctx context.Context, w *inventory.Warehouse) error {
	return r.db.WithContext(ctx).Save(models.WarehouseModelFromDomain(w)).Error
}

func warehousesToDomain(rows []models.WarehouseModel) []inventory.Warehouse {
	out := make([]inventory.Warehouse, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out
}

// Ensure GormWarehouseRepository implements inventory.WarehouseRepository
var _ inventory.WarehouseRepository = (*GormWarehouseRepository)(nil)
