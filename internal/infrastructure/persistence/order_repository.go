package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/order"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/shared"
	"github.com/shadiyar7/repair-platform-sub000/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormOrderRepository implements order.Repository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) withItems(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC")
	})
}

func (r *GormOrderRepository) findOne(ctx context.Context, query string, args ...any) (*order.Order, error) {
	var model models.OrderModel
	if err := r.withItems(ctx).Where(query, args...).First(&model).Error; err != nil {
		return nil, notFound(err, order.ErrOrderNotFound)
	}
	return model.ToDomain(), nil
}

// FindByID finds an order by ID
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByNumber finds an order by its public number
func (r *GormOrderRepository) FindByNumber(ctx context.Context, number string) (*order.Order, error) {
	return r.findOne(ctx, "number = ?", number)
}

// FindByTrackingToken finds an order by tracking token
func (r *GormOrderRepository) FindByTrackingToken(ctx context.Context, token string) (*order.Order, error) {
	return r.findOne(ctx, "tracking_token = ?", token)
}

// FindBySignatureDocument finds the order bound to a provider document
func (r *GormOrderRepository) FindBySignatureDocument(ctx context.Context, documentID string) (*order.Order, error) {
	if documentID == "" {
		return nil, order.ErrOrderNotFound
	}
	return r.findOne(ctx, "signature_document_id = ?", documentID)
}

// FindCartByUser returns the user's most recent cart
func (r *GormOrderRepository) FindCartByUser(ctx context.Context, userID uuid.UUID) (*order.Order, error) {
	var model models.OrderModel
	err := r.withItems(ctx).
		Where("user_id = ? AND status = ?", userID, order.StatusCart).
		Order("created_at DESC").
		First(&model).Error
	if err != nil {
		return nil, notFound(err, order.ErrOrderNotFound)
	}
	return model.ToDomain(), nil
}

// FindByUser lists a user's orders with pagination
func (r *GormOrderRepository) FindByUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]*order.Order, int64, error) {
	var total int64
	base := r.db.WithContext(ctx).Model(&models.OrderModel{}).Where("user_id = ?", userID)
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.OrderModel
	err := r.withItems(ctx).
		Where("user_id = ?", userID).
		Order(orderClause(filter.OrderBy, filter.OrderDir, OrderSortFields, "created_at")).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	out := make([]*order.Order, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, total, nil
}

// Create inserts a new order and its items
// Create inserts a new order. A second cart for the same user violates the
// one-cart index and comes back as order.ErrCartExists.
func (r *GormOrderRepository) Create(ctx context.Context, o *order.Order) error {
	err := r.db.WithContext(ctx).Create(models.OrderModelFromDomain(o)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) && o.Status() == order.StatusCart {
		return order.ErrCartExists
	}
	return err
}

// SaveWithLock writes the order only if the stored version equals o.Version.
// Items are replaced wholesale in the same transaction.
func (r *GormOrderRepository) SaveWithLock(ctx context.Context, o *order.Order) error {
	model := models.OrderModelFromDomain(o)
	now := time.Now()
	next := o.Version + 1

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cols := model.UpdateColumns()
		cols["version"] = next
		cols["updated_at"] = now

		result := tx.Model(&models.OrderModel{}).
			Where("id = ? AND version = ?", model.ID, o.Version).
			Updates(cols)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.OrderModel{}).Where("id = ?", model.ID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return order.ErrOrderNotFound
			}
			return shared.ErrConflictingUpdate
		}

		if err := tx.Where("order_id = ?", model.ID).Delete(&models.OrderItemModel{}).Error; err != nil {
			return err
		}
		if len(model.Items) > 0 {
			if err := tx.Create(&model.Items).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, shared.ErrConflictingUpdate) {
			return shared.ErrConflictingUpdate.WithDetail("order_id", o.ID.String())
		}
		return err
	}

	o.Version = next
	o.UpdatedAt = now
	return nil
}

// Ensure GormOrderRepository implements order.Repository
var _ order.Repository = (*GormOrderRepository)(nil)
