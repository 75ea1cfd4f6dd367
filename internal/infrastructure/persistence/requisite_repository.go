package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/partner"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/shared"
	"github.com/shadiyar7/repair-platform-sub000/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormRequisiteRepository implements partner.RequisiteRepository using GORM
type GormRequisiteRepository struct {
	db *gorm.DB
}

// NewGormRequisiteRepository creates a new GormRequisiteRepository
func NewGormRequisiteRepository(db *gorm.DB) *GormRequisiteRepository {
	return &GormRequisiteRepository{db: db}
}

// FindByID finds a requisite by ID
func (r *GormRequisiteRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.CompanyRequisite, error) {
	var model models.CompanyRequisiteModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err, shared.NewNotFoundError("requisite", id))
	}
	return model.ToDomain(), nil
}

// FindByUser lists a user's requisites, newest first
func (r *GormRequisiteRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]partner.CompanyRequisite, error) {
	var rows []models.CompanyRequisiteModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]partner.CompanyRequisite, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// Save creates or updates a requisite
func (r *GormRequisiteRepository) Save(ctx context.Context, req *partner.CompanyRequisite) error {
	return r.db.WithContext(ctx).Save(models.CompanyRequisiteModelFromDomain(req)).Error
}

// Ensure GormRequisiteRepository implements partner.RequisiteRepository
var _ partner.RequisiteRepository = (*GormRequisiteRepository)(nil)
