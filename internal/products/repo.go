package products

import (
	"context"

	"github.com/accordmusic/accord-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository exposes catalog persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a products repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindActiveByIDs loads the active catalog rows for the requested ids in one
// query. Missing or inactive ids are simply absent from the result.
func (r *Repository) FindActiveByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Product
	if err := r.db.WithContext(ctx).
		Where("id IN ? AND active = ?", ids, true).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindByID loads a single catalog row regardless of active flag.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Product, error) {
	var row models.Product
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}
