package tradein

import (
	"context"

	"github.com/accordmusic/accord-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository exposes trade-in catalog persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a trade-in repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindActiveProductsByIDs loads active trade-in catalog rows for the requested
// ids in one query.
func (r *Repository) FindActiveProductsByIDs(ctx context.Context, ids []int64) ([]models.TradeInProduct, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.TradeInProduct
	if err := r.db.WithContext(ctx).
		Where("id IN ? AND active = ?", ids, true).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindConditionsByCodes loads condition rows for the requested codes.
func (r *Repository) FindConditionsByCodes(ctx context.Context, codes []string) ([]models.TradeInCondition, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	var rows []models.TradeInCondition
	if err := r.db.WithContext(ctx).
		Where("code IN ?", codes).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
