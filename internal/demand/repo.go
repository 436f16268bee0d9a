package demand

import (
	"context"

	"gorm.io/gorm"

	"github.com/pennyekart/pennyekart-backend/pkg/db/models"
)

// Repository loads the order sample demand is computed from.
type Repository interface {
	RecentOrders(ctx context.Context, limit int) ([]models.Order, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) RecentOrders(ctx context.Context, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Select("id", "items", "created_at").
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}
