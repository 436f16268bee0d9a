package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pennyekart/pennyekart-backend/pkg/db/models"
)

// Repository reads the storefront listings.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ProductsStockedIn(ctx context.Context, godownIDs []uuid.UUID) ([]models.Product, error)
	SellerProductsIn(ctx context.Context, godownIDs []uuid.UUID) ([]models.SellerProduct, error)
	SectionedProducts(ctx context.Context) ([]models.Product, error)
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindSellerProduct(ctx context.Context, id uuid.UUID) (*models.SellerProduct, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// ProductsStockedIn lists active products holding at least one non-empty batch
// in any of the godowns.
func (r *repository) ProductsStockedIn(ctx context.Context, godownIDs []uuid.UUID) ([]models.Product, error) {
	if len(godownIDs) == 0 {
		return []models.Product{}, nil
	}
	stocked := r.db.WithContext(ctx).
		Model(&models.StockBatch{}).
		Select("product_id").
		Where("godown_id IN ? AND quantity > 0", godownIDs)

	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("id IN (?)", stocked).
		Order("name ASC").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

// SellerProductsIn lists approved, active seller listings parked in the
// godowns with stock left.
func (r *repository) SellerProductsIn(ctx context.Context, godownIDs []uuid.UUID) ([]models.SellerProduct, error) {
	if len(godownIDs) == 0 {
		return []models.SellerProduct{}, nil
	}
	var products []models.SellerProduct
	err := r.db.WithContext(ctx).
		Where("area_godown_id IN ?", godownIDs).
		Where("is_active = ? AND is_approved = ? AND stock > 0", true, true).
		Order("name ASC").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repository) SectionedProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("section IS NOT NULL AND section <> ''").
		Order("section ASC, name ASC").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindSellerProduct(ctx context.Context, id uuid.UUID) (*models.SellerProduct, error) {
	var product models.SellerProduct
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}
