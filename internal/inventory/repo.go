package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pennyekart/pennyekart-backend/pkg/db/models"
	"github.com/pennyekart/pennyekart-backend/pkg/types"
)

// Repository reads and writes godown stock batches.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ReportProducts(ctx context.Context) ([]models.Product, error)
	ProductTotals(ctx context.Context) ([]ProductTotal, error)
	AllBatches(ctx context.Context) ([]models.StockBatch, error)
	AllGodowns(ctx context.Context) ([]models.Godown, error)
	GodownsByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Godown, error)
	ProductsByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
	UpdateProductMRP(ctx context.Context, productID uuid.UUID, mrp decimal.Decimal) error
	InsertBatches(ctx context.Context, batches []models.StockBatch) error
	ListBatches(ctx context.Context, filter PurchaseFilter) ([]models.StockBatch, error)
	FindBatch(ctx context.Context, id uuid.UUID) (*models.StockBatch, error)
	UpdateBatch(ctx context.Context, id uuid.UUID, updates map[string]any) error
	DeleteBatch(ctx context.Context, id uuid.UUID) (int64, error)
}

// PurchaseFilter narrows the purchase history.
type PurchaseFilter struct {
	Limit    int
	Dates    types.DateRange
	GodownID *uuid.UUID
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

// ReportProducts returns active products plus inactive ones still holding batches.
func (r *repository) ReportProducts(ctx context.Context) ([]models.Product, error) {
	stocked := r.db.WithContext(ctx).Model(&models.StockBatch{}).Select("product_id")
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Or("id IN (?)", stocked).
		Order("name ASC, id ASC").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repository) ProductTotals(ctx context.Context) ([]ProductTotal, error) {
	var totals []ProductTotal
	err := r.db.WithContext(ctx).
		Model(&models.StockBatch{}).
		Select("product_id, COALESCE(SUM(quantity), 0) AS total_quantity, COALESCE(SUM(quantity * purchase_price), 0) AS total_value").
		Group("product_id").
		Scan(&totals).Error
	if err != nil {
		return nil, err
	}
	return totals, nil
}

func (r *repository) AllBatches(ctx context.Context) ([]models.StockBatch, error) {
	var batches []models.StockBatch
	err := r.db.WithContext(ctx).
		Order("created_at DESC, id ASC").
		Find(&batches).Error
	if err != nil {
		return nil, err
	}
	return batches, nil
}

func (r *repository) AllGodowns(ctx context.Context) ([]models.Godown, error) {
	var godowns []models.Godown
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&godowns).Error; err != nil {
		return nil, err
	}
	return godowns, nil
}

func (r *repository) GodownsByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Godown, error) {
	out := make(map[uuid.UUID]models.Godown, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var godowns []models.Godown
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&godowns).Error; err != nil {
		return nil, err
	}
	for _, g := range godowns {
		out[g.ID] = g
	}
	return out, nil
}

func (r *repository) ProductsByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := make(map[uuid.UUID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var products []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

func (r *repository) UpdateProductMRP(ctx context.Context, productID uuid.UUID, mrp decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Update("mrp", mrp).Error
}

func (r *repository) InsertBatches(ctx context.Context, batches []models.StockBatch) error {
	if len(batches) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&batches).Error
}

func (r *repository) ListBatches(ctx context.Context, filter PurchaseFilter) ([]models.StockBatch, error) {
	query := r.db.WithContext(ctx).Order("created_at DESC, id ASC").Limit(filter.Limit)
	if start := filter.Dates.Start(); start != nil {
		query = query.Where("created_at >= ?", *start)
	}
	if end := filter.Dates.End(); end != nil {
		query = query.Where("created_at < ?", *end)
	}
	if filter.GodownID != nil {
		query = query.Where("godown_id = ?", *filter.GodownID)
	}
	var batches []models.StockBatch
	if err := query.Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

func (r *repository) FindBatch(ctx context.Context, id uuid.UUID) (*models.StockBatch, error) {
	var batch models.StockBatch
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&batch).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *repository) UpdateBatch(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.StockBatch{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) DeleteBatch(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.StockBatch{})
	return res.RowsAffected, res.Error
}
