package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pennyekart/pennyekart-backend/pkg/db/models"
	"github.com/pennyekart/pennyekart-backend/pkg/enums"
	"github.com/pennyekart/pennyekart-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository backed by db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateCheckoutGroup(ctx context.Context, group *models.CheckoutGroup) error {
	return r.db.WithContext(ctx).Create(group).Error
}

// FindCheckoutGroupByKey returns nil when the user never used key.
func (r *repository) FindCheckoutGroupByKey(ctx context.Context, userID uuid.UUID, key string) (*models.CheckoutGroup, error) {
	var group models.CheckoutGroup
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND idempotency_key = ?", userID, key).
		First(&group).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &group, nil
}

func (r *repository) CreateOrders(ctx context.Context, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&orders).Error
}

func (r *repository) FindOrdersByCheckoutGroup(ctx context.Context, checkoutGroupID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("checkout_group_id = ?", checkoutGroupID).
		Order("seller_id IS NOT NULL ASC").
		Order("created_at ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// CompareAndSetStatus moves the order to `to` only while it still sits in
// `from`. It reports false when another writer got there first.
func (r *repository) CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, updates map[string]any) (bool, error) {
	values := map[string]any{"status": to}
	for k, v := range updates {
		values[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) AssignDeliveryStaff(ctx context.Context, id, staffID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Update("assigned_delivery_staff_id", staffID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) CreateTransition(ctx context.Context, transition *models.OrderStatusTransition) error {
	return r.db.WithContext(ctx).Create(transition).Error
}

// FindTransitionByKey returns nil when no transition carries key.
func (r *repository) FindTransitionByKey(ctx context.Context, key string) (*models.OrderStatusTransition, error) {
	var transition models.OrderStatusTransition
	err := r.db.WithContext(ctx).Where("idempotency_key = ?", key).First(&transition).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &transition, nil
}

func (r *repository) ListUserOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID)
	return r.page(query, params)
}

func (r *repository) ListStaffOrders(ctx context.Context, staffID uuid.UUID, filter StaffOrderFilter) (*OrderList, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("assigned_delivery_staff_id = ?", staffID)
	if filter.View == StaffViewDelivered {
		query = query.Where("status = ?", enums.OrderStatusDelivered)
	} else {
		query = query.Where("status <> ?", enums.OrderStatusDelivered)
	}
	if start := filter.Dates.Start(); start != nil {
		query = query.Where("created_at >= ?", *start)
	}
	if end := filter.Dates.End(); end != nil {
		query = query.Where("created_at < ?", *end)
	}
	return r.page(query, filter.Params)
}

func (r *repository) page(query *gorm.DB, params pagination.Params) (*OrderList, error) {
	query, err := pagination.Keyset(query, params)
	if err != nil {
		return nil, err
	}
	var rows []models.Order
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	page, next := pagination.Page(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return &OrderList{Orders: page, NextCursor: next}, nil
}

// DecrementSellerStock lowers a seller listing's stock in one statement,
// flooring at zero. It reports false when no seller listing has that id.
func (r *repository) DecrementSellerStock(ctx context.Context, sellerProductID uuid.UUID, quantity int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE seller_products
		 SET stock = CASE WHEN stock > ? THEN stock - ? ELSE 0 END, updated_at = ?
		 WHERE id = ?`,
		quantity, quantity, time.Now().UTC(), sellerProductID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
