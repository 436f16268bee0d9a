package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pennyekart/pennyekart-backend/pkg/db/models"
	"github.com/pennyekart/pennyekart-backend/pkg/enums"
	"github.com/pennyekart/pennyekart-backend/pkg/pagination"
)

// Repository defines persistence operations for checkout groups, orders and
// their status history.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateCheckoutGroup(ctx context.Context, group *models.CheckoutGroup) error
	FindCheckoutGroupByKey(ctx context.Context, userID uuid.UUID, key string) (*models.CheckoutGroup, error)
	CreateOrders(ctx context.Context, orders []models.Order) error
	FindOrdersByCheckoutGroup(ctx context.Context, checkoutGroupID uuid.UUID) ([]models.Order, error)

	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, updates map[string]any) (bool, error)
	AssignDeliveryStaff(ctx context.Context, id, staffID uuid.UUID) error
	CreateTransition(ctx context.Context, transition *models.OrderStatusTransition) error
	FindTransitionByKey(ctx context.Context, key string) (*models.OrderStatusTransition, error)

	ListUserOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
	ListStaffOrders(ctx context.Context, staffID uuid.UUID, filter StaffOrderFilter) (*OrderList, error)

	DecrementSellerStock(ctx context.Context, sellerProductID uuid.UUID, quantity int) (bool, error)
}
