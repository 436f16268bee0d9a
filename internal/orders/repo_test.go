package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pennyekart/pennyekart-backend/pkg/db/dbtest"
	"github.com/pennyekart/pennyekart-backend/pkg/db/models"
	"github.com/pennyekart/pennyekart-backend/pkg/enums"
	pkgerrors "github.com/pennyekart/pennyekart-backend/pkg/errors"
	"github.com/pennyekart/pennyekart-backend/pkg/pagination"
	"github.com/pennyekart/pennyekart-backend/pkg/types"
)

func seedOrder(t *testing.T, db *gorm.DB, userID uuid.UUID, staffID *uuid.UUID, status enums.OrderStatus, createdAt time.Time) models.Order {
	t.Helper()
	order := models.Order{
		UserID:                  userID,
		Items:                   []models.OrderItem{{ID: uuid.New(), Name: "Rice", Price: decimal.NewFromInt(50), Quantity: 1, Source: enums.ItemSourceProduct}},
		Subtotal:                decimal.NewFromInt(50),
		Total:                   decimal.NewFromInt(57),
		Status:                  status,
		PaymentMethod:           enums.PaymentMethodCOD,
		AssignedDeliveryStaffID: staffID,
		CreatedAt:               createdAt.UTC(),
	}
	require.NoError(t, db.Create(&order).Error)
	return order
}

func TestCheckoutGroupLookupByKey(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	repo := NewRepository(db)
	userID := uuid.New()

	missing, err := repo.FindCheckoutGroupByKey(ctx, userID, "k-1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	group := &models.CheckoutGroup{
		UserID:         userID,
		IdempotencyKey: "k-1",
		CartSubtotal:   decimal.NewFromInt(100),
		PlatformFee:    decimal.NewFromInt(7),
		PaymentMethod:  enums.PaymentMethodCOD,
	}
	require.NoError(t, repo.CreateCheckoutGroup(ctx, group))

	found, err := repo.FindCheckoutGroupByKey(ctx, userID, "k-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, group.ID, found.ID)

	other, err := repo.FindCheckoutGroupByKey(ctx, uuid.New(), "k-1")
	require.NoError(t, err)
	assert.Nil(t, other, "keys are scoped per user")

	dup := &models.CheckoutGroup{
		UserID:         userID,
		IdempotencyKey: "k-1",
		CartSubtotal:   decimal.NewFromInt(1),
		PlatformFee:    decimal.NewFromInt(7),
		PaymentMethod:  enums.PaymentMethodCOD,
	}
	assert.Error(t, repo.CreateCheckoutGroup(ctx, dup))
}

func TestCompareAndSetStatus(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	repo := NewRepository(db)
	order := seedOrder(t, db, uuid.New(), nil, enums.OrderStatusPending, time.Now())

	ok, err := repo.CompareAndSetStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusAccepted, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.CompareAndSetStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusAccepted, nil)
	require.NoError(t, err)
	assert.False(t, ok, "stale from status must not match")

	reloaded, err := repo.FindOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusAccepted, reloaded.Status)
}

func TestTransitionKeyIsUnique(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	repo := NewRepository(db)
	orderID := uuid.New()

	first := &models.OrderStatusTransition{OrderID: orderID, FromStatus: enums.OrderStatusPending, ToStatus: enums.OrderStatusAccepted, ActorID: uuid.New(), IdempotencyKey: "adv-1"}
	require.NoError(t, repo.CreateTransition(ctx, first))

	found, err := repo.FindTransitionByKey(ctx, "adv-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, enums.OrderStatusAccepted, found.ToStatus)

	again := &models.OrderStatusTransition{OrderID: orderID, FromStatus: enums.OrderStatusAccepted, ToStatus: enums.OrderStatusPickup, ActorID: uuid.New(), IdempotencyKey: "adv-1"}
	assert.Error(t, repo.CreateTransition(ctx, again))
}

func TestListStaffOrdersViewsAndDates(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	repo := NewRepository(db)
	staffID := uuid.New()
	otherStaff := uuid.New()

	day := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)
	active := seedOrder(t, db, uuid.New(), &staffID, enums.OrderStatusShipped, day)
	delivered := seedOrder(t, db, uuid.New(), &staffID, enums.OrderStatusDelivered, day)
	seedOrder(t, db, uuid.New(), &staffID, enums.OrderStatusDelivered, day.AddDate(0, 0, -5))
	seedOrder(t, db, uuid.New(), &otherStaff, enums.OrderStatusPending, day)

	list, err := repo.ListStaffOrders(ctx, staffID, StaffOrderFilter{View: StaffViewActive})
	require.NoError(t, err)
	require.Len(t, list.Orders, 1)
	assert.Equal(t, active.ID, list.Orders[0].ID)

	from := time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)
	list, err = repo.ListStaffOrders(ctx, staffID, StaffOrderFilter{
		View:  StaffViewDelivered,
		Dates: types.DateRange{From: &from, To: &from},
	})
	require.NoError(t, err)
	require.Len(t, list.Orders, 1)
	assert.Equal(t, delivered.ID, list.Orders[0].ID)

	list, err = repo.ListStaffOrders(ctx, staffID, StaffOrderFilter{View: StaffViewDelivered})
	require.NoError(t, err)
	assert.Len(t, list.Orders, 2)
}

func TestListUserOrdersPaginates(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	repo := NewRepository(db)
	userID := uuid.New()
	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		seedOrder(t, db, userID, nil, enums.OrderStatusPending, base.Add(time.Duration(i)*time.Hour))
	}

	first, err := repo.ListUserOrders(ctx, userID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Orders, 2)
	require.NotEmpty(t, first.NextCursor)
	assert.True(t, first.Orders[0].CreatedAt.After(first.Orders[1].CreatedAt))

	second, err := repo.ListUserOrders(ctx, userID, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Orders, 1)
	assert.Empty(t, second.NextCursor)

	_, err = repo.ListUserOrders(ctx, userID, pagination.Params{Cursor: "%%%"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDecrementSellerStockFloorsAtZero(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	repo := NewRepository(db)

	listing := models.SellerProduct{
		ID:       uuid.New(),
		SellerID: uuid.New(),
		Name:     "Banana chips",
		Price:    decimal.NewFromInt(60),
		MRP:      decimal.NewFromInt(70),
		Stock:    3,
	}
	require.NoError(t, db.Create(&listing).Error)

	ok, err := repo.DecrementSellerStock(ctx, listing.ID, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.DecrementSellerStock(ctx, listing.ID, 5)
	require.NoError(t, err)
	assert.True(t, ok)

	var stock int
	require.NoError(t, db.Model(&models.SellerProduct{}).Select("stock").Where("id = ?", listing.ID).Scan(&stock).Error)
	assert.Equal(t, 0, stock)

	ok, err = repo.DecrementSellerStock(ctx, uuid.New(), 1)
	require.NoError(t, err)
	assert.False(t, ok)
}
