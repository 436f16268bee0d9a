package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pennyekart/pennyekart-backend/internal/cart"
	"github.com/pennyekart/pennyekart-backend/internal/orders"
	pkgdb "github.com/pennyekart/pennyekart-backend/pkg/db"
	"github.com/pennyekart/pennyekart-backend/pkg/db/dbtest"
	"github.com/pennyekart/pennyekart-backend/pkg/db/models"
	"github.com/pennyekart/pennyekart-backend/pkg/enums"
	pkgerrors "github.com/pennyekart/pennyekart-backend/pkg/errors"
	"github.com/pennyekart/pennyekart-backend/pkg/logger"
	"github.com/pennyekart/pennyekart-backend/pkg/outbox"
)

type stubCarts struct {
	items   map[uuid.UUID][]models.CartItem
	cleared int
}

func (s *stubCarts) Get(_ context.Context, userID uuid.UUID) (*cart.Cart, error) {
	items := s.items[userID]
	return &cart.Cart{
		UserID:     userID,
		Items:      items,
		TotalItems: cart.TotalItems(items),
		TotalPrice: cart.TotalPrice(items),
	}, nil
}

func (s *stubCarts) Clear(_ context.Context, userID uuid.UUID) error {
	delete(s.items, userID)
	s.cleared++
	return nil
}

type recordingMetrics struct {
	platform, sellers, replays int
}

func (m *recordingMetrics) ObserveCheckout(platformOrders, sellerOrders int) {
	m.platform += platformOrders
	m.sellers += sellerOrders
}

func (m *recordingMetrics) IncReplay(string) { m.replays++ }

type fixedWallet struct{ balance decimal.Decimal }

func (w fixedWallet) AvailableBalance(context.Context, uuid.UUID) (decimal.Decimal, error) {
	return w.balance, nil
}

type failingEmitter struct{}

func (failingEmitter) Emit(context.Context, *gorm.DB, outbox.DomainEvent) error {
	return errors.New("outbox unavailable")
}

type checkoutFixture struct {
	db      *gorm.DB
	carts   *stubCarts
	metrics *recordingMetrics
	svc     Service
}

func newCheckoutFixture(t *testing.T, emitter outbox.Emitter, wallet WalletBalanceSource) *checkoutFixture {
	t.Helper()
	db := dbtest.Open(t)
	carts := &stubCarts{items: map[uuid.UUID][]models.CartItem{}}
	metrics := &recordingMetrics{}
	if emitter == nil {
		emitter = outbox.NewService(outbox.NewRepository(db), logger.Nop())
	}
	svc, err := NewService(
		pkgdb.Wrap(db),
		orders.NewRepository(db),
		carts,
		emitter,
		nil,
		wallet,
		decimal.NewFromInt(7),
		metrics,
		logger.Nop(),
	)
	require.NoError(t, err)
	return &checkoutFixture{db: db, carts: carts, metrics: metrics, svc: svc}
}

func mixedCart() []models.CartItem {
	sellerID := uuid.New()
	return []models.CartItem{
		{ID: uuid.New(), Name: "Rice", Price: decimal.NewFromInt(50), Quantity: 1, Source: enums.ItemSourceProduct},
		{ID: uuid.New(), Name: "Pickle", Price: decimal.NewFromInt(30), Quantity: 1, Source: enums.ItemSourceSellerProduct, SellerID: &sellerID},
	}
}

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestPlaceSplitsAndPersistsAtomically(t *testing.T) {
	ctx := context.Background()
	fx := newCheckoutFixture(t, nil, nil)
	userID := uuid.New()
	fx.carts.items[userID] = mixedCart()

	result, err := fx.svc.Place(ctx, userID, PlaceInput{IdempotencyKey: "chk-1"})
	require.NoError(t, err)
	require.False(t, result.Replayed)
	require.Len(t, result.Orders, 2)

	platform, seller := result.Orders[0], result.Orders[1]
	assert.True(t, platform.Total.Equal(decimal.RequireFromString("53.5")))
	assert.Equal(t, enums.OrderStatusPending, platform.Status)
	assert.True(t, seller.Total.Equal(decimal.RequireFromString("33.5")))
	assert.Equal(t, enums.OrderStatusSellerConfirmationPending, seller.Status)
	assert.Equal(t, "Cash on Delivery", platform.ShippingAddress)

	assert.Equal(t, int64(1), countRows(t, fx.db, &models.CheckoutGroup{}))
	assert.Equal(t, int64(2), countRows(t, fx.db, &models.Order{}))

	var events []models.OutboxEvent
	require.NoError(t, fx.db.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventOrderPlaced, events[0].EventType)
	assert.Equal(t, result.CheckoutGroup.ID, events[0].AggregateID)

	assert.Equal(t, 1, fx.carts.cleared)
	assert.Equal(t, 1, fx.metrics.platform)
	assert.Equal(t, 1, fx.metrics.sellers)
}

func TestPlaceReplaysSameKey(t *testing.T) {
	ctx := context.Background()
	fx := newCheckoutFixture(t, nil, nil)
	userID := uuid.New()
	fx.carts.items[userID] = mixedCart()

	first, err := fx.svc.Place(ctx, userID, PlaceInput{IdempotencyKey: "chk-replay"})
	require.NoError(t, err)

	// the cart is already cleared, so only the stored result can answer
	second, err := fx.svc.Place(ctx, userID, PlaceInput{IdempotencyKey: "chk-replay"})
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.CheckoutGroup.ID, second.CheckoutGroup.ID)
	assert.Len(t, second.Orders, 2)

	assert.Equal(t, int64(2), countRows(t, fx.db, &models.Order{}))
	assert.Equal(t, 1, fx.metrics.replays)
}

func TestPlaceRollsBackWhenEventFails(t *testing.T) {
	ctx := context.Background()
	fx := newCheckoutFixture(t, failingEmitter{}, nil)
	userID := uuid.New()
	fx.carts.items[userID] = mixedCart()

	_, err := fx.svc.Place(ctx, userID, PlaceInput{IdempotencyKey: "chk-fail"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	assert.Equal(t, int64(0), countRows(t, fx.db, &models.CheckoutGroup{}))
	assert.Equal(t, int64(0), countRows(t, fx.db, &models.Order{}))
	assert.Equal(t, 0, fx.carts.cleared, "cart must survive a failed checkout")
}

func TestPlaceRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	fx := newCheckoutFixture(t, nil, nil)
	userID := uuid.New()

	_, err := fx.svc.Place(ctx, userID, PlaceInput{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "missing key")

	_, err = fx.svc.Place(ctx, userID, PlaceInput{IdempotencyKey: "k"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "empty cart")

	fx.carts.items[userID] = mixedCart()
	_, err = fx.svc.Place(ctx, userID, PlaceInput{IdempotencyKey: "k", CouponCode: "SAVE10"})
	require.Error(t, err)
	assert.Equal(t, "Invalid coupon code", pkgerrors.As(err).Message())

	fx.carts.items[userID][0].ComingSoon = true
	_, err = fx.svc.Place(ctx, userID, PlaceInput{IdempotencyKey: "k"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "coming soon")

	_, err = fx.svc.Place(ctx, userID, PlaceInput{IdempotencyKey: "k", PaymentMethod: "card"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "payment method")

	assert.Equal(t, int64(0), countRows(t, fx.db, &models.Order{}))
}

func TestPlaceAppliesWalletUpToGoodsSubtotal(t *testing.T) {
	ctx := context.Background()
	fx := newCheckoutFixture(t, nil, fixedWallet{balance: decimal.NewFromInt(500)})
	userID := uuid.New()
	fx.carts.items[userID] = mixedCart()

	result, err := fx.svc.Place(ctx, userID, PlaceInput{IdempotencyKey: "chk-wallet", UseWallet: true, PaymentMethod: "upi"})
	require.NoError(t, err)

	assert.True(t, result.CheckoutGroup.WalletDeduction.Equal(decimal.NewFromInt(80)), "got %s", result.CheckoutGroup.WalletDeduction)
	total := decimal.Zero
	for _, o := range result.Orders {
		total = total.Add(o.Total)
		assert.Equal(t, enums.PaymentMethodUPI, o.PaymentMethod)
		assert.Equal(t, "upi", o.ShippingAddress)
	}
	assert.True(t, total.Equal(decimal.NewFromInt(7)), "only the fee is left to pay, got %s", total)
}

func TestPlaceOrderTotalsMatchAmountDue(t *testing.T) {
	ctx := context.Background()
	fx := newCheckoutFixture(t, nil, fixedWallet{balance: decimal.NewFromInt(50)})
	userID := uuid.New()
	fx.carts.items[userID] = mixedCart()

	result, err := fx.svc.Place(ctx, userID, PlaceInput{IdempotencyKey: "chk-partial", UseWallet: true})
	require.NoError(t, err)

	group := result.CheckoutGroup
	assert.True(t, group.WalletDeduction.Equal(decimal.NewFromInt(50)))
	due := group.CartSubtotal.Add(group.PlatformFee).Sub(group.CouponDiscount).Sub(group.WalletDeduction)
	total := decimal.Zero
	for _, o := range result.Orders {
		total = total.Add(o.Total)
	}
	assert.True(t, total.Equal(due), "orders total %s, amount due %s", total, due)
	assert.True(t, total.Equal(decimal.NewFromInt(37)), "got %s", total)
}
