package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pennyekart/pennyekart-backend/internal/cart"
	"github.com/pennyekart/pennyekart-backend/internal/checkout/helpers"
	"github.com/pennyekart/pennyekart-backend/internal/orders"
	pkgdb "github.com/pennyekart/pennyekart-backend/pkg/db"
	"github.com/pennyekart/pennyekart-backend/pkg/db/models"
	"github.com/pennyekart/pennyekart-backend/pkg/enums"
	pkgerrors "github.com/pennyekart/pennyekart-backend/pkg/errors"
	"github.com/pennyekart/pennyekart-backend/pkg/logger"
	"github.com/pennyekart/pennyekart-backend/pkg/outbox"
	"github.com/pennyekart/pennyekart-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartReader interface {
	Get(ctx context.Context, userID uuid.UUID) (*cart.Cart, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type checkoutMetrics interface {
	ObserveCheckout(platformOrders, sellerOrders int)
	IncReplay(operation string)
}

// Service places orders from a user's cart.
type Service interface {
	Place(ctx context.Context, userID uuid.UUID, input PlaceInput) (*Result, error)
}

// PlaceInput captures the customer's checkout choices. IdempotencyKey makes
// repeated submissions return the first result.
type PlaceInput struct {
	IdempotencyKey string
	PaymentMethod  string
	CouponCode     string
	UseWallet      bool
}

// Result is the committed checkout group and its orders.
type Result struct {
	CheckoutGroup models.CheckoutGroup `json:"checkout_group"`
	Orders        []models.Order       `json:"orders"`
	Replayed      bool                 `json:"replayed"`
}

type service struct {
	tx          txRunner
	repo        orders.Repository
	carts       cartReader
	outbox      outbox.Emitter
	coupons     CouponResolver
	wallet      WalletBalanceSource
	platformFee decimal.Decimal
	metrics     checkoutMetrics
	logg        *logger.Logger
}

// NewService builds the checkout service. Nil coupon and wallet ports fall
// back to rejecting every coupon and an empty wallet.
func NewService(
	tx txRunner,
	repo orders.Repository,
	carts cartReader,
	publisher outbox.Emitter,
	coupons CouponResolver,
	wallet WalletBalanceSource,
	platformFee decimal.Decimal,
	metrics checkoutMetrics,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if platformFee.IsNegative() {
		return nil, fmt.Errorf("platform fee must not be negative")
	}
	if coupons == nil {
		coupons = RejectingCoupons{}
	}
	if wallet == nil {
		wallet = EmptyWallet{}
	}
	return &service{
		tx:          tx,
		repo:        repo,
		carts:       carts,
		outbox:      publisher,
		coupons:     coupons,
		wallet:      wallet,
		platformFee: platformFee,
		metrics:     metrics,
		logg:        logg,
	}, nil
}

func (s *service) Place(ctx context.Context, userID uuid.UUID, input PlaceInput) (*Result, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}
	key := strings.TrimSpace(input.IdempotencyKey)
	if key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "idempotency key required")
	}
	method, err := helpers.ParsePaymentMethod(input.PaymentMethod)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"user_id": userID.String(), "idempotency_key": key})

	if existing, err := s.replay(ctx, userID, key); err != nil || existing != nil {
		return existing, err
	}

	current, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := helpers.ValidateCartItems(current.Items); err != nil {
		return nil, err
	}

	subtotal := current.TotalPrice.Round(2)
	fee := s.platformFee.Round(2)
	coupon, err := s.coupons.Resolve(ctx, userID, input.CouponCode, subtotal)
	if err != nil {
		return nil, err
	}
	coupon = clamp(coupon, subtotal)
	walletDeduction := decimal.Zero
	if input.UseWallet {
		balance, err := s.wallet.AvailableBalance(ctx, userID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet balance")
		}
		// the wallet covers goods only; the platform fee is always collected
		walletDeduction = clamp(balance, subtotal.Sub(coupon))
	}

	adj := Adjustments{PlatformFee: fee, CouponDiscount: coupon, WalletDeduction: walletDeduction}
	drafts := Split(current.Items, adj)

	group := models.CheckoutGroup{
		UserID:          userID,
		IdempotencyKey:  key,
		CartSubtotal:    subtotal,
		PlatformFee:     fee,
		CouponDiscount:  coupon,
		WalletDeduction: walletDeduction,
		PaymentMethod:   method,
	}
	var placed []models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateCheckoutGroup(ctx, &group); err != nil {
			return err
		}
		placed = buildOrders(group, drafts)
		if err := repo.CreateOrders(ctx, placed); err != nil {
			return err
		}
		return s.emitOrderPlaced(ctx, tx, group, placed)
	})
	if err != nil {
		if pkgdb.IsUniqueViolation(err, "") {
			if existing, rerr := s.replay(ctx, userID, key); rerr != nil || existing != nil {
				return existing, rerr
			}
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "place orders")
	}

	if err := s.carts.Clear(ctx, userID); err != nil {
		s.logg.Error(ctx, "cart clear after checkout failed", err)
	}

	platformCount, sellerCount := 0, 0
	for _, d := range drafts {
		if d.Seller {
			sellerCount++
		} else {
			platformCount++
		}
	}
	if s.metrics != nil {
		s.metrics.ObserveCheckout(platformCount, sellerCount)
	}
	s.logg.Info(s.logg.WithField(ctx, "order_count", len(placed)), "checkout placed")

	return &Result{CheckoutGroup: group, Orders: placed}, nil
}

// replay returns the stored result for a key the user already committed.
func (s *service) replay(ctx context.Context, userID uuid.UUID, key string) (*Result, error) {
	group, err := s.repo.FindCheckoutGroupByKey(ctx, userID, key)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkout group")
	}
	if group == nil {
		return nil, nil
	}
	placed, err := s.repo.FindOrdersByCheckoutGroup(ctx, group.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkout orders")
	}
	if s.metrics != nil {
		s.metrics.IncReplay("checkout")
	}
	s.logg.Info(ctx, "checkout replayed")
	return &Result{CheckoutGroup: *group, Orders: placed, Replayed: true}, nil
}

func (s *service) emitOrderPlaced(ctx context.Context, tx *gorm.DB, group models.CheckoutGroup, placed []models.Order) error {
	summaries := make([]payloads.PlacedOrder, 0, len(placed))
	for _, o := range placed {
		count := 0
		for _, item := range o.Items {
			count += item.Quantity
		}
		summaries = append(summaries, payloads.PlacedOrder{
			OrderID:   o.ID,
			SellerID:  o.SellerID,
			Status:    o.Status,
			ItemCount: count,
			Subtotal:  o.Subtotal,
			Total:     o.Total,
		})
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderPlaced,
		AggregateType: enums.AggregateCheckoutGroup,
		AggregateID:   group.ID,
		Actor:         &outbox.ActorRef{UserID: group.UserID, Role: enums.UserRoleCustomer},
		Data: payloads.OrderPlacedEvent{
			CheckoutGroupID: group.ID,
			UserID:          group.UserID,
			PaymentMethod:   group.PaymentMethod,
			PlatformFee:     group.PlatformFee,
			CouponDiscount:  group.CouponDiscount,
			WalletDeduction: group.WalletDeduction,
			Orders:          summaries,
		},
	})
}

func buildOrders(group models.CheckoutGroup, drafts []DraftOrder) []models.Order {
	groupID := group.ID
	out := make([]models.Order, 0, len(drafts))
	for _, d := range drafts {
		out = append(out, models.Order{
			ID:              uuid.New(),
			CheckoutGroupID: &groupID,
			UserID:          group.UserID,
			SellerID:        d.SellerID,
			Items:           d.Items,
			Subtotal:        d.Subtotal,
			FeeShare:        d.FeeShare,
			CouponShare:     d.CouponShare,
			WalletShare:     d.WalletShare,
			Total:           d.Total,
			Status:          d.Status,
			ShippingAddress: group.PaymentMethod.ShippingLabel(),
			PaymentMethod:   group.PaymentMethod,
		})
	}
	return out
}

// clamp bounds v to [0, limit].
func clamp(v, limit decimal.Decimal) decimal.Decimal {
	if v.IsNegative() || limit.IsNegative() {
		return decimal.Zero
	}
	if v.GreaterThan(limit) {
		return limit.Round(2)
	}
	return v.Round(2)
}
