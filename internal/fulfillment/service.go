package fulfillment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pennyekart/pennyekart-backend/internal/orders"
	"github.com/pennyekart/pennyekart-backend/internal/wallet"
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

type walletCrediter interface {
	Credit(ctx context.Context, tx *gorm.DB, input wallet.EntryInput) (*models.WalletTransaction, error)
}

type profileFinder interface {
	FindByID(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
}

type transitionMetrics interface {
	IncTransition(toStatus string)
	IncReplay(operation string)
}

// Actor is the authenticated caller driving a transition.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

func (a Actor) ref() *outbox.ActorRef {
	return &outbox.ActorRef{UserID: a.UserID, Role: a.Role}
}

// TransitionResult is the committed status change and the order after it.
type TransitionResult struct {
	Order      *models.Order                `json:"order"`
	Transition models.OrderStatusTransition `json:"transition"`
	Replayed   bool                         `json:"replayed"`
}

// Service moves orders through seller decision and delivery.
type Service interface {
	Advance(ctx context.Context, actor Actor, orderID uuid.UUID, idempotencyKey string) (*TransitionResult, error)
	ConfirmSellerOrder(ctx context.Context, sellerID, orderID uuid.UUID) (*TransitionResult, error)
	DeclineSellerOrder(ctx context.Context, sellerID, orderID uuid.UUID, reason string) (*TransitionResult, error)
	AssignDeliveryStaff(ctx context.Context, actor Actor, orderID, staffID uuid.UUID) (*models.Order, error)
	ListStaffOrders(ctx context.Context, staffID uuid.UUID, filter orders.StaffOrderFilter) (*orders.OrderList, error)
}

type service struct {
	tx             txRunner
	repo           orders.Repository
	wallet         walletCrediter
	profiles       profileFinder
	outbox         outbox.Emitter
	deliveryCredit decimal.Decimal
	metrics        transitionMetrics
	logg           *logger.Logger
	now            func() time.Time
}

func NewService(
	tx txRunner,
	repo orders.Repository,
	walletSvc walletCrediter,
	profiles profileFinder,
	publisher outbox.Emitter,
	deliveryCredit decimal.Decimal,
	metrics transitionMetrics,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if walletSvc == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if profiles == nil {
		return nil, fmt.Errorf("profile finder required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if !deliveryCredit.IsPositive() {
		return nil, fmt.Errorf("delivery credit must be positive")
	}
	return &service{
		tx:             tx,
		repo:           repo,
		wallet:         walletSvc,
		profiles:       profiles,
		outbox:         publisher,
		deliveryCredit: deliveryCredit.Round(2),
		metrics:        metrics,
		logg:           logg,
		now:            time.Now,
	}, nil
}

// TransitionKey is the key used when the client sends none.
func TransitionKey(orderID uuid.UUID, to enums.OrderStatus) string {
	return fmt.Sprintf("order:%s:%s", orderID, to)
}

// WalletKey identifies the single delivery credit an order can produce.
func WalletKey(orderID uuid.UUID) string {
	return "delivery:" + orderID.String()
}

// Advance moves the order one step along the delivery flow. Entering
// delivered also credits the staff wallet and decrements seller stock, all
// in the same transaction as the status change.
func (s *service) Advance(ctx context.Context, actor Actor, orderID uuid.UUID, idempotencyKey string) (*TransitionResult, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}
	clientKey := strings.TrimSpace(idempotencyKey)
	ctx = s.logg.WithField(s.logg.WithOrderID(ctx, orderID.String()), "staff_id", actor.UserID.String())

	var result *TransitionResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrder(ctx, orderID)
		if err != nil {
			return orders.MapLoadError(err, "load order")
		}
		if !canAdvance(actor, order) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order is not assigned to you")
		}
		if clientKey != "" {
			replayed, err := replayTransition(ctx, repo, order, clientKey)
			if err != nil || replayed != nil {
				result = replayed
				return err
			}
		}

		next, ok := NextStatus(order.Status)
		if !ok {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "order in status %s has no further transition", order.Status).
				WithDetails(map[string]any{"status": order.Status})
		}
		key := clientKey
		if key == "" {
			key = TransitionKey(order.ID, next)
		}

		from := order.Status
		at := s.now().UTC()
		updates := map[string]any{"updated_at": at}
		if next == enums.OrderStatusDelivered {
			if order.AssignedDeliveryStaffID == nil {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "order has no delivery staff assigned")
			}
			updates["delivered_at"] = at
		}
		moved, err := repo.CompareAndSetStatus(ctx, order.ID, from, next, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
		}

		transition := models.OrderStatusTransition{
			OrderID:        order.ID,
			FromStatus:     from,
			ToStatus:       next,
			ActorID:        actor.UserID,
			IdempotencyKey: key,
		}
		if err := repo.CreateTransition(ctx, &transition); err != nil {
			return err
		}
		order.Status = next
		order.UpdatedAt = at

		if next == enums.OrderStatusDelivered {
			order.DeliveredAt = &at
			if err := s.completeDelivery(ctx, tx, repo, actor, order, at); err != nil {
				return err
			}
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusAdvanced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor.ref(),
			OccurredAt:    at,
			Data: payloads.OrderStatusAdvancedEvent{
				OrderID:    order.ID,
				FromStatus: from,
				ToStatus:   next,
				StaffID:    actor.UserID,
				AdvancedAt: at,
			},
		}); err != nil {
			return err
		}
		result = &TransitionResult{Order: order, Transition: transition}
		return nil
	})
	if err != nil {
		if pkgdb.IsUniqueViolation(err, "") {
			return s.afterConflict(ctx, orderID, clientKey)
		}
		return nil, wrapTxError(err, "advance order")
	}

	if result.Replayed {
		s.incReplay("advance")
		s.logg.Info(ctx, "order transition replayed")
		return result, nil
	}
	s.incTransition(result.Transition.ToStatus)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"from_status": result.Transition.FromStatus.String(),
		"to_status":   result.Transition.ToStatus.String(),
	}), "order advanced")
	return result, nil
}

// completeDelivery applies the delivered side effects inside tx.
func (s *service) completeDelivery(ctx context.Context, tx *gorm.DB, repo orders.Repository, actor Actor, order *models.Order, at time.Time) error {
	staffID := *order.AssignedDeliveryStaffID
	orderID := order.ID
	walletKey := WalletKey(order.ID)
	if _, err := s.wallet.Credit(ctx, tx, wallet.EntryInput{
		StaffID:        staffID,
		OrderID:        &orderID,
		Amount:         s.deliveryCredit,
		Description:    "Delivery fee for order " + shortID(order.ID),
		IdempotencyKey: walletKey,
	}); err != nil {
		return err
	}

	var sellerLines, platformLines []payloads.StockLine
	for _, item := range order.Items {
		if item.ID == uuid.Nil || item.Quantity <= 0 {
			continue
		}
		line := payloads.StockLine{ProductID: item.ID, Quantity: item.Quantity}
		if !item.Source.IsSeller() {
			platformLines = append(platformLines, line)
			continue
		}
		found, err := repo.DecrementSellerStock(ctx, item.ID, item.Quantity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement seller stock")
		}
		if found {
			sellerLines = append(sellerLines, line)
		} else {
			platformLines = append(platformLines, line)
		}
	}

	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderDelivered,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actor.ref(),
		OccurredAt:    at,
		Data: payloads.OrderDeliveredEvent{
			OrderID:       order.ID,
			UserID:        order.UserID,
			SellerID:      order.SellerID,
			StaffID:       staffID,
			OrderTotal:    order.Total,
			StaffCredit:   s.deliveryCredit,
			SellerLines:   sellerLines,
			PlatformLines: platformLines,
			DeliveredAt:   at,
			WalletTxnKey:  walletKey,
		},
	})
}

// ConfirmSellerOrder releases a seller order into the delivery flow.
func (s *service) ConfirmSellerOrder(ctx context.Context, sellerID, orderID uuid.UUID) (*TransitionResult, error) {
	return s.decide(ctx, sellerID, orderID, enums.OrderStatusPending, "")
}

// DeclineSellerOrder ends a seller order before fulfillment.
func (s *service) DeclineSellerOrder(ctx context.Context, sellerID, orderID uuid.UUID, reason string) (*TransitionResult, error) {
	return s.decide(ctx, sellerID, orderID, enums.OrderStatusSellerDeclined, strings.TrimSpace(reason))
}

func (s *service) decide(ctx context.Context, sellerID, orderID uuid.UUID, to enums.OrderStatus, reason string) (*TransitionResult, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "seller required")
	}
	ctx = s.logg.WithField(s.logg.WithOrderID(ctx, orderID.String()), "seller_id", sellerID.String())
	key := TransitionKey(orderID, to)

	var result *TransitionResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrder(ctx, orderID)
		if err != nil {
			return orders.MapLoadError(err, "load order")
		}
		if order.SellerID == nil || *order.SellerID != sellerID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if order.Status == to {
			replayed, err := replayTransition(ctx, repo, order, key)
			if err != nil || replayed != nil {
				result = replayed
				return err
			}
		}
		if order.Status != enums.OrderStatusSellerConfirmationPending {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "order in status %s is not awaiting seller confirmation", order.Status)
		}

		at := s.now().UTC()
		moved, err := repo.CompareAndSetStatus(ctx, order.ID, order.Status, to, map[string]any{"updated_at": at})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
		}
		transition := models.OrderStatusTransition{
			OrderID:        order.ID,
			FromStatus:     order.Status,
			ToStatus:       to,
			ActorID:        sellerID,
			IdempotencyKey: key,
		}
		if err := repo.CreateTransition(ctx, &transition); err != nil {
			return err
		}
		order.Status = to
		order.UpdatedAt = at

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSellerOrderDecided,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: sellerID, Role: enums.UserRoleSeller},
			OccurredAt:    at,
			Data: payloads.SellerOrderDecidedEvent{
				OrderID:  order.ID,
				SellerID: sellerID,
				Status:   to,
				Reason:   reason,
			},
		}); err != nil {
			return err
		}
		result = &TransitionResult{Order: order, Transition: transition}
		return nil
	})
	if err != nil {
		if pkgdb.IsUniqueViolation(err, "") {
			return s.afterConflict(ctx, orderID, key)
		}
		return nil, wrapTxError(err, "record seller decision")
	}
	if result.Replayed {
		s.incReplay("seller_decision")
		return result, nil
	}
	s.incTransition(to)
	s.logg.Info(s.logg.WithField(ctx, "to_status", to.String()), "seller order decided")
	return result, nil
}

// AssignDeliveryStaff hands an open order to an approved delivery staff member.
func (s *service) AssignDeliveryStaff(ctx context.Context, actor Actor, orderID, staffID uuid.UUID) (*models.Order, error) {
	if actor.Role != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	profile, err := s.profiles.FindByID(ctx, staffID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load staff profile")
	}
	if profile == nil || profile.Role != enums.UserRoleDeliveryStaff || !profile.IsApproved {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "staff must be an approved delivery staff member").
			WithDetails(map[string]any{"staff_id": staffID.String()})
	}

	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		order, err = repo.FindOrder(ctx, orderID)
		if err != nil {
			return orders.MapLoadError(err, "load order")
		}
		if order.Status.IsTerminal() {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "order in status %s can no longer be assigned", order.Status)
		}
		if err := repo.AssignDeliveryStaff(ctx, order.ID, staffID); err != nil {
			return orders.MapLoadError(err, "assign delivery staff")
		}
		order.AssignedDeliveryStaffID = &staffID
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDeliveryStaffAssigned,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor.ref(),
			Data:          payloads.DeliveryStaffAssignedEvent{OrderID: order.ID, StaffID: staffID},
		})
	})
	if err != nil {
		return nil, wrapTxError(err, "assign delivery staff")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"order_id": orderID.String(), "staff_id": staffID.String()}), "delivery staff assigned")
	return order, nil
}

func (s *service) ListStaffOrders(ctx context.Context, staffID uuid.UUID, filter orders.StaffOrderFilter) (*orders.OrderList, error) {
	if staffID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}
	list, err := s.repo.ListStaffOrders(ctx, staffID, filter)
	if err != nil {
		return nil, orders.MapLoadError(err, "list staff orders")
	}
	return list, nil
}

// afterConflict resolves a unique-key collision raised by a concurrent writer.
func (s *service) afterConflict(ctx context.Context, orderID uuid.UUID, key string) (*TransitionResult, error) {
	if key != "" {
		order, err := s.repo.FindOrder(ctx, orderID)
		if err != nil {
			return nil, orders.MapLoadError(err, "load order")
		}
		replayed, err := replayTransition(ctx, s.repo, order, key)
		if err != nil {
			return nil, err
		}
		if replayed != nil {
			s.incReplay("advance")
			return replayed, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
}

// replayTransition returns the stored result for key, or nil when key is unused.
func replayTransition(ctx context.Context, repo orders.Repository, order *models.Order, key string) (*TransitionResult, error) {
	existing, err := repo.FindTransitionByKey(ctx, key)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transition")
	}
	if existing == nil {
		return nil, nil
	}
	if existing.OrderID != order.ID {
		return nil, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key already used for another order")
	}
	return &TransitionResult{Order: order, Transition: *existing, Replayed: true}, nil
}

func canAdvance(actor Actor, order *models.Order) bool {
	if actor.Role == enums.UserRoleAdmin {
		return true
	}
	return actor.Role == enums.UserRoleDeliveryStaff &&
		order.AssignedDeliveryStaffID != nil &&
		*order.AssignedDeliveryStaffID == actor.UserID
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}

func wrapTxError(err error, action string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}

func (s *service) incTransition(to enums.OrderStatus) {
	if s.metrics != nil {
		s.metrics.IncTransition(to.String())
	}
}

func (s *service) incReplay(op string) {
	if s.metrics != nil {
		s.metrics.IncReplay(op)
	}
}
