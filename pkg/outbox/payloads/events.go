package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pennyekart/pennyekart-backend/pkg/enums"
)

// OrderPlacedEvent describes one checkout and the orders it was split into.
type OrderPlacedEvent struct {
	CheckoutGroupID uuid.UUID           `json:"checkout_group_id"`
	UserID          uuid.UUID           `json:"user_id"`
	PaymentMethod   enums.PaymentMethod `json:"payment_method"`
	PlatformFee     decimal.Decimal     `json:"platform_fee"`
	CouponDiscount  decimal.Decimal     `json:"coupon_discount"`
	WalletDeduction decimal.Decimal     `json:"wallet_deduction"`
	Orders          []PlacedOrder       `json:"orders"`
}

// PlacedOrder is the per-party slice of a checkout.
type PlacedOrder struct {
	OrderID   uuid.UUID         `json:"order_id"`
	SellerID  *uuid.UUID        `json:"seller_id,omitempty"`
	Status    enums.OrderStatus `json:"status"`
	ItemCount int               `json:"item_count"`
	Subtotal  decimal.Decimal   `json:"subtotal"`
	Total     decimal.Decimal   `json:"total"`
}

// OrderStatusAdvancedEvent is emitted for every committed fulfillment step.
type OrderStatusAdvancedEvent struct {
	OrderID    uuid.UUID         `json:"order_id"`
	FromStatus enums.OrderStatus `json:"from_status"`
	ToStatus   enums.OrderStatus `json:"to_status"`
	StaffID    uuid.UUID         `json:"staff_id"`
	AdvancedAt time.Time         `json:"advanced_at"`
}

// OrderDeliveredEvent carries the settlement facts of a delivery. Platform
// lines are listed so a downstream consumer can deplete warehouse batches.
type OrderDeliveredEvent struct {
	OrderID       uuid.UUID       `json:"order_id"`
	UserID        uuid.UUID       `json:"user_id"`
	SellerID      *uuid.UUID      `json:"seller_id,omitempty"`
	StaffID       uuid.UUID       `json:"staff_id"`
	OrderTotal    decimal.Decimal `json:"order_total"`
	StaffCredit   decimal.Decimal `json:"staff_credit"`
	SellerLines   []StockLine     `json:"seller_lines,omitempty"`
	PlatformLines []StockLine     `json:"platform_lines,omitempty"`
	DeliveredAt   time.Time       `json:"delivered_at"`
	WalletTxnKey  string          `json:"wallet_txn_key"`
}

// StockLine is a product and the quantity that left stock.
type StockLine struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// SellerOrderDecidedEvent records a seller confirming or declining an order.
type SellerOrderDecidedEvent struct {
	OrderID  uuid.UUID         `json:"order_id"`
	SellerID uuid.UUID         `json:"seller_id"`
	Status   enums.OrderStatus `json:"status"`
	Reason   string            `json:"reason,omitempty"`
}

// DeliveryStaffAssignedEvent records an admin handing an order to a rider.
type DeliveryStaffAssignedEvent struct {
	OrderID uuid.UUID `json:"order_id"`
	StaffID uuid.UUID `json:"staff_id"`
}

// StockPurchasedEvent summarizes one recorded purchase.
type StockPurchasedEvent struct {
	PurchaseNumber string      `json:"purchase_number"`
	GodownIDs      []uuid.UUID `json:"godown_ids"`
	BatchIDs       []uuid.UUID `json:"batch_ids"`
	Lines          []StockLine `json:"lines"`
}

// StockLowDetectedEvent flags a product at or under its reorder level.
type StockLowDetectedEvent struct {
	ProductID     uuid.UUID         `json:"product_id"`
	Name          string            `json:"name"`
	TotalQuantity int               `json:"total_quantity"`
	ReorderLevel  int               `json:"reorder_level"`
	Status        enums.StockStatus `json:"status"`
	DetectedAt    time.Time         `json:"detected_at"`
}
