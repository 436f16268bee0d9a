package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pennyekart/pennyekart-backend/pkg/enums"
)

// OrderItem is a cart line frozen at checkout time.
type OrderItem struct {
	ID       uuid.UUID        `json:"id"`
	Name     string           `json:"name"`
	Price    decimal.Decimal  `json:"price"`
	MRP      decimal.Decimal  `json:"mrp"`
	Quantity int              `json:"quantity"`
	Image    string           `json:"image,omitempty"`
	Source   enums.ItemSource `json:"source"`
	SellerID *uuid.UUID       `json:"seller_id,omitempty"`
}

// CheckoutGroup ties together the orders produced by one checkout submission.
type CheckoutGroup struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID          uuid.UUID           `gorm:"column:user_id;type:uuid;not null" json:"user_id"`
	IdempotencyKey  string              `gorm:"column:idempotency_key;not null" json:"idempotency_key"`
	CartSubtotal    decimal.Decimal     `gorm:"column:cart_subtotal;type:numeric(12,2);not null" json:"cart_subtotal"`
	PlatformFee     decimal.Decimal     `gorm:"column:platform_fee;type:numeric(12,2);not null" json:"platform_fee"`
	CouponDiscount  decimal.Decimal     `gorm:"column:coupon_discount;type:numeric(12,2);not null;default:0" json:"coupon_discount"`
	WalletDeduction decimal.Decimal     `gorm:"column:wallet_deduction;type:numeric(12,2);not null;default:0" json:"wallet_deduction"`
	PaymentMethod   enums.PaymentMethod `gorm:"column:payment_method;type:text;not null" json:"payment_method"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (CheckoutGroup) TableName() string { return "checkout_groups" }

func (g *CheckoutGroup) BeforeCreate(*gorm.DB) error {
	ensureID(&g.ID)
	return nil
}

// Order is the unit a single party fulfills: the platform or one seller.
type Order struct {
	ID                      uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CheckoutGroupID         *uuid.UUID          `gorm:"column:checkout_group_id;type:uuid" json:"checkout_group_id"`
	UserID                  uuid.UUID           `gorm:"column:user_id;type:uuid;not null" json:"user_id"`
	SellerID                *uuid.UUID          `gorm:"column:seller_id;type:uuid" json:"seller_id"`
	Items                   []OrderItem         `gorm:"column:items;type:jsonb;serializer:json;not null" json:"items"`
	Subtotal                decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null" json:"subtotal"`
	FeeShare                decimal.Decimal     `gorm:"column:fee_share;type:numeric(12,2);not null;default:0" json:"fee_share"`
	CouponShare             decimal.Decimal     `gorm:"column:coupon_share;type:numeric(12,2);not null;default:0" json:"coupon_share"`
	WalletShare             decimal.Decimal     `gorm:"column:wallet_share;type:numeric(12,2);not null;default:0" json:"wallet_share"`
	Total                   decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null" json:"total"`
	Status                  enums.OrderStatus   `gorm:"column:status;type:text;not null" json:"status"`
	ShippingAddress         string              `gorm:"column:shipping_address;not null;default:''" json:"shipping_address"`
	PaymentMethod           enums.PaymentMethod `gorm:"column:payment_method;type:text;not null;default:'cod'" json:"payment_method"`
	AssignedDeliveryStaffID *uuid.UUID          `gorm:"column:assigned_delivery_staff_id;type:uuid" json:"assigned_delivery_staff_id"`
	DeliveredAt             *time.Time          `gorm:"column:delivered_at" json:"delivered_at"`
	CreatedAt               time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt               time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Order) TableName() string { return "orders" }

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// OrderStatusTransition is the audit and idempotency record of one status change.
type OrderStatusTransition struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID        uuid.UUID         `gorm:"column:order_id;type:uuid;not null" json:"order_id"`
	FromStatus     enums.OrderStatus `gorm:"column:from_status;type:text;not null" json:"from_status"`
	ToStatus       enums.OrderStatus `gorm:"column:to_status;type:text;not null" json:"to_status"`
	ActorID        uuid.UUID         `gorm:"column:actor_id;type:uuid;not null" json:"actor_id"`
	IdempotencyKey string            `gorm:"column:idempotency_key;not null" json:"idempotency_key"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (OrderStatusTransition) TableName() string { return "order_status_transitions" }

func (t *OrderStatusTransition) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
