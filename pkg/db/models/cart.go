package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pennyekart/pennyekart-backend/pkg/enums"
)

// CartItem is one line of a shopper's cart, denormalized for display.
type CartItem struct {
	ID         uuid.UUID        `json:"id"`
	Name       string           `json:"name"`
	Price      decimal.Decimal  `json:"price"`
	MRP        decimal.Decimal  `json:"mrp"`
	Image      string           `json:"image,omitempty"`
	Quantity   int              `json:"quantity"`
	Source     enums.ItemSource `json:"source"`
	SellerID   *uuid.UUID       `json:"seller_id,omitempty"`
	ComingSoon bool             `json:"coming_soon,omitempty"`
}

// LineTotal is price times quantity.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// CartRecord persists a cart between sessions.
type CartRecord struct {
	UserID    uuid.UUID  `gorm:"column:user_id;type:uuid;primaryKey"`
	Items     []CartItem `gorm:"column:items;type:jsonb;serializer:json;not null"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (CartRecord) TableName() string { return "carts" }
