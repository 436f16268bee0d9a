package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a platform-owned catalog entry stocked through godown batches.
type Product struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name         string          `gorm:"column:name;not null" json:"name"`
	Description  *string         `gorm:"column:description" json:"description"`
	Price        decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	MRP          decimal.Decimal `gorm:"column:mrp;type:numeric(12,2);not null" json:"mrp"`
	DiscountRate decimal.Decimal `gorm:"column:discount_rate;type:numeric(5,2);not null;default:0" json:"discount_rate"`
	Category     *string         `gorm:"column:category" json:"category"`
	Section      *string         `gorm:"column:section" json:"section"`
	ImageURL     *string         `gorm:"column:image_url" json:"image_url"`
	IsActive     bool            `gorm:"column:is_active;not null;default:true" json:"is_active"`
	Stock        int             `gorm:"column:stock;not null;default:0" json:"stock"`
	ComingSoon   bool            `gorm:"column:coming_soon;not null;default:false" json:"coming_soon"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Product) TableName() string { return "products" }

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// SellerProduct is inventory owned by a third-party seller and parked in an area godown.
type SellerProduct struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SellerID     uuid.UUID       `gorm:"column:seller_id;type:uuid;not null" json:"seller_id"`
	Name         string          `gorm:"column:name;not null" json:"name"`
	Description  *string         `gorm:"column:description" json:"description"`
	Price        decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	MRP          decimal.Decimal `gorm:"column:mrp;type:numeric(12,2);not null" json:"mrp"`
	DiscountRate decimal.Decimal `gorm:"column:discount_rate;type:numeric(5,2);not null;default:0" json:"discount_rate"`
	Category     *string         `gorm:"column:category" json:"category"`
	ImageURL     *string         `gorm:"column:image_url" json:"image_url"`
	Stock        int             `gorm:"column:stock;not null;default:0" json:"stock"`
	AreaGodownID *uuid.UUID      `gorm:"column:area_godown_id;type:uuid" json:"area_godown_id"`
	IsActive     bool            `gorm:"column:is_active;not null;default:true" json:"is_active"`
	IsApproved   bool            `gorm:"column:is_approved;not null;default:false" json:"is_approved"`
	ComingSoon   bool            `gorm:"column:coming_soon;not null;default:false" json:"coming_soon"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (SellerProduct) TableName() string { return "seller_products" }

func (p *SellerProduct) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
