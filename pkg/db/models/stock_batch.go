package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StockBatch is one purchase of a product into a godown. Sales never mutate it.
type StockBatch struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	GodownID       uuid.UUID       `gorm:"column:godown_id;type:uuid;not null" json:"godown_id"`
	ProductID      uuid.UUID       `gorm:"column:product_id;type:uuid;not null" json:"product_id"`
	Quantity       int             `gorm:"column:quantity;not null" json:"quantity"`
	PurchasePrice  decimal.Decimal `gorm:"column:purchase_price;type:numeric(12,2);not null;default:0" json:"purchase_price"`
	BatchNumber    *string         `gorm:"column:batch_number" json:"batch_number"`
	PurchaseNumber *string         `gorm:"column:purchase_number" json:"purchase_number"`
	ExpiryDate     *time.Time      `gorm:"column:expiry_date" json:"expiry_date"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (StockBatch) TableName() string { return "godown_stock" }

func (b *StockBatch) BeforeCreate(*gorm.DB) error {
	ensureID(&b.ID)
	return nil
}

// Valuation is quantity times purchase price.
func (b StockBatch) Valuation() decimal.Decimal {
	return b.PurchasePrice.Mul(decimal.NewFromInt(int64(b.Quantity)))
}
