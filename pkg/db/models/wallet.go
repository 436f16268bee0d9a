package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pennyekart/pennyekart-backend/pkg/enums"
)

// DeliveryWallet identifies a staff member's ledger. The balance is never
// stored; it is the sum of the wallet's transactions.
type DeliveryWallet struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	StaffUserID uuid.UUID `gorm:"column:staff_user_id;type:uuid;not null;uniqueIndex" json:"staff_user_id"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (DeliveryWallet) TableName() string { return "delivery_staff_wallets" }

func (w *DeliveryWallet) BeforeCreate(*gorm.DB) error {
	ensureID(&w.ID)
	return nil
}

// WalletTransaction is an append-only ledger entry.
type WalletTransaction struct {
	ID             uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	WalletID       uuid.UUID                   `gorm:"column:wallet_id;type:uuid;not null" json:"wallet_id"`
	StaffUserID    uuid.UUID                   `gorm:"column:staff_user_id;type:uuid;not null" json:"staff_user_id"`
	OrderID        *uuid.UUID                  `gorm:"column:order_id;type:uuid" json:"order_id"`
	Amount         decimal.Decimal             `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	Type           enums.WalletTransactionType `gorm:"column:type;type:text;not null" json:"type"`
	Description    string                      `gorm:"column:description;not null;default:''" json:"description"`
	IdempotencyKey string                      `gorm:"column:idempotency_key;not null" json:"idempotency_key"`
	CreatedAt      time.Time                   `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (WalletTransaction) TableName() string { return "delivery_staff_wallet_transactions" }

func (t *WalletTransaction) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

// Signed returns the amount with the ledger direction applied.
func (t WalletTransaction) Signed() decimal.Decimal {
	if t.Type == enums.WalletTransactionDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}
