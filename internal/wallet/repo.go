package wallet

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pennyekart/pennyekart-backend/pkg/db/models"
	"github.com/pennyekart/pennyekart-backend/pkg/enums"
	"github.com/pennyekart/pennyekart-backend/pkg/pagination"
)

// Repository manages delivery staff wallets and their append-only ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindWallet(ctx context.Context, staffID uuid.UUID) (*models.DeliveryWallet, error)
	CreateWalletIfMissing(ctx context.Context, staffID uuid.UUID) error
	InsertTransaction(ctx context.Context, txn *models.WalletTransaction) error
	FindTransactionByKey(ctx context.Context, key string) (*models.WalletTransaction, error)
	Balance(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, error)
	ListTransactions(ctx context.Context, walletID uuid.UUID, params pagination.Params) ([]models.WalletTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a wallet repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindWallet returns nil when the staff member has no wallet yet.
func (r *repository) FindWallet(ctx context.Context, staffID uuid.UUID) (*models.DeliveryWallet, error) {
	var w models.DeliveryWallet
	err := r.db.WithContext(ctx).Where("staff_user_id = ?", staffID).First(&w).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &w, nil
}

func (r *repository) CreateWalletIfMissing(ctx context.Context, staffID uuid.UUID) error {
	w := models.DeliveryWallet{StaffUserID: staffID}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "staff_user_id"}}, DoNothing: true}).
		Create(&w).Error
}

func (r *repository) InsertTransaction(ctx context.Context, txn *models.WalletTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

// FindTransactionByKey returns nil when no entry carries key.
func (r *repository) FindTransactionByKey(ctx context.Context, key string) (*models.WalletTransaction, error) {
	var txn models.WalletTransaction
	err := r.db.WithContext(ctx).Where("idempotency_key = ?", key).First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

// Balance sums the ledger: credits minus debits.
func (r *repository) Balance(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, error) {
	var row struct {
		Balance decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&models.WalletTransaction{}).
		Select("COALESCE(SUM(CASE WHEN type = ? THEN -amount ELSE amount END), 0) AS balance", enums.WalletTransactionDebit).
		Where("wallet_id = ?", walletID).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	return row.Balance, nil
}

func (r *repository) ListTransactions(ctx context.Context, walletID uuid.UUID, params pagination.Params) ([]models.WalletTransaction, error) {
	query, err := pagination.Keyset(r.db.WithContext(ctx).Where("wallet_id = ?", walletID), params)
	if err != nil {
		return nil, err
	}
	var rows []models.WalletTransaction
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
