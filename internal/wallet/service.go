package wallet

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pennyekart/pennyekart-backend/pkg/db/models"
	"github.com/pennyekart/pennyekart-backend/pkg/enums"
	pkgerrors "github.com/pennyekart/pennyekart-backend/pkg/errors"
	"github.com/pennyekart/pennyekart-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// EntryInput describes one ledger entry. IdempotencyKey makes the write
// happen at most once.
type EntryInput struct {
	StaffID        uuid.UUID
	OrderID        *uuid.UUID
	Amount         decimal.Decimal
	Description    string
	IdempotencyKey string
}

// Summary is the wallet as shown on the staff dashboard.
type Summary struct {
	WalletID *uuid.UUID      `json:"wallet_id,omitempty"`
	StaffID  uuid.UUID       `json:"staff_id"`
	Balance  decimal.Decimal `json:"balance"`
}

// TransactionList wraps a page of ledger entries.
type TransactionList struct {
	Transactions []models.WalletTransaction `json:"transactions"`
	NextCursor   string                     `json:"next_cursor,omitempty"`
}

// Service records staff earnings. Balances are always derived from the ledger,
// so debit rows written by other tooling are still netted out.
type Service interface {
	EnsureWallet(ctx context.Context, tx *gorm.DB, staffID uuid.UUID) (*models.DeliveryWallet, error)
	Credit(ctx context.Context, tx *gorm.DB, input EntryInput) (*models.WalletTransaction, error)
	Balance(ctx context.Context, staffID uuid.UUID) (*Summary, error)
	ListTransactions(ctx context.Context, staffID uuid.UUID, params pagination.Params) (*TransactionList, error)
}

type service struct {
	tx   txRunner
	repo Repository
}

func NewService(tx txRunner, repo Repository) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	return &service{tx: tx, repo: repo}, nil
}

// EnsureWallet returns the staff wallet, creating an empty one on first use.
func (s *service) EnsureWallet(ctx context.Context, tx *gorm.DB, staffID uuid.UUID) (*models.DeliveryWallet, error) {
	if staffID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "staff id required")
	}
	repo := s.repo.WithTx(tx)
	w, err := repo.FindWallet(ctx, staffID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}
	if w != nil {
		return w, nil
	}
	if err := repo.CreateWalletIfMissing(ctx, staffID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create wallet")
	}
	w, err = repo.FindWallet(ctx, staffID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}
	if w == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "wallet missing after create")
	}
	return w, nil
}

// Credit appends a credit entry. A nil tx runs the write in its own
// transaction; a repeated key returns the entry already written.
func (s *service) Credit(ctx context.Context, tx *gorm.DB, input EntryInput) (*models.WalletTransaction, error) {
	if err := validateEntry(input); err != nil {
		return nil, err
	}
	if tx == nil {
		var out *models.WalletTransaction
		err := s.tx.WithTx(ctx, func(inner *gorm.DB) error {
			var err error
			out, err = s.Credit(ctx, inner, input)
			return err
		})
		return out, err
	}

	repo := s.repo.WithTx(tx)
	existing, err := repo.FindTransactionByKey(ctx, input.IdempotencyKey)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet transaction")
	}
	if existing != nil {
		if existing.StaffUserID != input.StaffID || existing.Type != enums.WalletTransactionCredit || !existing.Amount.Equal(input.Amount.Round(2)) {
			return nil, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key already used for a different entry")
		}
		return existing, nil
	}

	w, err := s.EnsureWallet(ctx, tx, input.StaffID)
	if err != nil {
		return nil, err
	}
	txn := &models.WalletTransaction{
		WalletID:       w.ID,
		StaffUserID:    input.StaffID,
		OrderID:        input.OrderID,
		Amount:         input.Amount.Round(2),
		Type:           enums.WalletTransactionCredit,
		Description:    input.Description,
		IdempotencyKey: input.IdempotencyKey,
	}
	if err := repo.InsertTransaction(ctx, txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert wallet transaction")
	}
	return txn, nil
}

func (s *service) Balance(ctx context.Context, staffID uuid.UUID) (*Summary, error) {
	w, err := s.repo.FindWallet(ctx, staffID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}
	summary := &Summary{StaffID: staffID, Balance: decimal.Zero}
	if w == nil {
		return summary, nil
	}
	balance, err := s.repo.Balance(ctx, w.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet balance")
	}
	summary.WalletID = &w.ID
	summary.Balance = balance
	return summary, nil
}

func (s *service) ListTransactions(ctx context.Context, staffID uuid.UUID, params pagination.Params) (*TransactionList, error) {
	w, err := s.repo.FindWallet(ctx, staffID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}
	if w == nil {
		return &TransactionList{Transactions: []models.WalletTransaction{}}, nil
	}
	rows, err := s.repo.ListTransactions(ctx, w.ID, params)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wallet transactions")
	}
	page, next := pagination.Page(rows, params.Limit, func(t models.WalletTransaction) pagination.Cursor {
		return pagination.Cursor{CreatedAt: t.CreatedAt, ID: t.ID}
	})
	return &TransactionList{Transactions: page, NextCursor: next}, nil
}

func validateEntry(input EntryInput) error {
	if input.StaffID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "staff id required")
	}
	if !input.Amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if strings.TrimSpace(input.IdempotencyKey) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "idempotency key required")
	}
	return nil
}
