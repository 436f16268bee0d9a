package checkout

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/pennyekart/pennyekart-backend/pkg/errors"
)

// CouponResolver turns a coupon code into a discount for the given subtotal.
type CouponResolver interface {
	Resolve(ctx context.Context, userID uuid.UUID, code string, subtotal decimal.Decimal) (decimal.Decimal, error)
}

// WalletBalanceSource reports the customer balance available for checkout.
type WalletBalanceSource interface {
	AvailableBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
}

// RejectingCoupons accepts no coupon codes.
type RejectingCoupons struct{}

func (RejectingCoupons) Resolve(_ context.Context, _ uuid.UUID, code string, _ decimal.Decimal) (decimal.Decimal, error) {
	if strings.TrimSpace(code) == "" {
		return decimal.Zero, nil
	}
	return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "Invalid coupon code")
}

// EmptyWallet reports a zero balance for every customer.
type EmptyWallet struct{}

func (EmptyWallet) AvailableBalance(context.Context, uuid.UUID) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
