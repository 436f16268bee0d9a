package checkout

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pennyekart/pennyekart-backend/internal/checkout/helpers"
	"github.com/pennyekart/pennyekart-backend/pkg/db/models"
	"github.com/pennyekart/pennyekart-backend/pkg/enums"
)

// Adjustments are the checkout-level amounts shared across the split orders.
type Adjustments struct {
	PlatformFee     decimal.Decimal
	CouponDiscount  decimal.Decimal
	WalletDeduction decimal.Decimal
}

// DraftOrder is one order of a split before it is persisted.
type DraftOrder struct {
	SellerID    *uuid.UUID
	Seller      bool
	Items       []models.OrderItem
	Subtotal    decimal.Decimal
	FeeShare    decimal.Decimal
	CouponShare decimal.Decimal
	WalletShare decimal.Decimal
	Total       decimal.Decimal
	Status      enums.OrderStatus
}

// Split turns a cart into one platform order plus one order per seller.
//
// Coupon and wallet amounts are shared in proportion to each order's subtotal.
// When both party types are present the platform order carries half the fee
// and the sellers share the other half evenly; otherwise the present party
// type absorbs the whole fee. Checkout caps coupon plus wallet at the goods
// subtotal, so the fee is never offset; a net below zero is floored.
func Split(items []models.CartItem, adj Adjustments) []DraftOrder {
	groups := helpers.GroupCartItemsByParty(items)
	if len(groups) == 0 {
		return []DraftOrder{}
	}

	fee := adj.PlatformFee.Round(2)
	feeShares := feeShares(groups, fee)

	weights := make([]decimal.Decimal, len(groups))
	for i, g := range groups {
		weights[i] = g.Subtotal
	}
	couponShares := helpers.Distribute(adj.CouponDiscount.Round(2), weights)
	walletShares := helpers.Distribute(adj.WalletDeduction.Round(2), weights)

	drafts := make([]DraftOrder, 0, len(groups))
	for i, g := range groups {
		net := g.Subtotal.Sub(couponShares[i]).Sub(walletShares[i])
		if net.IsNegative() {
			net = decimal.Zero
		}
		status := enums.OrderStatusPending
		if g.Seller {
			status = enums.OrderStatusSellerConfirmationPending
		}
		drafts = append(drafts, DraftOrder{
			SellerID:    g.SellerID,
			Seller:      g.Seller,
			Items:       toOrderItems(g.Items),
			Subtotal:    g.Subtotal.Round(2),
			FeeShare:    feeShares[i],
			CouponShare: couponShares[i],
			WalletShare: walletShares[i],
			Total:       net.Add(feeShares[i]).Round(2),
			Status:      status,
		})
	}
	return drafts
}

func feeShares(groups []helpers.PartyGroup, fee decimal.Decimal) []decimal.Decimal {
	shares := make([]decimal.Decimal, len(groups))
	platformCount, sellerCount := helpers.CountParties(groups)

	sellerPool := fee
	if platformCount > 0 {
		platformShare := fee
		if sellerCount > 0 {
			platformShare = fee.Div(decimal.NewFromInt(2)).Truncate(2)
			sellerPool = fee.Sub(platformShare)
		}
		shares[0] = platformShare
	}
	if sellerCount == 0 {
		return shares
	}

	even := helpers.Even(sellerPool, sellerCount)
	next := 0
	for i, g := range groups {
		if g.Seller {
			shares[i] = even[next]
			next++
		}
	}
	return shares
}

func toOrderItems(items []models.CartItem) []models.OrderItem {
	out := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		source := item.Source
		if source == "" {
			source = enums.ItemSourceProduct
		}
		out = append(out, models.OrderItem{
			ID:       item.ID,
			Name:     item.Name,
			Price:    item.Price,
			MRP:      item.MRP,
			Quantity: item.Quantity,
			Image:    item.Image,
			Source:   source,
			SellerID: item.SellerID,
		})
	}
	return out
}
