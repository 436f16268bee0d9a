package helpers

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pennyekart/pennyekart-backend/pkg/db/models"
)

// UnknownSellerKey buckets seller lines that arrived without a seller id.
const UnknownSellerKey = "unknown"

// PlatformKey is the bucket for lines fulfilled from platform godowns.
const PlatformKey = "platform"

// PartyGroup is the set of cart lines one party fulfills.
type PartyGroup struct {
	Key      string
	Seller   bool
	SellerID *uuid.UUID
	Items    []models.CartItem
	Subtotal decimal.Decimal
}

// GroupCartItemsByParty splits cart lines into the platform group followed by
// one group per seller, in the order sellers first appear in the cart.
func GroupCartItemsByParty(items []models.CartItem) []PartyGroup {
	var platform *PartyGroup
	sellers := make(map[string]*PartyGroup)
	sellerOrder := make([]string, 0)

	for _, item := range items {
		if !item.Source.IsSeller() {
			if platform == nil {
				platform = &PartyGroup{Key: PlatformKey, Subtotal: decimal.Zero}
			}
			platform.Items = append(platform.Items, item)
			platform.Subtotal = platform.Subtotal.Add(item.LineTotal())
			continue
		}

		key := UnknownSellerKey
		if item.SellerID != nil && *item.SellerID != uuid.Nil {
			key = item.SellerID.String()
		}
		group, ok := sellers[key]
		if !ok {
			group = &PartyGroup{Key: key, Seller: true, Subtotal: decimal.Zero}
			if key != UnknownSellerKey {
				id := *item.SellerID
				group.SellerID = &id
			}
			sellers[key] = group
			sellerOrder = append(sellerOrder, key)
		}
		group.Items = append(group.Items, item)
		group.Subtotal = group.Subtotal.Add(item.LineTotal())
	}

	groups := make([]PartyGroup, 0, len(sellerOrder)+1)
	if platform != nil {
		groups = append(groups, *platform)
	}
	for _, key := range sellerOrder {
		groups = append(groups, *sellers[key])
	}
	return groups
}

// CountParties returns how many platform and seller groups exist.
func CountParties(groups []PartyGroup) (platform, sellers int) {
	for _, g := range groups {
		if g.Seller {
			sellers++
		} else {
			platform++
		}
	}
	return platform, sellers
}

// Distribute splits total across weights, truncating each share to cents and
// handing the residue to the last share so the shares always sum to total.
func Distribute(total decimal.Decimal, weights []decimal.Decimal) []decimal.Decimal {
	shares := make([]decimal.Decimal, len(weights))
	if len(weights) == 0 {
		return shares
	}
	sum := decimal.Zero
	for _, w := range weights {
		sum = sum.Add(w)
	}
	if sum.IsZero() || total.IsZero() {
		for i := range shares {
			shares[i] = decimal.Zero
		}
		return shares
	}

	allocated := decimal.Zero
	last := len(weights) - 1
	for i, w := range weights {
		if i == last {
			shares[i] = total.Sub(allocated)
			break
		}
		shares[i] = total.Mul(w).Div(sum).Truncate(2)
		allocated = allocated.Add(shares[i])
	}
	return shares
}

// Even splits total into n equal cent shares with the residue on the last.
func Even(total decimal.Decimal, n int) []decimal.Decimal {
	weights := make([]decimal.Decimal, n)
	for i := range weights {
		weights[i] = decimal.NewFromInt(1)
	}
	return Distribute(total, weights)
}
