package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pennyekart/pennyekart-backend/pkg/db/models"
)

// Cart is a user's item list with its derived totals.
type Cart struct {
	UserID     uuid.UUID         `json:"user_id"`
	Items      []models.CartItem `json:"items"`
	TotalItems int               `json:"total_items"`
	TotalPrice decimal.Decimal   `json:"total_price"`
}

func newCart(userID uuid.UUID, items []models.CartItem) *Cart {
	if items == nil {
		items = []models.CartItem{}
	}
	return &Cart{
		UserID:     userID,
		Items:      items,
		TotalItems: TotalItems(items),
		TotalPrice: TotalPrice(items),
	}
}

// HasComingSoon reports whether any line is not yet purchasable.
func (c *Cart) HasComingSoon() bool {
	for _, item := range c.Items {
		if item.ComingSoon {
			return true
		}
	}
	return false
}

// TotalItems sums line quantities.
func TotalItems(items []models.CartItem) int {
	total := 0
	for _, item := range items {
		total += item.Quantity
	}
	return total
}

// TotalPrice sums price times quantity over every line.
func TotalPrice(items []models.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// merge adds item, increasing the quantity of an existing line with the same id.
func merge(items []models.CartItem, item models.CartItem) []models.CartItem {
	out := make([]models.CartItem, 0, len(items)+1)
	merged := false
	for _, existing := range items {
		if existing.ID == item.ID {
			existing.Quantity += item.Quantity
			merged = true
		}
		out = append(out, existing)
	}
	if !merged {
		out = append(out, item)
	}
	return out
}

func remove(items []models.CartItem, id uuid.UUID) []models.CartItem {
	out := make([]models.CartItem, 0, len(items))
	for _, existing := range items {
		if existing.ID != id {
			out = append(out, existing)
		}
	}
	return out
}

// setQuantity replaces a line's quantity; zero or less drops the line.
func setQuantity(items []models.CartItem, id uuid.UUID, quantity int) ([]models.CartItem, bool) {
	if quantity <= 0 {
		return remove(items, id), contains(items, id)
	}
	out := make([]models.CartItem, 0, len(items))
	found := false
	for _, existing := range items {
		if existing.ID == id {
			existing.Quantity = quantity
			found = true
		}
		out = append(out, existing)
	}
	return out, found
}

func contains(items []models.CartItem, id uuid.UUID) bool {
	for _, existing := range items {
		if existing.ID == id {
			return true
		}
	}
	return false
}
