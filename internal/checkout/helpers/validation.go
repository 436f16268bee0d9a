package helpers

import (
	"strings"

	"github.com/pennyekart/pennyekart-backend/pkg/db/models"
	"github.com/pennyekart/pennyekart-backend/pkg/enums"
	pkgerrors "github.com/pennyekart/pennyekart-backend/pkg/errors"
)

// ValidateCartItems rejects empty carts, non-positive quantities and lines
// that cannot be bought yet.
func ValidateCartItems(items []models.CartItem) error {
	if len(items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items")
	}
	comingSoon := make([]string, 0)
	for _, item := range items {
		if item.Quantity <= 0 {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid quantity for %s", item.Name)
		}
		if item.Price.IsNegative() {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid price for %s", item.Name)
		}
		if item.ComingSoon {
			comingSoon = append(comingSoon, item.Name)
		}
	}
	if len(comingSoon) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart contains items that are coming soon").
			WithDetails(map[string]any{"items": comingSoon})
	}
	return nil
}

// ParsePaymentMethod defaults blank input to cash on delivery.
func ParsePaymentMethod(value string) (enums.PaymentMethod, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return enums.PaymentMethodCOD, nil
	}
	method, err := enums.ParsePaymentMethod(value)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
	}
	return method, nil
}
