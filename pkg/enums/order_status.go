package enums

import "fmt"

// OrderStatus tracks a customer order from checkout to doorstep.
type OrderStatus string

const (
	OrderStatusSellerConfirmationPending OrderStatus = "seller_confirmation_pending"
	OrderStatusSellerDeclined            OrderStatus = "seller_declined"
	OrderStatusPending                   OrderStatus = "pending"
	OrderStatusAccepted                  OrderStatus = "accepted"
	OrderStatusPickup                    OrderStatus = "pickup"
	OrderStatusShipped                   OrderStatus = "shipped"
	OrderStatusDelivered                 OrderStatus = "delivered"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusSellerConfirmationPending,
	OrderStatusSellerDeclined,
	OrderStatusPending,
	OrderStatusAccepted,
	OrderStatusPickup,
	OrderStatusShipped,
	OrderStatusDelivered,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition can leave this status.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusSellerDeclined
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
