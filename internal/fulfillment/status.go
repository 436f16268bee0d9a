package fulfillment

import "github.com/pennyekart/pennyekart-backend/pkg/enums"

// deliveryFlow is the linear path an accepted order takes to the doorstep.
var deliveryFlow = []enums.OrderStatus{
	enums.OrderStatusPending,
	enums.OrderStatusAccepted,
	enums.OrderStatusPickup,
	enums.OrderStatusShipped,
	enums.OrderStatusDelivered,
}

// NextStatus returns the successor of status on the delivery flow. The
// second result is false for delivered, seller states and unknown values.
func NextStatus(status enums.OrderStatus) (enums.OrderStatus, bool) {
	for i, candidate := range deliveryFlow {
		if candidate == status && i+1 < len(deliveryFlow) {
			return deliveryFlow[i+1], true
		}
	}
	return "", false
}
