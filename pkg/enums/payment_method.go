package enums

import "fmt"

// PaymentMethod is how the customer settles an order.
type PaymentMethod string

const (
	PaymentMethodCOD PaymentMethod = "cod"
	PaymentMethodUPI PaymentMethod = "upi"
)

// paymentLabels holds the human text written into the order's shipping
// address field. Methods without a label fall back to their raw value.
var paymentLabels = map[PaymentMethod]string{
	PaymentMethodCOD: "Cash on Delivery",
	PaymentMethodUPI: "",
}

func (p PaymentMethod) String() string { return string(p) }

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	_, ok := paymentLabels[p]
	return ok
}

// ShippingLabel is the text stored on the order's shipping address field.
func (p PaymentMethod) ShippingLabel() string {
	if label := paymentLabels[p]; label != "" {
		return label
	}
	return string(p)
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	method := PaymentMethod(value)
	if !method.IsValid() {
		return "", fmt.Errorf("invalid payment method %q", value)
	}
	return method, nil
}
