package enums

import "fmt"

// GodownType classifies warehouses by the customers they can serve.
type GodownType string

const (
	// GodownTypeMicro serves the wards it is bound to inside a single local body.
	GodownTypeMicro GodownType = "micro"
	// GodownTypeLocal is backstock and never serves retail customers directly.
	GodownTypeLocal GodownType = "local"
	// GodownTypeArea serves whole local bodies and may carry seller inventory.
	GodownTypeArea GodownType = "area"
)

var validGodownTypes = []GodownType{
	GodownTypeMicro,
	GodownTypeLocal,
	GodownTypeArea,
}

// String implements fmt.Stringer.
func (g GodownType) String() string {
	return string(g)
}

// IsValid reports whether the value is a known GodownType.
func (g GodownType) IsValid() bool {
	for _, candidate := range validGodownTypes {
		if candidate == g {
			return true
		}
	}
	return false
}

// CustomerFacing reports whether stock held in this godown may be sold to customers.
func (g GodownType) CustomerFacing() bool {
	return g == GodownTypeMicro || g == GodownTypeArea
}

// ParseGodownType converts raw input into a GodownType.
func ParseGodownType(value string) (GodownType, error) {
	for _, candidate := range validGodownTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid godown type %q", value)
}
