package enums

import "fmt"

// ItemSource records who fulfills a cart or order line.
type ItemSource string

const (
	ItemSourceProduct       ItemSource = "product"
	ItemSourceSellerProduct ItemSource = "seller_product"
)

var validItemSources = []ItemSource{
	ItemSourceProduct,
	ItemSourceSellerProduct,
}

// String implements fmt.Stringer.
func (s ItemSource) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ItemSource.
func (s ItemSource) IsValid() bool {
	for _, candidate := range validItemSources {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsSeller reports whether the line is fulfilled by a third-party seller.
func (s ItemSource) IsSeller() bool {
	return s == ItemSourceSellerProduct
}

// ParseItemSource converts raw input into an ItemSource. Empty input means platform stock.
func ParseItemSource(value string) (ItemSource, error) {
	if value == "" {
		return ItemSourceProduct, nil
	}
	for _, candidate := range validItemSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item source %q", value)
}
