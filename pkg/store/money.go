package store

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxTopUp is the largest amount AddFunds accepts at once.
var MaxTopUp = decimal.New(10000, 0)

// NormalizePrice returns price rounded half-up to cents. A nil price is
// free. Negative prices are ErrInvalidPrice.
func NormalizePrice(price *decimal.Decimal) (decimal.Decimal, error) {
	if price == nil {
		return decimal.Zero, nil
	}
	if price.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s is negative", ErrInvalidPrice, price.String())
	}
	return price.Round(2), nil
}

// ParsePrice parses a decimal price. Empty input is a nil (free) price.
func ParsePrice(text string) (*decimal.Decimal, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidPrice, text)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: %s is negative", ErrInvalidPrice, text)
	}
	return &d, nil
}
