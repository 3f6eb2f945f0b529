package coupon

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidCoupon = errors.New("invalid coupon")

// Coupon computes a discount from the pre-discount subtotal.
type Coupon struct {
	Code        string
	Description string
	Percent     decimal.Decimal
	// MinSubtotal of zero means no minimum.
	MinSubtotal decimal.Decimal
}

func (c Coupon) Discount(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.LessThan(c.MinSubtotal) || !subtotal.IsPositive() {
		return decimal.Zero
	}
	return subtotal.Mul(c.Percent).Div(decimal.NewFromInt(100)).Round(2)
}

// Registry resolves codes case-insensitively. It is read-only after
// construction and safe for concurrent use.
type Registry struct {
	coupons map[string]Coupon
}

func NewRegistry(coupons ...Coupon) *Registry {
	r := &Registry{coupons: make(map[string]Coupon, len(coupons))}
	for _, c := range coupons {
		r.coupons[normalize(c.Code)] = c
	}
	return r
}

// DefaultRegistry holds the storefront's live codes.
func DefaultRegistry() *Registry {
	return NewRegistry(Coupon{
		Code:        "SAVE10",
		Description: "10% off your order",
		Percent:     decimal.NewFromInt(10),
	})
}

func (r *Registry) Lookup(code string) (Coupon, error) {
	c, ok := r.coupons[normalize(code)]
	if !ok {
		return Coupon{}, ErrInvalidCoupon
	}
	return c, nil
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
