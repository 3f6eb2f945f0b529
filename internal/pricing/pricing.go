package pricing

import (
	"errors"
	"fmt"

	"storefront-be/internal/coupon"
	"storefront-be/internal/product"

	"github.com/shopspring/decimal"
)

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
)

type Line struct {
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
}

type LineQuote struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type Quote struct {
	Lines          []LineQuote     `json:"lines"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DeliveryCharge decimal.Decimal `json:"delivery_charge"`
	Discount       decimal.Decimal `json:"discount"`
	Total          decimal.Decimal `json:"total_amount"`
	CouponCode     *string         `json:"coupon_code,omitempty"`
}

type Pricer struct {
	deliveryCharge    decimal.Decimal
	freeDeliveryAbove decimal.Decimal
	coupons           *coupon.Registry
}

func NewPricer(deliveryCharge, freeDeliveryAbove decimal.Decimal, coupons *coupon.Registry) *Pricer {
	return &Pricer{
		deliveryCharge:    deliveryCharge,
		freeDeliveryAbove: freeDeliveryAbove,
		coupons:           coupons,
	}
}

// DeliveryFor is free strictly above the threshold.
func (p *Pricer) DeliveryFor(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThan(p.freeDeliveryAbove) {
		return decimal.Zero
	}
	return p.deliveryCharge
}

// Quote prices lines at the given unit prices. Repeated products are merged.
// total = subtotal + delivery - discount, all rounded to 2 places.
func (p *Pricer) Quote(lines []Line, couponCode string) (*Quote, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	merged := make([]LineQuote, 0, len(lines))
	index := make(map[int64]int, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		if i, ok := index[l.ProductID]; ok {
			merged[i].Quantity += l.Quantity
			continue
		}
		index[l.ProductID] = len(merged)
		merged = append(merged, LineQuote{ProductID: l.ProductID, Quantity: l.Quantity, UnitPrice: l.UnitPrice})
	}

	subtotal := decimal.Zero
	for i := range merged {
		merged[i].LineTotal = merged[i].UnitPrice.Mul(decimal.NewFromInt(int64(merged[i].Quantity))).Round(2)
		subtotal = subtotal.Add(merged[i].LineTotal)
	}

	q := &Quote{
		Lines:          merged,
		Subtotal:       subtotal,
		DeliveryCharge: p.DeliveryFor(subtotal),
		Discount:       decimal.Zero,
	}

	if couponCode != "" {
		c, err := p.coupons.Lookup(couponCode)
		if err != nil {
			return nil, err
		}
		q.Discount = c.Discount(subtotal)
		code := c.Code
		q.CouponCode = &code
	}

	q.Total = q.Subtotal.Add(q.DeliveryCharge).Sub(q.Discount).Round(2)
	return q, nil
}

// ProductIDs lists the quoted products in line order.
func (q *Quote) ProductIDs() []int64 {
	ids := make([]int64, len(q.Lines))
	for i, l := range q.Lines {
		ids[i] = l.ProductID
	}
	return ids
}

// WithCatalogPrices sets each line's unit price from the catalog. Client
// supplied prices are discarded. A product missing from the catalog fails
// with product.ErrProductNotFound.
func WithCatalogPrices(lines []Line, catalog map[int64]product.Product) ([]Line, error) {
	out := make([]Line, len(lines))
	for i, l := range lines {
		p, ok := catalog[l.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: %d", product.ErrProductNotFound, l.ProductID)
		}
		out[i] = Line{ProductID: l.ProductID, Quantity: l.Quantity, UnitPrice: p.Price}
	}
	return out, nil
}

// ProductIDs lists the distinct products referenced by lines.
func ProductIDs(lines []Line) []int64 {
	seen := make(map[int64]bool, len(lines))
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		if !seen[l.ProductID] {
			seen[l.ProductID] = true
			ids = append(ids, l.ProductID)
		}
	}
	return ids
}
