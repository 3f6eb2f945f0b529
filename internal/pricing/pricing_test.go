package pricing

import (
	"testing"

	"storefront-be/internal/coupon"
	"storefront-be/internal/product"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPricer() *Pricer {
	return NewPricer(decimal.NewFromInt(49), decimal.NewFromInt(1000), coupon.DefaultRegistry())
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestQuote(t *testing.T) {
	p := newPricer()

	tests := []struct {
		name     string
		lines    []Line
		coupon   string
		subtotal string
		delivery string
		discount string
		total    string
	}{
		{
			name:     "threshold subtotal still pays delivery",
			lines:    []Line{{ProductID: 1, Quantity: 2, UnitPrice: dec("500")}},
			subtotal: "1000", delivery: "49", discount: "0", total: "1049",
		},
		{
			name:     "above threshold ships free",
			lines:    []Line{{ProductID: 1, Quantity: 1, UnitPrice: dec("1000.01")}},
			subtotal: "1000.01", delivery: "0", discount: "0", total: "1000.01",
		},
		{
			name:     "SAVE10 on small cart",
			lines:    []Line{{ProductID: 1, Quantity: 3, UnitPrice: dec("33.33")}},
			coupon:   "save10",
			subtotal: "99.99", delivery: "49", discount: "10", total: "138.99",
		},
		{
			name: "duplicate products merge",
			lines: []Line{
				{ProductID: 1, Quantity: 1, UnitPrice: dec("250")},
				{ProductID: 2, Quantity: 1, UnitPrice: dec("100")},
				{ProductID: 1, Quantity: 1, UnitPrice: dec("250")},
			},
			coupon:   "SAVE10",
			subtotal: "600", delivery: "49", discount: "60", total: "589",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := p.Quote(tt.lines, tt.coupon)
			require.NoError(t, err)

			assert.True(t, dec(tt.subtotal).Equal(q.Subtotal), "subtotal %s", q.Subtotal)
			assert.True(t, dec(tt.delivery).Equal(q.DeliveryCharge), "delivery %s", q.DeliveryCharge)
			assert.True(t, dec(tt.discount).Equal(q.Discount), "discount %s", q.Discount)
			assert.True(t, dec(tt.total).Equal(q.Total), "total %s", q.Total)

			// total identity
			sum := decimal.Zero
			for _, l := range q.Lines {
				sum = sum.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
			}
			assert.True(t, sum.Add(q.DeliveryCharge).Sub(q.Discount).Equal(q.Total))
		})
	}
}

func TestQuoteMergeKeepsOrder(t *testing.T) {
	q, err := newPricer().Quote([]Line{
		{ProductID: 9, Quantity: 1, UnitPrice: dec("1")},
		{ProductID: 3, Quantity: 1, UnitPrice: dec("1")},
		{ProductID: 9, Quantity: 2, UnitPrice: dec("1")},
	}, "")
	require.NoError(t, err)
	assert.Equal(t, []int64{9, 3}, q.ProductIDs())
	assert.Equal(t, 3, q.Lines[0].Quantity)
	assert.Nil(t, q.CouponCode)
}

func TestQuoteErrors(t *testing.T) {
	p := newPricer()

	t.Run("Empty", func(t *testing.T) {
		_, err := p.Quote(nil, "")
		assert.ErrorIs(t, err, ErrEmptyCart)
	})

	t.Run("Zero quantity", func(t *testing.T) {
		_, err := p.Quote([]Line{{ProductID: 1, Quantity: 0, UnitPrice: dec("1")}}, "")
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	})

	t.Run("Unknown coupon", func(t *testing.T) {
		_, err := p.Quote([]Line{{ProductID: 1, Quantity: 1, UnitPrice: dec("10")}}, "NOPE")
		assert.ErrorIs(t, err, coupon.ErrInvalidCoupon)
	})
}

func TestUnknownCouponLeavesTotalUnchanged(t *testing.T) {
	p := newPricer()
	lines := []Line{{ProductID: 1, Quantity: 2, UnitPrice: dec("500")}}

	base, err := p.Quote(lines, "")
	require.NoError(t, err)

	_, err = p.Quote(lines, "BOGUS")
	require.ErrorIs(t, err, coupon.ErrInvalidCoupon)

	again, err := p.Quote(lines, "")
	require.NoError(t, err)
	assert.True(t, base.Total.Equal(again.Total))
}

func TestWithCatalogPrices(t *testing.T) {
	catalog := map[int64]product.Product{
		1: {ID: 1, Price: dec("500")},
		2: {ID: 2, Price: dec("19.99")},
	}

	t.Run("Client prices are replaced", func(t *testing.T) {
		lines, err := WithCatalogPrices([]Line{
			{ProductID: 1, Quantity: 2, UnitPrice: dec("1")},
			{ProductID: 2, Quantity: 1},
		}, catalog)
		require.NoError(t, err)
		assert.True(t, lines[0].UnitPrice.Equal(dec("500")))
		assert.True(t, lines[1].UnitPrice.Equal(dec("19.99")))
	})

	t.Run("Unknown product", func(t *testing.T) {
		_, err := WithCatalogPrices([]Line{{ProductID: 9, Quantity: 1}}, catalog)
		assert.ErrorIs(t, err, product.ErrProductNotFound)
	})
}

func TestProductIDs(t *testing.T) {
	ids := ProductIDs([]Line{{ProductID: 3}, {ProductID: 1}, {ProductID: 3}})
	assert.Equal(t, []int64{3, 1}, ids)
}
