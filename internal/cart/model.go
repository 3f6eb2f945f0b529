package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is one cart line. Price is the snapshot taken when the line was last
// written; CurrentPrice and Stock come from the live product row.
type Item struct {
	ID           int64           `json:"id"`
	CustomerID   int64           `json:"customer_id"`
	ProductID    int64           `json:"product_id"`
	ProductName  string          `json:"product_name"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	Stock        int             `json:"stock"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (i Item) LineTotal() decimal.Decimal {
	return i.CurrentPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Cart struct {
	Items    []Item          `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
}
