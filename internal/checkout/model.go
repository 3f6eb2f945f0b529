package checkout

import (
	"storefront-be/internal/order"
	"storefront-be/internal/payment"
	"storefront-be/internal/pricing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Input struct {
	IdempotencyKey string
	AddressID      uuid.UUID
	PaymentMethod  string
	CouponCode     string
	// Lines is nil when the server cart is the source.
	Lines []pricing.Line
}

type Result struct {
	OrderID         int64           `json:"order_id"`
	OrderNumber     string          `json:"order_number"`
	PaymentID       int64           `json:"payment_id"`
	PaymentMethod   string          `json:"payment_method"`
	Status          string          `json:"status"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	DeliveryCharge  decimal.Decimal `json:"delivery_charge"`
	Discount        decimal.Decimal `json:"discount"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	CouponCode      *string         `json:"coupon_code,omitempty"`
	ProviderOrderID *string         `json:"provider_order_id,omitempty"`
	Replayed        bool            `json:"replayed"`
}

func resultFrom(o *order.Order, p *payment.Payment) *Result {
	return &Result{
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		PaymentID:       p.ID,
		PaymentMethod:   p.Method,
		Status:          string(o.Status),
		Subtotal:        o.Subtotal,
		DeliveryCharge:  o.DeliveryCharge,
		Discount:        o.Discount,
		TotalAmount:     o.TotalAmount,
		CouponCode:      o.CouponCode,
		ProviderOrderID: p.ProviderOrderID,
	}
}

// Placement is everything written by one checkout transaction.
type Placement struct {
	CustomerID     int64
	IdempotencyKey string
	RequestHash    string
	Order          *order.Order
	Payment        *payment.Payment
	FromCart       bool
}

// Stored is a completed checkout kept for replay.
type Stored struct {
	RequestHash string
	Result      Result
}
