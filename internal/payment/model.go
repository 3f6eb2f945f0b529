package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusPending  = "pending"
	StatusSuccess  = "success"
	StatusFailed   = "failed"
	StatusRefunded = "refunded"
)

const (
	MethodCOD      = "cod"
	MethodRazorpay = "razorpay"
)

func ValidMethod(m string) bool {
	return m == MethodCOD || m == MethodRazorpay
}

type Payment struct {
	ID                int64           `json:"id"`
	CustomerID        int64           `json:"customer_id"`
	OrderID           *int64          `json:"order_id,omitempty"`
	Amount            decimal.Decimal `json:"amount"`
	Method            string          `json:"method"`
	Status            string          `json:"status"`
	ProviderOrderID   *string         `json:"provider_order_id,omitempty"`
	ProviderPaymentID *string         `json:"provider_payment_id,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// ProviderOrder is the Razorpay order a checkout widget pays against.
type ProviderOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type VerifyInput struct {
	PaymentID         int64
	ProviderOrderID   string
	ProviderPaymentID string
	Signature         string
}
