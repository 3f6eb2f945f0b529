package api

import (
	"storefront-be/internal/order"
	"storefront-be/internal/pricing"

	"github.com/shopspring/decimal"
)

// --- Customers ---

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type emailOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type resetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	OTP         string `json:"otp" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

type mobileOTPRequest struct {
	Phone string `json:"phone" binding:"required"`
}

type verifyMobileOTPRequest struct {
	Phone string `json:"phone" binding:"required"`
	OTP   string `json:"otp" binding:"required"`
}

// --- Cart & coupons ---

type addToCartRequest struct {
	ProductID int64 `json:"product_id" binding:"required,gt=0"`
	Quantity  int   `json:"quantity" binding:"required,gt=0"`
}

type updateCartRequest struct {
	Quantity *int `json:"quantity" binding:"required,gte=0"`
}

type applyCouponRequest struct {
	Code string `json:"code" binding:"required"`
}

type couponPreview struct {
	Code           string          `json:"code"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DeliveryCharge decimal.Decimal `json:"delivery_charge"`
	Discount       decimal.Decimal `json:"discount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
}

// --- Addresses ---

type addressRequest struct {
	Name         string `json:"name" binding:"required"`
	Phone        string `json:"phone" binding:"required"`
	AddressLine  string `json:"address_line" binding:"required"`
	City         string `json:"city" binding:"required"`
	State        string `json:"state" binding:"required"`
	Pincode      string `json:"pincode" binding:"required"`
	SetAsDefault bool   `json:"set_as_default"`
}

// --- Payments ---

type createPaymentRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method" binding:"required"`
	Status        string          `json:"status"`
}

type linkPaymentRequest struct {
	OrderID int64 `json:"order_id" binding:"required,gt=0"`
}

type providerOrderRequest struct {
	PaymentID int64 `json:"payment_id" binding:"required,gt=0"`
}

type verifyPaymentRequest struct {
	PaymentID         int64  `json:"payment_id" binding:"required,gt=0"`
	RazorpayOrderID   string `json:"razorpay_order_id" binding:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" binding:"required"`
	RazorpaySignature string `json:"razorpay_signature" binding:"required"`
}

// --- Orders ---

type lineRequest struct {
	ProductID int64 `json:"product_id" binding:"required,gt=0"`
	Quantity  int   `json:"quantity" binding:"required,gt=0"`
}

func toLines(in []lineRequest) []pricing.Line {
	if in == nil {
		return nil
	}
	lines := make([]pricing.Line, len(in))
	for i, l := range in {
		lines[i] = pricing.Line{ProductID: l.ProductID, Quantity: l.Quantity}
	}
	return lines
}

type createOrderRequest struct {
	AddressID  string        `json:"address_id" binding:"required,uuid"`
	PaymentID  int64         `json:"payment_id" binding:"required,gt=0"`
	CouponCode string        `json:"coupon_code"`
	OrderItems []lineRequest `json:"order_items" binding:"required,min=1,dive"`
}

type orderItemRequest struct {
	OrderID   int64           `json:"order_id" binding:"required,gt=0"`
	ProductID int64           `json:"product_id" binding:"required,gt=0"`
	Quantity  int             `json:"quantity" binding:"required,gt=0"`
	Price     decimal.Decimal `json:"price"`
}

type createOrderItemsRequest struct {
	Items []orderItemRequest `json:"items" binding:"required,min=1,dive"`
}

func (r createOrderItemsRequest) toItems() []order.Item {
	items := make([]order.Item, len(r.Items))
	for i, it := range r.Items {
		items[i] = order.Item{
			OrderID:   it.OrderID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price,
		}
	}
	return items
}

type updateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

// --- Checkout ---

type checkoutRequest struct {
	AddressID     string        `json:"address_id" binding:"required,uuid"`
	PaymentMethod string        `json:"payment_method" binding:"required"`
	CouponCode    string        `json:"coupon_code"`
	Items         []lineRequest `json:"items" binding:"omitempty,dive"`
}
