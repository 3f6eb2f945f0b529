package payment

import "errors"

var (
	ErrPaymentNotFound  = errors.New("payment not found")
	ErrInvalidMethod    = errors.New("invalid payment method")
	ErrInvalidAmount    = errors.New("payment amount must be greater than zero")
	ErrAlreadyLinked    = errors.New("payment already linked to another order")
	ErrNotLinkable      = errors.New("payment cannot be linked to this order")
	ErrNotRazorpay      = errors.New("payment is not a razorpay payment")
	ErrNotPending       = errors.New("payment is no longer pending")
	ErrOrderMismatch    = errors.New("razorpay order does not match payment")
	ErrInvalidSignature = errors.New("invalid payment signature")
	ErrGateway          = errors.New("payment gateway error")
	ErrInvalidWebhook   = errors.New("invalid webhook payload")
)
