package order

import (
	"errors"
	"fmt"

	"storefront-be/internal/product"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidStatus     = errors.New("invalid order status")
	ErrInvalidTransition = errors.New("order status transition not allowed")
	ErrNotCancellable    = errors.New("order can no longer be cancelled")
	ErrItemsMismatch     = errors.New("order items do not match the order")
	ErrNoItems           = errors.New("order must have at least one item")
	ErrOrderNotPending   = errors.New("order is no longer pending")

	ErrInsufficientStock = product.ErrInsufficientStock
)

// ItemsFailedError is returned by AddItems when an owned, pending order with
// no items could not be filled. Only this failure leaves an order that must
// be cancelled.
type ItemsFailedError struct {
	OrderID int64
	Err     error
}

func (e *ItemsFailedError) Error() string {
	return fmt.Sprintf("order %d items: %v", e.OrderID, e.Err)
}

func (e *ItemsFailedError) Unwrap() error { return e.Err }
