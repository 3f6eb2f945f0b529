package cart

import (
	"errors"

	"storefront-be/internal/product"
)

var (
	// -- Validation & Input --
	ErrInvalidQuantity = errors.New("invalid cart quantity")

	// -- Resource State --
	ErrCartItemNotFound  = errors.New("cart item not found")
	ErrInsufficientStock = product.ErrInsufficientStock
)
