package address

import (
	"errors"

	"storefront-be/internal/utils"
)

var (
	ErrUnauthenticated = utils.ErrUnauthenticated
	ErrAddressNotFound = errors.New("address not found")
	ErrInvalidPhone    = errors.New("invalid phone number")
	ErrInvalidPincode  = errors.New("invalid pincode")
	ErrMissingField    = errors.New("name, address_line, city and state are required")
)
