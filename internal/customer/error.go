package customer

import "errors"

var (
	ErrCustomerNotFound   = errors.New("customer not found")
	ErrEmailExists        = errors.New("email already registered")
	ErrPhoneExists        = errors.New("phone already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrInvalidPhone       = errors.New("invalid phone number")
	ErrMissingName        = errors.New("name is required")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
)
