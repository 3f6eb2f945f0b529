package otp

import "errors"

var (
	ErrInvalidPurpose  = errors.New("invalid otp purpose")
	ErrMissingIdentity = errors.New("otp identity is required")
	ErrInvalidCode     = errors.New("invalid or expired otp")
	ErrTooManyAttempts = errors.New("too many otp attempts")
	ErrRateLimited     = errors.New("too many otp requests, try again later")
)
