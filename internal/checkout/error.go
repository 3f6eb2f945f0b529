package checkout

import "errors"

var (
	ErrMissingIdempotencyKey = errors.New("idempotency key header is required")
	ErrInvalidIdempotencyKey = errors.New("idempotency key must be at most 128 characters")
	ErrIdempotencyConflict   = errors.New("idempotency key was already used for a different checkout")
	ErrInProgress            = errors.New("checkout with this idempotency key is still in progress")

	// errDuplicateRequest means a concurrent attempt with the same key won
	// the insert. The caller replays that attempt.
	errDuplicateRequest = errors.New("duplicate checkout request")
)
