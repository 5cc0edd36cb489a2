package errors

import "errors"

var (
	ErrBookingNotFound      = errors.New("booking not found")
	ErrDuplicateIdempotency = errors.New("idempotency key already used")
	ErrStatusMismatch       = errors.New("booking is not in the expected status")
	ErrBucketNotFound       = errors.New("occupancy bucket not found")
	ErrBucketVersionStale   = errors.New("occupancy bucket version is stale")
)
