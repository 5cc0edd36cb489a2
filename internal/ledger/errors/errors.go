package errors

import "errors"

var (
	ErrAccountNotFound = errors.New("subscription account not found")

	ErrVersionMismatch = errors.New("subscription account changed since read")

	ErrInsufficientBalance = errors.New("insufficient subscription balance")
)
