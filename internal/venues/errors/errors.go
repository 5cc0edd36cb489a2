package errors

import "errors"

var (
	ErrVenueNotFound = errors.New("venue not found")

	ErrDogNotFound = errors.New("dog not found")
)
