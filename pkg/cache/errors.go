package cache

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration indicates the cache could not be set up (e.g. the
	// storage root cannot be created). It is not retryable.
	ErrConfiguration = errors.New("cache configuration")

	// ErrMalformedHeaders indicates the header artifact of an entry could not be parsed
	ErrMalformedHeaders = errors.New("malformed cached headers")

	// ErrInvalidKey indicates a key that is empty or would leave the storage root
	ErrInvalidKey = errors.New("invalid cache key")
)

// Error reports a failed cache operation on a single key.
type Error struct {
	Op  string
	Key string
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("cache %s %q: %v", e.Op, e.Key, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}
