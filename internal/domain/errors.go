package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrEmptyInput signals text with no content to encode.
	ErrEmptyInput = errors.New("empty input")
	// ErrDimensionMismatch signals a vector whose length is not the fingerprint dimension.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrModelUnavailable signals that the encoding model failed to load.
	ErrModelUnavailable = errors.New("encoding model unavailable")
	// ErrEncodingFailed signals a failed encode call on a loaded model.
	ErrEncodingFailed = errors.New("encoding failed")
	// ErrStoreIO signals a storage read or write failure.
	ErrStoreIO = errors.New("store i/o error")
)

// DimensionMismatchError wraps ErrDimensionMismatch with the offending length.
type DimensionMismatchError struct {
	Got  int
	Want int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s: got %d, want %d", ErrDimensionMismatch.Error(), e.Got, e.Want)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }

// NewDimensionMismatch creates a dimension mismatch error.
func NewDimensionMismatch(got, want int) error {
	return &DimensionMismatchError{Got: got, Want: want}
}
