package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrDecode is matched by every DecodeError.
	ErrDecode = errors.New("payload decode failed")

	// ErrUnsupportedToken is returned for legacy tokens that would require
	// instantiating a class or following a reference.
	ErrUnsupportedToken = errors.New("unsupported legacy token")

	// ErrTrailingData is returned when bytes follow the root legacy value.
	ErrTrailingData = errors.New("trailing data after legacy value")
)

// Format names the serialization a payload was written in.
type Format string

const (
	// FormatJSON is the tagged format: marker followed by base64 JSON.
	FormatJSON Format = "format_a"
	// FormatLegacy is base64 of the native legacy serialization.
	FormatLegacy Format = "format_b"
)

// DecodeError reports which format failed and why.
type DecodeError struct {
	Format Format
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }
