// Package utils provides shared helpers for the mceliece-cascade module:
// deterministic SHAKE256-seeded randomness, domain-separated hashing, and
// safe arithmetic and allocation guards against oversized inputs.
package utils

import (
	"errors"
	"math"
)

// Maximum allowed sizes for cascade and serialization inputs, to prevent
// denial-of-service via pathological parameters or corrupted key files.
const (
	// MaxBlocks is the maximum allowed cascade length L.
	MaxBlocks = 1 << 10 // 1024 block copies

	// MaxVectorBits is the maximum allowed bit length of a GF(2) vector.
	MaxVectorBits = 1 << 20

	// MaxMatrixBits is the maximum allowed number of bits in a GF(2) matrix.
	MaxMatrixBits = 1 << 28

	// MaxSerializedBytes is the maximum allowed length of a serialized key.
	MaxSerializedBytes = 1 << 26 // 64MB
)

var (
	// ErrOverflow indicates an integer overflow occurred.
	ErrOverflow = errors.New("integer overflow")

	// ErrExceedsLimit indicates a value exceeds the allowed limit.
	ErrExceedsLimit = errors.New("value exceeds allowed limit")

	// ErrInvalidLength indicates an invalid length value.
	ErrInvalidLength = errors.New("invalid length")
)

// SafeMultiply multiplies two non-negative integers and returns an error if
// overflow occurs.
func SafeMultiply(a, b int) (int, error) {
	if a < 0 || b < 0 {
		return 0, ErrInvalidLength
	}
	if a == 0 || b == 0 {
		return 0, nil
	}
	if a > math.MaxInt/b {
		return 0, ErrOverflow
	}
	return a * b, nil
}

// CheckLength validates that length is within [0, maxAllowed].
func CheckLength(length, maxAllowed int) error {
	if length < 0 {
		return ErrInvalidLength
	}
	if length > maxAllowed {
		return ErrExceedsLimit
	}
	return nil
}

// SafeReadLength reads a uint32 length from data at offset, validates it
// against maxAllowed, and returns the value with the advanced offset.
func SafeReadLength(data []byte, offset, maxAllowed int) (length int, newOffset int, err error) {
	if offset < 0 || offset+4 > len(data) {
		return 0, offset, errors.New("truncated length field")
	}
	raw := uint32(data[offset]) | uint32(data[offset+1])<<8 | uint32(data[offset+2])<<16 | uint32(data[offset+3])<<24
	// Check against max allowed (also handles potential negative after int cast on 32-bit)
	if raw > uint32(maxAllowed) || (maxAllowed > math.MaxInt32 && int(raw) < 0) {
		return 0, offset, ErrExceedsLimit
	}
	return int(raw), offset + 4, nil
}

/// ValidateSliceAccess checks that accessing data[offset:offset+size] is safe.
func ValidateSliceAccess(data []byte, offset, size int) error {
	if offset < 0 || size < 0 {
		return ErrInvalidLength
	}
	if offset+size < offset {
		return ErrOverflow
	}
	if offset+size > len(data) {
		return errors.New("slice access out of bounds")
	}
	return nil
}
