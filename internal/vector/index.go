// Package vector provides the flat inner-product index used for retrieval.
package vector

import (
	"errors"
	"fmt"
)

// Hit is a single search result. ID is the insertion ordinal of the vector.
type Hit struct {
	ID    uint64
	Score float32
}

// DimensionMismatchError is returned when a vector's length differs from the
// index dimension. The operation that returns it has not modified the index.
type DimensionMismatchError struct {
	Want     int
	Got      int
	Position int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("vector dimension mismatch at position %d: got %d, expected %d", e.Position, e.Got, e.Want)
}

// Snapshot errors.
var (
	ErrInvalidMagic     = errors.New("invalid magic number")
	ErrInvalidVersion   = errors.New("unsupported snapshot version")
	ErrChecksumMismatch = errors.New("snapshot checksum mismatch")
	ErrTruncated        = errors.New("snapshot truncated")
)
