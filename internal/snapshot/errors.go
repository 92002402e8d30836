package snapshot

import (
	"errors"
	"fmt"
)

var (
	// ErrDimensionMismatch is matched by every DimensionMismatchError.
	ErrDimensionMismatch = errors.New("image dimensions mismatch")

	// ErrDecode is matched by every DecodeError.
	ErrDecode = errors.New("image decode failed")
)

// DimensionMismatchError reports two images that cannot be compared
// because their sizes differ.
type DimensionMismatchError struct {
	Baseline Size
	Current  Size
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("image dimensions mismatch: baseline %s vs current %s", e.Baseline, e.Current)
}

func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}

// DecodeError wraps a codec failure for bytes that are not a raster image.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode image: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}
