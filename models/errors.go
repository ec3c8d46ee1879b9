package models

import (
	"context"
	"errors"
	"fmt"
	"image"
)

// ValidationError reports malformed or missing input. It is raised before
// any frame work starts.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// EmptyLayerError reports a directory-backed layer with no usable images.
type EmptyLayerError struct {
	Layer int
	Dir   string
}

func (e *EmptyLayerError) Error() string {
	return fmt.Sprintf("layer %d: directory %s contains no images", e.Layer, e.Dir)
}

// DecodeError reports a frame image that could not be read or decoded.
type DecodeError struct {
	Frame int
	Layer int
	Path  string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("frame %d layer %d: decode %s: %v", e.Frame, e.Layer, e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// DimensionMismatchError reports an image whose size differs from the canvas.
type DimensionMismatchError struct {
	Frame int
	Layer int
	Path  string
	Got   image.Point
	Want  image.Point
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("frame %d layer %d: %s is %dx%d, canvas is %dx%d",
		e.Frame, e.Layer, e.Path, e.Got.X, e.Got.Y, e.Want.X, e.Want.Y)
}

// EncodeError reports a failure of the video sink.
type EncodeError struct {
	Op  string // "open", "write" or "close"
	Err error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s: %v", e.Op, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// ErrorKind returns a stable name for the class of err, used in failure
// records and API responses.
func ErrorKind(err error) string {
	var (
		validation *ValidationError
		empty      *EmptyLayerError
		decode     *DecodeError
		dims       *DimensionMismatchError
		encode     *EncodeError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &validation):
		return "validation"
	case errors.As(err, &empty):
		return "empty_layer"
	case errors.As(err, &decode):
		return "decode"
	case errors.As(err, &dims):
		return "dimension_mismatch"
	case errors.As(err, &encode):
		return "encode"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "internal"
	}
}
