package arrowcodec

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
)

// Sentinels for use with errors.Is. Each matches any error of its type.
var (
	ErrUnsupportedShape  = &UnsupportedShapeError{}
	ErrSchemaMismatch    = &SchemaMismatchError{}
	ErrFixedSizeMismatch = &FixedSizeMismatchError{}
	ErrEncode            = &EncodeError{}
	ErrCorruptValue      = &CorruptValueError{}
)

// ErrAmbiguousNesting is wrapped by the shape error returned for a pointer
// to a pointer, or a pointer to a union interface. A column has exactly one
// validity bit per position.
var ErrAmbiguousNesting = errors.New("ambiguous nesting of optional values")

// UnsupportedShapeError reports a Go type that cannot be mapped to an Arrow
// data type.
type UnsupportedShapeError struct {
	Type   reflect.Type
	Path   string
	Reason string
	Err    error
}

func (e *UnsupportedShapeError) Error() string {
	msg := e.Reason
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("arrowcodec: unsupported shape %v at %s: %s", e.Type, formatPath(e.Path), msg)
}

func (e *UnsupportedShapeError) Unwrap() error { return e.Err }

// Is supports errors.Is by matching any *UnsupportedShapeError target.
func (e *UnsupportedShapeError) Is(target error) bool {
	_, ok := target.(*UnsupportedShapeError)
	return ok
}

// SchemaMismatchError reports a column whose data type disagrees with the
// descriptor expected by a reader.
type SchemaMismatchError struct {
	Path     string
	Expected arrow.DataType
	Actual   arrow.DataType
	Reason   string
}

func (e *SchemaMismatchError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "arrowcodec: schema mismatch at %s", formatPath(e.Path))
	if e.Reason != "" {
		fmt.Fprintf(&sb, ": %s", e.Reason)
	}
	if e.Expected != nil || e.Actual != nil {
		fmt.Fprintf(&sb, " (expected %v, got %v)", e.Expected, e.Actual)
	}
	return sb.String()
}

// Is supports errors.Is by matching any *SchemaMismatchError target.
func (e *SchemaMismatchError) Is(target error) bool {
	_, ok := target.(*SchemaMismatchError)
	return ok
}

// FixedSizeMismatchError reports a fixed-size list or binary value whose
// length differs from the declared size.
type FixedSizeMismatchError struct {
	Path     string
	Expected int
	Actual   int
}

func (e *FixedSizeMismatchError) Error() string {
	return fmt.Sprintf("arrowcodec: fixed size mismatch at %s: expected %d elements, got %d",
		formatPath(e.Path), e.Expected, e.Actual)
}

// Is supports errors.Is by matching any *FixedSizeMismatchError target.
func (e *FixedSizeMismatchError) Is(target error) bool {
	_, ok := target.(*FixedSizeMismatchError)
	return ok
}

// EncodeError reports a value rejected by a leaf encoder, such as an integer
// that overflows a narrower physical type.
type EncodeError struct {
	Path  string
	Value any
	Err   error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("arrowcodec: encoding %v at %s: %v", e.Value, formatPath(e.Path), e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// Is supports errors.Is by matching any *EncodeError target.
func (e *EncodeError) Is(target error) bool {
	_, ok := target.(*EncodeError)
	return ok
}

// CorruptValueError reports a stored value that cannot be turned back into a
// Go value, such as a unit variant whose payload is false.
type CorruptValueError struct {
	Path  string
	Index int
	Err   error
}

func (e *CorruptValueError) Error() string {
	return fmt.Sprintf("arrowcodec: corrupt value at %s (index %d): %v", formatPath(e.Path), e.Index, e.Err)
}

func (e *CorruptValueError) Unwrap() error { return e.Err }

// Is supports errors.Is by matching any *CorruptValueError target.
func (e *CorruptValueError) Is(target error) bool {
	_, ok := target.(*CorruptValueError)
	return ok
}

// ErrorKind returns a short stable name for the error kinds of this package,
// suitable for metric attributes. Other errors report their Go type.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnsupportedShape):
		return "unsupported_shape"
	case errors.Is(err, ErrSchemaMismatch):
		return "schema_mismatch"
	case errors.Is(err, ErrFixedSizeMismatch):
		return "fixed_size_mismatch"
	case errors.Is(err, ErrEncode):
		return "encode"
	case errors.Is(err, ErrCorruptValue):
		return "corrupt_value"
	default:
		return fmt.Sprintf("%T", err)
	}
}

func formatPath(p string) string {
	if p == "" {
		return "<root>"
	}
	return p
}

func joinPath(seg, rest string) string {
	switch {
	case rest == "":
		return seg
	case seg == "":
		return rest
	case strings.HasPrefix(rest, "["):
		return seg + rest
	default:
		return seg + "." + rest
	}
}

// prefixPath prepends seg to the path carried by err. Errors of other types
// are returned unchanged.
func prefixPath(err error, seg string) error {
	switch e := err.(type) {
	case *UnsupportedShapeError:
		e.Path = joinPath(seg, e.Path)
	case *SchemaMismatchError:
		e.Path = joinPath(seg, e.Path)
	case *FixedSizeMismatchError:
		e.Path = joinPath(seg, e.Path)
	case *EncodeError:
		e.Path = joinPath(seg, e.Path)
	case *CorruptValueError:
		e.Path = joinPath(seg, e.Path)
	}
	return err
}

func indexSeg(i int) string { return fmt.Sprintf("[%d]", i) }
