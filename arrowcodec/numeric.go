// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package arrowcodec

import (
	"fmt"
	"math"
	"reflect"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// intRange is the closed value range of an integer kind.
type intRange struct {
	min int64
	max uint64
}

var intRanges = map[arrow.Type]intRange{
	arrow.INT8:   {math.MinInt8, math.MaxInt8},
	arrow.INT16:  {math.MinInt16, math.MaxInt16},
	arrow.INT32:  {math.MinInt32, math.MaxInt32},
	arrow.INT64:  {math.MinInt64, math.MaxInt64},
	arrow.UINT8:  {0, math.MaxUint8},
	arrow.UINT16: {0, math.MaxUint16},
	arrow.UINT32: {0, math.MaxUint32},
	arrow.UINT64: {0, math.MaxUint64},
}

var integerTypes = map[string]arrow.DataType{
	"int8":   arrow.PrimitiveTypes.Int8,
	"int16":  arrow.PrimitiveTypes.Int16,
	"int32":  arrow.PrimitiveTypes.Int32,
	"int64":  arrow.PrimitiveTypes.Int64,
	"uint8":  arrow.PrimitiveTypes.Uint8,
	"uint16": arrow.PrimitiveTypes.Uint16,
	"uint32": arrow.PrimitiveTypes.Uint32,
	"uint64": arrow.PrimitiveTypes.Uint64,
}

// kindType is the Arrow type a Go integer or float kind maps to without
// overrides.
func kindType(k reflect.Kind) arrow.DataType {
	switch k {
	case reflect.Int8:
		return arrow.PrimitiveTypes.Int8
	case reflect.Int16:
		return arrow.PrimitiveTypes.Int16
	case reflect.Int32:
		return arrow.PrimitiveTypes.Int32
	case reflect.Int64, reflect.Int:
		return arrow.PrimitiveTypes.Int64
	case reflect.Uint8:
		return arrow.PrimitiveTypes.Uint8
	case reflect.Uint16:
		return arrow.PrimitiveTypes.Uint16
	case reflect.Uint32:
		return arrow.PrimitiveTypes.Uint32
	case reflect.Uint64, reflect.Uint:
		return arrow.PrimitiveTypes.Uint64
	case reflect.Float32:
		return arrow.PrimitiveTypes.Float32
	case reflect.Float64:
		return arrow.PrimitiveTypes.Float64
	}
	return nil
}

func isSigned(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

// intLeaf maps an integer kind onto the integer type dt, checking the range
// when dt is narrower than the Go type.
func intLeaf(t reflect.Type, dt arrow.DataType) *leafNode {
	n := &leafNode{typ: t, dt: dt}
	src, dst := intRanges[kindType(t.Kind()).ID()], intRanges[dt.ID()]
	signed := isSigned(t.Kind())
	if src.min < dst.min || src.max > dst.max {
		n.check = func(v reflect.Value) error {
			if signed {
				x := v.Int()
				if x < dst.min || (x > 0 && uint64(x) > dst.max) {
					return &EncodeError{Value: x, Err: fmt.Errorf("overflows %v", dt)}
				}
				return nil
			}
			if x := v.Uint(); x > dst.max {
				return &EncodeError{Value: x, Err: fmt.Errorf("overflows %v", dt)}
			}
			return nil
		}
	}

	// raw reinterprets the Go value as a 64-bit pattern; check has already
	// bounded it to the target range.
	raw := func(v reflect.Value) int64 {
		if signed {
			return v.Int()
		}
		return int64(v.Uint())
	}
	switch dt.ID() {
	case arrow.INT8:
		n.put = func(b array.Builder, v reflect.Value) error {
			b.(*array.Int8Builder).Append(int8(raw(v)))
			return nil
		}
		n.bind = func(arr arrow.Array) readFunc { return integerReader(arr.(*array.Int8).Int8Values()) }
	case arrow.INT16:
		n.put = func(b array.Builder, v reflect.Value) error {
			b.(*array.Int16Builder).Append(int16(raw(v)))
			return nil
		}
		n.bind = func(arr arrow.Array) readFunc { return integerReader(arr.(*array.Int16).Int16Values()) }
	case arrow.INT32:
		n.put = func(b array.Builder, v reflect.Value) error {
			b.(*array.Int32Builder).Append(int32(raw(v)))
			return nil
		}
		n.bind = func(arr arrow.Array) readFunc { return integerReader(arr.(*array.Int32).Int32Values()) }
	case arrow.INT64:
		n.put = func(b array.Builder, v reflect.Value) error {
			b.(*array.Int64Builder).Append(raw(v))
			return nil
		}
		n.bind = func(arr arrow.Array) readFunc { return integerReader(arr.(*array.Int64).Int64Values()) }
	case arrow.UINT8:
		n.put = func(b array.Builder, v reflect.Value) error {
			b.(*array.Uint8Builder).Append(uint8(raw(v)))
			return nil
		}
		n.bind = func(arr arrow.Array) readFunc { return integerReader(arr.(*array.Uint8).Uint8Values()) }
	case arrow.UINT16:
		n.put = func(b array.Builder, v reflect.Value) error {
			b.(*array.Uint16Builder).Append(uint16(raw(v)))
			return nil
		}
		n.bind = func(arr arrow.Array) readFunc { return integerReader(arr.(*array.Uint16).Uint16Values()) }
	case arrow.UINT32:
		n.put = func(b array.Builder, v reflect.Value) error {
			b.(*array.Uint32Builder).Append(uint32(raw(v)))
			return nil
		}
		n.bind = func(arr arrow.Array) readFunc { return integerReader(arr.(*array.Uint32).Uint32Values()) }
	case arrow.UINT64:
		n.put = func(b array.Builder, v reflect.Value) error {
			b.(*array.Uint64Builder).Append(uint64(raw(v)))
			return nil
		}
		n.bind = func(arr arrow.Array) readFunc { return integerReader(arr.(*array.Uint64).Uint64Values()) }
	}
	return n
}

type integer interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// integerReader reads from the values slice of a primitive array. The slice
// already starts at the array offset.
func integerReader[E integer](values []E) readFunc {
	return func(j int, dst reflect.Value) error {
		if dst.CanInt() {
			dst.SetInt(int64(values[j]))
		} else {
			dst.SetUint(uint64(values[j]))
		}
		return nil
	}
}

func floatLeaf(t reflect.Type, dt arrow.DataType) *leafNode {
	n := &leafNode{typ: t, dt: dt}
	if dt.ID() == arrow.FLOAT32 {
		if t.Kind() == reflect.Float64 {
			n.check = func(v reflect.Value) error {
				x := v.Float()
				if !math.IsInf(x, 0) && !math.IsNaN(x) && math.Abs(x) > math.MaxFloat32 {
					return &EncodeError{Value: x, Err: fmt.Errorf("overflows %v", dt)}
				}
				return nil
			}
		}
		n.put = func(b array.Builder, v reflect.Value) error {
			b.(*array.Float32Builder).Append(float32(v.Float()))
			return nil
		}
		n.bind = func(arr arrow.Array) readFunc {
			values := arr.(*array.Float32).Float32Values()
			return func(j int, dst reflect.Value) error {
				dst.SetFloat(float64(values[j]))
				return nil
			}
		}
		return n
	}
	n.put = func(b array.Builder, v reflect.Value) error {
		b.(*array.Float64Builder).Append(v.Float())
		return nil
	}
	n.bind = func(arr arrow.Array) readFunc {
		values := arr.(*array.Float64).Float64Values()
		return func(j int, dst reflect.Value) error {
			dst.SetFloat(values[j])
			return nil
		}
	}
	return n
}

// numericLeaf resolves width overrides for integer and float kinds.
func numericLeaf(t reflect.Type, opts tagOptions) (*leafNode, error) {
	if err := opts.only("width"); err != nil {
		return nil, err
	}
	k := t.Kind()
	if k == reflect.Float32 || k == reflect.Float64 {
		switch opts.Width {
		case "":
			return floatLeaf(t, kindType(k)), nil
		case "float32":
			return floatLeaf(t, arrow.PrimitiveTypes.Float32), nil
		}
		return nil, fmt.Errorf("tag option %q does not apply to %v", opts.Width, t)
	}
	if opts.Width == "" {
		return intLeaf(t, kindType(k)), nil
	}
	dt, ok := integerTypes[opts.Width]
	if !ok {
		return nil, fmt.Errorf("tag option %q does not apply to %v", opts.Width, t)
	}
	return intLeaf(t, dt), nil
}
