// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package arrowcodec

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"github.com/shopspring/decimal"
)

var (
	timeType       = reflect.TypeFor[time.Time]()
	durationType   = reflect.TypeFor[time.Duration]()
	decimal128Type = reflect.TypeFor[decimal128.Num]()
	decimalType    = reflect.TypeFor[decimal.Decimal]()
)

// Timestamps are stored as int64 nanoseconds since the epoch.
var (
	minTimestamp = time.Unix(0, math.MinInt64).UTC()
	maxTimestamp = time.Unix(0, math.MaxInt64).UTC()
)

var timestampNs = &arrow.TimestampType{Unit: arrow.Nanosecond, TimeZone: "UTC"}

// builtinLeaf returns the leaf for the standard library and decimal types
// the engine knows natively.
func builtinLeaf(t reflect.Type, opts tagOptions) (node, bool, error) {
	switch t {
	case timeType:
		n, err := timeLeaf(t, opts)
		return n, true, err
	case durationType:
		n, err := durationLeaf(t, opts)
		return n, true, err
	case decimal128Type:
		n, err := decimal128Leaf(t, opts)
		return n, true, err
	case decimalType:
		n, err := shopspringLeaf(t, opts)
		return n, true, err
	}
	return nil, false, nil
}

func timeLeaf(t reflect.Type, opts tagOptions) (*leafNode, error) {
	if err := opts.only("date32"); err != nil {
		return nil, err
	}
	if opts.Date32 {
		return &leafNode{
			typ: t,
			dt:  arrow.FixedWidthTypes.Date32,
			put: func(b array.Builder, v reflect.Value) error {
				b.(*array.Date32Builder).Append(arrow.Date32FromTime(v.Interface().(time.Time)))
				return nil
			},
			bind: func(arr arrow.Array) readFunc {
				a := arr.(*array.Date32)
				return func(j int, dst reflect.Value) error {
					dst.Set(reflect.ValueOf(a.Value(j).ToTime()))
					return nil
				}
			},
		}, nil
	}
	return &leafNode{
		typ: t,
		dt:  timestampNs,
		check: func(v reflect.Value) error {
			ts := v.Interface().(time.Time)
			if ts.Before(minTimestamp) || ts.After(maxTimestamp) {
				return &EncodeError{Value: ts, Err: errors.New("outside the nanosecond timestamp range")}
			}
			return nil
		},
		put: func(b array.Builder, v reflect.Value) error {
			b.(*array.TimestampBuilder).Append(arrow.Timestamp(v.Interface().(time.Time).UnixNano()))
			return nil
		},
		bind: func(arr arrow.Array) readFunc {
			a := arr.(*array.Timestamp)
			return func(j int, dst reflect.Value) error {
				dst.Set(reflect.ValueOf(time.Unix(0, int64(a.Value(j))).UTC()))
				return nil
			}
		},
	}, nil
}

// durationLeaf stores a time.Duration as an Arrow duration, or as a time of
// day with the time32/time64 options.
func durationLeaf(t reflect.Type, opts tagOptions) (*leafNode, error) {
	if err := opts.only("time32", "time64"); err != nil {
		return nil, err
	}
	checkDay := func(v reflect.Value, unit time.Duration) error {
		d := time.Duration(v.Int())
		if d < 0 || d >= 24*time.Hour {
			return &EncodeError{Value: d, Err: errors.New("time of day outside [0, 24h)")}
		}
		if d%unit != 0 {
			return &EncodeError{Value: d, Err: fmt.Errorf("not a whole number of %v", unit)}
		}
		return nil
	}
	switch opts.TimeOfDay {
	case "time32":
		return &leafNode{
			typ:   t,
			dt:    arrow.FixedWidthTypes.Time32s,
			check: func(v reflect.Value) error { return checkDay(v, time.Second) },
			put: func(b array.Builder, v reflect.Value) error {
				b.(*array.Time32Builder).Append(arrow.Time32(time.Duration(v.Int()) / time.Second))
				return nil
			},
			bind: func(arr arrow.Array) readFunc {
				a := arr.(*array.Time32)
				return func(j int, dst reflect.Value) error {
					dst.SetInt(int64(time.Duration(a.Value(j)) * time.Second))
					return nil
				}
			},
		}, nil
	case "time64":
		return &leafNode{
			typ:   t,
			dt:    arrow.FixedWidthTypes.Time64ns,
			check: func(v reflect.Value) error { return checkDay(v, time.Nanosecond) },
			put: func(b array.Builder, v reflect.Value) error {
				b.(*array.Time64Builder).Append(arrow.Time64(v.Int()))
				return nil
			},
			bind: func(arr arrow.Array) readFunc {
				a := arr.(*array.Time64)
				return func(j int, dst reflect.Value) error {
					dst.SetInt(int64(a.Value(j)))
					return nil
				}
			},
		}, nil
	}
	return &leafNode{
		typ: t,
		dt:  arrow.FixedWidthTypes.Duration_ns,
		put: func(b array.Builder, v reflect.Value) error {
			b.(*array.DurationBuilder).Append(arrow.Duration(v.Int()))
			return nil
		},
		bind: func(arr arrow.Array) readFunc {
			a := arr.(*array.Duration)
			return func(j int, dst reflect.Value) error {
				dst.SetInt(int64(a.Value(j)))
				return nil
			}
		},
	}, nil
}

func decimalPrecision(opts tagOptions, defPrecision, defScale int32) (*arrow.Decimal128Type, error) {
	if err := opts.only("decimal"); err != nil {
		return nil, err
	}
	if opts.Decimal {
		return &arrow.Decimal128Type{Precision: opts.Precision, Scale: opts.Scale}, nil
	}
	return &arrow.Decimal128Type{Precision: defPrecision, Scale: defScale}, nil
}

// decimal128Leaf stores an already scaled decimal128.Num.
func decimal128Leaf(t reflect.Type, opts tagOptions) (*leafNode, error) {
	dt, err := decimalPrecision(opts, 38, 0)
	if err != nil {
		return nil, err
	}
	n := &leafNode{
		typ: t,
		dt:  dt,
		put: func(b array.Builder, v reflect.Value) error {
			b.(*array.Decimal128Builder).Append(v.Interface().(decimal128.Num))
			return nil
		},
		bind: func(arr arrow.Array) readFunc {
			a := arr.(*array.Decimal128)
			return func(j int, dst reflect.Value) error {
				dst.Set(reflect.ValueOf(a.Value(j)))
				return nil
			}
		},
	}
	if dt.Precision < 38 {
		n.check = func(v reflect.Value) error {
			num := v.Interface().(decimal128.Num)
			if !num.FitsInPrecision(dt.Precision) {
				return &EncodeError{Value: num.BigInt(), Err: fmt.Errorf("does not fit in %v", dt)}
			}
			return nil
		}
	}
	return n, nil
}

// shopspringLeaf stores a decimal.Decimal rescaled to the column scale. A
// value that would lose digits or exceed the precision is rejected.
func shopspringLeaf(t reflect.Type, opts tagOptions) (*leafNode, error) {
	dt, err := decimalPrecision(opts, 38, 10)
	if err != nil {
		return nil, err
	}
	toNum := func(d decimal.Decimal) (decimal128.Num, error) {
		scaled := d.Shift(dt.Scale)
		if !scaled.IsInteger() {
			return decimal128.Num{}, fmt.Errorf("loses digits at scale %d", dt.Scale)
		}
		bi := scaled.BigInt()
		if bi.BitLen() > 127 {
			return decimal128.Num{}, fmt.Errorf("does not fit in %v", dt)
		}
		num := decimal128.FromBigInt(bi)
		if !num.FitsInPrecision(dt.Precision) {
			return decimal128.Num{}, fmt.Errorf("does not fit in %v", dt)
		}
		return num, nil
	}
	return &leafNode{
		typ: t,
		dt:  dt,
		check: func(v reflect.Value) error {
			d := v.Interface().(decimal.Decimal)
			if _, err := toNum(d); err != nil {
				return &EncodeError{Value: d, Err: err}
			}
			return nil
		},
		put: func(b array.Builder, v reflect.Value) error {
			num, err := toNum(v.Interface().(decimal.Decimal))
			if err != nil {
				return err
			}
			b.(*array.Decimal128Builder).Append(num)
			return nil
		},
		bind: func(arr arrow.Array) readFunc {
			a := arr.(*array.Decimal128)
			return func(j int, dst reflect.Value) error {
				dst.Set(reflect.ValueOf(decimal.NewFromBigInt(a.Value(j).BigInt(), -dt.Scale)))
				return nil
			}
		},
	}, nil
}
