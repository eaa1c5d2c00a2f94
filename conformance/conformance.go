// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package conformance

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/Query-farm/arrowcodec/arrowcodec"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/go-cmp/cmp"
)

// Case is one conformance check.
type Case struct {
	Name        string
	Description string
	run         func(env *env) (int, error)
}

// Result is the outcome of running one Case.
type Result struct {
	Name     string
	Rows     int
	Duration time.Duration
	Err      error
}

// Passed reports whether the case succeeded.
func (r Result) Passed() bool { return r.Err == nil }

type env struct {
	mem  memory.Allocator
	hook arrowcodec.Hook
}

func (e *env) opts(extra ...arrowcodec.Option) []arrowcodec.Option {
	if e.hook == nil {
		return extra
	}
	return append([]arrowcodec.Option{arrowcodec.WithHook(e.hook)}, extra...)
}

var cmpOpts = []cmp.Option{
	cmp.Comparer(func(a, b netip.Addr) bool { return a == b }),
}

// Run executes every case whose name contains filter. A nil mem uses the
// default allocator; hook may be nil.
func Run(mem memory.Allocator, hook arrowcodec.Hook, filter string) []Result {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	e := &env{mem: mem, hook: hook}
	var results []Result
	for _, c := range Cases() {
		if filter != "" && !strings.Contains(c.Name, filter) {
			continue
		}
		start := time.Now()
		rows, err := c.run(e)
		results = append(results, Result{
			Name:     c.Name,
			Rows:     rows,
			Duration: time.Since(start),
			Err:      err,
		})
	}
	return results
}

// roundTrip encodes rows, decodes them back and compares. Every suffix
// slice of the column is decoded as well so offset handling is covered
// for each shape.
func roundTrip[T any](rows []T, override string) func(*env) (int, error) {
	return func(e *env) (int, error) {
		c, err := arrowcodec.NewCodec[T](e.opts(arrowcodec.WithOverride(override))...)
		if err != nil {
			return 0, err
		}
		arr, err := c.Encode(e.mem, rows)
		if err != nil {
			return 0, fmt.Errorf("encode: %w", err)
		}
		defer arr.Release()
		if arr.Len() != len(rows) {
			return 0, fmt.Errorf("encoded %d rows, want %d", arr.Len(), len(rows))
		}
		if !arrow.TypeEqual(arr.DataType(), c.Descriptor().Type) {
			return 0, fmt.Errorf("column type %v, descriptor %v", arr.DataType(), c.Descriptor().Type)
		}
		got, err := c.Decode(arr)
		if err != nil {
			return 0, fmt.Errorf("decode: %w", err)
		}
		if diff := cmp.Diff(rows, got, cmpOpts...); diff != "" {
			return 0, fmt.Errorf("round trip mismatch (-want +got):\n%s", diff)
		}
		for i := 1; i < len(rows); i++ {
			slice := array.NewSlice(arr, int64(i), int64(len(rows)))
			got, err := c.Decode(slice)
			slice.Release()
			if err != nil {
				return 0, fmt.Errorf("decode slice [%d:]: %w", i, err)
			}
			if diff := cmp.Diff(rows[i:], got, cmpOpts...); diff != "" {
				return 0, fmt.Errorf("slice [%d:] mismatch (-want +got):\n%s", i, diff)
			}
		}
		return len(rows), nil
	}
}

// recordRoundTrip goes through a record batch instead of a struct column.
func recordRoundTrip[T any](rows []T) func(*env) (int, error) {
	return func(e *env) (int, error) {
		rec, err := arrowcodec.EncodeRecordBatch(e.mem, rows, e.opts()...)
		if err != nil {
			return 0, fmt.Errorf("encode: %w", err)
		}
		defer rec.Release()
		if rec.NumRows() != int64(len(rows)) {
			return 0, fmt.Errorf("record has %d rows, want %d", rec.NumRows(), len(rows))
		}
		got, err := arrowcodec.DecodeRecordBatch[T](rec, e.opts()...)
		if err != nil {
			return 0, fmt.Errorf("decode: %w", err)
		}
		if diff := cmp.Diff(rows, got, cmpOpts...); diff != "" {
			return 0, fmt.Errorf("record mismatch (-want +got):\n%s", diff)
		}
		return len(rows), nil
	}
}

// expectEncodeError checks that encoding rows fails with target.
func expectEncodeError[T any](rows []T, override string, target error) func(*env) (int, error) {
	return func(e *env) (int, error) {
		arr, err := arrowcodec.EncodeAs(e.mem, rows, override, e.opts()...)
		if err == nil {
			arr.Release()
			return 0, fmt.Errorf("encode succeeded, want %v", target)
		}
		if !errors.Is(err, target) {
			return 0, fmt.Errorf("encode failed with %v, want %v", err, target)
		}
		return len(rows), nil
	}
}

// expectDecodeError encodes rows as W and checks that reading them as R
// fails with target.
func expectDecodeError[W, R any](rows []W, writeAs, readAs string, target error) func(*env) (int, error) {
	return func(e *env) (int, error) {
		arr, err := arrowcodec.EncodeAs(e.mem, rows, writeAs, e.opts()...)
		if err != nil {
			return 0, fmt.Errorf("encode: %w", err)
		}
		defer arr.Release()
		_, err = arrowcodec.DecodeAs[R](arr, readAs, e.opts()...)
		if err == nil {
			return 0, fmt.Errorf("decode succeeded, want %v", target)
		}
		if !errors.Is(err, target) {
			return 0, fmt.Errorf("decode failed with %v, want %v", err, target)
		}
		return len(rows), nil
	}
}

// expectShapeError checks that T has no columnar form under override.
func expectShapeError[T any](override string) func(*env) (int, error) {
	return func(e *env) (int, error) {
		_, err := arrowcodec.NewCodec[T](arrowcodec.WithOverride(override))
		if !errors.Is(err, arrowcodec.ErrUnsupportedShape) {
			return 0, fmt.Errorf("derive returned %v, want %v", err, arrowcodec.ErrUnsupportedShape)
		}
		return 0, nil
	}
}
