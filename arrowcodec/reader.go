// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package arrowcodec

import (
	"fmt"
	"iter"
	"log/slog"
	"reflect"

	"github.com/apache/arrow-go/v18/arrow"
)

// Reader iterates over a column as values of type T.
//
// The column's data type is checked against the descriptor of T when the
// reader is created; no buffer is read before that check passes.
type Reader[T any] struct {
	root nodeReader
	desc Descriptor
	n    int
	pos  int
	cur  T
	err  error
}

// NewReader checks arr against the descriptor of T and returns a reader over
// it. The reader retains arr until Release.
func NewReader[T any](arr arrow.Array, opts ...Option) (*Reader[T], error) {
	o := newOptions(opts)
	n, err := compileType(reflect.TypeFor[T](), o.override)
	if err != nil {
		return nil, err
	}
	return newReader[T](arr, n, o.readConfig())
}

func newReader[T any](arr arrow.Array, n node, cfg *readConfig) (*Reader[T], error) {
	desc := n.descriptor()
	if err := preflight(desc, arr); err != nil {
		slog.Debug("arrowcodec: schema mismatch", "expected", desc, "actual", arr.DataType(), "err", err)
		return nil, err
	}
	arr.Retain()
	return &Reader[T]{root: n.newReader(arr, cfg), desc: desc, n: arr.Len(), pos: -1}, nil
}

// preflight checks the whole type tree of arr, and the top-level nulls of a
// non-nullable descriptor.
func preflight(desc Descriptor, arr arrow.Array) error {
	if arr == nil {
		return &SchemaMismatchError{Expected: desc.Type, Reason: "nil column"}
	}
	if err := checkType("", desc.Type, arr.DataType()); err != nil {
		return err
	}
	if !desc.Nullable && arr.NullN() > 0 {
		return &SchemaMismatchError{
			Expected: desc.Type,
			Actual:   arr.DataType(),
			Reason:   fmt.Sprintf("column has %d nulls but the type is not nullable", arr.NullN()),
		}
	}
	return nil
}

// Descriptor returns the descriptor the column was checked against.
func (r *Reader[T]) Descriptor() Descriptor { return r.desc }

// Len returns the number of elements in the column.
func (r *Reader[T]) Len() int { return r.n }

// Next advances to the next value. It returns false at the end of the
// column or after a decode error; check Err to tell them apart.
func (r *Reader[T]) Next() bool {
	if r.err != nil || r.pos+1 >= r.n {
		r.pos = r.n
		return false
	}
	r.pos++
	r.cur, r.err = r.ValueAt(r.pos)
	return r.err == nil
}

// Value returns the current value.
func (r *Reader[T]) Value() T { return r.cur }

// Err returns the first decode error, if any.
func (r *Reader[T]) Err() error { return r.err }

// ValueAt decodes the value at logical index i.
func (r *Reader[T]) ValueAt(i int) (T, error) {
	var v T
	if i < 0 || i >= r.n {
		return v, fmt.Errorf("arrowcodec: index %d out of range [0, %d)", i, r.n)
	}
	dst := reflect.ValueOf(&v).Elem()
	if r.root.isNull(i) {
		return v, nil
	}
	if err := r.root.read(i, dst); err != nil {
		return v, prefixPath(err, indexSeg(i))
	}
	return v, nil
}

// All returns an iterator over the remaining (index, value) pairs. It stops
// at the first decode error, which is then reported by Err.
func (r *Reader[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for r.Next() {
			if !yield(r.pos, r.cur) {
				return
			}
		}
	}
}

// Release releases the column.
func (r *Reader[T]) Release() {
	if r.root != nil {
		r.root.release()
		r.root = nil
	}
}
