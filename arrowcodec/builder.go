// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package arrowcodec

import (
	"log/slog"
	"reflect"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Builder accumulates values of type T into one column.
//
// A failed Append leaves the builder unchanged, so the caller may skip the
// value and keep appending. A Builder is not safe for concurrent use.
type Builder[T any] struct {
	node node
	root nodeBuilder
	desc Descriptor
}

// NewBuilder returns a builder for the column derived from T.
func NewBuilder[T any](mem memory.Allocator, opts ...Option) (*Builder[T], error) {
	o := newOptions(opts)
	n, err := compileType(reflect.TypeFor[T](), o.override)
	if err != nil {
		return nil, err
	}
	return newBuilder[T](mem, n), nil
}

func newBuilder[T any](mem memory.Allocator, n node) *Builder[T] {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	return &Builder[T]{node: n, root: n.newBuilder(mem), desc: n.descriptor()}
}

// Descriptor returns the descriptor of the column being built.
func (b *Builder[T]) Descriptor() Descriptor { return b.desc }

// Append adds v. A nil pointer or nil union value appends a null.
func (b *Builder[T]) Append(v T) error {
	rv := reflect.ValueOf(&v).Elem()
	if b.node.fallible() {
		if err := b.node.validate(rv); err != nil {
			return err
		}
	}
	return b.root.append(rv)
}

// AppendValues appends every element of vs, stopping at the first error.
// Values before the failing one stay appended.
func (b *Builder[T]) AppendValues(vs []T) error {
	for i := range vs {
		if err := b.Append(vs[i]); err != nil {
			return prefixPath(err, indexSeg(i))
		}
	}
	return nil
}

// AppendNull appends a null slot. For a non-nullable T the slot is still
// written, keeping the column aligned with its siblings.
func (b *Builder[T]) AppendNull() { b.root.appendNull() }

// Reserve is a capacity hint for the given number of additional elements and
// variable-length payload bytes.
func (b *Builder[T]) Reserve(elements, bytes int) { b.root.reserve(elements, bytes) }

// Len returns the number of elements appended since the last NewArray.
func (b *Builder[T]) Len() int { return b.root.len() }

// NewArray seals the accumulated values into an array and resets the
// builder. The caller must release the array.
func (b *Builder[T]) NewArray() arrow.Array {
	data := b.root.finish()
	defer data.Release()
	arr := array.MakeFromData(data)
	slog.Debug("arrowcodec: sealed column",
		"type", b.desc,
		"rows", arr.Len(),
		"nulls", arr.NullN())
	return arr
}

// Release frees the memory held by values not yet sealed.
func (b *Builder[T]) Release() { b.root.release() }
