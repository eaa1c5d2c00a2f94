// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package arrowcodec

import (
	"reflect"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Codec binds a Go type to its derived descriptor. A Codec is immutable and
// safe for concurrent use; the builders and readers it creates are not.
type Codec[T any] struct {
	node node
	desc Descriptor
	opts *options
	info OpInfo
}

// NewCodec derives the descriptor of T.
func NewCodec[T any](opts ...Option) (*Codec[T], error) {
	o := newOptions(opts)
	t := reflect.TypeFor[T]()
	n, err := compileType(t, o.override)
	if err != nil {
		return nil, err
	}
	desc := n.descriptor()
	return &Codec[T]{
		node: n,
		desc: desc,
		opts: o,
		info: OpInfo{GoType: t.String(), Descriptor: desc},
	}, nil
}

// Descriptor returns the derived descriptor.
func (c *Codec[T]) Descriptor() Descriptor { return c.desc }

// NewBuilder returns an empty builder for T.
func (c *Codec[T]) NewBuilder(mem memory.Allocator) *Builder[T] {
	return newBuilder[T](mem, c.node)
}

// NewReader checks arr and returns a reader over it.
func (c *Codec[T]) NewReader(arr arrow.Array) (*Reader[T], error) {
	return newReader[T](arr, c.node, c.opts.readConfig())
}

// Encode builds one column from rows. On error no array is returned and
// all memory is released.
func (c *Codec[T]) Encode(mem memory.Allocator, rows []T) (arrow.Array, error) {
	info := c.info
	info.Op = OpEncode
	var out arrow.Array
	err := observe(c.opts.hook, info, func() (*Statistics, error) {
		b := c.NewBuilder(mem)
		defer b.Release()
		b.Reserve(len(rows), 0)
		if err := b.AppendValues(rows); err != nil {
			return nil, err
		}
		out = b.NewArray()
		return StatisticsOf(out), nil
	})
	return out, err
}

// Decode reads every value of arr.
func (c *Codec[T]) Decode(arr arrow.Array) ([]T, error) {
	info := c.info
	info.Op = OpDecode
	var out []T
	err := observe(c.opts.hook, info, func() (*Statistics, error) {
		r, err := c.NewReader(arr)
		if err != nil {
			return nil, err
		}
		defer r.Release()
		out = make([]T, 0, r.Len())
		for _, v := range r.All() {
			out = append(out, v)
		}
		if err := r.Err(); err != nil {
			out = nil
			return nil, err
		}
		return StatisticsOf(arr), nil
	})
	return out, err
}

// Encode builds one column from rows of type T.
func Encode[T any](mem memory.Allocator, rows []T, opts ...Option) (arrow.Array, error) {
	c, err := NewCodec[T](opts...)
	if err != nil {
		return nil, err
	}
	return c.Encode(mem, rows)
}

// Decode reads every value of arr as T.
func Decode[T any](arr arrow.Array, opts ...Option) ([]T, error) {
	c, err := NewCodec[T](opts...)
	if err != nil {
		return nil, err
	}
	return c.Decode(arr)
}

// EncodeAs is Encode with tag options applied to T, for example
// EncodeAs[[]int32](mem, rows, "fixed=3").
func EncodeAs[T any](mem memory.Allocator, rows []T, override string, opts ...Option) (arrow.Array, error) {
	return Encode(mem, rows, append(opts[:len(opts):len(opts)], WithOverride(override))...)
}

// DecodeAs is Decode with tag options applied to T, for example
// DecodeAs[string](arr, "large").
func DecodeAs[T any](arr arrow.Array, override string, opts ...Option) ([]T, error) {
	return Decode[T](arr, append(opts[:len(opts):len(opts)], WithOverride(override))...)
}
