// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package arrowcodec

import (
	"reflect"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// customNode is a registered leaf: values are converted to the storage type
// S and handed to the storage node.
type customNode[T, S any] struct {
	typ     reflect.Type
	storage node
	enc     Encoder[T, S]
	dec     Decoder[T, S]
}

func (n *customNode[T, S]) descriptor() Descriptor { return n.storage.descriptor() }

func (n *customNode[T, S]) fallible() bool { return true }

func (n *customNode[T, S]) encode(v reflect.Value) (reflect.Value, error) {
	s, err := n.enc.EncodeLeaf(v.Interface().(T))
	if err != nil {
		return reflect.Value{}, &EncodeError{Value: valueOf(v), Err: err}
	}
	return reflect.ValueOf(&s).Elem(), nil
}

func (n *customNode[T, S]) validate(v reflect.Value) error {
	sv, err := n.encode(v)
	if err != nil {
		return err
	}
	return n.storage.validate(sv)
}

func (n *customNode[T, S]) newBuilder(mem memory.Allocator) nodeBuilder {
	return &customBuilder[T, S]{node: n, inner: n.storage.newBuilder(mem)}
}

func (n *customNode[T, S]) newReader(arr arrow.Array, cfg *readConfig) nodeReader {
	return &customReader[T, S]{node: n, inner: n.storage.newReader(arr, cfg)}
}

type customBuilder[T, S any] struct {
	node  *customNode[T, S]
	inner nodeBuilder
}

func (b *customBuilder[T, S]) append(v reflect.Value) error {
	sv, err := b.node.encode(v)
	if err != nil {
		return err
	}
	return b.inner.append(sv)
}

func (b *customBuilder[T, S]) appendNull()                 { b.inner.appendNull() }
func (b *customBuilder[T, S]) len() int                    { return b.inner.len() }
func (b *customBuilder[T, S]) reserve(elements, bytes int) { b.inner.reserve(elements, bytes) }
func (b *customBuilder[T, S]) finish() arrow.ArrayData     { return b.inner.finish() }
func (b *customBuilder[T, S]) release()                    { b.inner.release() }

type customReader[T, S any] struct {
	node  *customNode[T, S]
	inner nodeReader
}

func (r *customReader[T, S]) isNull(j int) bool { return r.inner.isNull(j) }

func (r *customReader[T, S]) read(j int, dst reflect.Value) error {
	var s S
	if err := r.inner.read(j, reflect.ValueOf(&s).Elem()); err != nil {
		return err
	}
	v, err := r.node.dec.DecodeLeaf(s)
	if err != nil {
		return &CorruptValueError{Index: j, Err: err}
	}
	dst.Set(reflect.ValueOf(&v).Elem())
	return nil
}

func (r *customReader[T, S]) release() { r.inner.release() }
