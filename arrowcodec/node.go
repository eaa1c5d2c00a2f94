// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package arrowcodec

import (
	"reflect"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// node is the compiled mapping of one Go type onto one Arrow data type.
// Nodes are immutable and shared across goroutines.
type node interface {
	descriptor() Descriptor
	// fallible reports whether validate can fail for some value.
	fallible() bool
	// validate checks v without touching any buffer.
	validate(v reflect.Value) error
	newBuilder(mem memory.Allocator) nodeBuilder
	// newReader takes ownership of arr.
	newReader(arr arrow.Array, cfg *readConfig) nodeReader
}

// nodeBuilder accumulates one column.
type nodeBuilder interface {
	append(v reflect.Value) error
	appendNull()
	len() int
	reserve(elements, bytes int)
	// finish seals the column and resets the builder. The caller owns the
	// returned data.
	finish() arrow.ArrayData
	release()
}

// nodeReader reads values by logical index of the array it was built over.
type nodeReader interface {
	isNull(j int) bool
	read(j int, dst reflect.Value) error
	release()
}

type readConfig struct {
	unitCheck bool
}

// optionNode maps *T onto the descriptor of T with the nullable flag set.
type optionNode struct {
	typ  reflect.Type
	elem node
}

func (n *optionNode) descriptor() Descriptor {
	d := n.elem.descriptor()
	d.Nullable = true
	return d
}

func (n *optionNode) fallible() bool { return n.elem.fallible() }

func (n *optionNode) validate(v reflect.Value) error {
	if v.IsNil() {
		return nil
	}
	return n.elem.validate(v.Elem())
}

func (n *optionNode) newBuilder(mem memory.Allocator) nodeBuilder {
	return &optionBuilder{inner: n.elem.newBuilder(mem)}
}

func (n *optionNode) newReader(arr arrow.Array, cfg *readConfig) nodeReader {
	return &optionReader{elemType: n.typ.Elem(), inner: n.elem.newReader(arr, cfg)}
}

type optionBuilder struct {
	inner nodeBuilder
}

func (b *optionBuilder) append(v reflect.Value) error {
	if v.IsNil() {
		b.inner.appendNull()
		return nil
	}
	return b.inner.append(v.Elem())
}

func (b *optionBuilder) appendNull()                 { b.inner.appendNull() }
func (b *optionBuilder) len() int                    { return b.inner.len() }
func (b *optionBuilder) reserve(elements, bytes int) { b.inner.reserve(elements, bytes) }
func (b *optionBuilder) finish() arrow.ArrayData     { return b.inner.finish() }
func (b *optionBuilder) release()                    { b.inner.release() }

type optionReader struct {
	elemType reflect.Type
	inner    nodeReader
}

func (r *optionReader) isNull(j int) bool { return r.inner.isNull(j) }

func (r *optionReader) read(j int, dst reflect.Value) error {
	if r.inner.isNull(j) {
		dst.SetZero()
		return nil
	}
	p := reflect.New(r.elemType)
	if err := r.inner.read(j, p.Elem()); err != nil {
		return err
	}
	dst.Set(p)
	return nil
}

func (r *optionReader) release() { r.inner.release() }
