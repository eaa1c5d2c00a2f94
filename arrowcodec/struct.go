// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package arrowcodec

import (
	"reflect"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

type structField struct {
	name  string
	index int
	node  node
}

// structNode maps a Go struct onto an Arrow struct, one child per exported
// field in declared order.
type structNode struct {
	typ      reflect.Type
	dt       *arrow.StructType
	fields   []structField
	failable bool
}

func newStructNode(t reflect.Type, fields []structField) *structNode {
	afields := make([]arrow.Field, len(fields))
	failable := false
	for i, f := range fields {
		afields[i] = f.node.descriptor().Field(f.name)
		failable = failable || f.node.fallible()
	}
	return &structNode{typ: t, dt: arrow.StructOf(afields...), fields: fields, failable: failable}
}

func (n *structNode) descriptor() Descriptor { return Descriptor{Type: n.dt} }

func (n *structNode) fallible() bool { return n.failable }

func (n *structNode) validate(v reflect.Value) error {
	for _, f := range n.fields {
		if !f.node.fallible() {
			continue
		}
		if err := f.node.validate(v.Field(f.index)); err != nil {
			return prefixPath(err, f.name)
		}
	}
	return nil
}

func (n *structNode) newBuilder(mem memory.Allocator) nodeBuilder {
	b := &structBuilder{node: n, children: make([]nodeBuilder, len(n.fields))}
	for i, f := range n.fields {
		b.children[i] = f.node.newBuilder(mem)
	}
	return b
}

func (n *structNode) newReader(arr arrow.Array, cfg *readConfig) nodeReader {
	r := &structReader{
		node:     n,
		arr:      arr,
		offset:   arr.Data().Offset(),
		children: make([]nodeReader, len(n.fields)),
	}
	for i, child := range childArrays(arr.Data()) {
		r.children[i] = n.fields[i].node.newReader(child, cfg)
	}
	return r
}

type structBuilder struct {
	node     *structNode
	children []nodeBuilder
	valid    validityBuilder
	length   int
}

func (b *structBuilder) append(v reflect.Value) error {
	for i, f := range b.node.fields {
		if err := b.children[i].append(v.Field(f.index)); err != nil {
			return prefixPath(err, f.name)
		}
	}
	b.valid.append(true)
	b.length++
	return nil
}

// appendNull pushes a placeholder into every child so sibling columns stay
// aligned.
func (b *structBuilder) appendNull() {
	for _, c := range b.children {
		c.appendNull()
	}
	b.valid.append(false)
	b.length++
}

func (b *structBuilder) len() int { return b.length }

func (b *structBuilder) reserve(elements, bytes int) {
	b.valid.reserve(elements)
	for _, c := range b.children {
		c.reserve(elements, bytes)
	}
}

func (b *structBuilder) finish() arrow.ArrayData {
	children := make([]arrow.ArrayData, len(b.children))
	for i, c := range b.children {
		children[i] = c.finish()
	}
	validity, nulls := b.valid.finish()
	length := b.length
	b.length = 0
	return newNestedData(b.node.dt, length, []*memory.Buffer{validity}, children, nulls)
}

func (b *structBuilder) release() {
	for _, c := range b.children {
		c.release()
	}
}

type structReader struct {
	node     *structNode
	arr      arrow.Array
	offset   int
	children []nodeReader
}

func (r *structReader) isNull(j int) bool { return r.arr.IsNull(j) }

// read fills dst from position j. Children are unsliced, so the struct
// offset is added.
func (r *structReader) read(j int, dst reflect.Value) error {
	k := r.offset + j
	for i, f := range r.node.fields {
		if err := r.children[i].read(k, dst.Field(f.index)); err != nil {
			return prefixPath(err, f.name)
		}
	}
	return nil
}

func (r *structReader) release() {
	for _, c := range r.children {
		c.release()
	}
	r.arr.Release()
}
