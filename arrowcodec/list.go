// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package arrowcodec

import (
	"errors"
	"math"
	"reflect"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// listNode maps a Go slice onto List (32-bit offsets) or LargeList (64-bit
// offsets).
type listNode struct {
	typ   reflect.Type
	dt    arrow.DataType
	large bool
	elem  node
}

func newListNode(t reflect.Type, elem node, large bool) *listNode {
	item := elem.descriptor().Field("item")
	n := &listNode{typ: t, elem: elem, large: large}
	if large {
		n.dt = arrow.LargeListOfField(item)
	} else {
		n.dt = arrow.ListOfField(item)
	}
	return n
}

func (n *listNode) descriptor() Descriptor { return Descriptor{Type: n.dt} }

func (n *listNode) fallible() bool { return n.elem.fallible() }

func (n *listNode) validate(v reflect.Value) error {
	return validateItems(n.elem, v)
}

func validateItems(elem node, v reflect.Value) error {
	if !elem.fallible() {
		return nil
	}
	for i := range v.Len() {
		if err := elem.validate(v.Index(i)); err != nil {
			return prefixPath(err, indexSeg(i))
		}
	}
	return nil
}

func (n *listNode) newBuilder(mem memory.Allocator) nodeBuilder {
	return &listBuilder{
		dt:      n.dt,
		large:   n.large,
		child:   n.elem.newBuilder(mem),
		offsets: []int64{0},
	}
}

func (n *listNode) newReader(arr arrow.Array, cfg *readConfig) nodeReader {
	data := arr.Data()
	child := array.MakeFromData(data.Children()[0])
	return &listReader{
		typ:     n.typ,
		arr:     arr,
		offsets: arr.(offsetsArray),
		child:   n.elem.newReader(child, cfg),
	}
}

// offsetsArray is implemented by *array.List, *array.LargeList and
// *array.Map.
type offsetsArray interface {
	ValueOffsets(i int) (start, end int64)
}

var errOffsetOverflow = errors.New("list child length exceeds 32-bit offsets; use the large option")

// maxOffset is the largest child length a 32-bit offsets buffer can address.
var maxOffset int64 = math.MaxInt32

// listBuilder keeps offsets as int64 and narrows them when sealing a List.
type listBuilder struct {
	dt      arrow.DataType
	large   bool
	child   nodeBuilder
	offsets []int64
	valid   validityBuilder
}

func (b *listBuilder) append(v reflect.Value) error {
	if !b.large && int64(b.child.len())+int64(v.Len()) > maxOffset {
		return &EncodeError{Value: v.Len(), Err: errOffsetOverflow}
	}
	for i := range v.Len() {
		if err := b.child.append(v.Index(i)); err != nil {
			return prefixPath(err, indexSeg(i))
		}
	}
	b.offsets = append(b.offsets, int64(b.child.len()))
	b.valid.append(true)
	return nil
}

// appendNull repeats the previous offset: a null list is a zero-width slice.
func (b *listBuilder) appendNull() {
	b.offsets = append(b.offsets, b.offsets[len(b.offsets)-1])
	b.valid.append(false)
}

func (b *listBuilder) len() int { return len(b.offsets) - 1 }

func (b *listBuilder) reserve(elements, bytes int) {
	if free := cap(b.offsets) - len(b.offsets); free < elements {
		grown := make([]int64, len(b.offsets), len(b.offsets)+elements)
		copy(grown, b.offsets)
		b.offsets = grown
	}
	b.valid.reserve(elements)
	b.child.reserve(elements, bytes)
}

func (b *listBuilder) finish() arrow.ArrayData {
	length := len(b.offsets) - 1
	var offsets *memory.Buffer
	if b.large {
		offsets = memory.NewBufferBytes(arrow.Int64Traits.CastToBytes(b.offsets))
	} else {
		narrow := make([]int32, len(b.offsets))
		for i, o := range b.offsets {
			narrow[i] = int32(o)
		}
		offsets = memory.NewBufferBytes(arrow.Int32Traits.CastToBytes(narrow))
	}
	b.offsets = []int64{0}
	child := b.child.finish()
	validity, nulls := b.valid.finish()
	return newNestedData(b.dt, length, []*memory.Buffer{validity, offsets}, []arrow.ArrayData{child}, nulls)
}

func (b *listBuilder) release() { b.child.release() }

type listReader struct {
	typ     reflect.Type
	arr     arrow.Array
	offsets offsetsArray
	child   nodeReader
}

func (r *listReader) isNull(j int) bool { return r.arr.IsNull(j) }

// read materialises the child range [offsets[j], offsets[j+1]).
func (r *listReader) read(j int, dst reflect.Value) error {
	start, end := r.offsets.ValueOffsets(j)
	n := int(end - start)
	s := reflect.MakeSlice(r.typ, n, n)
	for i := range n {
		if err := r.child.read(int(start)+i, s.Index(i)); err != nil {
			return prefixPath(err, indexSeg(i))
		}
	}
	dst.Set(s)
	return nil
}

func (r *listReader) release() {
	r.child.release()
	r.arr.Release()
}

// fixedListNode maps [N]T arrays, or slices tagged fixed=N, onto
// FixedSizeList(N).
type fixedListNode struct {
	typ  reflect.Type
	dt   *arrow.FixedSizeListType
	size int
	elem node
}

func newFixedListNode(t reflect.Type, elem node, size int) *fixedListNode {
	return &fixedListNode{
		typ:  t,
		dt:   arrow.FixedSizeListOfField(int32(size), elem.descriptor().Field("item")),
		size: size,
		elem: elem,
	}
}

func (n *fixedListNode) descriptor() Descriptor { return Descriptor{Type: n.dt} }

func (n *fixedListNode) fallible() bool {
	return n.typ.Kind() == reflect.Slice || n.elem.fallible()
}

func (n *fixedListNode) validate(v reflect.Value) error {
	if v.Len() != n.size {
		return &FixedSizeMismatchError{Expected: n.size, Actual: v.Len()}
	}
	return validateItems(n.elem, v)
}

func (n *fixedListNode) newBuilder(mem memory.Allocator) nodeBuilder {
	return &fixedListBuilder{node: n, child: n.elem.newBuilder(mem)}
}

func (n *fixedListNode) newReader(arr arrow.Array, cfg *readConfig) nodeReader {
	child := array.MakeFromData(arr.Data().Children()[0])
	return &fixedListReader{node: n, arr: arr, offset: arr.Data().Offset(), child: n.elem.newReader(child, cfg)}
}

type fixedListBuilder struct {
	node   *fixedListNode
	child  nodeBuilder
	valid  validityBuilder
	length int
}

func (b *fixedListBuilder) append(v reflect.Value) error {
	if v.Len() != b.node.size {
		return &FixedSizeMismatchError{Expected: b.node.size, Actual: v.Len()}
	}
	for i := range b.node.size {
		if err := b.child.append(v.Index(i)); err != nil {
			return prefixPath(err, indexSeg(i))
		}
	}
	b.valid.append(true)
	b.length++
	return nil
}

// appendNull pushes size placeholders to keep the child stride.
func (b *fixedListBuilder) appendNull() {
	for range b.node.size {
		b.child.appendNull()
	}
	b.valid.append(false)
	b.length++
}

func (b *fixedListBuilder) len() int { return b.length }

func (b *fixedListBuilder) reserve(elements, bytes int) {
	b.valid.reserve(elements)
	b.child.reserve(elements*b.node.size, bytes)
}

func (b *fixedListBuilder) finish() arrow.ArrayData {
	child := b.child.finish()
	validity, nulls := b.valid.finish()
	length := b.length
	b.length = 0
	return newNestedData(b.node.dt, length, []*memory.Buffer{validity}, []arrow.ArrayData{child}, nulls)
}

func (b *fixedListBuilder) release() { b.child.release() }

type fixedListReader struct {
	node   *fixedListNode
	arr    arrow.Array
	offset int
	child  nodeReader
}

func (r *fixedListReader) isNull(j int) bool { return r.arr.IsNull(j) }

func (r *fixedListReader) read(j int, dst reflect.Value) error {
	size := r.node.size
	base := (r.offset + j) * size
	isSlice := r.node.typ.Kind() == reflect.Slice
	target := dst
	if isSlice {
		target = reflect.MakeSlice(r.node.typ, size, size)
	}
	for i := range size {
		if err := r.child.read(base+i, target.Index(i)); err != nil {
			return prefixPath(err, indexSeg(i))
		}
	}
	if isSlice {
		dst.Set(target)
	}
	return nil
}

func (r *fixedListReader) release() {
	r.child.release()
	r.arr.Release()
}
