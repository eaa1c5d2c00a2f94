// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package arrowcodec

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/bitutil"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// validityBuilder is a validity bitmap that is only allocated once the first
// null is appended. Until then every position is implicitly valid.
//
// Leaf columns are backed by arrow builders, which always size a bitmap of
// their own. Leaves append null slots as empty values so that bitmap stays
// all set, and finish swaps in this one.
type validityBuilder struct {
	bits   []byte
	length int
	nulls  int
	hint   int
}

func (v *validityBuilder) append(valid bool) {
	if !valid && v.bits == nil {
		v.bits = make([]byte, bitutil.BytesForBits(int64(v.length+1)), bitutil.BytesForBits(int64(max(v.length+1, v.hint))))
		bitutil.SetBitsTo(v.bits, 0, int64(v.length), true)
	}
	if v.bits != nil {
		if int(bitutil.BytesForBits(int64(v.length+1))) > len(v.bits) {
			v.bits = append(v.bits, 0)
		}
		bitutil.SetBitTo(v.bits, v.length, valid)
	}
	if !valid {
		v.nulls++
	}
	v.length++
}

// reserve records the expected final length so a late first null allocates
// the whole bitmap at once.
func (v *validityBuilder) reserve(elements int) {
	v.hint = v.length + elements
	if v.bits != nil {
		need := int(bitutil.BytesForBits(int64(v.hint)))
		if need > cap(v.bits) {
			grown := make([]byte, len(v.bits), need)
			copy(grown, v.bits)
			v.bits = grown
		}
	}
}

// finish returns the bitmap buffer (nil when no null was appended) and the
// null count, and resets the builder.
func (v *validityBuilder) finish() (*memory.Buffer, int) {
	var buf *memory.Buffer
	if v.bits != nil {
		buf = memory.NewBufferBytes(v.bits)
	}
	nulls := v.nulls
	*v = validityBuilder{}
	return buf, nulls
}

// replaceValidity rebuilds data with the given validity bitmap in place of
// the one the arrow builder produced.
func replaceValidity(data arrow.ArrayData, validity *memory.Buffer, nulls int) *array.Data {
	bufs := make([]*memory.Buffer, len(data.Buffers()))
	copy(bufs, data.Buffers())
	bufs[0] = validity
	if dict, ok := data.Dictionary().(*array.Data); ok && dict != nil {
		return array.NewDataWithDictionary(data.DataType(), data.Len(), bufs, nulls, data.Offset(), dict)
	}
	return array.NewData(data.DataType(), data.Len(), bufs, data.Children(), nulls, data.Offset())
}

// newNestedData assembles a sealed nested column from buffers and child
// data, releasing the caller's references to both.
func newNestedData(dt arrow.DataType, length int, bufs []*memory.Buffer, children []arrow.ArrayData, nulls int) *array.Data {
	data := array.NewData(dt, length, bufs, children, nulls, 0)
	for _, b := range bufs {
		if b != nil {
			b.Release()
		}
	}
	for _, c := range children {
		c.Release()
	}
	return data
}

// childArrays wraps every child of data in an array. The caller owns the
// arrays.
func childArrays(data arrow.ArrayData) []arrow.Array {
	children := data.Children()
	out := make([]arrow.Array, len(children))
	for i, c := range children {
		out[i] = array.MakeFromData(c)
	}
	return out
}
