// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package arrowcodec

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaMismatch(t *testing.T) {
	type point struct {
		X int64 `arrow:"x"`
		Y int64 `arrow:"y"`
	}
	type shape struct {
		Points []point `arrow:"points"`
	}
	type pointS struct {
		X string `arrow:"x"`
		Y int64  `arrow:"y"`
	}
	type shapeS struct {
		Points []pointS `arrow:"points"`
	}

	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	ints, err := Encode(mem, []int64{1, 2})
	require.NoError(t, err)
	defer ints.Release()
	strs, err := Encode(mem, []string{"a"})
	require.NoError(t, err)
	defer strs.Release()
	shapes, err := Encode(mem, []shape{{Points: []point{{1, 2}}}})
	require.NoError(t, err)
	defer shapes.Release()
	fixed, err := EncodeAs(mem, [][]int32{{1, 2, 3}}, "fixed=3")
	require.NoError(t, err)
	defer fixed.Release()
	optional, err := Encode(mem, [][]*int32{{nil}})
	require.NoError(t, err)
	defer optional.Release()

	cases := []struct {
		name string
		run  func() error
		path string
	}{
		{"int64 as string", func() error { _, err := Decode[string](ints); return err }, ""},
		{"int64 as int32", func() error { _, err := Decode[int32](ints); return err }, ""},
		{"string as large string", func() error { _, err := DecodeAs[string](strs, "large"); return err }, ""},
		{"string as enum", func() error { _, err := DecodeAs[string](strs, "enum"); return err }, ""},
		{"nested field", func() error { _, err := Decode[shapeS](shapes); return err }, "points.item.x"},
		{"fixed size", func() error { _, err := DecodeAs[[]int32](fixed, "fixed=4"); return err }, ""},
		{"list as fixed list", func() error { _, err := Decode[[]int32](fixed); return err }, ""},
		{"nullable child", func() error { _, err := Decode[[]int32](optional); return err }, "item"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.run()
			require.ErrorIs(t, err, ErrSchemaMismatch)
			var se *SchemaMismatchError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tc.path, se.Path)
			assert.Equal(t, "schema_mismatch", ErrorKind(err))
		})
	}
}

func TestNullableCanReadNonNullableColumn(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	arr, err := Encode(mem, [][]int32{{1, 2}, {3}})
	require.NoError(t, err)
	defer arr.Release()

	got, err := Decode[[]*int32](arr)
	require.NoError(t, err)
	assert.Equal(t, [][]*int32{{ptr[int32](1), ptr[int32](2)}, {ptr[int32](3)}}, got)
}

func TestReaderIteration(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	arr, err := Encode(mem, []*string{ptr("a"), nil, ptr("c")})
	require.NoError(t, err)
	defer arr.Release()

	r, err := NewReader[*string](arr)
	require.NoError(t, err)
	defer r.Release()
	assert.Equal(t, 3, r.Len())

	var got []*string
	for r.Next() {
		got = append(got, r.Value())
	}
	require.NoError(t, r.Err())
	assert.Equal(t, []*string{ptr("a"), nil, ptr("c")}, got)

	assert.False(t, r.Next())
	assert.False(t, r.Next())
	require.NoError(t, r.Err())

	v, err := r.ValueAt(2)
	require.NoError(t, err)
	assert.Equal(t, "c", *v)
	_, err = r.ValueAt(3)
	assert.Error(t, err)
}

func TestReaderAll(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	arr, err := Encode(mem, []int32{10, 20, 30, 40})
	require.NoError(t, err)
	defer arr.Release()

	r, err := NewReader[int32](arr)
	require.NoError(t, err)
	defer r.Release()

	var idx []int
	var vals []int32
	for i, v := range r.All() {
		idx = append(idx, i)
		vals = append(vals, v)
		if i == 2 {
			break
		}
	}
	assert.Equal(t, []int{0, 1, 2}, idx)
	assert.Equal(t, []int32{10, 20, 30}, vals)
}

func TestReaderOutlivesCallerReference(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	arr, err := Encode(mem, []string{"kept"})
	require.NoError(t, err)
	r, err := NewReader[string](arr)
	require.NoError(t, err)
	arr.Release()

	require.True(t, r.Next())
	assert.Equal(t, "kept", r.Value())
	r.Release()
}

func TestDecodeForeignColumn(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	lb := array.NewListBuilderWithField(mem, arrow.Field{Name: "item", Type: arrow.PrimitiveTypes.Int64})
	defer lb.Release()
	vb := lb.ValueBuilder().(*array.Int64Builder)
	lb.Append(true)
	vb.AppendValues([]int64{1, 2}, nil)
	lb.Append(true)
	lb.AppendNull()
	arr := lb.NewArray()
	defer arr.Release()

	got, err := Decode[*[]int64](arr)
	require.NoError(t, err)
	assert.Equal(t, []*[]int64{{1, 2}, {}, nil}, got)
}

func TestSlicedStructReadsWithOffset(t *testing.T) {
	type pair struct {
		K string   `arrow:"k"`
		V []uint16 `arrow:"v"`
	}
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	rows := []pair{{"a", []uint16{1}}, {"b", []uint16{2, 3}}, {"c", []uint16{}}, {"d", []uint16{4}}}
	arr, err := Encode(mem, rows)
	require.NoError(t, err)
	defer arr.Release()

	slice := array.NewSlice(arr, 1, 3)
	defer slice.Release()
	got, err := Decode[pair](slice)
	require.NoError(t, err)
	assert.Equal(t, rows[1:3], got)

	rec, err := FlattenStruct(slice)
	require.NoError(t, err)
	defer rec.Release()
	assert.Equal(t, int64(2), rec.NumRows())
	assert.Equal(t, "b", rec.Column(0).(*array.String).Value(0))

	back, err := DecodeRecordBatch[pair](rec)
	require.NoError(t, err)
	assert.Equal(t, rows[1:3], back)
}
