// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package arrowcodec

import (
	"slices"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// signal is registered as a dense union and sparseSignal as a sparse union
// over the same variants.
type signal interface{ isSignal() }

type sparseSignal interface{ isSignal() }

type stop struct{}

type speed struct {
	KPH int32 `arrow:"kph"`
}

type label string

type detour struct {
	Via  []string `arrow:"via"`
	Note *string  `arrow:"note"`
}

func (stop) isSignal()    {}
func (speed) isSignal()   {}
func (label) isSignal()   {}
func (*detour) isSignal() {}

type rogue struct{}

// beacon has a unit variant registered by pointer.
type beacon interface{ isBeacon() }

type halt struct{}

type flag int32

func (*halt) isBeacon() {}
func (flag) isBeacon()  {}

func (rogue) isSignal() {}

func init() {
	variants := []VariantSpec{
		Variant[stop]("stop"),
		Variant[speed]("speed"),
		Variant[label]("label"),
		Variant[*detour]("detour"),
	}
	MustRegisterUnion[signal](arrow.DenseMode, variants...)
	MustRegisterUnion[sparseSignal](arrow.SparseMode, variants...)
	MustRegisterUnion[beacon](arrow.DenseMode, Variant[*halt]("halt"), Variant[flag]("flag"))
}

func signals() []signal {
	return []signal{
		speed{KPH: 50},
		stop{},
		nil,
		label("school zone"),
		&detour{Via: []string{"elm", "oak"}, Note: ptr("closed")},
		speed{KPH: -1},
		&detour{Via: []string{}},
		stop{},
	}
}

func TestUnionDescriptor(t *testing.T) {
	d, err := DescriptorOf[signal]()
	require.NoError(t, err)
	ut := d.Type.(*arrow.DenseUnionType)
	assert.Equal(t, []arrow.UnionTypeCode{0, 1, 2, 3}, ut.TypeCodes())
	fields := ut.Fields()
	require.Len(t, fields, 4)
	assert.Equal(t, "stop", fields[0].Name)
	assert.Equal(t, arrow.BOOL, fields[0].Type.ID())
	assert.Equal(t, arrow.STRUCT, fields[1].Type.ID())
	assert.Equal(t, arrow.STRING, fields[2].Type.ID())
	for _, f := range fields {
		assert.True(t, f.Nullable)
	}

	sd, err := DescriptorOf[sparseSignal]()
	require.NoError(t, err)
	assert.Equal(t, arrow.SPARSE_UNION, sd.Kind())
	assert.Equal(t, KindUnion, sd.PhysicalKind())
}

func TestDenseUnionRoundTrip(t *testing.T) {
	roundTrip(t, signals())
}

func TestSparseUnionRoundTrip(t *testing.T) {
	in := signals()
	rows := make([]sparseSignal, len(in))
	for i, s := range in {
		rows[i] = s
	}
	roundTrip(t, rows)
}

func TestDenseAndSparseDecodeAlike(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	in := signals()
	dense, err := Encode(mem, in)
	require.NoError(t, err)
	defer dense.Release()

	sparseIn := make([]sparseSignal, len(in))
	for i, s := range in {
		sparseIn[i] = s
	}
	sparse, err := Encode(mem, sparseIn)
	require.NoError(t, err)
	defer sparse.Release()

	d := dense.(*array.DenseUnion)
	s := sparse.(*array.SparseUnion)
	require.Equal(t, d.Len(), s.Len())
	for i := range d.Len() {
		assert.Equal(t, d.TypeCode(i), s.TypeCode(i), "type code at %d", i)
	}
	// Sparse children all have the union's length; dense children only
	// hold their own values.
	for i := range s.NumFields() {
		assert.Equal(t, len(in), s.Field(i).Len())
	}
	assert.Equal(t, 3, d.Field(0).Len()) // two stops and the null
	assert.Equal(t, 2, d.Field(1).Len())

	fromDense, err := Decode[signal](dense)
	require.NoError(t, err)
	fromSparse, err := Decode[sparseSignal](sparse)
	require.NoError(t, err)
	for i := range in {
		assert.Equal(t, fromDense[i], fromSparse[i], "value at %d", i)
	}
}

func TestDenseUnionOffsets(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	arr, err := Encode(mem, []signal{speed{1}, stop{}, speed{2}, label("x"), speed{3}})
	require.NoError(t, err)
	defer arr.Release()

	u := arr.(*array.DenseUnion)
	assert.Equal(t, []int32{0, 0, 1, 0, 2}, u.RawValueOffsets())
	assert.Equal(t, []arrow.UnionTypeCode{1, 0, 1, 2, 1}, u.RawTypeCodes())
}

func TestUnitVariantIsTrue(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	arr, err := Encode(mem, []signal{stop{}, stop{}})
	require.NoError(t, err)
	defer arr.Release()

	units := arr.(*array.DenseUnion).Field(0).(*array.Boolean)
	require.Equal(t, 2, units.Len())
	assert.True(t, units.Value(0))
	assert.True(t, units.Value(1))
}

// corruptUnits builds a sparse signal column whose only element is a unit
// variant with a false payload.
func corruptUnits(t *testing.T, mem memory.Allocator) arrow.Array {
	t.Helper()
	arr, err := Encode(mem, []sparseSignal{stop{}})
	require.NoError(t, err)
	defer arr.Release()

	bb := array.NewBooleanBuilder(mem)
	defer bb.Release()
	bb.Append(false)
	units := bb.NewArray()
	defer units.Release()

	src := arr.Data()
	children := slices.Clone(src.Children())
	children[0] = units.Data()
	data := array.NewData(src.DataType(), src.Len(), src.Buffers(), children, 0, src.Offset())
	defer data.Release()
	return array.MakeFromData(data)
}

func TestCorruptUnitPayload(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	arr := corruptUnits(t, mem)
	defer arr.Release()

	_, err := Decode[sparseSignal](arr)
	require.ErrorIs(t, err, ErrCorruptValue)
	var ce *CorruptValueError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "[0].stop", ce.Path)
	assert.Equal(t, "corrupt_value", ErrorKind(err))

	r, err := NewReader[sparseSignal](arr)
	require.NoError(t, err)
	defer r.Release()
	assert.False(t, r.Next())
	assert.ErrorIs(t, r.Err(), ErrCorruptValue)

	got, err := Decode[sparseSignal](arr, WithUnitCheck(false))
	require.NoError(t, err)
	assert.Equal(t, []sparseSignal{stop{}}, got)
}

func TestUnknownVariantIsEncodeError(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	b, err := NewBuilder[signal](mem)
	require.NoError(t, err)
	defer b.Release()

	require.NoError(t, b.Append(stop{}))
	err = b.Append(rogue{})
	require.ErrorIs(t, err, ErrEncode)
	err = b.Append(detourValue())
	require.ErrorIs(t, err, ErrEncode)
	assert.Equal(t, 1, b.Len())
}

// detourByValue shares its layout with detour but is not a variant.
type detourByValue detour

func (detourByValue) isSignal() {}

func detourValue() signal { return detourByValue{} }

func TestUnionInsideStruct(t *testing.T) {
	type leg struct {
		Name    string   `arrow:"name"`
		Signal  signal   `arrow:"signal"`
		History []signal `arrow:"history"`
	}
	roundTrip(t, []leg{
		{Name: "a", Signal: stop{}, History: []signal{speed{30}, nil}},
		{Name: "b", History: []signal{}},
		{Name: "c", Signal: label("yield"), History: []signal{&detour{Via: []string{"x"}}}},
	})
}

func TestRegisterUnionErrors(t *testing.T) {
	type notIface struct{}
	type other interface{ other() }

	err := RegisterUnion[notIface](arrow.DenseMode, Variant[stop]("stop"))
	assert.Error(t, err)

	err = RegisterUnion[other](arrow.DenseMode)
	assert.Error(t, err)

	err = RegisterUnion[other](arrow.DenseMode, Variant[stop]("stop"))
	assert.ErrorContains(t, err, "does not implement")

	err = RegisterUnion[signal](arrow.DenseMode, Variant[stop]("stop"))
	assert.ErrorContains(t, err, "already registered")

	type third interface{ isSignal() }
	err = RegisterUnion[third](arrow.DenseMode, Variant[stop]("a"), Variant[stop]("b"))
	assert.ErrorContains(t, err, "duplicate variant type")
	err = RegisterUnion[third](arrow.DenseMode, Variant[stop]("a"), Variant[speed]("a"))
	assert.ErrorContains(t, err, "duplicate variant name")

	assert.Panics(t, func() { MustRegisterUnion[notIface](arrow.SparseMode) })
}

func TestPointerToUnionIsAmbiguous(t *testing.T) {
	_, err := DescriptorOf[*signal]()
	require.ErrorIs(t, err, ErrUnsupportedShape)
	assert.ErrorIs(t, err, ErrAmbiguousNesting)
}

func TestNilPointerUnitVariantIsNull(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	arr, err := Encode(mem, []beacon{(*halt)(nil), &halt{}, flag(3)})
	require.NoError(t, err)
	defer arr.Release()

	units := arr.(*array.DenseUnion).Field(0)
	require.Equal(t, 2, units.Len())
	assert.True(t, units.IsNull(0))
	assert.True(t, units.IsValid(1))

	got, err := Decode[beacon](arr)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Nil(t, got[0])
	assert.Equal(t, &halt{}, got[1])
	assert.Equal(t, flag(3), got[2])
}
