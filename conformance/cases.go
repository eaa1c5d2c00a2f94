// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package conformance

import (
	"net/netip"
	"time"

	"github.com/Query-farm/arrowcodec/arrowcodec"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// treeNode refers to itself and therefore has no columnar form.
type treeNode struct {
	Children []treeNode `arrow:"children"`
}

func ptr[T any](v T) *T { return &v }

// SampleAllTypes returns two fully populated AllTypes rows.
func SampleAllTypes() []AllTypes {
	return []AllTypes{
		{
			StrField:       "hello",
			LargeStr:       "a large string",
			BytesField:     []byte{0x00, 0xff},
			LargeBytes:     []byte("large bytes"),
			Digest:         [4]byte{0xde, 0xad, 0xbe, 0xef},
			IntField:       42,
			TinyInt:        -8,
			UnsignedInt:    65535,
			FloatField:     3.14,
			BoolField:      true,
			ListOfInt:      []int64{1, 2, 3},
			ListOfStr:      []string{"a", "b"},
			LargeList:      []int32{7},
			Triple:         []float32{1, 2, 3},
			Pair:           [2]int16{-1, 1},
			DictField:      map[string]int64{"x": 1, "y": 2},
			EnumField:      StatusActive,
			NestedPoint:    Point{X: 1.5, Y: -2.5},
			OptionalStr:    ptr("present"),
			OptionalInt:    ptr[int64](7),
			OptionalNested: &Point{X: 3, Y: 4},
			ListOfNested:   []Point{{X: 0, Y: 0}, {X: 1, Y: 1}},
			AnnotatedInt32: 2147483647,
			AnnotatedFloat: 0.5,
			NestedList:     [][]int64{{1}, {}, {2, 3}},
			DictStrStr:     map[string]string{"k": "v"},
			ID:             uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
			Created:        time.Date(2025, 3, 14, 15, 9, 26, 535897932, time.UTC),
			Day:            time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
			Elapsed:        90 * time.Second,
			Alarm:          7*time.Hour + 30*time.Minute,
			Price:          decimal.RequireFromString("1234.5678"),
			Addr:           netip.MustParseAddr("192.0.2.1"),
			Shape:          Circle{Center: Point{X: 1, Y: 1}, Radius: 2},
		},
		{
			BytesField:   []byte{},
			LargeBytes:   []byte{},
			ListOfInt:    []int64{},
			ListOfStr:    []string{},
			LargeList:    []int32{},
			Triple:       []float32{0, 0, 0},
			DictField:    map[string]int64{},
			EnumField:    StatusPending,
			ListOfNested: []Point{},
			NestedList:   [][]int64{},
			DictStrStr:   map[string]string{},
			Created:      time.Unix(0, 0).UTC(),
			Day:          time.Date(1969, 12, 31, 0, 0, 0, 0, time.UTC),
			Price:        decimal.RequireFromString("-0.0001"),
			Addr:         netip.MustParseAddr("2001:db8::1"),
		},
	}
}

// SampleShapes returns one row of every Shape variant plus a null.
func SampleShapes() []Shape {
	return []Shape{
		Circle{Center: Point{X: 0, Y: 0}, Radius: 1},
		Empty{},
		nil,
		&Rect{Box: BoundingBox{TopLeft: Point{X: 0, Y: 2}, BottomRight: Point{X: 3, Y: 0}, Label: "r"}},
		Polygon{Vertices: []Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}}, Closed: ptr(true)},
		Tag("marker"),
		Polygon{Vertices: []Point{}},
		Empty{},
		Circle{Radius: 0.25},
	}
}

func sparseShapes() []SparseShape {
	in := SampleShapes()
	out := make([]SparseShape, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

type drawing struct {
	Name    string  `arrow:"name"`
	Primary Shape   `arrow:"primary"`
	Layers  []Shape `arrow:"layers"`
}

func boxes() []BoundingBox {
	return []BoundingBox{
		{TopLeft: Point{X: 0, Y: 1}, BottomRight: Point{X: 1, Y: 0}, Label: "unit"},
		{Label: ""},
		{TopLeft: Point{X: -5, Y: 5}, BottomRight: Point{X: 5, Y: -5}, Label: "wide"},
	}
}

// Cases lists the conformance checks in a stable order.
func Cases() []Case {
	return []Case{
		{"scalar/int64", "non-nullable Int64 column", roundTrip([]int64{0, -1, 1 << 40}, "")},
		{"scalar/narrow_int8", "int64 values narrowed to Int8", roundTrip([]int64{-128, 0, 127}, "int8")},
		{"scalar/optional_string", "nullable Utf8 column", roundTrip([]*string{ptr("a"), nil, ptr("")}, "")},
		{"scalar/bool", "bit-packed booleans", roundTrip([]bool{true, false, true, true, false, false, true, false, true}, "")},
		{"scalar/large_string", "LargeUtf8 via override", roundTrip([]string{"x", "", "yz"}, "large")},
		{"scalar/fixed_binary", "byte slices as FixedSizeBinary(4)", roundTrip([][]byte{{1, 2, 3, 4}, {0, 0, 0, 0}}, "fixed=4")},
		{"scalar/enum", "dictionary encoded strings", roundTrip([]Status{StatusActive, StatusClosed, StatusActive}, "enum")},
		{"scalar/uuid", "uuid.UUID as FixedSizeBinary(16)", roundTrip([]uuid.UUID{uuid.Nil, uuid.MustParse("6ba7b811-9dad-11d1-80b4-00c04fd430c8")}, "")},
		{"scalar/addr", "registered netip.Addr leaf", roundTrip([]netip.Addr{netip.MustParseAddr("10.0.0.1"), netip.MustParseAddr("::1")}, "")},
		{"list/int64", "List<Int64> with an empty list", roundTrip([][]int64{{1, 2}, {}, {3}}, "")},
		{"list/optional_items", "List<nullable Int64>", roundTrip([][]*int64{{ptr[int64](1), nil}, {}, {nil}}, "")},
		{"list/optional_list", "nullable List<Utf8>", roundTrip([]*[]string{{"a"}, nil, {}}, "")},
		{"list/fixed", "FixedSizeList(3)", roundTrip([][]int32{{1, 2, 3}, {4, 5, 6}}, "fixed=3")},
		{"list/array", "Go arrays as FixedSizeList", roundTrip([][3]float64{{1, 2, 3}, {0, 0, 0}}, "")},
		{"list/nested", "List<List<Utf8>>", roundTrip([][][]string{{{"a"}, {}}, {}, {{"b", "c"}}}, "")},
		{"map/string_int", "Map<Utf8, Int64>", roundTrip([]map[string]int64{{"a": 1, "b": 2}, {}, {"c": 3}}, "")},
		{"struct/point", "flat struct", roundTrip([]Point{{X: 1, Y: 2}, {X: -1, Y: -2}}, "")},
		{"struct/bounding_box", "nested structs", roundTrip(boxes(), "")},
		{"struct/optional", "nullable struct", roundTrip([]*Point{{X: 1}, nil, {Y: 2}}, "")},
		{"struct/all_types", "every built-in mapping", roundTrip(SampleAllTypes(), "")},
		{"union/dense", "dense union with a unit variant", roundTrip(SampleShapes(), "")},
		{"union/sparse", "sparse union with a unit variant", roundTrip(sparseShapes(), "")},
		{"union/in_struct", "unions nested in structs and lists", roundTrip([]drawing{
			{Name: "a", Primary: Tag("t"), Layers: []Shape{Empty{}, Circle{Radius: 1}}},
			{Name: "b", Layers: []Shape{}},
			{Name: "c", Primary: &Rect{}, Layers: []Shape{nil, Tag("x")}},
		}, "")},
		{"record/bounding_box", "struct rows flattened into a record batch", recordRoundTrip(boxes())},
		{"record/all_types", "AllTypes through a record batch", recordRoundTrip(SampleAllTypes())},
		{"error/fixed_size", "a list of the wrong length is rejected", expectEncodeError([][]int32{{1, 2, 3}, {1, 2}}, "fixed=3", arrowcodec.ErrFixedSizeMismatch)},
		{"error/overflow", "a value outside the narrowed range is rejected", expectEncodeError([]int64{1, 1 << 40}, "int32", arrowcodec.ErrEncode)},
		{"error/type_mismatch", "an Int64 column read as strings", expectDecodeError[int64, string]([]int64{1}, "", "", arrowcodec.ErrSchemaMismatch)},
		{"error/width_mismatch", "a FixedSizeList(3) read as FixedSizeList(4)", expectDecodeError[[]int32, []int32]([][]int32{{1, 2, 3}}, "fixed=3", "fixed=4", arrowcodec.ErrSchemaMismatch)},
		{"error/null_into_required", "a column with nulls read as non-nullable", expectDecodeError[*int64, int64]([]*int64{nil}, "", "", arrowcodec.ErrSchemaMismatch)},
		{"error/recursive", "self-referencing types have no columnar form", expectShapeError[treeNode]("")},
		{"error/double_pointer", "nested optionals are ambiguous", expectShapeError[**int64]("")},
		{"error/bad_option", "options that do not apply to the type", expectShapeError[bool]("large")},
	}
}
