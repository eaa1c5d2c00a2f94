// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package arrowcodec

import (
	"fmt"
	"slices"

	"github.com/apache/arrow-go/v18/arrow"
)

// checkType compares the expected type with the type of a column, type id
// first, then parameters, then children in order. A nullable child where a
// non-nullable one is expected is a mismatch; the reverse is not.
func checkType(path string, want, got arrow.DataType) error {
	mismatch := func(reason string) error {
		return &SchemaMismatchError{Path: path, Expected: want, Actual: got, Reason: reason}
	}
	if got == nil {
		return mismatch("column has no data type")
	}
	if want.ID() != got.ID() {
		return mismatch("")
	}

	switch w := want.(type) {
	case *arrow.FixedSizeBinaryType:
		if w.ByteWidth != got.(*arrow.FixedSizeBinaryType).ByteWidth {
			return mismatch("byte width differs")
		}
	case *arrow.Decimal128Type:
		g := got.(*arrow.Decimal128Type)
		if w.Precision != g.Precision || w.Scale != g.Scale {
			return mismatch("precision or scale differs")
		}
	case *arrow.TimestampType:
		g := got.(*arrow.TimestampType)
		if w.Unit != g.Unit || w.TimeZone != g.TimeZone {
			return mismatch("unit or time zone differs")
		}
	case *arrow.Time32Type:
		if w.Unit != got.(*arrow.Time32Type).Unit {
			return mismatch("unit differs")
		}
	case *arrow.Time64Type:
		if w.Unit != got.(*arrow.Time64Type).Unit {
			return mismatch("unit differs")
		}
	case *arrow.DurationType:
		if w.Unit != got.(*arrow.DurationType).Unit {
			return mismatch("unit differs")
		}
	case *arrow.DictionaryType:
		g := got.(*arrow.DictionaryType)
		if !arrow.TypeEqual(w.IndexType, g.IndexType) {
			return mismatch("dictionary index type differs")
		}
		return checkType(joinPath(path, "values"), w.ValueType, g.ValueType)
	case *arrow.ListType:
		return checkField(path, w.ElemField(), got.(*arrow.ListType).ElemField())
	case *arrow.LargeListType:
		return checkField(path, w.ElemField(), got.(*arrow.LargeListType).ElemField())
	case *arrow.FixedSizeListType:
		g := got.(*arrow.FixedSizeListType)
		if w.Len() != g.Len() {
			return mismatch(fmt.Sprintf("list size %d, got %d", w.Len(), g.Len()))
		}
		return checkField(path, w.ElemField(), g.ElemField())
	case *arrow.MapType:
		g := got.(*arrow.MapType)
		if err := checkField(path, w.KeyField(), g.KeyField()); err != nil {
			return err
		}
		return checkField(path, w.ItemField(), g.ItemField())
	case *arrow.StructType:
		return checkFields(path, w.Fields(), got.(*arrow.StructType).Fields(), mismatch)
	case arrow.UnionType:
		g := got.(arrow.UnionType)
		if !slices.Equal(w.TypeCodes(), g.TypeCodes()) {
			return mismatch("union type codes differ")
		}
		return checkFields(path, w.Fields(), g.Fields(), mismatch)
	}
	return nil
}

func checkFields(path string, want, got []arrow.Field, mismatch func(string) error) error {
	if len(want) != len(got) {
		return mismatch(fmt.Sprintf("%d fields, got %d", len(want), len(got)))
	}
	for i := range want {
		if want[i].Name != got[i].Name {
			return mismatch(fmt.Sprintf("field %d is %q, got %q", i, want[i].Name, got[i].Name))
		}
		if err := checkField(path, want[i], got[i]); err != nil {
			return err
		}
	}
	return nil
}

func checkField(path string, want, got arrow.Field) error {
	p := joinPath(path, want.Name)
	if !want.Nullable && got.Nullable {
		return &SchemaMismatchError{Path: p, Expected: want.Type, Actual: got.Type, Reason: "column is nullable"}
	}
	return checkType(p, want.Type, got.Type)
}
