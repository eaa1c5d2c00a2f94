// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package arrowcodec

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// FlattenStruct turns a struct column into a record batch with one column
// per field. The struct must have no nulls. The caller must release the
// batch.
func FlattenStruct(arr arrow.Array) (arrow.RecordBatch, error) {
	st, ok := arr.DataType().(*arrow.StructType)
	if !ok {
		return nil, &SchemaMismatchError{Actual: arr.DataType(), Reason: "record batches require a struct column"}
	}
	if arr.NullN() > 0 {
		return nil, &SchemaMismatchError{Actual: arr.DataType(), Reason: "a struct column with nulls cannot be flattened"}
	}

	data := arr.Data()
	start, end := int64(data.Offset()), int64(data.Offset()+data.Len())
	cols := make([]arrow.Array, len(data.Children()))
	for i, child := range data.Children() {
		sliced := array.NewSliceData(child, start, end)
		cols[i] = array.MakeFromData(sliced)
		sliced.Release()
	}
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()
	schema := arrow.NewSchema(st.Fields(), nil)
	return array.NewRecordBatch(schema, cols, int64(arr.Len())), nil
}

// EncodeRecordBatch builds a record batch from struct rows.
func EncodeRecordBatch[T any](mem memory.Allocator, rows []T, opts ...Option) (arrow.RecordBatch, error) {
	arr, err := Encode(mem, rows, opts...)
	if err != nil {
		return nil, err
	}
	defer arr.Release()
	return FlattenStruct(arr)
}

// DecodeRecordBatch reads struct rows from a record batch. The batch schema
// is checked like a struct column.
func DecodeRecordBatch[T any](rec arrow.RecordBatch, opts ...Option) ([]T, error) {
	if rec == nil {
		return nil, fmt.Errorf("arrowcodec: nil record batch")
	}
	fields := rec.Schema().Fields()
	children := make([]arrow.ArrayData, len(fields))
	for i := range fields {
		children[i] = rec.Column(i).Data()
	}
	data := array.NewData(arrow.StructOf(fields...), int(rec.NumRows()), []*memory.Buffer{nil}, children, 0, 0)
	defer data.Release()
	arr := array.NewStructData(data)
	defer arr.Release()
	return Decode[T](arr, opts...)
}
