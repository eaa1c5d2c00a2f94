// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package arrowcodec

import (
	"reflect"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

type readFunc func(j int, dst reflect.Value) error

// leafNode is a scalar column backed by a single arrow builder.
type leafNode struct {
	typ reflect.Type
	dt  arrow.DataType
	// check is nil for leaves that accept every value.
	check func(v reflect.Value) error
	put   func(b array.Builder, v reflect.Value) error
	bind  func(arr arrow.Array) readFunc
}

func (n *leafNode) descriptor() Descriptor { return Descriptor{Type: n.dt} }

func (n *leafNode) fallible() bool { return n.check != nil }

func (n *leafNode) validate(v reflect.Value) error {
	if n.check == nil {
		return nil
	}
	return n.check(v)
}

func (n *leafNode) newBuilder(mem memory.Allocator) nodeBuilder {
	return &leafBuilder{node: n, b: array.NewBuilder(mem, n.dt)}
}

func (n *leafNode) newReader(arr arrow.Array, _ *readConfig) nodeReader {
	return &leafReader{arr: arr, get: n.bind(arr)}
}

type leafBuilder struct {
	node  *leafNode
	b     array.Builder
	valid validityBuilder
}

func (l *leafBuilder) append(v reflect.Value) error {
	if err := l.node.put(l.b, v); err != nil {
		return &EncodeError{Value: valueOf(v), Err: err}
	}
	l.valid.append(true)
	return nil
}

// appendNull writes a zero value slot; nullness lives only in l.valid.
func (l *leafBuilder) appendNull() {
	l.b.AppendEmptyValue()
	l.valid.append(false)
}

func (l *leafBuilder) len() int { return l.b.Len() }

type dataReserver interface {
	ReserveData(int)
}

func (l *leafBuilder) reserve(elements, bytes int) {
	l.b.Reserve(elements)
	l.valid.reserve(elements)
	if r, ok := l.b.(dataReserver); ok && bytes > 0 {
		r.ReserveData(bytes)
	}
}

func (l *leafBuilder) finish() arrow.ArrayData {
	arr := l.b.NewArray()
	defer arr.Release()
	validity, nulls := l.valid.finish()
	data := replaceValidity(arr.Data(), validity, nulls)
	if validity != nil {
		validity.Release()
	}
	return data
}

func (l *leafBuilder) release() { l.b.Release() }

type leafReader struct {
	arr arrow.Array
	get readFunc
}

func (r *leafReader) isNull(j int) bool { return r.arr.IsNull(j) }

func (r *leafReader) read(j int, dst reflect.Value) error { return r.get(j, dst) }

func (r *leafReader) release() { r.arr.Release() }

// valueOf returns v as an interface for error reports.
func valueOf(v reflect.Value) any {
	if !v.IsValid() || !v.CanInterface() {
		return nil
	}
	return v.Interface()
}

func boolLeaf(t reflect.Type) *leafNode {
	return &leafNode{
		typ: t,
		dt:  arrow.FixedWidthTypes.Boolean,
		put: func(b array.Builder, v reflect.Value) error {
			b.(*array.BooleanBuilder).Append(v.Bool())
			return nil
		},
		bind: func(arr arrow.Array) readFunc {
			a := arr.(*array.Boolean)
			return func(j int, dst reflect.Value) error {
				dst.SetBool(a.Value(j))
				return nil
			}
		},
	}
}

func stringLeaf(t reflect.Type, large bool) *leafNode {
	n := &leafNode{typ: t, dt: arrow.BinaryTypes.String}
	if large {
		n.dt = arrow.BinaryTypes.LargeString
		n.put = func(b array.Builder, v reflect.Value) error {
			b.(*array.LargeStringBuilder).Append(v.String())
			return nil
		}
		n.bind = func(arr arrow.Array) readFunc {
			a := arr.(*array.LargeString)
			return func(j int, dst reflect.Value) error {
				dst.SetString(strings.Clone(a.Value(j)))
				return nil
			}
		}
		return n
	}
	n.put = func(b array.Builder, v reflect.Value) error {
		b.(*array.StringBuilder).Append(v.String())
		return nil
	}
	n.bind = func(arr arrow.Array) readFunc {
		a := arr.(*array.String)
		return func(j int, dst reflect.Value) error {
			dst.SetString(strings.Clone(a.Value(j)))
			return nil
		}
	}
	return n
}

// cloneBytes copies b out of arrow memory, which is released with the
// column. The result is never nil.
func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func binaryLeaf(t reflect.Type, large bool) *leafNode {
	n := &leafNode{
		typ: t,
		dt:  arrow.BinaryTypes.Binary,
		put: func(b array.Builder, v reflect.Value) error {
			b.(*array.BinaryBuilder).Append(v.Bytes())
			return nil
		},
	}
	if large {
		n.dt = arrow.BinaryTypes.LargeBinary
		n.bind = func(arr arrow.Array) readFunc {
			a := arr.(*array.LargeBinary)
			return func(j int, dst reflect.Value) error {
				dst.SetBytes(cloneBytes(a.Value(j)))
				return nil
			}
		}
		return n
	}
	n.bind = func(arr arrow.Array) readFunc {
		a := arr.(*array.Binary)
		return func(j int, dst reflect.Value) error {
			dst.SetBytes(cloneBytes(a.Value(j)))
			return nil
		}
	}
	return n
}

// fixedBinaryLeaf stores [N]byte arrays, or []byte slices whose length is
// checked against width.
func fixedBinaryLeaf(t reflect.Type, width int) *leafNode {
	n := &leafNode{
		typ: t,
		dt:  &arrow.FixedSizeBinaryType{ByteWidth: width},
	}
	if t.Kind() == reflect.Slice {
		n.check = func(v reflect.Value) error {
			if v.Len() != width {
				return &FixedSizeMismatchError{Expected: width, Actual: v.Len()}
			}
			return nil
		}
		n.put = func(b array.Builder, v reflect.Value) error {
			b.(*array.FixedSizeBinaryBuilder).Append(v.Bytes())
			return nil
		}
		n.bind = func(arr arrow.Array) readFunc {
			a := arr.(*array.FixedSizeBinary)
			return func(j int, dst reflect.Value) error {
				dst.SetBytes(cloneBytes(a.Value(j)))
				return nil
			}
		}
		return n
	}
	n.put = func(b array.Builder, v reflect.Value) error {
		b.(*array.FixedSizeBinaryBuilder).Append(arrayBytes(v))
		return nil
	}
	n.bind = func(arr arrow.Array) readFunc {
		a := arr.(*array.FixedSizeBinary)
		return func(j int, dst reflect.Value) error {
			reflect.Copy(dst, reflect.ValueOf(a.Value(j)))
			return nil
		}
	}
	return n
}

// arrayBytes returns the contents of a [N]byte value. Addressable arrays are
// not copied.
func arrayBytes(v reflect.Value) []byte {
	if v.CanAddr() {
		return v.Slice(0, v.Len()).Bytes()
	}
	out := make([]byte, v.Len())
	reflect.Copy(reflect.ValueOf(out), v)
	return out
}

// enumLeaf dictionary-encodes a string-kinded type.
func enumLeaf(t reflect.Type) *leafNode {
	return &leafNode{
		typ: t,
		dt: &arrow.DictionaryType{
			IndexType: arrow.PrimitiveTypes.Int16,
			ValueType: arrow.BinaryTypes.String,
		},
		put: func(b array.Builder, v reflect.Value) error {
			return b.(*array.BinaryDictionaryBuilder).AppendString(v.String())
		},
		bind: func(arr arrow.Array) readFunc {
			a := arr.(*array.Dictionary)
			dict := a.Dictionary().(*array.String)
			return func(j int, dst reflect.Value) error {
				dst.SetString(strings.Clone(dict.Value(a.GetValueIndex(j))))
				return nil
			}
		},
	}
}
