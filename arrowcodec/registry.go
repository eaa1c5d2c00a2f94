// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package arrowcodec

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
)

// PhysicalKind is the closed set of buffer layouts the engine knows how to
// build and read.
type PhysicalKind uint8

const (
	KindPrimitive   PhysicalKind = iota // fixed-width values buffer
	KindBoolean                         // bit-packed values buffer
	KindVarBinary                       // offsets + data buffer
	KindFixedBinary                     // fixed-stride data buffer
	KindList                            // offsets + one child
	KindFixedList                       // fixed-stride child
	KindStruct                          // one child per field
	KindMap                             // offsets + key/item entries child
	KindUnion                           // type ids (+ offsets in dense mode) + one child per variant
	KindDictionary                      // indices + dictionary values
)

var kindNames = [...]string{
	KindPrimitive:   "primitive",
	KindBoolean:     "boolean",
	KindVarBinary:   "var_binary",
	KindFixedBinary: "fixed_binary",
	KindList:        "list",
	KindFixedList:   "fixed_list",
	KindStruct:      "struct",
	KindMap:         "map",
	KindUnion:       "union",
	KindDictionary:  "dictionary",
}

func (k PhysicalKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("PhysicalKind(%d)", k)
}

// PhysicalKindOf classifies an Arrow data type. Types outside the supported
// set return an error.
func PhysicalKindOf(dt arrow.DataType) (PhysicalKind, error) {
	switch dt.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64,
		arrow.FLOAT32, arrow.FLOAT64, arrow.DECIMAL128,
		arrow.DATE32, arrow.TIMESTAMP, arrow.TIME32, arrow.TIME64, arrow.DURATION:
		return KindPrimitive, nil
	case arrow.BOOL:
		return KindBoolean, nil
	case arrow.STRING, arrow.LARGE_STRING, arrow.BINARY, arrow.LARGE_BINARY:
		return KindVarBinary, nil
	case arrow.FIXED_SIZE_BINARY:
		return KindFixedBinary, nil
	case arrow.LIST, arrow.LARGE_LIST:
		return KindList, nil
	case arrow.FIXED_SIZE_LIST:
		return KindFixedList, nil
	case arrow.STRUCT:
		return KindStruct, nil
	case arrow.MAP:
		return KindMap, nil
	case arrow.DENSE_UNION, arrow.SPARSE_UNION:
		return KindUnion, nil
	case arrow.DICTIONARY:
		return KindDictionary, nil
	default:
		return 0, fmt.Errorf("arrowcodec: unsupported arrow type %v", dt)
	}
}

// Encoder converts a leaf value of type T into its storage type S.
// Encoders must be deterministic: a value may be encoded twice, once to
// validate and once to append.
type Encoder[T, S any] interface {
	EncodeLeaf(T) (S, error)
}

// Decoder converts a stored value of type S back into T.
type Decoder[T, S any] interface {
	DecodeLeaf(S) (T, error)
}

// EncoderFunc adapts a function to the Encoder interface.
type EncoderFunc[T, S any] func(T) (S, error)

func (f EncoderFunc[T, S]) EncodeLeaf(v T) (S, error) { return f(v) }

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc[T, S any] func(S) (T, error)

func (f DecoderFunc[T, S]) DecodeLeaf(v S) (T, error) { return f(v) }

// leafRegistry maps a Go type to its registered leaf node.
var leafRegistry sync.Map

// RegisterLeaf makes T a leaf type stored in the Arrow type dt. Values are
// converted to the storage type S, which must itself derive to dt (after the
// override implied by dt, e.g. "large" for LargeString or "date32" for
// Date32).
//
// Register leaves before the first use of any type that contains T: derived
// descriptors are cached.
func RegisterLeaf[T, S any](dt arrow.DataType, enc Encoder[T, S], dec Decoder[T, S]) error {
	t, s := reflect.TypeFor[T](), reflect.TypeFor[S]()
	switch {
	case t == s:
		return fmt.Errorf("arrowcodec: registering leaf %v: storage type must differ from the leaf type", t)
	case t.Kind() == reflect.Pointer || t.Kind() == reflect.Interface:
		return fmt.Errorf("arrowcodec: registering leaf %v: leaf types must be value types", t)
	case enc == nil || dec == nil:
		return fmt.Errorf("arrowcodec: registering leaf %v: encoder and decoder are required", t)
	}

	storage, err := compileType(s, overrideFor(dt))
	if err != nil {
		return fmt.Errorf("arrowcodec: registering leaf %v: %w", t, err)
	}
	sd := storage.descriptor()
	if sd.Nullable || !arrow.TypeEqual(sd.Type, dt) {
		return fmt.Errorf("arrowcodec: registering leaf %v: storage type %v derives to %v, not %v", t, s, sd, dt)
	}

	n := &customNode[T, S]{typ: t, storage: storage, enc: enc, dec: dec}
	if _, loaded := leafRegistry.LoadOrStore(t, n); loaded {
		return fmt.Errorf("arrowcodec: registering leaf %v: already registered", t)
	}
	slog.Debug("arrowcodec: registered leaf", "type", t, "storage", s, "arrow_type", dt)
	return nil
}

// MustRegisterLeaf is like RegisterLeaf but panics on error. It is intended
// for package init functions.
func MustRegisterLeaf[T, S any](dt arrow.DataType, enc Encoder[T, S], dec Decoder[T, S]) {
	if err := RegisterLeaf(dt, enc, dec); err != nil {
		panic(err)
	}
}

func lookupLeaf(t reflect.Type) (node, bool) {
	n, ok := leafRegistry.Load(t)
	if !ok {
		return nil, false
	}
	return n.(node), true
}

// overrideFor returns the tag options that make a native storage type derive
// to dt.
func overrideFor(dt arrow.DataType) string {
	switch t := dt.(type) {
	case *arrow.StringType, *arrow.BinaryType:
		return ""
	case *arrow.LargeStringType, *arrow.LargeBinaryType:
		return "large"
	case *arrow.FixedSizeBinaryType:
		return fmt.Sprintf("fixed=%d", t.ByteWidth)
	case *arrow.Decimal128Type:
		return fmt.Sprintf("decimal=%d:%d", t.Precision, t.Scale)
	case *arrow.Date32Type:
		return "date32"
	case *arrow.Time32Type:
		return "time32"
	case *arrow.Time64Type:
		return "time64"
	case *arrow.DictionaryType:
		return "enum"
	}
	switch dt.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64, arrow.FLOAT32:
		return dt.Name()
	}
	return ""
}
