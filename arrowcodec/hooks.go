// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package arrowcodec

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// Operation names for OpInfo.Op.
const (
	OpEncode = "encode"
	OpDecode = "decode"
)

// Hook provides observability callpoints around encode and decode.
// Implementations must be safe for concurrent use.
type Hook interface {
	OnStart(info OpInfo) HookToken
	OnEnd(token HookToken, info OpInfo, stats *Statistics, err error)
}

// HookToken is an opaque value returned by OnStart and passed back to
// OnEnd. Only meaningful to the Hook that created it.
type HookToken interface{}

// OpInfo describes one operation passed to hooks.
type OpInfo struct {
	Op         string     // OpEncode or OpDecode
	GoType     string     // Go type of the rows
	Descriptor Descriptor // derived descriptor of the rows
}

// Statistics holds per-operation counters.
type Statistics struct {
	Rows    int64
	Nulls   int64
	Bytes   int64 // total buffer size, children included
	Buffers int64 // non-nil buffers, children included
}

// StatisticsOf measures a column.
func StatisticsOf(arr arrow.Array) *Statistics {
	s := &Statistics{Rows: int64(arr.Len()), Nulls: int64(arr.NullN())}
	s.addData(arr.Data())
	return s
}

// addData sums buffer sizes recursively, including dictionaries.
func (s *Statistics) addData(data arrow.ArrayData) {
	for _, buf := range data.Buffers() {
		if buf != nil {
			s.Buffers++
			s.Bytes += int64(buf.Len())
		}
	}
	for _, c := range data.Children() {
		s.addData(c)
	}
	// Data.Dictionary returns a typed nil for plain columns.
	if dict, ok := data.Dictionary().(*array.Data); ok && dict != nil {
		s.addData(dict)
	}
}

// observe runs fn between the hook's start and end callpoints. A nil hook
// only runs fn.
func observe(h Hook, info OpInfo, fn func() (*Statistics, error)) error {
	if h == nil {
		_, err := fn()
		return err
	}
	token := h.OnStart(info)
	stats, err := fn()
	h.OnEnd(token, info, stats, err)
	return err
}
