// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package arrowcodec

import (
	"cmp"
	"errors"
	"fmt"
	"reflect"
	"slices"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// mapNode maps a Go map onto an Arrow map: a list of non-null
// {key, value} entries. Keys are written in sorted order.
type mapNode struct {
	typ  reflect.Type
	dt   *arrow.MapType
	key  node
	item node
}

func newMapNode(t reflect.Type, key, item node) *mapNode {
	dt := arrow.MapOf(key.descriptor().Type, item.descriptor().Type)
	dt.SetItemNullable(item.descriptor().Nullable)
	return &mapNode{typ: t, dt: dt, key: key, item: item}
}

func (n *mapNode) descriptor() Descriptor { return Descriptor{Type: n.dt} }

func (n *mapNode) fallible() bool { return n.key.fallible() || n.item.fallible() }

func (n *mapNode) validate(v reflect.Value) error {
	iter := v.MapRange()
	for iter.Next() {
		if err := n.key.validate(iter.Key()); err != nil {
			return prefixPath(err, fmt.Sprintf("[%v]", iter.Key()))
		}
		if err := n.item.validate(iter.Value()); err != nil {
			return prefixPath(err, fmt.Sprintf("[%v]", iter.Key()))
		}
	}
	return nil
}

func (n *mapNode) newBuilder(mem memory.Allocator) nodeBuilder {
	return &mapBuilder{
		node:    n,
		keys:    n.key.newBuilder(mem),
		items:   n.item.newBuilder(mem),
		offsets: []int32{0},
	}
}

func (n *mapNode) newReader(arr arrow.Array, cfg *readConfig) nodeReader {
	entries := arr.Data().Children()[0]
	kv := childArrays(entries)
	return &mapReader{
		node:    n,
		arr:     arr,
		offsets: arr.(offsetsArray),
		base:    entries.Offset(),
		keys:    n.key.newReader(kv[0], cfg),
		items:   n.item.newReader(kv[1], cfg),
	}
}

var errMapOffsetOverflow = errors.New("map entry count exceeds 32-bit offsets")

type mapBuilder struct {
	node    *mapNode
	keys    nodeBuilder
	items   nodeBuilder
	offsets []int32
	valid   validityBuilder
}

func (b *mapBuilder) append(v reflect.Value) error {
	if int64(b.keys.len())+int64(v.Len()) > maxOffset {
		return &EncodeError{Value: v.Len(), Err: errMapOffsetOverflow}
	}
	keys := v.MapKeys()
	sortKeys(keys)
	for _, k := range keys {
		if err := b.keys.append(k); err != nil {
			return prefixPath(err, fmt.Sprintf("[%v]", k))
		}
		if err := b.items.append(v.MapIndex(k)); err != nil {
			return prefixPath(err, fmt.Sprintf("[%v]", k))
		}
	}
	b.offsets = append(b.offsets, int32(b.keys.len()))
	b.valid.append(true)
	return nil
}

func (b *mapBuilder) appendNull() {
	b.offsets = append(b.offsets, b.offsets[len(b.offsets)-1])
	b.valid.append(false)
}

func (b *mapBuilder) len() int { return len(b.offsets) - 1 }

func (b *mapBuilder) reserve(elements, bytes int) {
	b.offsets = slices.Grow(b.offsets, elements)
	b.valid.reserve(elements)
	b.keys.reserve(elements, bytes)
	b.items.reserve(elements, bytes)
}

func (b *mapBuilder) finish() arrow.ArrayData {
	length := len(b.offsets) - 1
	offsets := memory.NewBufferBytes(arrow.Int32Traits.CastToBytes(b.offsets))
	b.offsets = []int32{0}

	keys, items := b.keys.finish(), b.items.finish()
	entries := newNestedData(b.node.dt.Elem(), keys.Len(), []*memory.Buffer{nil}, []arrow.ArrayData{keys, items}, 0)
	validity, nulls := b.valid.finish()
	return newNestedData(b.node.dt, length, []*memory.Buffer{validity, offsets}, []arrow.ArrayData{entries}, nulls)
}

func (b *mapBuilder) release() {
	b.keys.release()
	b.items.release()
}

// sortKeys orders map keys so that equal maps encode identically.
func sortKeys(keys []reflect.Value) {
	if len(keys) < 2 {
		return
	}
	switch k := keys[0].Kind(); {
	case k == reflect.String:
		slices.SortFunc(keys, func(a, b reflect.Value) int { return cmp.Compare(a.String(), b.String()) })
	case k >= reflect.Int && k <= reflect.Int64:
		slices.SortFunc(keys, func(a, b reflect.Value) int { return cmp.Compare(a.Int(), b.Int()) })
	case k >= reflect.Uint && k <= reflect.Uint64:
		slices.SortFunc(keys, func(a, b reflect.Value) int { return cmp.Compare(a.Uint(), b.Uint()) })
	case k == reflect.Float32 || k == reflect.Float64:
		slices.SortFunc(keys, func(a, b reflect.Value) int { return cmp.Compare(a.Float(), b.Float()) })
	default:
		slices.SortFunc(keys, func(a, b reflect.Value) int {
			return cmp.Compare(fmt.Sprint(a.Interface()), fmt.Sprint(b.Interface()))
		})
	}
}

type mapReader struct {
	node    *mapNode
	arr     arrow.Array
	offsets offsetsArray
	base    int
	keys    nodeReader
	items   nodeReader
}

func (r *mapReader) isNull(j int) bool { return r.arr.IsNull(j) }

func (r *mapReader) read(j int, dst reflect.Value) error {
	start, end := r.offsets.ValueOffsets(j)
	m := reflect.MakeMapWithSize(r.node.typ, int(end-start))
	for i := int(start); i < int(end); i++ {
		k := reflect.New(r.node.typ.Key()).Elem()
		v := reflect.New(r.node.typ.Elem()).Elem()
		if err := r.keys.read(r.base+i, k); err != nil {
			return prefixPath(err, indexSeg(i-int(start)))
		}
		if err := r.items.read(r.base+i, v); err != nil {
			return prefixPath(err, fmt.Sprintf("[%v]", k))
		}
		m.SetMapIndex(k, v)
	}
	dst.Set(m)
	return nil
}

func (r *mapReader) release() {
	r.keys.release()
	r.items.release()
	r.arr.Release()
}
