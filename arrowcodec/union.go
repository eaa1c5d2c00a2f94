// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package arrowcodec

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// VariantSpec names one variant of a union. Create it with Variant.
type VariantSpec struct {
	name string
	typ  reflect.Type
}

// Variant declares a union variant whose values have the concrete type V.
// A struct type with no fields is a unit variant: it carries no payload and
// is stored as a Bool that is always true.
func Variant[V any](name string) VariantSpec {
	return VariantSpec{name: name, typ: reflect.TypeFor[V]()}
}

type unionSpec struct {
	iface    reflect.Type
	mode     arrow.UnionMode
	variants []VariantSpec
}

var unions = struct {
	sync.RWMutex
	byType map[reflect.Type]*unionSpec
}{byType: make(map[reflect.Type]*unionSpec)}

// RegisterUnion declares the interface type I as a tagged union. Values of
// I are encoded by their concrete type, which must be one of the variants.
// Type ids follow the order of the variants.
//
// Register unions before the first use of any type that contains I.
func RegisterUnion[I any](mode arrow.UnionMode, variants ...VariantSpec) error {
	iface := reflect.TypeFor[I]()
	if err := checkUnion(iface, mode, variants); err != nil {
		return fmt.Errorf("arrowcodec: registering union %v: %w", iface, err)
	}

	unions.Lock()
	defer unions.Unlock()
	if _, ok := unions.byType[iface]; ok {
		return fmt.Errorf("arrowcodec: registering union %v: already registered", iface)
	}
	unions.byType[iface] = &unionSpec{iface: iface, mode: mode, variants: variants}
	slog.Debug("arrowcodec: registered union", "type", iface, "mode", mode, "variants", len(variants))
	return nil
}

// MustRegisterUnion is like RegisterUnion but panics on error. It is
// intended for package init functions.
func MustRegisterUnion[I any](mode arrow.UnionMode, variants ...VariantSpec) {
	if err := RegisterUnion[I](mode, variants...); err != nil {
		panic(err)
	}
}

func checkUnion(iface reflect.Type, mode arrow.UnionMode, variants []VariantSpec) error {
	if iface.Kind() != reflect.Interface {
		return errors.New("union type must be an interface")
	}
	if mode != arrow.SparseMode && mode != arrow.DenseMode {
		return fmt.Errorf("invalid union mode %v", mode)
	}
	if len(variants) == 0 || len(variants) > math.MaxInt8+1 {
		return fmt.Errorf("a union needs between 1 and %d variants, got %d", math.MaxInt8+1, len(variants))
	}
	names := make(map[string]bool, len(variants))
	types := make(map[reflect.Type]bool, len(variants))
	for _, v := range variants {
		switch {
		case v.typ == nil || v.name == "":
			return errors.New("variants need a name and a type")
		case names[v.name]:
			return fmt.Errorf("duplicate variant name %q", v.name)
		case types[v.typ]:
			return fmt.Errorf("duplicate variant type %v", v.typ)
		case v.typ.Kind() == reflect.Interface:
			return fmt.Errorf("variant %q: variant types must be concrete", v.name)
		case v.typ.Kind() == reflect.Pointer && v.typ.Elem().Kind() == reflect.Pointer:
			return fmt.Errorf("variant %q: %w", v.name, ErrAmbiguousNesting)
		case !v.typ.Implements(iface):
			return fmt.Errorf("variant %q: %v does not implement %v", v.name, v.typ, iface)
		}
		names[v.name] = true
		types[v.typ] = true
	}
	return nil
}

func lookupUnion(t reflect.Type) (*unionSpec, bool) {
	unions.RLock()
	defer unions.RUnlock()
	spec, ok := unions.byType[t]
	return spec, ok
}

type unionVariant struct {
	name string
	typ  reflect.Type // concrete type stored in the interface
	ptr  bool         // typ is a pointer to the payload type
	unit bool
	node node // payload node; a bool leaf for unit variants
}

// payloadType is the type the payload node reads into.
func (v *unionVariant) payloadType() reflect.Type {
	if v.ptr {
		return v.typ.Elem()
	}
	return v.typ
}

// unionNode maps a registered interface type onto a dense or sparse union.
type unionNode struct {
	typ      reflect.Type
	mode     arrow.UnionMode
	dt       arrow.UnionType
	variants []unionVariant
	index    map[reflect.Type]int
}

func (n *unionNode) descriptor() Descriptor { return Descriptor{Type: n.dt} }

// fallible is always true: a value may hold a concrete type that is not a
// variant.
func (n *unionNode) fallible() bool { return true }

func (n *unionNode) variantOf(v reflect.Value) (int, error) {
	k, ok := n.index[v.Elem().Type()]
	if !ok {
		return 0, &EncodeError{Value: valueOf(v), Err: fmt.Errorf("%v is not a variant of %v", v.Elem().Type(), n.typ)}
	}
	return k, nil
}

func (n *unionNode) validate(v reflect.Value) error {
	if v.IsNil() {
		return nil
	}
	k, err := n.variantOf(v)
	if err != nil {
		return err
	}
	variant := &n.variants[k]
	if variant.unit || !variant.node.fallible() {
		return nil
	}
	payload := v.Elem()
	if variant.ptr {
		if payload.IsNil() {
			return nil
		}
		payload = payload.Elem()
	}
	return prefixPath(variant.node.validate(payload), variant.name)
}

func (n *unionNode) newBuilder(mem memory.Allocator) nodeBuilder {
	b := &unionBuilder{node: n, children: make([]nodeBuilder, len(n.variants))}
	for i := range n.variants {
		b.children[i] = n.variants[i].node.newBuilder(mem)
	}
	return b
}

func (n *unionNode) newReader(arr arrow.Array, cfg *readConfig) nodeReader {
	r := &unionReader{
		node:      n,
		arr:       arr.(array.Union),
		offset:    arr.Data().Offset(),
		children:  make([]nodeReader, len(n.variants)),
		unitCheck: cfg.unitCheck,
	}
	if n.mode == arrow.DenseMode {
		r.dense = arr.(*array.DenseUnion)
	}
	for i, child := range childArrays(arr.Data()) {
		r.children[i] = n.variants[i].node.newReader(child, cfg)
	}
	return r
}

var trueValue = reflect.ValueOf(true)

// unionBuilder writes type ids, and value offsets in dense mode. Unions have
// no validity bitmap: a null is a null in the payload column.
type unionBuilder struct {
	node     *unionNode
	children []nodeBuilder
	typeIDs  []int8
	offsets  []int32
}

func (b *unionBuilder) append(v reflect.Value) error {
	if v.IsNil() {
		b.appendNull()
		return nil
	}
	k, err := b.node.variantOf(v)
	if err != nil {
		return err
	}
	variant := &b.node.variants[k]
	child := b.children[k]
	payload := v.Elem()
	switch {
	case variant.ptr && payload.IsNil():
		child.appendNull()
	case variant.unit:
		err = child.append(trueValue)
	case variant.ptr:
		err = child.append(payload.Elem())
	default:
		err = child.append(payload)
	}
	if err != nil {
		return prefixPath(err, variant.name)
	}
	b.push(k)
	return nil
}

// appendNull selects the first variant and stores a null there.
func (b *unionBuilder) appendNull() {
	b.children[0].appendNull()
	b.push(0)
}

// push records the type id of an element already appended to child k and,
// in sparse mode, pads every other child.
func (b *unionBuilder) push(k int) {
	b.typeIDs = append(b.typeIDs, int8(k))
	if b.node.mode == arrow.DenseMode {
		b.offsets = append(b.offsets, int32(b.children[k].len()-1))
		return
	}
	for i, c := range b.children {
		if i != k {
			c.appendNull()
		}
	}
}

func (b *unionBuilder) len() int { return len(b.typeIDs) }

func (b *unionBuilder) reserve(elements, bytes int) {
	b.typeIDs = growCap(b.typeIDs, elements)
	if b.node.mode == arrow.DenseMode {
		b.offsets = growCap(b.offsets, elements)
		return
	}
	for _, c := range b.children {
		c.reserve(elements, bytes)
	}
}

func growCap[E any](s []E, n int) []E {
	if cap(s)-len(s) >= n {
		return s
	}
	grown := make([]E, len(s), len(s)+n)
	copy(grown, s)
	return grown
}

func (b *unionBuilder) finish() arrow.ArrayData {
	length := len(b.typeIDs)
	children := make([]arrow.ArrayData, len(b.children))
	for i, c := range b.children {
		children[i] = c.finish()
	}
	bufs := []*memory.Buffer{nil, memory.NewBufferBytes(arrow.Int8Traits.CastToBytes(b.typeIDs))}
	if b.node.mode == arrow.DenseMode {
		bufs = append(bufs, memory.NewBufferBytes(arrow.Int32Traits.CastToBytes(b.offsets)))
	}
	b.typeIDs, b.offsets = nil, nil
	return newNestedData(b.node.dt, length, bufs, children, 0)
}

func (b *unionBuilder) release() {
	for _, c := range b.children {
		c.release()
	}
}

var errUnitPayload = errors.New("unit variant payload is false")

type unionReader struct {
	node      *unionNode
	arr       array.Union
	dense     *array.DenseUnion
	offset    int
	children  []nodeReader
	unitCheck bool
}

// locate returns the variant of element j and its index in that variant's
// column. Dense value offsets are absolute, so slicing needs no adjustment.
// Sparse children are unsliced and indexed by the union offset.
func (r *unionReader) locate(j int) (int, int) {
	k := r.arr.ChildID(j)
	if r.dense != nil {
		return k, int(r.dense.ValueOffset(j))
	}
	return k, r.offset + j
}

func (r *unionReader) isNull(j int) bool {
	k, idx := r.locate(j)
	return r.children[k].isNull(idx)
}

func (r *unionReader) read(j int, dst reflect.Value) error {
	k, idx := r.locate(j)
	child := r.children[k]
	if child.isNull(idx) {
		dst.SetZero()
		return nil
	}
	variant := &r.node.variants[k]
	if variant.unit {
		var ok bool
		if err := child.read(idx, reflect.ValueOf(&ok).Elem()); err != nil {
			return err
		}
		if !ok && r.unitCheck {
			return &CorruptValueError{Path: variant.name, Index: j, Err: errUnitPayload}
		}
		if variant.ptr {
			dst.Set(reflect.New(variant.typ.Elem()))
		} else {
			dst.Set(reflect.New(variant.typ).Elem())
		}
		return nil
	}

	p := reflect.New(variant.payloadType())
	if err := child.read(idx, p.Elem()); err != nil {
		return prefixPath(err, variant.name)
	}
	if variant.ptr {
		dst.Set(p)
	} else {
		dst.Set(p.Elem())
	}
	return nil
}

func (r *unionReader) release() {
	for _, c := range r.children {
		c.release()
	}
	r.arr.Release()
}
