// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package arrowcodec

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
)

type cacheKey struct {
	t   reflect.Type
	tag string
}

// nodeCache holds compiled nodes by (type, override). Failures are not
// cached.
var nodeCache sync.Map

// compileType returns the node for t, compiling it on first use.
func compileType(t reflect.Type, override string) (node, error) {
	if t == nil {
		return nil, &UnsupportedShapeError{Reason: "nil type"}
	}
	key := cacheKey{t: t, tag: override}
	if n, ok := nodeCache.Load(key); ok {
		return n.(node), nil
	}

	opts, err := parseOverride(override)
	if err != nil {
		return nil, &UnsupportedShapeError{Type: t, Reason: err.Error()}
	}
	c := &compiler{visiting: make(map[reflect.Type]bool)}
	n, err := c.compile(t, opts)
	if err != nil {
		return nil, err
	}
	actual, _ := nodeCache.LoadOrStore(key, n)
	slog.Debug("arrowcodec: derived descriptor", "type", t, "override", override, "descriptor", n.descriptor())
	return actual.(node), nil
}

type compiler struct {
	visiting map[reflect.Type]bool
}

func shapeError(t reflect.Type, err error) error {
	var se *UnsupportedShapeError
	if errors.As(err, &se) {
		return err
	}
	return &UnsupportedShapeError{Type: t, Reason: err.Error()}
}

func (c *compiler) compile(t reflect.Type, opts tagOptions) (node, error) {
	if t.Kind() == reflect.Pointer {
		elem := t.Elem()
		if elem.Kind() == reflect.Pointer || elem.Kind() == reflect.Interface {
			return nil, &UnsupportedShapeError{Type: t, Err: ErrAmbiguousNesting}
		}
		inner, err := c.compile(elem, opts)
		if err != nil {
			return nil, err
		}
		return &optionNode{typ: t, elem: inner}, nil
	}

	if n, ok := lookupLeaf(t); ok {
		if err := opts.only(); err != nil {
			return nil, shapeError(t, err)
		}
		return n, nil
	}
	if n, ok, err := builtinLeaf(t, opts); ok {
		if err != nil {
			return nil, shapeError(t, err)
		}
		return n, nil
	}

	if c.visiting[t] {
		return nil, &UnsupportedShapeError{Type: t, Reason: "recursive type"}
	}
	c.visiting[t] = true
	defer delete(c.visiting, t)

	switch k := t.Kind(); k {
	case reflect.Bool:
		if err := opts.only(); err != nil {
			return nil, shapeError(t, err)
		}
		return boolLeaf(t), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		n, err := numericLeaf(t, opts)
		if err != nil {
			return nil, shapeError(t, err)
		}
		return n, nil
	case reflect.String:
		if err := opts.only("large", "enum"); err != nil {
			return nil, shapeError(t, err)
		}
		if opts.Enum {
			if opts.Large {
				return nil, &UnsupportedShapeError{Type: t, Reason: "enum and large cannot be combined"}
			}
			return enumLeaf(t), nil
		}
		return stringLeaf(t, opts.Large), nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return c.compileBytes(t, opts)
		}
		return c.compileSlice(t, opts)
	case reflect.Array:
		return c.compileArray(t, opts)
	case reflect.Map:
		return c.compileMap(t, opts)
	case reflect.Struct:
		if err := opts.only(); err != nil {
			return nil, shapeError(t, err)
		}
		return c.compileStruct(t)
	case reflect.Interface:
		if err := opts.only(); err != nil {
			return nil, shapeError(t, err)
		}
		spec, ok := lookupUnion(t)
		if !ok {
			return nil, &UnsupportedShapeError{Type: t, Reason: "interface is not a registered union"}
		}
		return c.compileUnion(spec)
	default:
		return nil, &UnsupportedShapeError{Type: t, Reason: fmt.Sprintf("%v values have no columnar form", k)}
	}
}

// compileBytes maps byte slices onto Binary, LargeBinary or
// FixedSizeBinary.
func (c *compiler) compileBytes(t reflect.Type, opts tagOptions) (node, error) {
	if err := opts.only("large", "fixed"); err != nil {
		return nil, shapeError(t, err)
	}
	switch {
	case opts.Fixed > 0 && opts.Large:
		return nil, &UnsupportedShapeError{Type: t, Reason: "fixed and large cannot be combined"}
	case opts.Fixed > 0:
		return fixedBinaryLeaf(t, opts.Fixed), nil
	default:
		return binaryLeaf(t, opts.Large), nil
	}
}

func (c *compiler) compileSlice(t reflect.Type, opts tagOptions) (node, error) {
	if err := opts.only("large", "fixed", "elem"); err != nil {
		return nil, shapeError(t, err)
	}
	if opts.Fixed > 0 && opts.Large {
		return nil, &UnsupportedShapeError{Type: t, Reason: "fixed and large cannot be combined"}
	}
	elem, err := c.compile(t.Elem(), opts.elem())
	if err != nil {
		return nil, prefixPath(err, "item")
	}
	if opts.Fixed > 0 {
		return newFixedListNode(t, elem, opts.Fixed), nil
	}
	return newListNode(t, elem, opts.Large), nil
}

// compileArray maps [N]byte onto FixedSizeBinary(N) and other arrays onto
// FixedSizeList(N).
func (c *compiler) compileArray(t reflect.Type, opts tagOptions) (node, error) {
	if opts.Fixed > 0 && opts.Fixed != t.Len() {
		return nil, &UnsupportedShapeError{Type: t, Reason: fmt.Sprintf("fixed=%d disagrees with array length %d", opts.Fixed, t.Len())}
	}
	if t.Elem().Kind() == reflect.Uint8 {
		if err := opts.only("fixed"); err != nil {
			return nil, shapeError(t, err)
		}
		return fixedBinaryLeaf(t, t.Len()), nil
	}
	if err := opts.only("fixed", "elem"); err != nil {
		return nil, shapeError(t, err)
	}
	elem, err := c.compile(t.Elem(), opts.elem())
	if err != nil {
		return nil, prefixPath(err, "item")
	}
	return newFixedListNode(t, elem, t.Len()), nil
}

func (c *compiler) compileMap(t reflect.Type, opts tagOptions) (node, error) {
	if err := opts.only("elem"); err != nil {
		return nil, shapeError(t, err)
	}
	key, err := c.compile(t.Key(), tagOptions{})
	if err != nil {
		return nil, prefixPath(err, "key")
	}
	if key.descriptor().Nullable {
		return nil, &UnsupportedShapeError{Type: t, Path: "key", Reason: "map keys cannot be nullable"}
	}
	item, err := c.compile(t.Elem(), opts.elem())
	if err != nil {
		return nil, prefixPath(err, "value")
	}
	return newMapNode(t, key, item), nil
}

// compileStruct derives one child per exported field in declared order.
func (c *compiler) compileStruct(t reflect.Type) (node, error) {
	var fields []structField
	seen := make(map[string]bool)
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		info, err := parseTag(f.Tag.Get("arrow"), f.Name)
		if err != nil {
			return nil, &UnsupportedShapeError{Type: t, Path: f.Name, Reason: err.Error()}
		}
		if info.Skip {
			continue
		}
		if seen[info.Name] {
			return nil, &UnsupportedShapeError{Type: t, Path: info.Name, Reason: "duplicate field name"}
		}
		seen[info.Name] = true

		n, err := c.compile(f.Type, info.opts)
		if err != nil {
			return nil, prefixPath(err, info.Name)
		}
		fields = append(fields, structField{name: info.Name, index: i, node: n})
	}
	return newStructNode(t, fields), nil
}

// compileUnion derives one nullable child per variant, with type codes
// 0..n-1 in registration order.
func (c *compiler) compileUnion(spec *unionSpec) (node, error) {
	n := &unionNode{
		typ:      spec.iface,
		mode:     spec.mode,
		variants: make([]unionVariant, len(spec.variants)),
		index:    make(map[reflect.Type]int, len(spec.variants)),
	}
	fields := make([]arrow.Field, len(spec.variants))
	codes := make([]arrow.UnionTypeCode, len(spec.variants))
	for i, vs := range spec.variants {
		v := unionVariant{name: vs.name, typ: vs.typ, ptr: vs.typ.Kind() == reflect.Pointer}
		payload := v.payloadType()
		if payload.Kind() == reflect.Struct && payload.NumField() == 0 {
			v.unit = true
			v.node = boolLeaf(reflect.TypeFor[bool]())
		} else {
			pn, err := c.compile(payload, tagOptions{})
			if err != nil {
				return nil, prefixPath(err, vs.name)
			}
			v.node = pn
		}
		n.variants[i] = v
		n.index[vs.typ] = i
		fields[i] = arrow.Field{Name: vs.name, Type: v.node.descriptor().Type, Nullable: true}
		codes[i] = arrow.UnionTypeCode(i)
	}
	n.dt = arrow.UnionOf(spec.mode, fields, codes)
	return n, nil
}
