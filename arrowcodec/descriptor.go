// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package arrowcodec

import (
	"fmt"
	"reflect"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/goccy/go-json"
)

// Descriptor is the columnar data type derived from a Go type: the Arrow
// data type, which carries the kind and the child fields, plus the
// nullability of the top-level position.
type Descriptor struct {
	Type     arrow.DataType
	Nullable bool
}

// DescriptorOf derives the descriptor of T.
func DescriptorOf[T any](opts ...Option) (Descriptor, error) {
	o := newOptions(opts)
	n, err := compileType(reflect.TypeFor[T](), o.override)
	if err != nil {
		return Descriptor{}, err
	}
	return n.descriptor(), nil
}

// DescriptorFor derives the descriptor of t with the given override
// options, e.g. "large" or "fixed=4".
func DescriptorFor(t reflect.Type, override string) (Descriptor, error) {
	n, err := compileType(t, override)
	if err != nil {
		return Descriptor{}, err
	}
	return n.descriptor(), nil
}

// Kind returns the Arrow type id.
func (d Descriptor) Kind() arrow.Type { return d.Type.ID() }

// PhysicalKind returns the physical layout class of the descriptor.
func (d Descriptor) PhysicalKind() PhysicalKind {
	k, _ := PhysicalKindOf(d.Type)
	return k
}

// Children returns the descriptors of the child fields: struct fields,
// list items, map entries or union variants.
func (d Descriptor) Children() []Descriptor {
	nested, ok := d.Type.(arrow.NestedType)
	if !ok {
		return nil
	}
	fields := nested.Fields()
	out := make([]Descriptor, len(fields))
	for i, f := range fields {
		out[i] = Descriptor{Type: f.Type, Nullable: f.Nullable}
	}
	return out
}

// Field returns an Arrow field with the given name and this descriptor.
func (d Descriptor) Field(name string) arrow.Field {
	return arrow.Field{Name: name, Type: d.Type, Nullable: d.Nullable}
}

// Schema returns the record batch schema for a struct descriptor.
func (d Descriptor) Schema() (*arrow.Schema, error) {
	st, ok := d.Type.(*arrow.StructType)
	if !ok {
		return nil, &SchemaMismatchError{Reason: "record batches require a struct type", Actual: d.Type}
	}
	return arrow.NewSchema(st.Fields(), nil), nil
}

// Equal reports whether both descriptors have the same nullability and
// structurally equal types.
func (d Descriptor) Equal(o Descriptor) bool {
	if d.Nullable != o.Nullable {
		return false
	}
	return checkType("", d.Type, o.Type) == nil && checkType("", o.Type, d.Type) == nil
}

func (d Descriptor) String() string {
	if d.Type == nil {
		return "<invalid>"
	}
	if d.Nullable {
		return d.Type.String() + "?"
	}
	return d.Type.String()
}

type descriptorJSON struct {
	Name     string           `json:"name,omitempty"`
	Type     string           `json:"type"`
	Physical string           `json:"physical"`
	Nullable bool             `json:"nullable"`
	Children []descriptorJSON `json:"children,omitempty"`
}

func toDescriptorJSON(name string, dt arrow.DataType, nullable bool) descriptorJSON {
	out := descriptorJSON{
		Name:     name,
		Type:     typeName(dt),
		Nullable: nullable,
	}
	if k, err := PhysicalKindOf(dt); err == nil {
		out.Physical = k.String()
	}
	if nested, ok := dt.(arrow.NestedType); ok {
		for _, f := range nested.Fields() {
			out.Children = append(out.Children, toDescriptorJSON(f.Name, f.Type, f.Nullable))
		}
	}
	return out
}

// MarshalJSON renders the descriptor as a tree of
// {name, type, physical, nullable, children}.
func (d Descriptor) MarshalJSON() ([]byte, error) {
	if d.Type == nil {
		return nil, fmt.Errorf("arrowcodec: marshal of empty descriptor")
	}
	return json.Marshal(toDescriptorJSON("", d.Type, d.Nullable))
}

// typeName is the short type label used by Describe and MarshalJSON; the
// parameters of nested types are carried by the children instead.
func typeName(dt arrow.DataType) string {
	switch t := dt.(type) {
	case *arrow.ListType:
		return "list"
	case *arrow.LargeListType:
		return "large_list"
	case *arrow.FixedSizeListType:
		return fmt.Sprintf("fixed_size_list[%d]", t.Len())
	case *arrow.MapType:
		return "map"
	case *arrow.StructType:
		return "struct"
	case *arrow.DenseUnionType:
		return "dense_union"
	case *arrow.SparseUnionType:
		return "sparse_union"
	default:
		return dt.String()
	}
}
