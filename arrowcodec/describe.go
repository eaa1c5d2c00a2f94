// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package arrowcodec

import (
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
)

// Describe renders a descriptor as an indented tree, one field per line:
//
//	struct
//	  id: int64
//	  tags: list
//	    item: utf8?
func Describe(d Descriptor) string {
	if d.Type == nil {
		return "<invalid>\n"
	}
	var sb strings.Builder
	describeType(&sb, 0, "", d.Type, d.Nullable)
	return sb.String()
}

func describeType(sb *strings.Builder, depth int, name string, dt arrow.DataType, nullable bool) {
	sb.WriteString(strings.Repeat("  ", depth))
	if name != "" {
		sb.WriteString(name)
		sb.WriteString(": ")
	}
	sb.WriteString(typeName(dt))
	if nullable {
		sb.WriteByte('?')
	}
	sb.WriteByte('\n')
	if nested, ok := dt.(arrow.NestedType); ok {
		for _, f := range nested.Fields() {
			describeType(sb, depth+1, f.Name, f.Type, f.Nullable)
		}
	}
}
