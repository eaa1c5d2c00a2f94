// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package arrowcodec

import (
	"fmt"
	"strconv"
	"strings"
)

// tagInfo holds the parsed form of an `arrow` struct tag or of an override
// string passed to EncodeAs/DecodeAs.
type tagInfo struct {
	Name string
	Skip bool
	opts tagOptions
}

// tagOptions are the shape overrides that can follow the field name.
type tagOptions struct {
	Large     bool
	Fixed     int    // 0 when unset
	Width     string // "int8" .. "uint32", "float32"
	Precision int32
	Scale     int32
	Decimal   bool
	Date32    bool
	TimeOfDay string // "time32" or "time64"
	Enum      bool
	Elem      *tagOptions
}

var widthOptions = map[string]bool{
	"int8": true, "int16": true, "int32": true, "int64": true,
	"uint8": true, "uint16": true, "uint32": true, "uint64": true,
	"float32": true,
}

// parseTag parses a struct tag like "name", "name,large" or
// "-". An empty name keeps the Go field name.
func parseTag(tag, fieldName string) (tagInfo, error) {
	if tag == "-" {
		return tagInfo{Skip: true}, nil
	}
	parts := strings.Split(tag, ",")
	info := tagInfo{Name: parts[0]}
	if info.Name == "" {
		info.Name = fieldName
	}
	opts, err := parseOptions(parts[1:])
	if err != nil {
		return tagInfo{}, err
	}
	info.opts = opts
	return info, nil
}

// parseOverride parses a bare option list such as "large" or
// "fixed=3,elem.int32".
func parseOverride(s string) (tagOptions, error) {
	if s == "" {
		return tagOptions{}, nil
	}
	return parseOptions(strings.Split(s, ","))
}

func parseOptions(parts []string) (tagOptions, error) {
	var opts tagOptions
	for _, raw := range parts {
		part := strings.TrimSpace(raw)
		if part == "" {
			continue
		}
		target := &opts
		for strings.HasPrefix(part, "elem.") {
			if target.Elem == nil {
				target.Elem = &tagOptions{}
			}
			target = target.Elem
			part = strings.TrimPrefix(part, "elem.")
		}
		if err := target.set(part); err != nil {
			return tagOptions{}, err
		}
	}
	return opts, nil
}

func (o *tagOptions) set(part string) error {
	key, val, hasVal := strings.Cut(part, "=")
	switch {
	case key == "large" && !hasVal:
		o.Large = true
	case key == "enum" && !hasVal:
		o.Enum = true
	case key == "date32" && !hasVal:
		o.Date32 = true
	case (key == "time32" || key == "time64") && !hasVal:
		o.TimeOfDay = key
	case widthOptions[key] && !hasVal:
		o.Width = key
	case key == "fixed" && hasVal:
		n, err := strconv.Atoi(val)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid fixed size %q", val)
		}
		o.Fixed = n
	case key == "decimal" && hasVal:
		p, s, ok := strings.Cut(val, ":")
		prec, err := strconv.ParseInt(p, 10, 32)
		if err != nil || prec < 1 || prec > 38 {
			return fmt.Errorf("invalid decimal precision %q", p)
		}
		var scale int64
		if ok {
			scale, err = strconv.ParseInt(s, 10, 32)
			if err != nil || scale < 0 || scale > prec {
				return fmt.Errorf("invalid decimal scale %q", s)
			}
		}
		o.Decimal = true
		o.Precision, o.Scale = int32(prec), int32(scale)
	default:
		return fmt.Errorf("unknown tag option %q", part)
	}
	return nil
}

// names lists the options that are set, in a stable order.
func (o tagOptions) names() []string {
	var out []string
	if o.Large {
		out = append(out, "large")
	}
	if o.Fixed != 0 {
		out = append(out, "fixed")
	}
	if o.Width != "" {
		out = append(out, o.Width)
	}
	if o.Decimal {
		out = append(out, "decimal")
	}
	if o.Date32 {
		out = append(out, "date32")
	}
	if o.TimeOfDay != "" {
		out = append(out, o.TimeOfDay)
	}
	if o.Enum {
		out = append(out, "enum")
	}
	if o.Elem != nil {
		out = append(out, "elem")
	}
	return out
}

// only reports the first option that is set but not listed in allowed.
func (o tagOptions) only(allowed ...string) error {
	for _, name := range o.names() {
		ok := false
		for _, a := range allowed {
			if name == a || (a == "width" && widthOptions[name]) {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("tag option %q does not apply", name)
		}
	}
	return nil
}

func (o tagOptions) elem() tagOptions {
	if o.Elem == nil {
		return tagOptions{}
	}
	return *o.Elem
}
