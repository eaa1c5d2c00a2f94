// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package arrowcodec

// Option configures descriptors, builders, readers and codecs.
type Option func(*options)

type options struct {
	override  string
	hook      Hook
	unitCheck bool
}

func newOptions(opts []Option) *options {
	o := &options{unitCheck: true}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *options) readConfig() *readConfig {
	return &readConfig{unitCheck: o.unitCheck}
}

// WithOverride applies tag options to the top-level type, using the struct
// tag syntax without a name: "large", "fixed=3", "elem.int32".
func WithOverride(tag string) Option {
	return func(o *options) { o.override = tag }
}

// WithHook reports encode and decode operations to h.
func WithHook(h Hook) Option {
	return func(o *options) { o.hook = h }
}

// WithUnitCheck controls whether decoding a unit variant whose payload is
// false fails with a CorruptValueError. It is on by default.
func WithUnitCheck(enabled bool) Option {
	return func(o *options) { o.unitCheck = enabled }
}
