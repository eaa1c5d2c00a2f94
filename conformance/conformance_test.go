// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package conformance

import (
	"strings"
	"sync"
	"testing"

	"github.com/Query-farm/arrowcodec/arrowcodec"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConformance(t *testing.T) {
	for _, c := range Cases() {
		t.Run(c.Name, func(t *testing.T) {
			mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
			defer mem.AssertSize(t, 0)

			results := Run(mem, nil, c.Name)
			require.NotEmpty(t, results)
			for _, r := range results {
				if r.Name == c.Name {
					require.NoError(t, r.Err)
					assert.True(t, r.Passed())
				}
			}
		})
	}
}

func TestCaseNamesUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range Cases() {
		assert.False(t, seen[c.Name], "duplicate case %q", c.Name)
		seen[c.Name] = true
		assert.NotEmpty(t, c.Description, c.Name)
	}
}

func TestRunFilter(t *testing.T) {
	results := Run(nil, nil, "union/")
	require.Len(t, results, 3)
	for _, r := range results {
		assert.True(t, strings.HasPrefix(r.Name, "union/"))
		assert.NoError(t, r.Err)
		assert.Positive(t, r.Rows)
	}
	assert.Empty(t, Run(nil, nil, "no such case"))
}

type countingHook struct {
	mu     sync.Mutex
	starts map[string]int
	ends   map[string]int
	errs   int
	rows   int64
}

func (h *countingHook) OnStart(info arrowcodec.OpInfo) arrowcodec.HookToken {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.starts[info.Op]++
	return info.Op
}

func (h *countingHook) OnEnd(token arrowcodec.HookToken, info arrowcodec.OpInfo, stats *arrowcodec.Statistics, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ends[token.(string)]++
	if err != nil {
		h.errs++
	}
	if stats != nil {
		h.rows += stats.Rows
	}
}

func TestRunReportsToHook(t *testing.T) {
	h := &countingHook{starts: map[string]int{}, ends: map[string]int{}}
	results := Run(nil, h, "struct/point")
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)

	// One encode, then a decode of the full column and of one slice.
	assert.Equal(t, 1, h.starts[arrowcodec.OpEncode])
	assert.Equal(t, 2, h.starts[arrowcodec.OpDecode])
	assert.Equal(t, h.starts, h.ends)
	assert.Zero(t, h.errs)
	assert.Equal(t, int64(2+2+1), h.rows)
}

func TestHookSeesFailures(t *testing.T) {
	h := &countingHook{starts: map[string]int{}, ends: map[string]int{}}
	results := Run(nil, h, "error/overflow")
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	assert.Equal(t, 1, h.errs)
}

func TestAllTypesDescriptor(t *testing.T) {
	d, err := arrowcodec.DescriptorOf[AllTypes]()
	require.NoError(t, err)
	schema, err := d.Schema()
	require.NoError(t, err)

	want := map[string]arrow.Type{
		"large_str":         arrow.LARGE_STRING,
		"digest":            arrow.FIXED_SIZE_BINARY,
		"triple":            arrow.FIXED_SIZE_LIST,
		"pair":              arrow.FIXED_SIZE_LIST,
		"enum_field":        arrow.DICTIONARY,
		"annotated_int32":   arrow.INT32,
		"annotated_float32": arrow.FLOAT32,
		"id":                arrow.FIXED_SIZE_BINARY,
		"created":           arrow.TIMESTAMP,
		"day":               arrow.DATE32,
		"elapsed":           arrow.DURATION,
		"alarm":             arrow.TIME32,
		"price":             arrow.DECIMAL128,
		"addr":              arrow.STRING,
		"shape":             arrow.DENSE_UNION,
	}
	for name, id := range want {
		idx := schema.FieldIndices(name)
		require.Len(t, idx, 1, name)
		assert.Equal(t, id, schema.Field(idx[0]).Type.ID(), name)
	}
	opt := schema.Field(schema.FieldIndices("optional_nested")[0])
	assert.True(t, opt.Nullable)
}
