// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package arrowcodec

import (
	"reflect"
	"sync"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedOp struct {
	info  OpInfo
	stats *Statistics
	err   error
}

type recordingHook struct {
	mu     sync.Mutex
	starts int
	ops    []recordedOp
}

func (h *recordingHook) OnStart(info OpInfo) HookToken {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.starts++
	return h.starts
}

func (h *recordingHook) OnEnd(token HookToken, info OpInfo, stats *Statistics, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if token.(int) != len(h.ops)+1 {
		panic("hook token out of order")
	}
	h.ops = append(h.ops, recordedOp{info: info, stats: stats, err: err})
}

func TestCodecReportsToHook(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	h := &recordingHook{}
	c, err := NewCodec[*string](WithHook(h))
	require.NoError(t, err)

	arr, err := c.Encode(mem, []*string{ptr("a"), nil, ptr("bc")})
	require.NoError(t, err)
	defer arr.Release()
	_, err = c.Decode(arr)
	require.NoError(t, err)

	require.Len(t, h.ops, 2)
	enc, dec := h.ops[0], h.ops[1]
	assert.Equal(t, OpEncode, enc.info.Op)
	assert.Equal(t, OpDecode, dec.info.Op)
	assert.Equal(t, "*string", enc.info.GoType)
	assert.True(t, enc.info.Descriptor.Nullable)
	for _, op := range h.ops {
		require.NoError(t, op.err)
		assert.Equal(t, int64(3), op.stats.Rows)
		assert.Equal(t, int64(1), op.stats.Nulls)
		// validity, offsets and data
		assert.Equal(t, int64(3), op.stats.Buffers)
		assert.Positive(t, op.stats.Bytes)
	}
}

func TestCodecHookSeesErrors(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	h := &recordingHook{}
	c, err := NewCodec[int64](WithHook(h), WithOverride("int8"))
	require.NoError(t, err)

	_, err = c.Encode(mem, []int64{1, 300})
	require.ErrorIs(t, err, ErrEncode)

	strs, err := Encode(mem, []string{"x"})
	require.NoError(t, err)
	defer strs.Release()
	_, err = c.Decode(strs)
	require.ErrorIs(t, err, ErrSchemaMismatch)

	require.Len(t, h.ops, 2)
	assert.ErrorIs(t, h.ops[0].err, ErrEncode)
	assert.Nil(t, h.ops[0].stats)
	assert.ErrorIs(t, h.ops[1].err, ErrSchemaMismatch)
}

func TestCodecBuilderAndReaderShareDescriptor(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	c, err := NewCodec[[]uint8](WithOverride("large"))
	require.NoError(t, err)
	assert.Equal(t, arrow.LARGE_BINARY, c.Descriptor().Kind())

	b := c.NewBuilder(mem)
	defer b.Release()
	require.NoError(t, b.Append([]byte("abc")))
	b.AppendNull()
	assert.Equal(t, 2, b.Len())
	arr := b.NewArray()
	defer arr.Release()
	assert.Equal(t, 1, arr.NullN())

	// Read through a nullable type, since the column has a null.
	got, err := DecodeAs[*[]byte](arr, "large")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []byte("abc"), *got[0])
	assert.Nil(t, got[1])

	_, err = c.NewReader(arr)
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestEncodeAsLeavesOptionsAlone(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	opts := make([]Option, 0, 4)
	opts = append(opts, WithUnitCheck(true))
	large, err := EncodeAs(mem, []string{"a"}, "large", opts...)
	require.NoError(t, err)
	defer large.Release()
	plain, err := Encode(mem, []string{"a"}, opts...)
	require.NoError(t, err)
	defer plain.Release()

	assert.Equal(t, arrow.LARGE_STRING, large.DataType().ID())
	assert.Equal(t, arrow.STRING, plain.DataType().ID())
	assert.Len(t, opts, 1)
	assert.Nil(t, opts[:2][1])
}

func TestDescriptorFor(t *testing.T) {
	d, err := DescriptorFor(reflect.TypeFor[[]int16](), "fixed=2")
	require.NoError(t, err)
	assert.Equal(t, arrow.FIXED_SIZE_LIST, d.Kind())
	assert.Equal(t, KindFixedList, d.PhysicalKind())

	_, err = DescriptorFor(nil, "")
	assert.ErrorIs(t, err, ErrUnsupportedShape)
	_, err = DescriptorFor(reflect.TypeFor[int](), "fixed=x")
	assert.ErrorIs(t, err, ErrUnsupportedShape)
}
