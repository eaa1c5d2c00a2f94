// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package codecotel_test

import (
	"context"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Query-farm/arrowcodec/arrowcodec"
	codecotel "github.com/Query-farm/arrowcodec/arrowcodec/otel"
)

type reading struct {
	Sensor string
	Value  int64 `arrow:"value,int8"`
}

func newTestHook(t *testing.T) (arrowcodec.Hook, *tracetest.InMemoryExporter, *sdkmetric.ManualReader) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})

	cfg := codecotel.DefaultConfig()
	cfg.TracerProvider = tp
	cfg.MeterProvider = mp
	return codecotel.NewHook(cfg), exporter, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestHookRecordsSpansAndMetrics(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	hook, exporter, reader := newTestHook(t)
	codec, err := arrowcodec.NewCodec[reading](arrowcodec.WithHook(hook))
	require.NoError(t, err)

	arr, err := codec.Encode(mem, []reading{{"a", 1}, {"b", 2}, {"c", 3}})
	require.NoError(t, err)
	defer arr.Release()

	rows, err := codec.Decode(arr)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "arrowcodec/encode", spans[0].Name)
	assert.Equal(t, "arrowcodec/decode", spans[1].Name)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)

	attrs := make(map[string]int64)
	for _, kv := range spans[0].Attributes {
		if kv.Value.Type() == attribute.INT64 {
			attrs[string(kv.Key)] = kv.Value.AsInt64()
		}
	}
	assert.Equal(t, int64(3), attrs["arrowcodec.rows"])
	assert.Positive(t, attrs["arrowcodec.bytes"])

	metrics := collect(t, reader)
	ops, ok := metrics["arrowcodec.operations"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	var total int64
	for _, dp := range ops.DataPoints {
		total += dp.Value
	}
	assert.Equal(t, int64(2), total)

	rowSum, ok := metrics["arrowcodec.rows"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	total = 0
	for _, dp := range rowSum.DataPoints {
		total += dp.Value
	}
	assert.Equal(t, int64(6), total)

	_, ok = metrics["arrowcodec.duration"].Data.(metricdata.Histogram[float64])
	assert.True(t, ok)
}

func TestHookRecordsErrorKind(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	hook, exporter, _ := newTestHook(t)
	_, err := arrowcodec.Encode(mem, []reading{{"a", 1}, {"b", 1000}}, arrowcodec.WithHook(hook))
	require.ErrorIs(t, err, arrowcodec.ErrEncode)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Len(t, spans[0].Events, 1)

	var kind string
	for _, kv := range spans[0].Attributes {
		if kv.Key == "arrowcodec.error_kind" {
			kind = kv.Value.AsString()
		}
	}
	assert.Equal(t, "encode", kind)
}

func TestHookWithTracingDisabled(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	cfg := codecotel.DefaultConfig()
	cfg.TracerProvider = tp
	cfg.EnableTracing = false
	cfg.EnableMetrics = false

	arr, err := arrowcodec.Encode(mem, []string{"x"}, arrowcodec.WithHook(codecotel.NewHook(cfg)))
	require.NoError(t, err)
	arr.Release()
	assert.Empty(t, exporter.GetSpans())
}
