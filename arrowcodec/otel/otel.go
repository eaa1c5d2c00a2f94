// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// Package codecotel provides OpenTelemetry instrumentation for arrowcodec.
// It implements the [arrowcodec.Hook] interface to record a span and
// metrics for every encode and decode.
//
// Usage:
//
//	hook := codecotel.NewHook(codecotel.DefaultConfig())
//	codec, err := arrowcodec.NewCodec[Row](arrowcodec.WithHook(hook))
package codecotel

import (
	"context"
	"fmt"
	"time"

	"github.com/Query-farm/arrowcodec/arrowcodec"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "arrowcodec"

// Config configures OpenTelemetry instrumentation.
type Config struct {
	// TracerProvider supplies the tracer. Defaults to otel.GetTracerProvider().
	TracerProvider trace.TracerProvider
	// MeterProvider supplies the meter. Defaults to otel.GetMeterProvider().
	MeterProvider metric.MeterProvider
	// EnableTracing enables span creation. Default true.
	EnableTracing bool
	// EnableMetrics enables counter and histogram recording. Default true.
	EnableMetrics bool
	// RecordExceptions calls RecordError on the span for failed operations.
	// Default true.
	RecordExceptions bool
	// CustomAttributes are added to every span.
	CustomAttributes []attribute.KeyValue
}

// DefaultConfig returns a Config with tracing, metrics and exception
// recording enabled. Providers are resolved from the global OTel SDK when
// the hook is created.
func DefaultConfig() Config {
	return Config{
		EnableTracing:    true,
		EnableMetrics:    true,
		RecordExceptions: true,
	}
}

// NewHook returns a hook that reports to the configured providers.
func NewHook(cfg Config) arrowcodec.Hook {
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = otel.GetTracerProvider()
	}
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = otel.GetMeterProvider()
	}

	h := &hook{
		cfg:    cfg,
		tracer: cfg.TracerProvider.Tracer(instrumentationName),
	}
	if cfg.EnableMetrics {
		meter := cfg.MeterProvider.Meter(instrumentationName)
		h.operations, _ = meter.Int64Counter("arrowcodec.operations",
			metric.WithUnit("{operation}"),
			metric.WithDescription("Number of encode and decode operations"),
		)
		h.duration, _ = meter.Float64Histogram("arrowcodec.duration",
			metric.WithUnit("s"),
			metric.WithDescription("Duration of encode and decode operations"),
		)
		h.rows, _ = meter.Int64Counter("arrowcodec.rows",
			metric.WithUnit("{row}"),
			metric.WithDescription("Rows encoded or decoded"),
		)
		h.bytes, _ = meter.Int64Counter("arrowcodec.bytes",
			metric.WithUnit("By"),
			metric.WithDescription("Arrow buffer bytes produced or consumed"),
		)
	}
	return h
}

type hook struct {
	cfg        Config
	tracer     trace.Tracer
	operations metric.Int64Counter
	duration   metric.Float64Histogram
	rows       metric.Int64Counter
	bytes      metric.Int64Counter
}

// spanToken is the HookToken returned by OnStart.
type spanToken struct {
	ctx       context.Context
	span      trace.Span
	startTime time.Time
}

func (h *hook) OnStart(info arrowcodec.OpInfo) arrowcodec.HookToken {
	ctx := context.Background()
	if !h.cfg.EnableTracing {
		return &spanToken{ctx: ctx, startTime: time.Now()}
	}

	attrs := []attribute.KeyValue{
		attribute.String("arrowcodec.op", info.Op),
		attribute.String("arrowcodec.go_type", info.GoType),
		attribute.String("arrowcodec.arrow_type", info.Descriptor.String()),
	}
	attrs = append(attrs, h.cfg.CustomAttributes...)

	ctx, span := h.tracer.Start(ctx, fmt.Sprintf("arrowcodec/%s", info.Op),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
	return &spanToken{ctx: ctx, span: span, startTime: time.Now()}
}

func (h *hook) OnEnd(token arrowcodec.HookToken, info arrowcodec.OpInfo, stats *arrowcodec.Statistics, err error) {
	st, ok := token.(*spanToken)
	if !ok {
		return
	}
	duration := time.Since(st.startTime)

	status := "ok"
	if err != nil {
		status = "error"
	}

	if h.cfg.EnableMetrics {
		attrs := metric.WithAttributes(
			attribute.String("arrowcodec.op", info.Op),
			attribute.String("arrowcodec.go_type", info.GoType),
			attribute.String("status", status),
		)
		if h.operations != nil {
			h.operations.Add(st.ctx, 1, attrs)
		}
		if h.duration != nil {
			h.duration.Record(st.ctx, duration.Seconds(), attrs)
		}
		if stats != nil {
			if h.rows != nil {
				h.rows.Add(st.ctx, stats.Rows, attrs)
			}
			if h.bytes != nil {
				h.bytes.Add(st.ctx, stats.Bytes, attrs)
			}
		}
	}

	if st.span == nil {
		return
	}
	defer st.span.End()
	if !st.span.IsRecording() {
		return
	}
	if stats != nil {
		st.span.SetAttributes(
			attribute.Int64("arrowcodec.rows", stats.Rows),
			attribute.Int64("arrowcodec.nulls", stats.Nulls),
			attribute.Int64("arrowcodec.bytes", stats.Bytes),
			attribute.Int64("arrowcodec.buffers", stats.Buffers),
		)
	}
	if err != nil {
		st.span.SetStatus(codes.Error, err.Error())
		if h.cfg.RecordExceptions {
			st.span.RecordError(err)
		}
		st.span.SetAttributes(attribute.String("arrowcodec.error_kind", arrowcodec.ErrorKind(err)))
	} else {
		st.span.SetStatus(codes.Ok, "")
	}
}
