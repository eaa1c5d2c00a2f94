// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package benchmark

import (
	"context"
	"fmt"

	"github.com/Query-farm/arrowcodec/arrowcodec"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"golang.org/x/sync/errgroup"
)

// EncodeChunks encodes rows in chunks of chunkSize, at most workers at a
// time. Each chunk gets its own builder; the codec is shared. On error
// every chunk already built is released.
func EncodeChunks[T any](ctx context.Context, mem memory.Allocator, c *arrowcodec.Codec[T], rows []T, chunkSize, workers int) (*arrow.Chunked, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	n := (len(rows) + chunkSize - 1) / chunkSize
	chunks := make([]arrow.Array, n)

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i := range n {
		lo := i * chunkSize
		hi := min(lo+chunkSize, len(rows))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			arr, err := c.Encode(mem, rows[lo:hi])
			if err != nil {
				return fmt.Errorf("chunk %d: %w", i, err)
			}
			chunks[i] = arr
			return nil
		})
	}
	err := g.Wait()
	defer func() {
		for _, a := range chunks {
			if a != nil {
				a.Release()
			}
		}
	}()
	if err != nil {
		return nil, err
	}
	return arrow.NewChunked(c.Descriptor().Type, chunks), nil
}

// EncodeParallel is EncodeChunks followed by concatenation into a single
// column.
func EncodeParallel[T any](ctx context.Context, mem memory.Allocator, c *arrowcodec.Codec[T], rows []T, chunkSize, workers int) (arrow.Array, error) {
	chunked, err := EncodeChunks(ctx, mem, c, rows, chunkSize, workers)
	if err != nil {
		return nil, err
	}
	defer chunked.Release()
	if len(chunked.Chunks()) == 0 {
		return c.Encode(mem, nil)
	}
	return array.Concatenate(chunked.Chunks(), mem)
}
