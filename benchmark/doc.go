// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// Package benchmark holds deterministic row generators and encode/decode
// benchmarks for arrowcodec, plus a chunked parallel encoder built on a
// shared Codec.
package benchmark
