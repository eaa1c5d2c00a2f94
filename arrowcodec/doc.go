// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// Package arrowcodec converts between Go values and Apache Arrow columns.
//
// A Go type is compiled once into a descriptor, an Arrow data type plus a
// nullability flag, and the compiled form drives both directions:
// [Builder] appends values into Arrow buffers and [Reader] iterates over an
// existing column after checking its data type.
//
//	col, err := arrowcodec.Encode(mem, rows)
//	...
//	back, err := arrowcodec.Decode[Row](col)
//
// # Type mapping
//
//   - bool, intN, uintN, floatN map to the Arrow type of the same width;
//     int and uint map to Int64 and Uint64.
//   - string maps to Utf8 and []byte to Binary; [N]byte maps to
//     FixedSizeBinary(N).
//   - *T is T with the nullable flag set. **T is rejected.
//   - []T maps to List and [N]T to FixedSizeList(N).
//   - map[K]V maps to Map, with keys written in sorted order.
//   - structs map to Struct, one field per exported Go field.
//   - interfaces registered with [RegisterUnion] map to dense or sparse
//     unions.
//   - time.Time, time.Duration, decimal128.Num and decimal.Decimal map to
//     Timestamp, Duration and Decimal128.
//
// Other types can be added with [RegisterLeaf].
//
// # Struct tags
//
// Fields are configured with `arrow` struct tags:
//
//	`arrow:"name[,option[,option...]]"`
//
// Supported options:
//
//   - large: LargeUtf8, LargeBinary or LargeList
//   - fixed=N: FixedSizeBinary(N) or FixedSizeList(N) for slices
//   - int8 ... uint32, float32: a narrower physical type
//   - decimal=P:S: Decimal128 precision and scale
//   - date32: time.Time as Date32
//   - time32, time64: time.Duration as a time of day
//   - enum: a string type as Dictionary(Int16, Utf8)
//   - elem.OPTION: apply OPTION to list elements
//
// The tag "-" skips a field. [WithOverride] applies the same options to the
// top-level type.
//
// # Errors
//
// Derivation fails with [UnsupportedShapeError]. Encoding fails with
// [FixedSizeMismatchError] or [EncodeError], and a failed append leaves the
// builder unchanged. Decoding fails with [SchemaMismatchError] before any
// buffer is read, or with [CorruptValueError] for a stored value that has
// no Go form.
package arrowcodec
