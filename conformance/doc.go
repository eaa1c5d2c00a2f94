// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// Package conformance provides the round-trip fixture suite for
// arrowcodec. Each [Case] encodes a set of Go rows, decodes them back and
// compares, or checks that an invalid input is rejected with the expected
// error kind. Round trips also decode every suffix slice of the encoded
// column so offset handling is exercised for each shape.
//
// [Run] executes the suite and is shared by the package tests and the
// arrowcodec-conformance command. The domain types [Status], [Point],
// [BoundingBox], [AllTypes] and the [Shape] union are exported because
// they double as examples of how to tag Go types for arrowcodec.
//
// Importing the package registers the Shape unions and a netip.Addr leaf
// stored as Utf8.
package conformance
