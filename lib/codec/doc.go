// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides liveplot's CBOR encoding configuration.
//
// liveplot uses two serialization formats with a clear boundary:
//
//   - CBOR for the document stream between an acquisition process and
//     a viewer (lib/docstream) and for structure metadata embedded in
//     run-start documents received over that stream.
//   - JSON for everything the browser sees: figures, the plot listing,
//     status, and websocket frames.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2). The
// decoder maps any-typed targets to map[string]any and signed integers
// so that event values behave the same whether they arrived over the
// wire or were passed in-process.
//
// Buffer-oriented:
//
//	data, err := codec.Marshal(document)
//	err = codec.Unmarshal(data, &document)
//
// Stream-oriented:
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
//
// Document types carry `json` tags only. fxamacker/cbor reads `json`
// tags when `cbor` tags are absent, so one tag controls naming in both
// formats. Types that only ever travel as CBOR (stream headers,
// envelopes) use `cbor` tags.
package codec
