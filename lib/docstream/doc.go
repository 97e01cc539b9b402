// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package docstream carries experiment documents between processes
// over TCP.
//
// A stream is a sequence of CBOR values. The subscriber opens with a
// hello naming the protocol version and the compression it wants; the
// publisher answers with a header confirming both, or refusing the
// subscription. Every value after the header is a frame holding one
// CBOR-encoded [document.Envelope], block-compressed with LZ4 or zstd
// when that makes it smaller. Frames are written and flushed one
// document at a time, so a subscriber sees each document as soon as
// it is published.
//
// [Publisher] fans documents out to subscribers through bounded
// per-subscriber queues and never blocks the producer. [Subscriber] is
// the receiving worker: it dials, forwards each document to a
// [HandlerFunc], and reconnects with exponential backoff. Cancelling
// its context closes the connection.
package docstream
