// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package document defines the experiment-control documents liveplot
// consumes: run start, descriptor, event, event page and run stop.
//
// A run is described by a RunStart, then one Descriptor per data
// stream declaring its data keys, then Events (single readings) or
// EventPages (column-oriented batches) that reference a Descriptor by
// uid, and finally a RunStop. Documents always travel as a (kind,
// payload) pair; [Kind] is the discriminant.
//
// Field names follow the event-model convention used by acquisition
// frameworks (snake_case, seq_num, data_keys, object_keys) so that a
// producer's native documents can be forwarded without translation.
// Every type carries `json` tags, which the CBOR codec also honours.
//
// Event values arrive with whatever concrete numeric types the
// transport produced: float64 or int64 from CBOR, float64 from JSON,
// or native Go slices when documents are passed in-process. [Float]
// and [Floats] normalize these for plotting.
package document
