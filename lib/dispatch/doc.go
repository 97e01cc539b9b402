// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package dispatch routes run documents to figure builders.
//
// An [Engine] is the per-process controller between a document source
// (an in-process producer or a remote subscription) and the update
// channel the dashboard drains. It holds all run-lifetime state:
// the structures in force, one builder per field set, the field sets
// of known descriptors, and the descriptors of ignored streams. Every
// RunStart discards that state and rebuilds it; nothing carries over
// between runs.
//
// Classification happens at descriptor time. Registered structures
// whose fields the descriptor declares get builders first (larger
// field sets before smaller). Then each field the descriptor hints as
// interesting, and that no registered structure names, gets a builder
// from its dtype: numbers become scalar plots, arrays become slices,
// and anything else is logged once and skipped.
//
// Events are routed to every builder whose fields the event carries,
// and each builder that changed publishes a snapshot of its figure.
// Handling is synchronous and bounded by the number of figures, not
// the volume of data: document producers are never blocked by the
// renderer.
package dispatch
