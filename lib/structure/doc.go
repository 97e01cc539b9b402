// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package structure describes how to plot a named field or group of
// fields. A [Structure] is a declared plotting intent: which fields it
// governs ([FieldSet]), which kind of figure to build (scalar, array,
// or sample map), and the kind-specific parameters.
//
// Structures reach liveplot three ways:
//
//   - Declared by the producer in the RunStart hints, under
//     hints.BLUESKY_LIVE_PLOTS.STRUCTURES (a list of declarations) or
//     the legacy hints.WEB_PLOT_STRUCTURES (field name → declaration).
//     [Register] reads both.
//   - Supplied by the operator in a JSONC file ([LoadFile]) and applied
//     to every run underneath the run's own declarations.
//   - Synthesized from a field's dtype when nothing declares it
//     ([Default]).
//
// The package is pure data and parsing. Nothing here holds state
// across runs; the dispatch engine owns the per-run mapping.
package structure
