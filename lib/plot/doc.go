// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package plot builds figures incrementally from run documents.
//
// A [Builder] owns one figure for one field set. It consumes the
// document lifecycle of each run (RunStart, then Descriptors, then
// Events and EventPages) and extends its figure in place: one new
// trace per run, points appended per event. Three kinds exist, one per
// [structure.Kind]:
//
//   - Scalar: one value per event, plotted against sequence number or
//     time as a lines+markers scatter.
//   - Array: a 1-D array per event, either redrawn as a line each event
//     (SLICE) or stacked row by row into a surface (SURFACE, and any
//     array with two or more dimensions).
//   - SampleMap: a heatmap of an intensity field over two positioner
//     fields, with axis ranges that always include zero.
//
// Builders are not safe for concurrent use. The dispatch engine owns
// them on the ingestion side and hands snapshots of their figures to
// the rendering side.
package plot
