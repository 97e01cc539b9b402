// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package scansim generates the document stream of synthetic scans.
//
// A [Simulator] plays two plans against simulated hardware: [Simulator.Count]
// reads a scalar detector and a multichannel analyser (MCA) a number
// of times, and [Simulator.Grid] moves two motors over a grid and
// declares a sample map coloured by the MCA mean. The MCA sees a
// Gaussian peak whose height depends on the motor positions, so a
// grid scan draws a recognisable spot.
//
// Documents go to any [Handler]: a dispatch engine in-process, or a
// docstream publisher for remote viewers. Timestamps come from the
// simulator's clock.
package scansim
