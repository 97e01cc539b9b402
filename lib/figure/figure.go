// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package figure is the renderable figure liveplot builds and the
// dashboard draws. Its JSON encoding is a plotly.js figure: a list of
// traces and a layout.
//
// Figures are built on the ingestion side and drawn on the rendering
// side. They cross between the two only as snapshots: builders append
// to trace slices or replace them wholesale and never modify a
// published element, so [Figure.Snapshot] can share the backing
// arrays and cap each slice at its current length.
package figure

import (
	"math"
	"time"
)

// Trace types.
const (
	TypeScatter = "scatter"
	TypeSurface = "surface"
	TypeHeatmap = "heatmap"
)

// ModeLinesMarkers draws a scatter trace as points joined by lines.
const ModeLinesMarkers = "lines+markers"

// Figure is a plotly figure.
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

// Trace is one plotly trace. X, Y and Z hold numbers, formatted
// timestamps, nil for gaps, or (for surface Z) one []float64 row per
// event.
type Trace struct {
	Type       string `json:"type"`
	Name       string `json:"name,omitempty"`
	Mode       string `json:"mode,omitempty"`
	X          []any  `json:"x"`
	Y          []any  `json:"y"`
	Z          []any  `json:"z,omitempty"`
	ColorScale string `json:"colorscale,omitempty"`
}

// Text is a plotly title object.
type Text struct {
	Text string `json:"text,omitempty"`
}

// Axis is a plotly axis layout.
type Axis struct {
	Title Text      `json:"title"`
	Range []float64 `json:"range,omitempty"`
}

// Layout is the subset of plotly layout liveplot sets. UIRevision is
// held constant so the browser keeps the user's zoom and pan across
// updates.
type Layout struct {
	Title      Text   `json:"title"`
	XAxis      Axis   `json:"xaxis"`
	YAxis      Axis   `json:"yaxis"`
	UIRevision string `json:"uirevision"`
}

// New returns an empty figure with the given title.
func New(title string) *Figure {
	return &Figure{
		Data: []Trace{},
		Layout: Layout{
			Title:      Text{Text: title},
			UIRevision: "constant",
		},
	}
}

// AddTrace appends a trace and returns a pointer to it. The pointer is
// valid until the next AddTrace.
func (f *Figure) AddTrace(trace Trace) *Trace {
	if trace.X == nil {
		trace.X = []any{}
	}
	if trace.Y == nil {
		trace.Y = []any{}
	}
	f.Data = append(f.Data, trace)
	return &f.Data[len(f.Data)-1]
}

// Last returns the most recently added trace, or nil if there is none.
func (f *Figure) Last() *Trace {
	if len(f.Data) == 0 {
		return nil
	}
	return &f.Data[len(f.Data)-1]
}

// Snapshot returns a copy of the figure that later appends do not
// affect. Cost is proportional to the number of traces, not points.
func (f *Figure) Snapshot() *Figure {
	snapshot := &Figure{
		Data:   make([]Trace, len(f.Data)),
		Layout: f.Layout,
	}
	snapshot.Layout.XAxis.Range = capped(f.Layout.XAxis.Range)
	snapshot.Layout.YAxis.Range = capped(f.Layout.YAxis.Range)
	for i, trace := range f.Data {
		trace.X = capped(trace.X)
		trace.Y = capped(trace.Y)
		trace.Z = capped(trace.Z)
		snapshot.Data[i] = trace
	}
	return snapshot
}

// capped limits a slice's capacity to its length, so an append to the
// original reallocates or writes past what the copy can see.
func capped[T any](values []T) []T {
	if values == nil {
		return nil
	}
	return values[:len(values):len(values)]
}

// Number converts a float for JSON encoding. NaN and infinities, which
// encoding/json rejects, become nil, which plotly draws as a gap.
func Number(value float64) any {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil
	}
	return value
}

// timeLayout is a date string plotly parses as a date axis value.
const timeLayout = "2006-01-02 15:04:05.000000"

// FormatTime formats epoch seconds as a plotly date in local time.
func FormatTime(epochSeconds float64) string {
	seconds, fraction := math.Modf(epochSeconds)
	return time.Unix(int64(seconds), int64(fraction*1e9)).Format(timeLayout)
}
