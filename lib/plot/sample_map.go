// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package plot

import (
	"log/slog"
	"math"

	"github.com/bureau-foundation/liveplot/lib/figure"
	"github.com/bureau-foundation/liveplot/lib/schema/document"
	"github.com/bureau-foundation/liveplot/lib/structure"
)

// sampleMap is a heatmap of the intensity field over the two other
// fields. The trace is added on the first event of each run rather
// than at descriptor time: plotly cannot extend a heatmap created
// empty.
type sampleMap struct {
	fields    structure.FieldSet
	structure structure.Structure
	x, y, z   string
	logger    *slog.Logger
	figure    *figure.Figure
	run       run

	// Bounds of every point in the current run's trace, seeded with
	// zero so the axis ranges always include the origin.
	minX, maxX, minY, maxY float64
}

func newSampleMap(fields structure.FieldSet, s structure.Structure, logger *slog.Logger) (*sampleMap, error) {
	if !fields.Contains(s.IntensityField) {
		return nil, configErrorf(fields, "intensity field %q is not one of the governed fields", s.IntensityField)
	}
	var positions []string
	for _, name := range fields.Names() {
		if name != s.IntensityField {
			positions = append(positions, name)
		}
	}
	if len(positions) < 2 {
		return nil, configErrorf(fields, "sample map needs two position fields besides intensity %q, got %d", s.IntensityField, len(positions))
	}
	if len(positions) > 2 {
		logger.Warn("sample map has more than two position fields, using the first two",
			"positions", positions, "x", positions[0], "y", positions[1])
	}
	colorScale := s.ColorScale
	if colorScale == "" {
		colorScale = structure.Viridis
	}
	s.ColorScale = colorScale

	plot := &sampleMap{
		fields:    fields,
		structure: s,
		x:         positions[0],
		y:         positions[1],
		z:         s.IntensityField,
		logger:    logger,
		figure:    figure.New(fields.String()),
	}
	plot.figure.Layout.XAxis.Title.Text = plot.x
	plot.figure.Layout.YAxis.Title.Text = plot.y
	return plot, nil
}

func (m *sampleMap) Fields() structure.FieldSet     { return m.fields }
func (m *sampleMap) Structure() structure.Structure { return m.structure }
func (m *sampleMap) Figure() *figure.Figure         { return m.figure }

func (m *sampleMap) RunStart(runStart *document.RunStart) {
	if m.run.start(runStart) {
		m.minX, m.maxX, m.minY, m.maxY = 0, 0, 0, 0
	}
}

// Descriptor adds nothing: the trace waits for the first point.
func (m *sampleMap) Descriptor(*document.Descriptor) {}

func (m *sampleMap) point(xValue, yValue, zValue any) bool {
	x, xOK := document.Float(xValue)
	y, yOK := document.Float(yValue)
	z, zOK := document.Float(zValue)
	if !xOK || !yOK || !zOK || !finite(x) || !finite(y) {
		m.logger.Debug("skipping unplottable sample map point", "x", xValue, "y", yValue, "z", zValue)
		return false
	}

	if !m.run.traced {
		m.figure.AddTrace(figure.Trace{
			Type:       figure.TypeHeatmap,
			Name:       m.run.traceName(),
			Z:          []any{},
			ColorScale: string(m.structure.ColorScale),
		})
		m.run.traced = true
	}
	trace := m.figure.Last()
	trace.X = append(trace.X, figure.Number(x))
	trace.Y = append(trace.Y, figure.Number(y))
	trace.Z = append(trace.Z, figure.Number(z))

	m.minX, m.maxX = min(m.minX, x), max(m.maxX, x)
	m.minY, m.maxY = min(m.minY, y), max(m.maxY, y)
	return true
}

func (m *sampleMap) updateRanges() {
	m.figure.Layout.XAxis.Range = []float64{m.minX, m.maxX}
	m.figure.Layout.YAxis.Range = []float64{m.minY, m.maxY}
}

func (m *sampleMap) Event(event *document.Event) bool {
	if !event.Has([]string{m.x, m.y, m.z}) {
		return false
	}
	if !m.point(event.Data[m.x], event.Data[m.y], event.Data[m.z]) {
		return false
	}
	m.updateRanges()
	return true
}

func (m *sampleMap) EventPage(page *document.EventPage) bool {
	if !page.Has([]string{m.x, m.y, m.z}) {
		return false
	}
	xs, ys, zs := page.Data[m.x], page.Data[m.y], page.Data[m.z]
	changed := false
	for i := range page.Len() {
		if m.point(xs[i], ys[i], zs[i]) {
			changed = true
		}
	}
	if changed {
		m.updateRanges()
	}
	return changed
}

func finite(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}
